// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Default schedules, evaluated in UTC.
const (
	RollupSchedule     = "15 0 * * *"
	PurgeSchedule      = "30 3 * * *"
	AuditPurgeSchedule = "45 3 * * *"
	GeoIPSchedule      = "@hourly"

	DefaultAuditRetention = 90 * 24 * time.Hour
)

// TelemetryMaintainer is implemented by service.AnalyticsService.
type TelemetryMaintainer interface {
	RollupYesterday(ctx context.Context) (int64, error)
	Purge(ctx context.Context, retentionDays int) (int64, error)
}

// EventPurger is implemented by service.EventService.
type EventPurger interface {
	DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error)
}

// GeoReloader is implemented by geoip.Lookup.
type GeoReloader interface {
	Reload() error
}

// MaintenanceConfig selects the maintenance jobs. Nil dependencies skip
// their jobs.
type MaintenanceConfig struct {
	Telemetry     TelemetryMaintainer
	RetentionDays int
	Events        EventPurger
	// AuditRetention defaults to DefaultAuditRetention.
	AuditRetention time.Duration
	GeoIP          GeoReloader
}

// MaintenanceJobs builds the jobs for cfg.
func MaintenanceJobs(cfg MaintenanceConfig) []Job {
	var jobs []Job

	if cfg.Telemetry != nil {
		jobs = append(jobs,
			Job{
				Name:        "telemetry-rollup",
				Description: "Aggregate yesterday's telemetry into daily counts",
				Schedule:    RollupSchedule,
				Run: func(ctx context.Context) error {
					n, err := cfg.Telemetry.RollupYesterday(ctx)
					if err == nil {
						slog.Info("telemetry rolled up", "rows", n)
					}
					return err
				},
			},
			Job{
				Name:        "telemetry-purge",
				Description: "Delete raw telemetry past the retention period",
				Schedule:    PurgeSchedule,
				Run: func(ctx context.Context) error {
					n, err := cfg.Telemetry.Purge(ctx, cfg.RetentionDays)
					if err == nil && n > 0 {
						slog.Info("telemetry purged", "deleted", n, "retention_days", cfg.RetentionDays)
					}
					return err
				},
			},
		)
	}

	if cfg.Events != nil {
		retention := cfg.AuditRetention
		if retention <= 0 {
			retention = DefaultAuditRetention
		}
		jobs = append(jobs, Job{
			Name:        "audit-purge",
			Description: "Delete audit events past the retention period",
			Schedule:    AuditPurgeSchedule,
			Run: func(ctx context.Context) error {
				n, err := cfg.Events.DeleteOldEvents(ctx, retention)
				if err == nil && n > 0 {
					slog.Info("audit events purged", "deleted", n)
				}
				return err
			},
		})
	}

	if cfg.GeoIP != nil {
		jobs = append(jobs, Job{
			Name:        "geoip-reload",
			Description: "Reopen the GeoIP database when the file changed",
			Schedule:    GeoIPSchedule,
			Run: func(context.Context) error {
				return cfg.GeoIP.Reload()
			},
		})
	}

	return jobs
}

// AddAll registers every job, stopping at the first error.
func (s *Scheduler) AddAll(jobs []Job) error {
	for _, j := range jobs {
		if err := s.Add(j); err != nil {
			return err
		}
	}
	return nil
}
