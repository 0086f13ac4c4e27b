// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the periodic maintenance jobs: telemetry rollups,
// retention purges and GeoIP reloads.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultJobTimeout bounds a single job run.
const DefaultJobTimeout = 10 * time.Minute

// Job is one periodic task.
type Job struct {
	Name        string
	Description string
	// Schedule is a standard five-field cron expression or a descriptor
	// such as "@hourly". Evaluated in UTC.
	Schedule string
	Run      func(ctx context.Context) error
}

// ErrJobNotFound is returned for unknown job names.
var ErrJobNotFound = errors.New("job not found")

// Scheduler runs registered jobs on their cron schedules.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration

	mu   sync.RWMutex
	jobs map[string]*registeredJob
}

// New creates a new scheduler instance.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		logger:  logger,
		timeout: DefaultJobTimeout,
		jobs:    make(map[string]*registeredJob),
	}
}

// Add registers job. Names must be unique and the schedule must parse.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return errors.New("job needs a name and a run function")
	}
	if err := ValidateSchedule(job.Schedule); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("job %q already registered", job.Name)
	}

	rj := &registeredJob{job: job}
	id, err := s.cron.AddFunc(job.Schedule, func() {
		if !rj.tryStart() {
			s.logger.Warn("skipping scheduled job, previous run still active", "name", job.Name)
			return
		}
		_ = s.run(rj, "cron")
	})
	if err != nil {
		return fmt.Errorf("scheduling %s: %w", job.Name, err)
	}
	rj.entryID = id
	s.jobs[job.Name] = rj

	s.logger.Debug("registered scheduled job", "name", job.Name, "schedule", job.Schedule)
	return nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop stops scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// run executes one job with a timeout and records the outcome. Panics are
// logged and recorded as failures so the cron goroutine survives.
func (s *Scheduler) run(rj *registeredJob, trigger string) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job panicked: %v", rec)
		}
		rj.record(start, err)
		if err != nil {
			s.logger.Error("scheduled job failed", "name", rj.job.Name, "trigger", trigger, "error", err)
			return
		}
		s.logger.Info("scheduled job finished", "name", rj.job.Name, "trigger", trigger,
			"duration", time.Since(start).Round(time.Millisecond))
	}()

	return rj.job.Run(ctx)
}

// ValidateSchedule reports whether expr is a cron expression the scheduler
// accepts.
func ValidateSchedule(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}
