// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/olegiv/vcms-go/internal/geoip"
	"github.com/olegiv/vcms-go/internal/store"
	"github.com/olegiv/vcms-go/internal/telemetry"
)

// Collector limits.
const (
	MaxSummaryDays     = 366
	maxTitleLength     = 300
	maxPropertiesBytes = 4096
	// Timestamps further in the future than this are replaced by the
	// receive time.
	maxClockSkew = 5 * time.Minute
)

// Visitor is what the collector knows about the sender of an event.
type Visitor struct {
	UserAgent string
	IP        string
}

// AnalyticsSummary is the beheer dashboard view of recent telemetry.
type AnalyticsSummary struct {
	Since     time.Time              `json:"since"`
	Days      int                    `json:"days"`
	Sessions  int64                  `json:"sessions"`
	Totals    map[string]int64       `json:"totals"`
	TopPaths  []store.CountRow       `json:"top_paths"`
	Devices   []store.CountRow       `json:"devices"`
	Browsers  []store.CountRow       `json:"browsers"`
	Sources   []store.CountRow       `json:"sources"`
	Systems   []store.CountRow       `json:"operating_systems"`
	Countries []store.CountRow       `json:"countries"`
	Daily     []store.TelemetryDaily `json:"daily"`
}

// AnalyticsService stores collected telemetry and aggregates it.
type AnalyticsService struct {
	queries *store.Queries
	geo     geoip.Resolver
	now     func() time.Time
}

// NewAnalyticsService creates an AnalyticsService. geo may be nil.
func NewAnalyticsService(db *sql.DB, geo geoip.Resolver) *AnalyticsService {
	return &AnalyticsService{queries: store.New(db), geo: geo, now: time.Now}
}

// Record validates ev, fills in what the payload left out from the
// visitor's request and stores it.
func (s *AnalyticsService) Record(ctx context.Context, ev telemetry.Event, v Visitor) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	now := s.now().UTC()
	occurred := ev.Timestamp.UTC()
	if occurred.After(now.Add(maxClockSkew)) {
		occurred = now
	}

	p := store.CreateTelemetryEventParams{
		Type:       string(ev.Type),
		SessionID:  ev.SessionID,
		UserID:     truncate(ev.UserID, 64),
		Path:       ev.Path(),
		OccurredAt: occurred,
		CreatedAt:  now,
	}

	switch {
	case ev.PageView != nil:
		s.fillPageView(&p, ev.PageView, v)
	case ev.Interaction != nil:
		in := ev.Interaction
		p.InteractionKind = string(in.Kind)
		p.Element = truncate(in.Element, 512)
		p.Target = truncate(in.Target, 512)
		p.ScrollDepth = int64(in.ScrollDepth)
	case ev.SessionEnd != nil:
		p.DurationSeconds = ev.SessionEnd.DurationSeconds
	case ev.Custom != nil:
		p.EventName = strings.TrimSpace(ev.Custom.Name)
		if len(ev.Custom.Properties) > 0 {
			b, err := json.Marshal(ev.Custom.Properties)
			if err != nil || len(b) > maxPropertiesBytes {
				return fmt.Errorf("%w: properties too large or not serializable", telemetry.ErrInvalidEvent)
			}
			p.Properties = string(b)
		}
	}

	if err := s.queries.CreateTelemetryEvent(ctx, p); err != nil {
		return fmt.Errorf("storing telemetry event: %w", err)
	}
	return nil
}

// RecordRelayed stores an event produced by this server's own beacon. The
// beacon classified the visitor already; there is no sender request to
// derive anything from.
func (s *AnalyticsService) RecordRelayed(ctx context.Context, ev telemetry.Event) error {
	return s.Record(ctx, ev, Visitor{})
}

// fillPageView copies pv into p. Classification the sender omitted, or
// sent outside the known value sets, is derived from the visitor's request.
func (s *AnalyticsService) fillPageView(p *store.CreateTelemetryEventParams, pv *telemetry.PageView, v Visitor) {
	p.Title = truncate(pv.Title, maxTitleLength)
	p.Referrer = telemetry.ReferrerHost(pv.Referrer)
	p.Language = truncate(pv.Locale, 35)
	p.Timezone = truncate(pv.Timezone, 64)

	source := pv.Source
	if !source.Valid() {
		source = telemetry.ClassifySource(pv.Referrer, "")
	}
	p.Source = string(source)
	device := pv.Device
	if !device.Valid() {
		device = telemetry.ClassifyDevice(v.UserAgent)
	}
	p.Device = string(device)
	browser := pv.Browser
	if !browser.Valid() {
		browser = telemetry.ClassifyBrowser(v.UserAgent)
	}
	p.Browser = string(browser)
	p.Os = truncate(pv.OS, 50)
	if p.Os == "" {
		p.Os = telemetry.OperatingSystem(v.UserAgent)
	}
	p.Country = truncate(pv.Country, 8)
	if p.Country == "" && s.geo != nil {
		p.Country = s.geo.Country(v.IP)
	}

	p.ScreenWidth, p.ScreenHeight = int64(pv.ScreenWidth), int64(pv.ScreenHeight)
	p.ViewportWidth, p.ViewportHeight = int64(pv.ViewportWidth), int64(pv.ViewportHeight)
}

// Summary aggregates the last days days of telemetry.
func (s *AnalyticsService) Summary(ctx context.Context, days int) (*AnalyticsSummary, error) {
	days = min(max(days, 1), MaxSummaryDays)
	since := s.now().UTC().AddDate(0, 0, -days)

	out := &AnalyticsSummary{Since: since, Days: days, Totals: make(map[string]int64)}

	byType, err := s.queries.CountTelemetryByType(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("counting events: %w", err)
	}
	for _, row := range byType {
		out.Totals[row.Label] = row.Count
	}

	if out.Sessions, err = s.queries.CountTelemetrySessions(ctx, since); err != nil {
		return nil, fmt.Errorf("counting sessions: %w", err)
	}
	if out.TopPaths, err = s.queries.TopTelemetryPaths(ctx, since, 10); err != nil {
		return nil, fmt.Errorf("top paths: %w", err)
	}

	breakdowns := []struct {
		dim  string
		dest *[]store.CountRow
	}{
		{"device", &out.Devices},
		{"browser", &out.Browsers},
		{"source", &out.Sources},
		{"os", &out.Systems},
		{"country", &out.Countries},
	}
	for _, b := range breakdowns {
		rows, err := s.queries.TelemetryBreakdown(ctx, b.dim, since)
		if err != nil {
			return nil, fmt.Errorf("%s breakdown: %w", b.dim, err)
		}
		*b.dest = rows
	}

	if out.Daily, err = s.queries.ListTelemetryDaily(ctx, since); err != nil {
		return nil, fmt.Errorf("daily rollups: %w", err)
	}
	return out, nil
}

// RollupDay aggregates the UTC day containing day into telemetry_daily.
func (s *AnalyticsService) RollupDay(ctx context.Context, day time.Time) (int64, error) {
	return s.queries.RollupTelemetryDay(ctx, day.UTC())
}

// RollupYesterday aggregates the previous UTC day.
func (s *AnalyticsService) RollupYesterday(ctx context.Context) (int64, error) {
	return s.RollupDay(ctx, s.now().UTC().AddDate(0, 0, -1))
}

// Purge deletes raw events older than retentionDays. Daily rollups are kept.
func (s *AnalyticsService) Purge(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays < 1 {
		retentionDays = 1
	}
	return s.queries.DeleteTelemetryBefore(ctx, s.now().UTC().AddDate(0, 0, -retentionDays))
}

// SessionEvents returns every stored event of one session in order.
func (s *AnalyticsService) SessionEvents(ctx context.Context, sessionID string) ([]store.TelemetryEvent, error) {
	return s.queries.ListTelemetryEventsBySession(ctx, sessionID)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	// Back off to a rune boundary.
	for n > 0 && n < len(s) && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n]
}
