// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"time"
)

type CreateTelemetryEventParams struct {
	Type            string
	SessionID       string
	UserID          string
	Path            string
	Title           string
	Referrer        string
	Source          string
	Device          string
	Browser         string
	Os              string
	Country         string
	Language        string
	ScreenWidth     int64
	ScreenHeight    int64
	ViewportWidth   int64
	ViewportHeight  int64
	Timezone        string
	InteractionKind string
	Element         string
	Target          string
	ScrollDepth     int64
	DurationSeconds int64
	EventName       string
	Properties      string
	OccurredAt      time.Time
	CreatedAt       time.Time
}

const createTelemetryEvent = `INSERT INTO telemetry_events (
    type, session_id, user_id, path, title, referrer, source, device, browser, os, country, language,
    screen_width, screen_height, viewport_width, viewport_height, timezone,
    interaction_kind, element, target, scroll_depth, duration_seconds,
    event_name, properties, occurred_at, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateTelemetryEvent(ctx context.Context, arg CreateTelemetryEventParams) error {
	if arg.Properties == "" {
		arg.Properties = "{}"
	}
	_, err := q.db.ExecContext(ctx, createTelemetryEvent,
		arg.Type, arg.SessionID, arg.UserID, arg.Path, arg.Title, arg.Referrer, arg.Source,
		arg.Device, arg.Browser, arg.Os, arg.Country, arg.Language,
		arg.ScreenWidth, arg.ScreenHeight, arg.ViewportWidth, arg.ViewportHeight, arg.Timezone,
		arg.InteractionKind, arg.Element, arg.Target,
		arg.ScrollDepth, arg.DurationSeconds, arg.EventName, arg.Properties,
		arg.OccurredAt.UTC(), arg.CreatedAt.UTC(),
	)
	return err
}

const listTelemetryEventsBySession = `SELECT id, type, session_id, user_id, path, title, referrer, source, device,
browser, os, country, language, screen_width, screen_height, viewport_width, viewport_height, timezone,
interaction_kind, element, target,
scroll_depth, duration_seconds, event_name, properties, occurred_at, created_at
FROM telemetry_events WHERE session_id = ? ORDER BY occurred_at, id`

func (q *Queries) ListTelemetryEventsBySession(ctx context.Context, sessionID string) ([]TelemetryEvent, error) {
	rows, err := q.db.QueryContext(ctx, listTelemetryEventsBySession, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []TelemetryEvent
	for rows.Next() {
		var e TelemetryEvent
		if err := rows.Scan(
			&e.ID, &e.Type, &e.SessionID, &e.UserID, &e.Path, &e.Title, &e.Referrer, &e.Source,
			&e.Device, &e.Browser, &e.Os, &e.Country, &e.Language, &e.ScreenWidth, &e.ScreenHeight,
			&e.ViewportWidth, &e.ViewportHeight, &e.Timezone, &e.InteractionKind, &e.Element, &e.Target,
			&e.ScrollDepth, &e.DurationSeconds,
			&e.EventName, &e.Properties, &e.OccurredAt, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// CountRow is a label with its count, used by summary breakdowns.
type CountRow struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

func (q *Queries) queryCounts(ctx context.Context, query string, args ...any) ([]CountRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []CountRow
	for rows.Next() {
		var c CountRow
		if err := rows.Scan(&c.Label, &c.Count); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const countTelemetryByType = `SELECT type, COUNT(*) FROM telemetry_events
WHERE occurred_at >= ?
GROUP BY type ORDER BY type`

func (q *Queries) CountTelemetryByType(ctx context.Context, since time.Time) ([]CountRow, error) {
	return q.queryCounts(ctx, countTelemetryByType, since.UTC())
}

const countTelemetrySessions = `SELECT COUNT(DISTINCT session_id) FROM telemetry_events WHERE occurred_at >= ?`

func (q *Queries) CountTelemetrySessions(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countTelemetrySessions, since.UTC()).Scan(&n)
	return n, err
}

const topTelemetryPaths = `SELECT path, COUNT(*) AS views FROM telemetry_events
WHERE type = 'pageview' AND occurred_at >= ?
GROUP BY path ORDER BY views DESC, path LIMIT ?`

func (q *Queries) TopTelemetryPaths(ctx context.Context, since time.Time, limit int64) ([]CountRow, error) {
	return q.queryCounts(ctx, topTelemetryPaths, since.UTC(), limit)
}

// breakdownColumns lists the pageview columns that may be grouped by.
var breakdownColumns = map[string]string{
	"device":  "device",
	"browser": "browser",
	"source":  "source",
	"os":      "os",
	"country": "country",
}

// TelemetryBreakdown counts pageviews grouped by one dimension.
func (q *Queries) TelemetryBreakdown(ctx context.Context, dimension string, since time.Time) ([]CountRow, error) {
	col, ok := breakdownColumns[dimension]
	if !ok {
		return nil, fmt.Errorf("unknown breakdown dimension %q", dimension)
	}
	query := `SELECT ` + col + `, COUNT(*) AS n FROM telemetry_events
WHERE type = 'pageview' AND occurred_at >= ?
GROUP BY ` + col + ` ORDER BY n DESC, ` + col
	return q.queryCounts(ctx, query, since.UTC())
}

const rollupTelemetryDay = `INSERT OR REPLACE INTO telemetry_daily (day, type, path, events, sessions)
SELECT substr(occurred_at, 1, 10), type, path, COUNT(*), COUNT(DISTINCT session_id)
FROM telemetry_events
WHERE occurred_at >= ? AND occurred_at < ?
GROUP BY substr(occurred_at, 1, 10), type, path`

// RollupTelemetryDay aggregates one UTC day of raw events into telemetry_daily.
// Running it twice for the same day replaces the earlier rows.
func (q *Queries) RollupTelemetryDay(ctx context.Context, day time.Time) (int64, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	res, err := q.db.ExecContext(ctx, rollupTelemetryDay, start, start.AddDate(0, 0, 1))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listTelemetryDaily = `SELECT day, type, path, events, sessions FROM telemetry_daily
WHERE day >= ? ORDER BY day, type, path`

func (q *Queries) ListTelemetryDaily(ctx context.Context, since time.Time) ([]TelemetryDaily, error) {
	rows, err := q.db.QueryContext(ctx, listTelemetryDaily, since.UTC().Format(time.DateOnly))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []TelemetryDaily
	for rows.Next() {
		var d TelemetryDaily
		if err := rows.Scan(&d.Day, &d.Type, &d.Path, &d.Events, &d.Sessions); err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

const deleteTelemetryBefore = `DELETE FROM telemetry_events WHERE occurred_at < ?`

func (q *Queries) DeleteTelemetryBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTelemetryBefore, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
