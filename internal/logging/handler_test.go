// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package logging

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/olegiv/vcms-go/internal/auth"
	"github.com/olegiv/vcms-go/internal/middleware"
	"github.com/olegiv/vcms-go/internal/model"
	"github.com/olegiv/vcms-go/internal/store"
	"github.com/olegiv/vcms-go/internal/testutil"
)

// discardHandler is a slog.Handler that discards all logs.
type discardHandler struct{}

func (h discardHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (h discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return h }
func (h discardHandler) WithGroup(string) slog.Handler             { return h }

func listEvents(t *testing.T, db *sql.DB) []store.Event {
	t.Helper()
	events, err := store.New(db).ListEvents(context.Background(), store.ListEventsParams{Limit: 50})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	return events
}

func TestEventLogHandler_Levels(t *testing.T) {
	db := testutil.TestDB(t)
	logger := slog.New(NewEventLogHandler(discardHandler{}, db))

	logger.Debug("processing request", "request_id", "abc123")
	logger.Info("server started", "port", 8080)
	logger.Warn("slow query detected", "duration_ms", 5000)
	logger.Error("database connection failed", "host", "localhost")

	events := listEvents(t, db)
	if len(events) != 2 {
		t.Fatalf("expected 2 events (warn + error), got %d", len(events))
	}

	levels := map[string]string{}
	for _, e := range events {
		levels[e.Message] = e.Level
	}
	if levels["slow query detected"] != model.EventLevelWarning {
		t.Errorf("warn level = %q", levels["slow query detected"])
	}
	if levels["database connection failed"] != model.EventLevelError {
		t.Errorf("error level = %q", levels["database connection failed"])
	}
}

func TestEventLogHandler_CustomLevel(t *testing.T) {
	db := testutil.TestDB(t)
	logger := slog.New(NewEventLogHandlerWithLevel(discardHandler{}, db, slog.LevelInfo))

	logger.Info("server started", "port", 8080)

	if n := len(listEvents(t, db)); n != 1 {
		t.Errorf("expected 1 event with custom INFO level, got %d", n)
	}
}

func TestCategory(t *testing.T) {
	tests := []struct {
		message string
		attrs   []slog.Attr
		want    string
	}{
		{"user authentication failed", nil, model.EventCategoryAuth},
		{"login attempt blocked", nil, model.EventCategoryAuth},
		{"session token decoder panicked", nil, model.EventCategoryAuth},
		{"failed to store telemetry event", nil, model.EventCategoryTelemetry},
		{"upload rejected", nil, model.EventCategoryMedia},
		{"failed to load active notice", nil, model.EventCategoryContent},
		{"failed to delete user", nil, model.EventCategoryUser},
		{"cache unavailable", nil, model.EventCategoryCache},
		{"unknown error occurred", nil, model.EventCategorySystem},
		{"something happened", []slog.Attr{slog.String("category", model.EventCategoryUser)}, model.EventCategoryUser},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			if got := category(tt.message, tt.attrs); got != tt.want {
				t.Errorf("category(%q) = %q, want %q", tt.message, got, tt.want)
			}
		})
	}
}

func TestEventLogHandler_Metadata(t *testing.T) {
	db := testutil.TestDB(t)
	logger := slog.New(NewEventLogHandler(discardHandler{}, db))

	logger.Error("parse error",
		"status_code", 500,
		"input", `{"key": "value with \"quotes\""}`,
		"path", "C:\\Users\\test",
		"category", model.EventCategorySystem,
		slog.Group("req", slog.String("method", "POST")),
	)

	events := listEvents(t, db)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	var meta map[string]string
	if err := json.Unmarshal([]byte(events[0].Metadata), &meta); err != nil {
		t.Fatalf("metadata is not valid JSON: %v (%s)", err, events[0].Metadata)
	}
	if meta["status_code"] != "500" || meta["path"] != `C:\Users\test` || meta["req.method"] != "POST" {
		t.Errorf("metadata = %v", meta)
	}
	if _, ok := meta["category"]; ok {
		t.Error("category must not be repeated in metadata")
	}
}

func TestEventLogHandler_WithAttrsAndGroup(t *testing.T) {
	db := testutil.TestDB(t)
	h := NewEventLogHandler(discardHandler{}, db)
	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String("service", "api")}).WithGroup("request"))

	logger.Error("request error", "id", "abc123")

	events := listEvents(t, db)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	var meta map[string]string
	_ = json.Unmarshal([]byte(events[0].Metadata), &meta)
	if meta["service"] != "api" || meta["request.id"] != "abc123" {
		t.Errorf("metadata = %v", meta)
	}
}

func TestEventLogHandler_RequestContext(t *testing.T) {
	db := testutil.TestDB(t)
	logger := slog.New(NewEventLogHandler(discardHandler{}, db))

	ctx := middleware.WithSession(context.Background(), &auth.Session{Subject: "42", Role: model.RoleBeheerder})
	ctx = context.WithValue(ctx, middleware.ContextKeyRequestPath, "/beheer/media")
	ctx, cancel := context.WithCancel(ctx)
	cancel()

	logger.ErrorContext(ctx, "upload failed")

	events := listEvents(t, db)
	if len(events) != 1 {
		t.Fatalf("expected 1 event after cancelled context, got %d", len(events))
	}
	e := events[0]
	if e.RequestUrl != "/beheer/media" || !e.UserID.Valid || e.UserID.Int64 != 42 {
		t.Errorf("event = %+v", e)
	}
	if time.Since(e.CreatedAt) > time.Minute {
		t.Errorf("CreatedAt = %v", e.CreatedAt)
	}
}

func TestEventLevel(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  string
	}{
		{slog.LevelDebug, model.EventLevelInfo},
		{slog.LevelInfo, model.EventLevelInfo},
		{slog.LevelWarn, model.EventLevelWarning},
		{slog.LevelError, model.EventLevelError},
		{slog.LevelError + 4, model.EventLevelError},
	}
	for _, tt := range tests {
		if got := eventLevel(tt.level); got != tt.want {
			t.Errorf("eventLevel(%v) = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestMetadata_Empty(t *testing.T) {
	if got := metadata(nil); got != "{}" {
		t.Errorf("metadata(nil) = %q", got)
	}
	if got := metadata([]slog.Attr{slog.String("category", "x")}); got != "{}" {
		t.Errorf("metadata(category only) = %q", got)
	}
}
