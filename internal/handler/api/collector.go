// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/olegiv/vcms-go/internal/handler"
	"github.com/olegiv/vcms-go/internal/middleware"
	"github.com/olegiv/vcms-go/internal/service"
	"github.com/olegiv/vcms-go/internal/telemetry"
)

// Collector limits.
const (
	maxCollectBody  = 64 << 10
	maxCollectBatch = 50
)

// collectBatch is the batch form of a collector post.
type collectBatch struct {
	Events []telemetry.Event `json:"events"`
}

// Collect handles POST /api/analytics.
// Accepts one event or {"events":[...]}. Every well-formed request gets 202
// with an empty body; invalid events are skipped and bots are dropped without
// telling them.
func (h *Handler) Collect(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCollectBody+1))
	if err != nil || len(body) > maxCollectBody {
		WriteError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Payload too large", nil)
		return
	}

	events, err := decodeEvents(body)
	if err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}

	ua := r.UserAgent()
	if telemetry.IsBot(ua) {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	visitor := service.Visitor{UserAgent: ua, IP: middleware.ClientIP(r)}

	stored, skipped := 0, 0
	for _, ev := range events {
		if err := h.analytics.Record(r.Context(), ev, visitor); err != nil {
			skipped++
			if !errors.Is(err, telemetry.ErrInvalidEvent) {
				slog.Error("failed to store telemetry event", "error", err, "type", ev.Type)
			}
			continue
		}
		stored++
	}
	if skipped > 0 {
		slog.Debug("telemetry events skipped", "skipped", skipped, "stored", stored)
	}

	w.WriteHeader(http.StatusAccepted)
}

// decodeEvents accepts a single event object or a batch envelope.
func decodeEvents(body []byte) ([]telemetry.Event, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.New("expected a JSON object")
	}

	var shape map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &shape); err != nil {
		return nil, err
	}

	if _, ok := shape["events"]; ok {
		var batch collectBatch
		if err := json.Unmarshal(trimmed, &batch); err != nil {
			return nil, err
		}
		if len(batch.Events) > maxCollectBatch {
			batch.Events = batch.Events[:maxCollectBatch]
		}
		return batch.Events, nil
	}

	var ev telemetry.Event
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return nil, err
	}
	return []telemetry.Event{ev}, nil
}

// AnalyticsSummary handles GET /beheer/analytics/summary?days=N.
func (h *Handler) AnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	days := handler.ParseIntParam(r, "days", 30, 1, service.MaxSummaryDays)

	summary, err := h.analytics.Summary(r.Context(), days)
	if err != nil {
		slog.Error("failed to build analytics summary", "error", err)
		WriteInternalError(w, "Failed to build analytics summary")
		return
	}
	WriteSuccess(w, summary, nil)
}

// AnalyticsSession handles GET /beheer/analytics/sessions/{sessionID}.
func (h *Handler) AnalyticsSession(w http.ResponseWriter, r *http.Request) {
	id, err := handler.ParseURLParam(r, "sessionID")
	if err != nil {
		WriteBadRequest(w, "Invalid session ID", nil)
		return
	}
	events, err := h.analytics.SessionEvents(r.Context(), id)
	if err != nil {
		WriteInternalError(w, "Failed to load session")
		return
	}
	if len(events) == 0 {
		WriteNotFound(w, "Session not found")
		return
	}
	WriteSuccess(w, events, &Meta{Total: int64(len(events))})
}
