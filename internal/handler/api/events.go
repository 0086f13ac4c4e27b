// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"net/http"

	"github.com/olegiv/vcms-go/internal/model"
	"github.com/olegiv/vcms-go/internal/store"
)

// EventResponse is one audit log entry.
type EventResponse struct {
	store.Event
	UserID   *int64         `json:"user_id,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func eventToResponse(e store.Event) EventResponse {
	resp := EventResponse{Event: e}
	if e.UserID.Valid {
		resp.UserID = &e.UserID.Int64
	}
	if e.Metadata != "" && e.Metadata != "{}" {
		_ = json.Unmarshal([]byte(e.Metadata), &resp.Metadata)
	}
	return resp
}

var validEventLevels = map[string]bool{
	model.EventLevelInfo:    true,
	model.EventLevelWarning: true,
	model.EventLevelError:   true,
}

// ListEvents handles GET /beheer/events with optional ?level= and ?category= filters.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	level := r.URL.Query().Get("level")
	category := r.URL.Query().Get("category")
	if level != "" && !validEventLevels[level] {
		WriteBadRequest(w, "Unknown level", map[string]string{"level": level})
		return
	}

	page := listPage(r)
	items, err := h.events.ListEvents(r.Context(), level, category, page.Limit(), page.Offset())
	if err != nil {
		WriteInternalError(w, "Failed to list events")
		return
	}
	out := make([]EventResponse, 0, len(items))
	for _, e := range items {
		out = append(out, eventToResponse(e))
	}
	WriteSuccess(w, out, pageMeta(page, -1))
}
