// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/olegiv/vcms-go/internal/linkpreview"
)

// LinkPreview handles GET /api/link-preview?url=.
func (h *Handler) LinkPreview(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("url"))
	if raw == "" {
		WriteBadRequest(w, "Missing url parameter", nil)
		return
	}

	p, err := h.previews.Fetch(r.Context(), raw)
	switch {
	case err == nil:
		w.Header().Set("Cache-Control", "public, max-age=3600")
		WriteSuccess(w, p, nil)
	case errors.Is(err, linkpreview.ErrBlockedURL):
		WriteError(w, http.StatusUnprocessableEntity, "blocked_url", "URL is not allowed", nil)
	case errors.Is(err, linkpreview.ErrNotHTML):
		WriteBadRequest(w, "URL does not point to an HTML page", nil)
	default:
		slog.Debug("link preview failed", "url", raw, "error", err)
		WriteError(w, http.StatusBadGateway, "upstream_error", "Could not fetch preview", nil)
	}
}
