// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/olegiv/vcms-go/internal/handler"
	"github.com/olegiv/vcms-go/internal/store"
	"github.com/olegiv/vcms-go/internal/util"
)

const upcomingLimit = 50

// HomeResponse is the body of GET /.
type HomeResponse struct {
	Site     string          `json:"site"`
	Notice   *NoticeResponse `json:"notice,omitempty"`
	Upcoming int             `json:"upcoming_activities"`
}

// Home handles GET /: site info and the active notice, if any.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := HomeResponse{Site: h.siteName}

	n, err := h.notices.Active(ctx)
	if err != nil {
		slog.Error("failed to load active notice", "error", err)
		WriteInternalError(w, "Failed to load notice")
		return
	}
	if n != nil {
		nr := noticeToResponse(*n)
		resp.Notice = &nr
	}

	upcoming, err := h.queries.ListUpcomingActivities(ctx, h.now(), upcomingLimit)
	if err != nil {
		WriteInternalError(w, "Failed to list activities")
		return
	}
	resp.Upcoming = len(upcoming)
	WriteSuccess(w, resp, nil)
}

// PublicNewsletters handles GET /nieuwsbrief.
func (h *Handler) PublicNewsletters(w http.ResponseWriter, r *http.Request) {
	h.writeNewsletters(w, r, true)
}

// PublicNewsletter handles GET /nieuwsbrief/{slug}.
func (h *Handler) PublicNewsletter(w http.ResponseWriter, r *http.Request) {
	n, ok := requireBySlug(w, r, "newsletter", func(slug string) (store.Newsletter, error) {
		return h.queries.GetPublishedNewsletterBySlug(r.Context(), slug)
	})
	if !ok {
		return
	}
	WriteSuccess(w, newsletterToResponse(n), nil)
}

// PublicAlbums handles GET /fotoalbum.
func (h *Handler) PublicAlbums(w http.ResponseWriter, r *http.Request) {
	h.writeAlbums(w, r, true)
}

// PublicAlbum handles GET /fotoalbum/{slug} and includes the photos.
func (h *Handler) PublicAlbum(w http.ResponseWriter, r *http.Request) {
	a, ok := requireBySlug(w, r, "album", func(slug string) (store.Album, error) {
		return h.queries.GetPublishedAlbumBySlug(r.Context(), slug)
	})
	if !ok {
		return
	}
	h.writeAlbumWithPhotos(w, r, a)
}

// PublicActivities handles GET /activiteiten: activities that have not ended yet.
func (h *Handler) PublicActivities(w http.ResponseWriter, r *http.Request) {
	limit := handler.ParseIntParam(r, "limit", 20, 1, upcomingLimit)
	items, err := h.queries.ListUpcomingActivities(r.Context(), h.now(), int64(limit))
	if err != nil {
		WriteInternalError(w, "Failed to list activities")
		return
	}
	out := make([]ActivityResponse, 0, len(items))
	for _, a := range items {
		out = append(out, activityToResponse(a))
	}
	WriteSuccess(w, out, nil)
}

// requireBySlug reads the {slug} URL parameter and fetches the entity.
// Malformed slugs are answered with 404 without touching the database.
func requireBySlug[T any](w http.ResponseWriter, r *http.Request, entityName string, fetch func(slug string) (T, error)) (T, bool) {
	var zero T
	slug, err := handler.ParseURLParam(r, "slug")
	if err != nil || !util.IsValidSlug(slug) {
		WriteNotFound(w, capitalizeFirst(entityName)+" not found")
		return zero, false
	}
	entity, err := fetch(slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			WriteNotFound(w, capitalizeFirst(entityName)+" not found")
		} else {
			WriteInternalError(w, "Failed to retrieve "+entityName)
		}
		return zero, false
	}
	return entity, true
}
