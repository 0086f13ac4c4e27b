// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/olegiv/vcms-go/internal/handler"
	"github.com/olegiv/vcms-go/internal/service"
	"github.com/olegiv/vcms-go/internal/store"
	"github.com/olegiv/vcms-go/internal/util"
)

const invalidSlugMessage = "Slug may contain lowercase letters, digits and hyphens"

// Newsletters

// NewsletterRequest is the body of newsletter create and update requests.
// The HTML body is always rendered from BodyMarkdown.
type NewsletterRequest struct {
	Title        string `json:"title"`
	Slug         string `json:"slug"`
	Summary      string `json:"summary"`
	BodyMarkdown string `json:"body_markdown"`
	Published    bool   `json:"published"`
}

// NewsletterResponse represents a newsletter in API responses.
type NewsletterResponse struct {
	store.Newsletter
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

func newsletterToResponse(n store.Newsletter) NewsletterResponse {
	return NewsletterResponse{Newsletter: n, PublishedAt: timePtr(n.PublishedAt)}
}

// newsletterParams reads a newsletter request. existing is nil on create.
func (h *Handler) newsletterParams(w http.ResponseWriter, r *http.Request, existing *store.Newsletter) (p store.NewsletterParams, ok bool) {
	var req NewsletterRequest
	if !decodeJSON(w, r, &req) {
		return p, false
	}
	p = store.NewsletterParams{
		Title:        strings.TrimSpace(req.Title),
		Summary:      strings.TrimSpace(req.Summary),
		BodyMarkdown: req.BodyMarkdown,
		Published:    req.Published,
		Now:          h.now(),
	}

	errs := make(map[string]string)
	if p.Title == "" {
		errs["title"] = "Title is required"
	}
	if req.Slug != "" && !util.IsValidSlug(req.Slug) {
		errs["slug"] = invalidSlugMessage
	}
	if len(errs) > 0 {
		WriteValidationError(w, errs)
		return p, false
	}

	html, err := service.RenderMarkdown(p.BodyMarkdown)
	if err != nil {
		WriteValidationError(w, map[string]string{"body_markdown": "Could not render markdown"})
		return p, false
	}
	p.BodyHtml = html
	if p.Summary == "" {
		p.Summary = service.Excerpt(html, 200)
	}

	// The first publication date sticks across later edits.
	if p.Published {
		if existing != nil && existing.PublishedAt.Valid {
			p.PublishedAt = existing.PublishedAt
		} else {
			p.PublishedAt = sql.NullTime{Time: p.Now, Valid: true}
		}
	}

	var selfID int64
	if existing != nil {
		selfID = existing.ID
		if req.Slug == "" {
			req.Slug = existing.Slug
		}
	}
	p.Slug, ok = resolveSlug(w, req.Slug, p.Title, func(slug string) (bool, error) {
		return h.queries.NewsletterSlugExists(r.Context(), slug, selfID)
	})
	return p, ok
}

func (h *Handler) requireNewsletter(w http.ResponseWriter, r *http.Request) (store.Newsletter, bool) {
	return requireEntityByID(w, r, "newsletter", func(id int64) (store.Newsletter, error) {
		return h.queries.GetNewsletter(r.Context(), id)
	})
}

// ListNewsletters handles GET /beheer/newsletters, drafts included.
func (h *Handler) ListNewsletters(w http.ResponseWriter, r *http.Request) {
	h.writeNewsletters(w, r, false)
}

func (h *Handler) writeNewsletters(w http.ResponseWriter, r *http.Request, publishedOnly bool) {
	page := listPage(r)
	items, err := h.queries.ListNewsletters(r.Context(), publishedOnly, page.Limit(), page.Offset())
	if err != nil {
		WriteInternalError(w, "Failed to list newsletters")
		return
	}
	out := make([]NewsletterResponse, 0, len(items))
	for _, n := range items {
		out = append(out, newsletterToResponse(n))
	}
	WriteSuccess(w, out, pageMeta(page, -1))
}

// GetNewsletter handles GET /beheer/newsletters/{id}.
func (h *Handler) GetNewsletter(w http.ResponseWriter, r *http.Request) {
	n, ok := h.requireNewsletter(w, r)
	if !ok {
		return
	}
	WriteSuccess(w, newsletterToResponse(n), nil)
}

// CreateNewsletter handles POST /beheer/newsletters.
func (h *Handler) CreateNewsletter(w http.ResponseWriter, r *http.Request) {
	p, ok := h.newsletterParams(w, r, nil)
	if !ok {
		return
	}
	n, err := h.queries.CreateNewsletter(r.Context(), p)
	if err != nil {
		slog.Error("failed to create newsletter", "error", err)
		WriteInternalError(w, "Failed to create newsletter")
		return
	}
	h.auditContent(r, "Newsletter created", "newsletter", n.ID)
	WriteCreated(w, newsletterToResponse(n))
}

// UpdateNewsletter handles PUT /beheer/newsletters/{id}.
func (h *Handler) UpdateNewsletter(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.requireNewsletter(w, r)
	if !ok {
		return
	}
	p, ok := h.newsletterParams(w, r, &existing)
	if !ok {
		return
	}
	n, err := h.queries.UpdateNewsletter(r.Context(), existing.ID, p)
	if err != nil {
		WriteInternalError(w, "Failed to update newsletter")
		return
	}
	h.auditContent(r, "Newsletter updated", "newsletter", n.ID)
	WriteSuccess(w, newsletterToResponse(n), nil)
}

// DeleteNewsletter handles DELETE /beheer/newsletters/{id}.
func (h *Handler) DeleteNewsletter(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.requireNewsletter(w, r)
	if !ok {
		return
	}
	if err := h.queries.DeleteNewsletter(r.Context(), existing.ID); err != nil {
		WriteInternalError(w, "Failed to delete newsletter")
		return
	}
	h.auditContent(r, "Newsletter deleted", "newsletter", existing.ID)
	w.WriteHeader(http.StatusNoContent)
}

// Albums

// AlbumRequest is the body of album create and update requests.
type AlbumRequest struct {
	Title       string  `json:"title"`
	Slug        string  `json:"slug"`
	Description string  `json:"description"`
	Published   bool    `json:"published"`
	TakenAt     *string `json:"taken_at,omitempty"`
}

// AlbumResponse represents an album in API responses. Photos are only
// filled in on single-album responses.
type AlbumResponse struct {
	store.Album
	TakenAt *time.Time         `json:"taken_at,omitempty"`
	Photos  []store.AlbumPhoto `json:"photos,omitempty"`
}

func albumToResponse(a store.Album) AlbumResponse {
	return AlbumResponse{Album: a, TakenAt: timePtr(a.TakenAt)}
}

// AddPhotoRequest is the body of POST /beheer/albums/{id}/photos.
type AddPhotoRequest struct {
	MediaID int64  `json:"media_id"`
	Caption string `json:"caption"`
}

func (h *Handler) albumParams(w http.ResponseWriter, r *http.Request, selfID int64, currentSlug string) (p store.AlbumParams, ok bool) {
	var req AlbumRequest
	if !decodeJSON(w, r, &req) {
		return p, false
	}
	p = store.AlbumParams{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Published:   req.Published,
		Now:         h.now(),
	}

	errs := make(map[string]string)
	if p.Title == "" {
		errs["title"] = "Title is required"
	}
	if req.Slug != "" && !util.IsValidSlug(req.Slug) {
		errs["slug"] = invalidSlugMessage
	}
	var err error
	if p.TakenAt, err = optionalDate(req.TakenAt); err != nil {
		errs["taken_at"] = "Invalid date"
	}
	if len(errs) > 0 {
		WriteValidationError(w, errs)
		return p, false
	}

	if req.Slug == "" {
		req.Slug = currentSlug
	}
	p.Slug, ok = resolveSlug(w, req.Slug, p.Title, func(slug string) (bool, error) {
		return h.queries.AlbumSlugExists(r.Context(), slug, selfID)
	})
	return p, ok
}

func (h *Handler) requireAlbum(w http.ResponseWriter, r *http.Request) (store.Album, bool) {
	return requireEntityByID(w, r, "album", func(id int64) (store.Album, error) {
		return h.queries.GetAlbum(r.Context(), id)
	})
}

// ListAlbums handles GET /beheer/albums.
func (h *Handler) ListAlbums(w http.ResponseWriter, r *http.Request) {
	h.writeAlbums(w, r, false)
}

func (h *Handler) writeAlbums(w http.ResponseWriter, r *http.Request, publishedOnly bool) {
	page := listPage(r)
	items, err := h.queries.ListAlbums(r.Context(), publishedOnly, page.Limit(), page.Offset())
	if err != nil {
		WriteInternalError(w, "Failed to list albums")
		return
	}
	out := make([]AlbumResponse, 0, len(items))
	for _, a := range items {
		out = append(out, albumToResponse(a))
	}
	WriteSuccess(w, out, pageMeta(page, -1))
}

// GetAlbum handles GET /beheer/albums/{id} and includes the photos.
func (h *Handler) GetAlbum(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireAlbum(w, r)
	if !ok {
		return
	}
	h.writeAlbumWithPhotos(w, r, a)
}

func (h *Handler) writeAlbumWithPhotos(w http.ResponseWriter, r *http.Request, a store.Album) {
	photos, err := h.queries.ListAlbumPhotos(r.Context(), a.ID)
	if err != nil {
		WriteInternalError(w, "Failed to list photos")
		return
	}
	resp := albumToResponse(a)
	resp.Photos = photos
	WriteSuccess(w, resp, nil)
}

// CreateAlbum handles POST /beheer/albums.
func (h *Handler) CreateAlbum(w http.ResponseWriter, r *http.Request) {
	p, ok := h.albumParams(w, r, 0, "")
	if !ok {
		return
	}
	a, err := h.queries.CreateAlbum(r.Context(), p)
	if err != nil {
		slog.Error("failed to create album", "error", err)
		WriteInternalError(w, "Failed to create album")
		return
	}
	h.auditContent(r, "Album created", "album", a.ID)
	WriteCreated(w, albumToResponse(a))
}

// UpdateAlbum handles PUT /beheer/albums/{id}.
func (h *Handler) UpdateAlbum(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.requireAlbum(w, r)
	if !ok {
		return
	}
	p, ok := h.albumParams(w, r, existing.ID, existing.Slug)
	if !ok {
		return
	}
	a, err := h.queries.UpdateAlbum(r.Context(), existing.ID, p)
	if err != nil {
		WriteInternalError(w, "Failed to update album")
		return
	}
	h.auditContent(r, "Album updated", "album", a.ID)
	WriteSuccess(w, albumToResponse(a), nil)
}

// DeleteAlbum handles DELETE /beheer/albums/{id}. Photos go with the album;
// the media items stay in the library.
func (h *Handler) DeleteAlbum(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.requireAlbum(w, r)
	if !ok {
		return
	}
	if err := h.queries.DeleteAlbum(r.Context(), existing.ID); err != nil {
		WriteInternalError(w, "Failed to delete album")
		return
	}
	h.auditContent(r, "Album deleted", "album", existing.ID)
	w.WriteHeader(http.StatusNoContent)
}

// AddPhoto handles POST /beheer/albums/{id}/photos.
func (h *Handler) AddPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	album, ok := h.requireAlbum(w, r)
	if !ok {
		return
	}
	var req AddPhotoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	m, err := h.queries.GetMedia(ctx, req.MediaID)
	if errors.Is(err, sql.ErrNoRows) {
		WriteValidationError(w, map[string]string{"media_id": "Media not found"})
		return
	}
	if err != nil {
		WriteInternalError(w, "Failed to retrieve media")
		return
	}
	if !strings.HasPrefix(m.MimeType, "image/") {
		WriteValidationError(w, map[string]string{"media_id": "Only images can be added to an album"})
		return
	}

	p, err := h.queries.AddPhoto(ctx, store.AddPhotoParams{
		AlbumID:   album.ID,
		MediaID:   m.ID,
		Caption:   strings.TrimSpace(req.Caption),
		CreatedAt: h.now(),
	})
	if store.IsUniqueViolation(err) {
		WriteValidationError(w, map[string]string{"media_id": "Photo is already in this album"})
		return
	}
	if err != nil {
		slog.Error("failed to add photo", "error", err, "album_id", album.ID)
		WriteInternalError(w, "Failed to add photo")
		return
	}
	h.auditContent(r, "Photo added", "album", album.ID)
	WriteCreated(w, p)
}

// RemovePhoto handles DELETE /beheer/albums/{id}/photos/{photoID}.
func (h *Handler) RemovePhoto(w http.ResponseWriter, r *http.Request) {
	album, ok := h.requireAlbum(w, r)
	if !ok {
		return
	}
	photoID, err := handler.ParseURLParamInt64(r, "photoID")
	if err != nil {
		WriteBadRequest(w, "Invalid photo ID", nil)
		return
	}
	n, err := h.queries.RemovePhoto(r.Context(), album.ID, photoID)
	if err != nil {
		WriteInternalError(w, "Failed to remove photo")
		return
	}
	if n == 0 {
		WriteNotFound(w, "Photo not found")
		return
	}
	h.auditContent(r, "Photo removed", "album", album.ID)
	w.WriteHeader(http.StatusNoContent)
}
