// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/olegiv/vcms-go/internal/middleware"
	"github.com/olegiv/vcms-go/internal/model"
	"github.com/olegiv/vcms-go/internal/service"
	"github.com/olegiv/vcms-go/internal/util"
)

// multipartOverhead is allowed on top of the file size for form fields and boundaries.
const multipartOverhead = 1 << 20

// MediaResponse represents a media item in API responses.
type MediaResponse struct {
	*service.MediaFile
	Width  *int64 `json:"width,omitempty"`
	Height *int64 `json:"height,omitempty"`
}

func mediaToResponse(m *service.MediaFile) MediaResponse {
	resp := MediaResponse{MediaFile: m}
	if m.Width.Valid {
		resp.Width = &m.Width.Int64
	}
	if m.Height.Valid {
		resp.Height = &m.Height.Int64
	}
	return resp
}

// ListMedia handles GET /beheer/media.
func (h *Handler) ListMedia(w http.ResponseWriter, r *http.Request) {
	page := listPage(r)
	items, err := h.media.List(r.Context(), page.Limit(), page.Offset())
	if err != nil {
		WriteInternalError(w, "Failed to list media")
		return
	}
	out := make([]MediaResponse, 0, len(items))
	for _, m := range items {
		out = append(out, mediaToResponse(m))
	}
	WriteSuccess(w, out, pageMeta(page, -1))
}

// GetMedia handles GET /beheer/media/{id}.
func (h *Handler) GetMedia(w http.ResponseWriter, r *http.Request) {
	m, ok := requireEntityByID(w, r, "media", func(id int64) (*service.MediaFile, error) {
		return h.media.Get(r.Context(), id)
	})
	if !ok {
		return
	}
	WriteSuccess(w, mediaToResponse(m), nil)
}

// UploadMedia handles POST /beheer/media with a multipart "file" field and
// an optional "alt" text.
func (h *Handler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := h.media.MaxSize()

	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(limit + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "file_too_large", service.ErrFileTooLarge.Error(), nil)
			return
		}
		WriteBadRequest(w, "Failed to parse multipart form", nil)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteBadRequest(w, "No file provided. Use the 'file' field", nil)
		return
	}
	defer func() { _ = file.Close() }()

	m, err := h.media.Save(ctx, service.Upload{
		Filename: header.Filename,
		Size:     header.Size,
		Body:     file,
		Alt:      r.FormValue("alt"),
		UserID:   middleware.SessionUserID(r),
	})
	switch {
	case err == nil:
	case errors.Is(err, service.ErrFileTooLarge):
		WriteError(w, http.StatusRequestEntityTooLarge, "file_too_large", err.Error(), nil)
		return
	case errors.Is(err, service.ErrFileTypeRefused):
		WriteError(w, http.StatusUnsupportedMediaType, "unsupported_type", err.Error(), nil)
		return
	case errors.Is(err, util.ErrInvalidFilename):
		WriteValidationError(w, map[string]string{"file": "Invalid filename"})
		return
	default:
		slog.Error("media upload failed", "error", err, "filename", header.Filename)
		WriteInternalError(w, "Failed to store upload")
		return
	}

	_ = h.events.LogMediaEvent(ctx, model.EventLevelInfo, "Media uploaded", middleware.SessionUserIDPtr(r), middleware.ClientIP(r), r.URL.Path,
		map[string]any{"media_id": m.ID, "filename": m.Filename, "mime_type": m.MimeType, "size": m.Size})
	WriteCreated(w, mediaToResponse(m))
}

// DeleteMedia handles DELETE /beheer/media/{id}. Album photos using the
// item are removed with it.
func (h *Handler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	m, ok := requireEntityByID(w, r, "media", func(id int64) (*service.MediaFile, error) {
		return h.media.Get(r.Context(), id)
	})
	if !ok {
		return
	}
	if err := h.media.Delete(r.Context(), m.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			WriteNotFound(w, "Media not found")
			return
		}
		WriteInternalError(w, "Failed to delete media")
		return
	}
	_ = h.events.LogMediaEvent(r.Context(), model.EventLevelInfo, "Media deleted", middleware.SessionUserIDPtr(r), middleware.ClientIP(r), r.URL.Path,
		map[string]any{"media_id": m.ID, "filename": m.Filename})
	w.WriteHeader(http.StatusNoContent)
}
