// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/olegiv/vcms-go/internal/handler"
	"github.com/olegiv/vcms-go/internal/middleware"
	"github.com/olegiv/vcms-go/internal/service"
	"github.com/olegiv/vcms-go/internal/store"
)

// NoticeRequest is the body of notice create and update requests.
type NoticeRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// NoticeResponse represents a notice in API responses.
type NoticeResponse struct {
	store.Notice
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
}

func noticeToResponse(n store.Notice) NoticeResponse {
	return NoticeResponse{Notice: n, ActivatedAt: timePtr(n.ActivatedAt)}
}

func readNotice(w http.ResponseWriter, r *http.Request) (service.NoticeInput, bool) {
	var req NoticeRequest
	if !decodeJSON(w, r, &req) {
		return service.NoticeInput{}, false
	}
	in := service.NoticeInput{Title: strings.TrimSpace(req.Title), Body: req.Body}
	errs := make(map[string]string)
	if in.Title == "" {
		errs["title"] = "Title is required"
	}
	if strings.TrimSpace(in.Body) == "" {
		errs["body"] = "Body is required"
	}
	if len(errs) > 0 {
		WriteValidationError(w, errs)
		return in, false
	}
	return in, true
}

func (h *Handler) requireNotice(w http.ResponseWriter, r *http.Request) (store.Notice, bool) {
	return requireEntityByID(w, r, "notice", func(id int64) (store.Notice, error) {
		return h.notices.Get(r.Context(), id)
	})
}

// ListNotices handles GET /beheer/notices.
func (h *Handler) ListNotices(w http.ResponseWriter, r *http.Request) {
	page := listPage(r)
	items, err := h.notices.List(r.Context(), page.Limit(), page.Offset())
	if err != nil {
		WriteInternalError(w, "Failed to list notices")
		return
	}
	out := make([]NoticeResponse, 0, len(items))
	for _, n := range items {
		out = append(out, noticeToResponse(n))
	}
	WriteSuccess(w, out, pageMeta(page, -1))
}

// GetNotice handles GET /beheer/notices/{id}.
func (h *Handler) GetNotice(w http.ResponseWriter, r *http.Request) {
	n, ok := h.requireNotice(w, r)
	if !ok {
		return
	}
	WriteSuccess(w, noticeToResponse(n), nil)
}

// CreateNotice handles POST /beheer/notices. New notices start inactive.
func (h *Handler) CreateNotice(w http.ResponseWriter, r *http.Request) {
	in, ok := readNotice(w, r)
	if !ok {
		return
	}
	n, err := h.notices.Create(r.Context(), in, middleware.SessionUserIDPtr(r))
	if err != nil {
		slog.Error("failed to create notice", "error", err)
		WriteInternalError(w, "Failed to create notice")
		return
	}
	h.auditContent(r, "Notice created", "notice", n.ID)
	WriteCreated(w, noticeToResponse(n))
}

// UpdateNotice handles PUT /beheer/notices/{id}.
func (h *Handler) UpdateNotice(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.requireNotice(w, r)
	if !ok {
		return
	}
	in, ok := readNotice(w, r)
	if !ok {
		return
	}
	n, err := h.notices.Update(r.Context(), existing.ID, in)
	if err != nil {
		WriteInternalError(w, "Failed to update notice")
		return
	}
	h.auditContent(r, "Notice updated", "notice", n.ID)
	WriteSuccess(w, noticeToResponse(n), nil)
}

// ActivateNotice handles POST /beheer/notices/{id}/activate.
// The previously active notice, if any, is deactivated in the same transaction.
func (h *Handler) ActivateNotice(w http.ResponseWriter, r *http.Request) {
	id, err := handler.ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid notice ID", nil)
		return
	}
	n, err := h.notices.Activate(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNoticeNotFound) {
			WriteNotFound(w, "Notice not found")
			return
		}
		slog.Error("failed to activate notice", "error", err, "notice_id", id)
		WriteError(w, http.StatusConflict, "conflict", "Notice could not be activated, try again", nil)
		return
	}
	h.auditContent(r, "Notice activated", "notice", n.ID)
	WriteSuccess(w, noticeToResponse(n), nil)
}

// DeactivateNotice handles POST /beheer/notices/{id}/deactivate.
func (h *Handler) DeactivateNotice(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.requireNotice(w, r)
	if !ok {
		return
	}
	if err := h.notices.Deactivate(r.Context(), existing.ID); err != nil {
		WriteInternalError(w, "Failed to deactivate notice")
		return
	}
	h.auditContent(r, "Notice deactivated", "notice", existing.ID)
	w.WriteHeader(http.StatusNoContent)
}

// DeleteNotice handles DELETE /beheer/notices/{id}.
func (h *Handler) DeleteNotice(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.requireNotice(w, r)
	if !ok {
		return
	}
	if err := h.notices.Delete(r.Context(), existing.ID); err != nil {
		WriteInternalError(w, "Failed to delete notice")
		return
	}
	h.auditContent(r, "Notice deleted", "notice", existing.ID)
	w.WriteHeader(http.StatusNoContent)
}
