// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the JSON handlers of the site: the public pages, the
// telemetry collector, sign-in and the beheer area.
package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/olegiv/vcms-go/internal/auth"
	"github.com/olegiv/vcms-go/internal/handler"
	"github.com/olegiv/vcms-go/internal/linkpreview"
	"github.com/olegiv/vcms-go/internal/middleware"
	"github.com/olegiv/vcms-go/internal/service"
	"github.com/olegiv/vcms-go/internal/store"
	"github.com/olegiv/vcms-go/internal/util"
)

// Page sizes for list endpoints.
const (
	defaultPerPage = 20
	maxPerPage     = 100
	maxJSONBody    = 1 << 20
)

// Deps are the services the handlers use. Only DB and Issuer are required;
// the rest are created from DB when nil.
type Deps struct {
	DB            *sql.DB
	Issuer        *auth.TokenIssuer
	Events        *service.EventService
	Notices       *service.NoticeService
	Media         *service.MediaService
	Analytics     *service.AnalyticsService
	Login         *middleware.LoginProtection
	Previews      *linkpreview.Fetcher
	Jobs          JobRunner
	SecureCookies bool
	SiteName      string
}

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	db        *sql.DB
	queries   *store.Queries
	issuer    *auth.TokenIssuer
	events    *service.EventService
	notices   *service.NoticeService
	media     *service.MediaService
	analytics *service.AnalyticsService
	login     *middleware.LoginProtection
	previews  *linkpreview.Fetcher
	jobs      JobRunner
	secure    bool
	siteName  string
	now       func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	h := &Handler{
		db:        d.DB,
		queries:   store.New(d.DB),
		issuer:    d.Issuer,
		events:    d.Events,
		notices:   d.Notices,
		media:     d.Media,
		analytics: d.Analytics,
		login:     d.Login,
		previews:  d.Previews,
		jobs:      d.Jobs,
		secure:    d.SecureCookies,
		siteName:  d.SiteName,
		now:       time.Now,
	}
	if h.events == nil {
		h.events = service.NewEventService(d.DB)
	}
	if h.notices == nil {
		h.notices = service.NewNoticeService(d.DB)
	}
	if h.media == nil {
		h.media = service.NewMediaService(d.DB, "uploads", 0)
	}
	if h.analytics == nil {
		h.analytics = service.NewAnalyticsService(d.DB, nil)
	}
	if h.previews == nil {
		h.previews = linkpreview.New(linkpreview.Options{})
	}
	if h.siteName == "" {
		h.siteName = "vcms"
	}
	return h
}

// Response is the standard API response wrapper.
type Response struct {
	Data any   `json:"data,omitempty"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta contains pagination metadata.
type Meta struct {
	Total   int64 `json:"total,omitempty"`
	Page    int   `json:"page,omitempty"`
	PerPage int   `json:"per_page,omitempty"`
	Pages   int   `json:"pages,omitempty"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any, meta *Meta) {
	WriteJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// WriteCreated writes a 201 Created JSON response.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Response{Data: data})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	middleware.WriteAPIError(w, statusCode, code, message, details)
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string, details map[string]string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message, details)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message, nil)
}

// WriteUnauthorized writes a 401 Unauthorized response.
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message, nil)
}

// WriteForbidden writes a 403 Forbidden response.
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, "forbidden", message, nil)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message, nil)
}

// WriteValidationError writes a 422 Unprocessable Entity response with field errors.
func WriteValidationError(w http.ResponseWriter, fieldErrors map[string]string) {
	WriteError(w, http.StatusUnprocessableEntity, "validation_error", "Validation failed", fieldErrors)
}

// decodeJSON decodes a size-limited JSON request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteBadRequest(w, "Invalid JSON body", nil)
		return false
	}
	return true
}

// EntityFetcher is a function that fetches an entity by ID.
type EntityFetcher[T any] func(id int64) (T, error)

// requireEntityByID parses an ID from the URL and fetches the entity.
// Returns the entity and true if successful, or zero value and false if error (response written).
func requireEntityByID[T any](w http.ResponseWriter, r *http.Request, entityName string, fetch EntityFetcher[T]) (T, bool) {
	var zero T

	id, err := handler.ParseIDParam(r)
	if err != nil {
		WriteBadRequest(w, "Invalid "+entityName+" ID", nil)
		return zero, false
	}

	entity, err := fetch(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, service.ErrNoticeNotFound) {
			WriteNotFound(w, capitalizeFirst(entityName)+" not found")
		} else {
			WriteInternalError(w, "Failed to retrieve "+entityName)
		}
		return zero, false
	}

	return entity, true
}

// capitalizeFirst returns s with the first letter capitalized.
func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// listPage reads ?page= and ?per_page= and builds the response meta.
func listPage(r *http.Request) handler.Page {
	return handler.ParsePage(r, defaultPerPage, maxPerPage)
}

func pageMeta(p handler.Page, total int64) *Meta {
	m := &Meta{Page: p.Number, PerPage: p.PerPage}
	if total >= 0 {
		m.Total = total
		m.Pages = handler.CalculateTotalPages(int(total), p.PerPage)
	}
	return m
}

// checkUnique writes a validation error on field when taken reports the
// value in use. Returns false when a response was written.
func checkUnique(w http.ResponseWriter, field, message string, taken func() (bool, error)) bool {
	exists, err := taken()
	if err != nil {
		WriteInternalError(w, "Failed to check "+field)
		return false
	}
	if exists {
		WriteValidationError(w, map[string]string{field: message})
		return false
	}
	return true
}

// resolveSlug validates and reserves a requested slug, or derives a free one
// from base when none was given. Returns false when a response was written.
func resolveSlug(w http.ResponseWriter, requested, base string, taken func(string) (bool, error)) (string, bool) {
	if requested != "" {
		if !checkUnique(w, "slug", "Slug already exists", func() (bool, error) { return taken(requested) }) {
			return "", false
		}
		return requested, true
	}
	base = util.Slugify(base)
	if base == "" {
		base = "untitled"
	}
	slug, err := util.UniqueSlug(base, taken)
	if err != nil {
		WriteInternalError(w, "Failed to generate slug")
		return "", false
	}
	return slug, true
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, s)
}

func optionalDate(s *string) (sql.NullTime, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return sql.NullTime{}, nil
	}
	t, err := parseDate(*s)
	if err != nil {
		return sql.NullTime{}, err
	}
	return sql.NullTime{Time: t, Valid: true}, nil
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
