// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/olegiv/vcms-go/internal/middleware"
	"github.com/olegiv/vcms-go/internal/model"
	"github.com/olegiv/vcms-go/internal/store"
	"github.com/olegiv/vcms-go/internal/util"
)

// ============================================================================
// Volunteers
// ============================================================================

// VolunteerRequest is the body of volunteer create and update requests.
type VolunteerRequest struct {
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Phone        string  `json:"phone"`
	Skills       string  `json:"skills"`
	Availability string  `json:"availability"`
	Notes        string  `json:"notes"`
	Active       *bool   `json:"active,omitempty"`
	JoinedAt     *string `json:"joined_at,omitempty"`
}

// VolunteerResponse represents a volunteer in API responses.
type VolunteerResponse struct {
	store.Volunteer
	JoinedAt *time.Time `json:"joined_at,omitempty"`
}

func volunteerToResponse(v store.Volunteer) VolunteerResponse {
	return VolunteerResponse{Volunteer: v, JoinedAt: timePtr(v.JoinedAt)}
}

func (h *Handler) volunteerParams(w http.ResponseWriter, r *http.Request) (store.VolunteerParams, bool) {
	var req VolunteerRequest
	if !decodeJSON(w, r, &req) {
		return store.VolunteerParams{}, false
	}

	p := store.VolunteerParams{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:        strings.TrimSpace(req.Phone),
		Skills:       strings.TrimSpace(req.Skills),
		Availability: strings.TrimSpace(req.Availability),
		Notes:        req.Notes,
		Active:       req.Active == nil || *req.Active,
		Now:          h.now(),
	}

	errs := make(map[string]string)
	if p.Name == "" {
		errs["name"] = "Name is required"
	}
	if p.Email != "" {
		validateEmail(errs, p.Email)
	}
	joined, err := optionalDate(req.JoinedAt)
	if err != nil {
		errs["joined_at"] = "Invalid date"
	}
	p.JoinedAt = joined
	if len(errs) > 0 {
		WriteValidationError(w, errs)
		return p, false
	}
	return p, true
}

func (h *Handler) requireVolunteer(w http.ResponseWriter, r *http.Request) (store.Volunteer, bool) {
	return requireEntityByID(w, r, "volunteer", func(id int64) (store.Volunteer, error) {
		return h.queries.GetVolunteer(r.Context(), id)
	})
}

// ListVolunteers handles GET /beheer/volunteers?active=true.
func (h *Handler) ListVolunteers(w http.ResponseWriter, r *http.Request) {
	page := listPage(r)
	activeOnly := r.URL.Query().Get("active") == "true"

	items, err := h.queries.ListVolunteers(r.Context(), activeOnly, page.Limit(), page.Offset())
	if err != nil {
		WriteInternalError(w, "Failed to list volunteers")
		return
	}
	out := make([]VolunteerResponse, 0, len(items))
	for _, v := range items {
		out = append(out, volunteerToResponse(v))
	}
	WriteSuccess(w, out, pageMeta(page, -1))
}

// GetVolunteer handles GET /beheer/volunteers/{id}.
func (h *Handler) GetVolunteer(w http.ResponseWriter, r *http.Request) {
	v, ok := h.requireVolunteer(w, r)
	if !ok {
		return
	}
	WriteSuccess(w, volunteerToResponse(v), nil)
}

// CreateVolunteer handles POST /beheer/volunteers.
func (h *Handler) CreateVolunteer(w http.ResponseWriter, r *http.Request) {
	p, ok := h.volunteerParams(w, r)
	if !ok {
		return
	}
	v, err := h.queries.CreateVolunteer(r.Context(), p)
	if err != nil {
		slog.Error("failed to create volunteer", "error", err)
		WriteInternalError(w, "Failed to create volunteer")
		return
	}
	h.auditContent(r, "Volunteer created", "volunteer", v.ID)
	WriteCreated(w, volunteerToResponse(v))
}

// UpdateVolunteer handles PUT /beheer/volunteers/{id}.
func (h *Handler) UpdateVolunteer(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.requireVolunteer(w, r)
	if !ok {
		return
	}
	p, ok := h.volunteerParams(w, r)
	if !ok {
		return
	}
	v, err := h.queries.UpdateVolunteer(r.Context(), existing.ID, p)
	if err != nil {
		WriteInternalError(w, "Failed to update volunteer")
		return
	}
	h.auditContent(r, "Volunteer updated", "volunteer", v.ID)
	WriteSuccess(w, volunteerToResponse(v), nil)
}

// DeleteVolunteer handles DELETE /beheer/volunteers/{id}.
func (h *Handler) DeleteVolunteer(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.requireVolunteer(w, r)
	if !ok {
		return
	}
	if err := h.queries.DeleteVolunteer(r.Context(), existing.ID); err != nil {
		WriteInternalError(w, "Failed to delete volunteer")
		return
	}
	h.auditContent(r, "Volunteer deleted", "volunteer", existing.ID)
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// Contacts
// ============================================================================

// ContactRequest is the body of contact create and update requests.
type ContactRequest struct {
	Name         string `json:"name"`
	Organization string `json:"organization"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Notes        string `json:"notes"`
}

func (h *Handler) contactParams(w http.ResponseWriter, r *http.Request) (store.ContactParams, bool) {
	var req ContactRequest
	if !decodeJSON(w, r, &req) {
		return store.ContactParams{}, false
	}
	p := store.ContactParams{
		Name:         strings.TrimSpace(req.Name),
		Organization: strings.TrimSpace(req.Organization),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:        strings.TrimSpace(req.Phone),
		Notes:        req.Notes,
		Now:          h.now(),
	}
	errs := make(map[string]string)
	if p.Name == "" && p.Organization == "" {
		errs["name"] = "Name or organization is required"
	}
	if p.Email != "" {
		validateEmail(errs, p.Email)
	}
	if len(errs) > 0 {
		WriteValidationError(w, errs)
		return p, false
	}
	return p, true
}

func (h *Handler) requireContact(w http.ResponseWriter, r *http.Request) (store.Contact, bool) {
	return requireEntityByID(w, r, "contact", func(id int64) (store.Contact, error) {
		return h.queries.GetContact(r.Context(), id)
	})
}

// ListContacts handles GET /beheer/contacts?q=.
func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	page := listPage(r)
	search := strings.TrimSpace(r.URL.Query().Get("q"))

	items, err := h.queries.ListContacts(r.Context(), search, page.Limit(), page.Offset())
	if err != nil {
		WriteInternalError(w, "Failed to list contacts")
		return
	}
	if items == nil {
		items = []store.Contact{}
	}
	WriteSuccess(w, items, pageMeta(page, -1))
}

// GetContact handles GET /beheer/contacts/{id}.
func (h *Handler) GetContact(w http.ResponseWriter, r *http.Request) {
	c, ok := h.requireContact(w, r)
	if !ok {
		return
	}
	WriteSuccess(w, c, nil)
}

// CreateContact handles POST /beheer/contacts.
func (h *Handler) CreateContact(w http.ResponseWriter, r *http.Request) {
	p, ok := h.contactParams(w, r)
	if !ok {
		return
	}
	c, err := h.queries.CreateContact(r.Context(), p)
	if err != nil {
		WriteInternalError(w, "Failed to create contact")
		return
	}
	h.auditContent(r, "Contact created", "contact", c.ID)
	WriteCreated(w, c)
}

// UpdateContact handles PUT /beheer/contacts/{id}.
func (h *Handler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.requireContact(w, r)
	if !ok {
		return
	}
	p, ok := h.contactParams(w, r)
	if !ok {
		return
	}
	c, err := h.queries.UpdateContact(r.Context(), existing.ID, p)
	if err != nil {
		WriteInternalError(w, "Failed to update contact")
		return
	}
	h.auditContent(r, "Contact updated", "contact", c.ID)
	WriteSuccess(w, c, nil)
}

// DeleteContact handles DELETE /beheer/contacts/{id}.
func (h *Handler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.requireContact(w, r)
	if !ok {
		return
	}
	if err := h.queries.DeleteContact(r.Context(), existing.ID); err != nil {
		WriteInternalError(w, "Failed to delete contact")
		return
	}
	h.auditContent(r, "Contact deleted", "contact", existing.ID)
	w.WriteHeader(http.StatusNoContent)
}

// ============================================================================
// Activities
// ============================================================================

// ActivityRequest is the body of activity create and update requests.
// An empty slug is derived from the title.
type ActivityRequest struct {
	Title       string  `json:"title"`
	Slug        string  `json:"slug"`
	Description string  `json:"description"`
	Location    string  `json:"location"`
	StartsAt    string  `json:"starts_at"`
	EndsAt      *string `json:"ends_at,omitempty"`
}

// ActivityResponse represents an activity in API responses.
type ActivityResponse struct {
	store.Activity
	EndsAt *time.Time `json:"ends_at,omitempty"`
}

func activityToResponse(a store.Activity) ActivityResponse {
	return ActivityResponse{Activity: a, EndsAt: timePtr(a.EndsAt)}
}

func (h *Handler) activityParams(w http.ResponseWriter, r *http.Request, selfID int64, currentSlug string) (p store.ActivityParams, ok bool) {
	var req ActivityRequest
	if !decodeJSON(w, r, &req) {
		return p, false
	}
	p = store.ActivityParams{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Location:    strings.TrimSpace(req.Location),
		Now:         h.now(),
	}

	errs := make(map[string]string)
	if p.Title == "" {
		errs["title"] = "Title is required"
	}
	starts, err := parseDate(req.StartsAt)
	if err != nil {
		errs["starts_at"] = "A valid start date is required"
	}
	p.StartsAt = starts
	if p.EndsAt, err = optionalDate(req.EndsAt); err != nil {
		errs["ends_at"] = "Invalid date"
	} else if p.EndsAt.Valid && p.EndsAt.Time.Before(p.StartsAt) {
		errs["ends_at"] = "End must not be before start"
	}
	if req.Slug != "" && !util.IsValidSlug(req.Slug) {
		errs["slug"] = "Slug may contain lowercase letters, digits and hyphens"
	}
	if len(errs) > 0 {
		WriteValidationError(w, errs)
		return p, false
	}

	if req.Slug == "" {
		req.Slug = currentSlug
	}
	p.Slug, ok = resolveSlug(w, req.Slug, p.Title+" "+p.StartsAt.Format(time.DateOnly), func(slug string) (bool, error) {
		return h.queries.ActivitySlugExists(r.Context(), slug, selfID)
	})
	return p, ok
}

func (h *Handler) requireActivity(w http.ResponseWriter, r *http.Request) (store.Activity, bool) {
	return requireEntityByID(w, r, "activity", func(id int64) (store.Activity, error) {
		return h.queries.GetActivity(r.Context(), id)
	})
}

// ListActivities handles GET /beheer/activities.
func (h *Handler) ListActivities(w http.ResponseWriter, r *http.Request) {
	page := listPage(r)
	items, err := h.queries.ListActivities(r.Context(), page.Limit(), page.Offset())
	if err != nil {
		WriteInternalError(w, "Failed to list activities")
		return
	}
	out := make([]ActivityResponse, 0, len(items))
	for _, a := range items {
		out = append(out, activityToResponse(a))
	}
	WriteSuccess(w, out, pageMeta(page, -1))
}

// GetActivity handles GET /beheer/activities/{id}.
func (h *Handler) GetActivity(w http.ResponseWriter, r *http.Request) {
	a, ok := h.requireActivity(w, r)
	if !ok {
		return
	}
	WriteSuccess(w, activityToResponse(a), nil)
}

// CreateActivity handles POST /beheer/activities.
func (h *Handler) CreateActivity(w http.ResponseWriter, r *http.Request) {
	p, ok := h.activityParams(w, r, 0, "")
	if !ok {
		return
	}
	a, err := h.queries.CreateActivity(r.Context(), p)
	if err != nil {
		slog.Error("failed to create activity", "error", err)
		WriteInternalError(w, "Failed to create activity")
		return
	}
	h.auditContent(r, "Activity created", "activity", a.ID)
	WriteCreated(w, activityToResponse(a))
}

// UpdateActivity handles PUT /beheer/activities/{id}.
func (h *Handler) UpdateActivity(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.requireActivity(w, r)
	if !ok {
		return
	}
	p, ok := h.activityParams(w, r, existing.ID, existing.Slug)
	if !ok {
		return
	}
	a, err := h.queries.UpdateActivity(r.Context(), existing.ID, p)
	if err != nil {
		WriteInternalError(w, "Failed to update activity")
		return
	}
	h.auditContent(r, "Activity updated", "activity", a.ID)
	WriteSuccess(w, activityToResponse(a), nil)
}

// DeleteActivity handles DELETE /beheer/activities/{id}.
func (h *Handler) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.requireActivity(w, r)
	if !ok {
		return
	}
	if err := h.queries.DeleteActivity(r.Context(), existing.ID); err != nil {
		WriteInternalError(w, "Failed to delete activity")
		return
	}
	h.auditContent(r, "Activity deleted", "activity", existing.ID)
	w.WriteHeader(http.StatusNoContent)
}

// auditContent records a content change by the signed-in user.
func (h *Handler) auditContent(r *http.Request, message, entity string, id int64) {
	_ = h.events.LogContentEvent(r.Context(), model.EventLevelInfo, message,
		middleware.SessionUserIDPtr(r), middleware.ClientIP(r), r.URL.Path,
		map[string]any{"entity": entity, "id": id})
}
