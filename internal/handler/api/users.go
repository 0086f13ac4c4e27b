// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/olegiv/vcms-go/internal/auth"
	"github.com/olegiv/vcms-go/internal/middleware"
	"github.com/olegiv/vcms-go/internal/model"
	"github.com/olegiv/vcms-go/internal/store"
)

// CreateUserRequest is the body of POST /beheer/users.
type CreateUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UpdateUserRequest is the body of PUT /beheer/users/{id}. Nil fields are
// left unchanged.
type UpdateUserRequest struct {
	Email    *string `json:"email,omitempty"`
	Name     *string `json:"name,omitempty"`
	Role     *string `json:"role,omitempty"`
	Password *string `json:"password,omitempty"`
}

// UserResponse is a user without credentials.
type UserResponse struct {
	store.User
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

func userToResponse(u store.User) UserResponse {
	return UserResponse{User: u, LastLoginAt: timePtr(u.LastLoginAt)}
}

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (store.User, bool) {
	return requireEntityByID(w, r, "user", func(id int64) (store.User, error) {
		return h.queries.GetUserByID(r.Context(), id)
	})
}

// ListUsers handles GET /beheer/users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := listPage(r)

	total, err := h.queries.CountUsers(ctx)
	if err != nil {
		WriteInternalError(w, "Failed to count users")
		return
	}
	users, err := h.queries.ListUsers(ctx, page.Limit(), page.Offset())
	if err != nil {
		WriteInternalError(w, "Failed to list users")
		return
	}

	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userToResponse(u))
	}
	WriteSuccess(w, out, pageMeta(page, total))
}

// GetUser handles GET /beheer/users/{id}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	WriteSuccess(w, userToResponse(u), nil)
}

// CreateUser handles POST /beheer/users.
// Beheerders may create members; other roles need a developer.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.SessionFromContext(ctx)

	var req CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Role == "" {
		req.Role = model.RoleNameMember
	}
	role := model.ParseRole(req.Role)

	errs := make(map[string]string)
	validateEmail(errs, req.Email)
	if req.Name == "" {
		errs["name"] = "Name is required"
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		errs["password"] = err.Error()
	}
	if !role.Valid() {
		errs["role"] = "Unknown role"
	}
	if len(errs) > 0 {
		WriteValidationError(w, errs)
		return
	}

	if role != model.RoleMember && (actor == nil || !actor.Role.CanAssignRoles()) {
		WriteForbidden(w, "Only developers can create accounts with this role")
		return
	}
	if !h.emailAvailable(ctx, w, req.Email, 0) {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		WriteInternalError(w, "Failed to hash password")
		return
	}
	now := h.now()
	u, err := h.queries.CreateUser(ctx, store.CreateUserParams{
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role.String(),
		Name:         req.Name,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		slog.Error("failed to create user", "error", err)
		WriteInternalError(w, "Failed to create user")
		return
	}

	_ = h.events.LogUserEvent(ctx, model.EventLevelInfo, "User created", middleware.SessionUserIDPtr(r), middleware.ClientIP(r), r.URL.Path,
		map[string]any{"user_id": u.ID, "role": u.Role})
	WriteCreated(w, userToResponse(u))
}

// UpdateUser handles PUT /beheer/users/{id}.
// Role changes need a developer, and nobody can change their own role.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.SessionFromContext(ctx)

	existing, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	params := store.UpdateUserParams{
		ID:        existing.ID,
		Email:     existing.Email,
		Name:      existing.Name,
		Role:      existing.Role,
		UpdatedAt: h.now(),
	}

	errs := make(map[string]string)
	if req.Email != nil {
		params.Email = strings.ToLower(strings.TrimSpace(*req.Email))
		validateEmail(errs, params.Email)
	}
	if req.Name != nil {
		params.Name = strings.TrimSpace(*req.Name)
		if params.Name == "" {
			errs["name"] = "Name is required"
		}
	}
	if req.Password != nil {
		if err := auth.ValidatePassword(*req.Password); err != nil {
			errs["password"] = err.Error()
		}
	}
	newRole := model.ParseRole(existing.Role)
	if req.Role != nil {
		newRole = model.ParseRole(*req.Role)
		if !newRole.Valid() {
			errs["role"] = "Unknown role"
		}
	}
	if len(errs) > 0 {
		WriteValidationError(w, errs)
		return
	}

	if newRole.String() != existing.Role {
		if actor == nil || !actor.Role.CanAssignRoles() {
			WriteForbidden(w, "Only developers can change roles")
			return
		}
		if actor.UserID() == existing.ID {
			WriteForbidden(w, "You cannot change your own role")
			return
		}
		if !h.keepsADeveloper(ctx, w, existing) {
			return
		}
		params.Role = newRole.String()
	}
	// Beheerders cannot edit accounts that outrank members.
	if actor != nil && !actor.Role.CanAssignRoles() && actor.UserID() != existing.ID &&
		model.ParseRole(existing.Role).CanManage() {
		WriteForbidden(w, "Only developers can edit beheer accounts")
		return
	}
	if params.Email != existing.Email && !h.emailAvailable(ctx, w, params.Email, existing.ID) {
		return
	}

	u, err := h.queries.UpdateUser(ctx, params)
	if err != nil {
		slog.Error("failed to update user", "error", err, "user_id", existing.ID)
		WriteInternalError(w, "Failed to update user")
		return
	}
	if req.Password != nil {
		hash, err := auth.HashPassword(*req.Password)
		if err != nil || h.queries.UpdateUserPassword(ctx, u.ID, hash, params.UpdatedAt) != nil {
			WriteInternalError(w, "Failed to update password")
			return
		}
	}

	_ = h.events.LogUserEvent(ctx, model.EventLevelInfo, "User updated", middleware.SessionUserIDPtr(r), middleware.ClientIP(r), r.URL.Path,
		map[string]any{"user_id": u.ID, "role": u.Role, "password_changed": req.Password != nil})
	WriteSuccess(w, userToResponse(u), nil)
}

// DeleteUser handles DELETE /beheer/users/{id}.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.SessionFromContext(ctx)

	existing, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	if actor.UserID() == existing.ID {
		WriteForbidden(w, "You cannot delete your own account")
		return
	}
	if model.ParseRole(existing.Role).CanManage() && (actor == nil || !actor.Role.CanAssignRoles()) {
		WriteForbidden(w, "Only developers can delete beheer accounts")
		return
	}
	if !h.keepsADeveloper(ctx, w, existing) {
		return
	}

	if err := h.queries.DeleteUser(ctx, existing.ID); err != nil {
		WriteInternalError(w, "Failed to delete user")
		return
	}
	_ = h.events.LogUserEvent(ctx, model.EventLevelInfo, "User deleted", middleware.SessionUserIDPtr(r), middleware.ClientIP(r), r.URL.Path,
		map[string]any{"user_id": existing.ID, "email": existing.Email})
	w.WriteHeader(http.StatusNoContent)
}

// keepsADeveloper refuses to remove the last developer account.
func (h *Handler) keepsADeveloper(ctx context.Context, w http.ResponseWriter, u store.User) bool {
	if u.Role != model.RoleNameDeveloper {
		return true
	}
	n, err := h.queries.CountUsersByRole(ctx, model.RoleNameDeveloper)
	if err != nil {
		WriteInternalError(w, "Failed to count developers")
		return false
	}
	if n <= 1 {
		WriteValidationError(w, map[string]string{"role": "At least one developer account must remain"})
		return false
	}
	return true
}

func (h *Handler) emailAvailable(ctx context.Context, w http.ResponseWriter, email string, selfID int64) bool {
	return checkUnique(w, "email", "Email is already in use", func() (bool, error) {
		u, err := h.queries.GetUserByEmail(ctx, email)
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return u.ID != selfID, nil
	})
}

func validateEmail(errs map[string]string, email string) {
	if email == "" {
		errs["email"] = "Email is required"
		return
	}
	if a, err := mail.ParseAddress(email); err != nil || a.Address != email {
		errs["email"] = "Invalid email address"
	}
}
