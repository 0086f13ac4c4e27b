// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/olegiv/vcms-go/internal/auth"
	"github.com/olegiv/vcms-go/internal/middleware"
	"github.com/olegiv/vcms-go/internal/model"
)

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse describes the signed-in user.
type SessionResponse struct {
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CanManage bool      `json:"can_manage"`
	ExpiresAt time.Time `json:"expires_at"`
}

// readLogin accepts a JSON body or an HTML form post.
func readLogin(w http.ResponseWriter, r *http.Request) (LoginRequest, bool) {
	var req LoginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if !decodeJSON(w, r, &req) {
			return req, false
		}
	} else {
		if err := r.ParseForm(); err != nil {
			WriteBadRequest(w, "Invalid form data", nil)
			return req, false
		}
		req.Email = r.PostFormValue("email")
		req.Password = r.PostFormValue("password")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	return req, true
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := readLogin(w, r)
	if !ok {
		return
	}
	if req.Email == "" || req.Password == "" {
		WriteValidationError(w, map[string]string{"email": "Email and password are required"})
		return
	}

	clientIP := middleware.ClientIP(r)

	if h.login != nil {
		if locked, remaining := h.login.IsAccountLocked(req.Email); locked {
			_ = h.events.LogAuthEvent(ctx, model.EventLevelWarning, "Login attempt on locked account", nil, clientIP, r.URL.Path, map[string]any{"email": req.Email})
			WriteError(w, http.StatusTooManyRequests, "account_locked",
				fmt.Sprintf("Account temporarily locked. Try again in %s.", formatDuration(remaining)), nil)
			return
		}
	}

	user, err := h.queries.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Error("database error during login", "error", err)
			WriteInternalError(w, "Sign-in failed")
			return
		}
		slog.Debug("login attempt for non-existent user", "email", req.Email)
		_ = h.events.LogAuthEvent(ctx, model.EventLevelWarning, "Login failed: user not found", nil, clientIP, r.URL.Path, map[string]any{"email": req.Email})
		// Unknown accounts count too, so lockout does not reveal which emails exist.
		h.failLogin(w, r, req.Email, nil)
		return
	}

	valid, err := auth.CheckPassword(req.Password, user.PasswordHash)
	if err != nil {
		slog.Error("password check error", "error", err, "user_id", user.ID)
	}
	if !valid {
		_ = h.events.LogAuthEvent(ctx, model.EventLevelWarning, "Login failed: invalid password", &user.ID, clientIP, r.URL.Path, map[string]any{"email": req.Email})
		h.failLogin(w, r, req.Email, &user.ID)
		return
	}

	if h.login != nil {
		h.login.RecordSuccessfulLogin(req.Email)
	}

	now := h.now()
	if auth.NeedsRehash(user.PasswordHash) {
		if newHash, err := auth.HashPassword(req.Password); err == nil {
			if err := h.queries.UpdateUserPassword(ctx, user.ID, newHash, now); err != nil {
				slog.Error("failed to re-hash password", "error", err, "user_id", user.ID)
			} else {
				slog.Info("password re-hashed with updated parameters", "user_id", user.ID)
			}
		}
	}
	if err := h.queries.UpdateUserLastLogin(ctx, user.ID, now); err != nil {
		// Don't block login on this error.
		slog.Error("failed to update last login time", "error", err, "user_id", user.ID)
	}

	role := model.ParseRole(user.Role)
	token, expires, err := h.issuer.Issue(user.ID, role, user.Name)
	if err != nil {
		slog.Error("failed to issue session token", "error", err, "user_id", user.ID)
		WriteInternalError(w, "Sign-in failed")
		return
	}
	auth.SetSessionCookie(w, token, expires, h.secure)

	slog.Info("user logged in", "user_id", user.ID, "role", role.String())
	_ = h.events.LogAuthEvent(ctx, model.EventLevelInfo, "User logged in", &user.ID, clientIP, r.URL.Path, map[string]any{"email": user.Email})

	WriteSuccess(w, SessionResponse{
		UserID:    user.ID,
		Name:      user.Name,
		Role:      role.String(),
		CanManage: role.CanManage(),
		ExpiresAt: expires,
	}, nil)
}

// failLogin records a failed attempt and answers 401, or 429 once the
// account is locked.
func (h *Handler) failLogin(w http.ResponseWriter, r *http.Request, email string, userID *int64) {
	if h.login != nil {
		if locked, lockDuration := h.login.RecordFailedAttempt(email); locked {
			_ = h.events.LogAuthEvent(r.Context(), model.EventLevelWarning, "Account locked due to failed attempts", userID, middleware.ClientIP(r), r.URL.Path,
				map[string]any{"email": email, "duration": lockDuration.String()})
			WriteError(w, http.StatusTooManyRequests, "account_locked",
				fmt.Sprintf("Too many failed attempts. Try again in %s.", formatDuration(lockDuration)), nil)
			return
		}
		if remaining := h.login.RemainingAttempts(email); remaining <= 3 && remaining > 0 {
			WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password",
				map[string]string{"remaining_attempts": fmt.Sprint(remaining)})
			return
		}
	}
	WriteUnauthorized(w, "Invalid email or password")
}

// Logout handles POST /api/auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if sess := h.sessionFromRequest(r); sess != nil {
		userID := sess.UserID()
		_ = h.events.LogAuthEvent(r.Context(), model.EventLevelInfo, "User logged out", &userID, middleware.ClientIP(r), r.URL.Path, nil)
		slog.Info("user logged out", "user_id", userID)
	}
	auth.ClearSessionCookie(w, h.secure)
	w.WriteHeader(http.StatusNoContent)
}

// Session handles GET /api/auth/session.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	sess := h.sessionFromRequest(r)
	if sess == nil {
		WriteUnauthorized(w, "Not signed in")
		return
	}
	WriteSuccess(w, SessionResponse{
		UserID:    sess.UserID(),
		Name:      sess.Name,
		Role:      sess.Role.String(),
		CanManage: sess.Role.CanManage(),
		ExpiresAt: sess.Expires,
	}, nil)
}

// sessionFromRequest prefers the session the gate already decoded and
// falls back to decoding the token itself.
func (h *Handler) sessionFromRequest(r *http.Request) *auth.Session {
	if sess := middleware.SessionFromContext(r.Context()); sess != nil {
		return sess
	}
	token := auth.TokenFromRequest(r)
	if token == "" || h.issuer == nil {
		return nil
	}
	sess, err := h.issuer.Decode(token)
	if err != nil {
		return nil
	}
	return sess
}

// formatDuration formats a lockout duration for people.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	case d < 2*time.Minute:
		return "1 minute"
	case d < time.Hour:
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	case d < 2*time.Hour:
		return "1 hour"
	default:
		return fmt.Sprintf("%d hours", int(d.Hours()))
	}
}
