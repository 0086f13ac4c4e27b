// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/olegiv/vcms-go/internal/auth"
	"github.com/olegiv/vcms-go/internal/model"
	"github.com/olegiv/vcms-go/internal/service"
)

// ProtectedPrefix is the path prefix of the beheer area.
const ProtectedPrefix = "/beheer"

// DeniedLocation is where the gate sends requests it refuses.
const DeniedLocation = "/"

// Decision is the outcome of the access gate for one request.
type Decision struct {
	Allow    bool
	Location string // redirect target when Allow is false
}

// IsProtectedPath reports whether p is /beheer or lies beneath it.
// The path is cleaned first so "//beheer" or "/x/../beheer" cannot slip past.
func IsProtectedPath(p string) bool {
	if p == "" {
		return false
	}
	clean := path.Clean("/" + p)
	return clean == ProtectedPrefix || strings.HasPrefix(clean, ProtectedPrefix+"/")
}

// Decide is the access gate: protected paths require a role that can manage
// the site, everything else passes. A nil session is treated as no role.
func Decide(p string, sess *auth.Session) Decision {
	if !IsProtectedPath(p) {
		return Decision{Allow: true}
	}
	if sess != nil && sess.Role.CanManage() {
		return Decision{Allow: true}
	}
	return Decision{Location: DeniedLocation}
}

// Gate decodes the session token of every request, stores a valid session in
// the request context and redirects requests for the beheer area that lack a
// manageable role. Decode failures of any kind count as no role.
func Gate(decoder auth.TokenDecoder, events *service.EventService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := decodeSession(decoder, r)

			d := Decide(r.URL.Path, sess)
			if !d.Allow {
				logDenied(r, sess, events)
				http.Redirect(w, r, d.Location, http.StatusTemporaryRedirect)
				return
			}

			if sess != nil {
				r = r.WithContext(WithSession(r.Context(), sess))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// decodeSession never fails: missing tokens, bad tokens and decoder panics
// all yield nil.
func decodeSession(decoder auth.TokenDecoder, r *http.Request) (sess *auth.Session) {
	if decoder == nil {
		return nil
	}
	token := auth.TokenFromRequest(r)
	if token == "" {
		return nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("session token decoder panicked", "panic", fmt.Sprint(rec), "path", r.URL.Path)
			sess = nil
		}
	}()

	s, err := decoder.Decode(token)
	if err != nil {
		slog.Debug("session token rejected", "error", err, "path", r.URL.Path)
		return nil
	}
	return s
}

func logDenied(r *http.Request, sess *auth.Session, events *service.EventService) {
	role := "none"
	var userID *int64
	if sess != nil {
		role = sess.Role.String()
		if role == "" {
			role = "none"
		}
		if id := sess.UserID(); id > 0 {
			userID = &id
		}
	}

	slog.Warn("beheer access denied",
		"category", model.EventCategoryAuth,
		"method", r.Method,
		"path", r.URL.Path,
		"role", role,
		"remote_addr", ClientIP(r),
	)

	// Anonymous hits are common; only audit signed-in users who lack the role.
	if events != nil && sess != nil {
		_ = events.LogAuthEvent(r.Context(), model.EventLevelWarning,
			"Access denied: role cannot manage", userID, ClientIP(r), r.URL.Path,
			map[string]any{"method": r.Method, "role": role})
	}
}

// RequireRole responds 403 unless the session's role satisfies allowed.
// Use it inside the beheer area for actions narrower than CanManage.
func RequireRole(allowed func(model.Role) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := SessionFromContext(r.Context())
			if sess == nil || !allowed(sess.Role) {
				slog.Warn("insufficient role",
					"path", r.URL.Path,
					"method", r.Method,
					"user_id", sess.UserID(),
				)
				WriteAPIError(w, http.StatusForbidden, "forbidden", "Insufficient permissions", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireDeveloper limits a route to developer accounts.
func RequireDeveloper() func(http.Handler) http.Handler {
	return RequireRole(model.Role.CanAssignRoles)
}
