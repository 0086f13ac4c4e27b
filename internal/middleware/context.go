// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for access control, rate
// limiting, security headers and request context handling.
package middleware

import (
	"context"
	"net"
	"net/http"

	"github.com/olegiv/vcms-go/internal/auth"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys.
const (
	ContextKeySession     ContextKey = "session"
	ContextKeyRequestPath ContextKey = "request_path"
)

// WithSession returns a copy of ctx carrying the decoded session.
func WithSession(ctx context.Context, sess *auth.Session) context.Context {
	return context.WithValue(ctx, ContextKeySession, sess)
}

// SessionFromContext returns the decoded session, or nil for anonymous requests.
func SessionFromContext(ctx context.Context) *auth.Session {
	sess, _ := ctx.Value(ContextKeySession).(*auth.Session)
	return sess
}

// SessionUserID returns the signed-in user's ID, or 0.
func SessionUserID(r *http.Request) int64 {
	return SessionFromContext(r.Context()).UserID()
}

// SessionUserIDPtr returns a pointer to the signed-in user's ID, or nil.
func SessionUserIDPtr(r *http.Request) *int64 {
	if id := SessionUserID(r); id > 0 {
		return &id
	}
	return nil
}

// RequestPath stores the request path in the context for the event log handler.
func RequestPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ContextKeyRequestPath, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestPath retrieves the request path from the context.
func GetRequestPath(ctx context.Context) string {
	path, _ := ctx.Value(ContextKeyRequestPath).(string)
	return path
}

// ClientIP returns the request's remote IP without the port.
// chi's RealIP middleware is expected to have rewritten RemoteAddr already.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
