// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package telemetry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
)

// SessionKey is the key under which the visit id is stored.
const SessionKey = "telemetry_session_id"

// SessionStore holds the session id for the lifetime of one tab or
// browser session.
type SessionStore interface {
	Get(ctx context.Context) string
	Put(ctx context.Context, id string)
}

// MemoryStore keeps the id of a single tab in memory.
type MemoryStore struct {
	mu sync.Mutex
	id string
}

// Get returns the stored id, or "".
func (m *MemoryStore) Get(context.Context) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}

// Put replaces the stored id.
func (m *MemoryStore) Put(_ context.Context, id string) {
	m.mu.Lock()
	m.id = id
	m.mu.Unlock()
}

// SessionManagerStore keeps the id in the scs browser session, so a visitor
// keeps one id until the browser closes or the visit idles out. The request
// must pass through SessionManager.LoadAndSave.
type SessionManagerStore struct {
	sm *scs.SessionManager
}

// NewSessionManagerStore wraps sm.
func NewSessionManagerStore(sm *scs.SessionManager) *SessionManagerStore {
	return &SessionManagerStore{sm: sm}
}

// Get returns the id stored in the request's session, or "" when the
// context carries no session data.
func (s *SessionManagerStore) Get(ctx context.Context) (id string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("telemetry session unavailable", "panic", r)
			id = ""
		}
	}()
	return s.sm.GetString(ctx, SessionKey)
}

// Put stores id in the request's session. Missing session data is ignored.
func (s *SessionManagerStore) Put(ctx context.Context, id string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("telemetry session unavailable", "panic", r)
		}
	}()
	s.sm.Put(ctx, SessionKey, id)
}

// NewSessionID returns a time-ordered random id.
func NewSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// EnsureSessionID returns the stored id, generating and storing one when
// absent.
func EnsureSessionID(ctx context.Context, store SessionStore) string {
	if id := store.Get(ctx); id != "" {
		return id
	}
	id := NewSessionID()
	store.Put(ctx, id)
	return id
}
