// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionID(t *testing.T) {
	id := NewSessionID()
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.NotEqual(t, id, NewSessionID())
}

func TestEnsureSessionID_GeneratesOnceThenReuses(t *testing.T) {
	store := &MemoryStore{}
	ctx := context.Background()

	first := EnsureSessionID(ctx, store)
	require.NotEmpty(t, first)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, EnsureSessionID(ctx, store))
	}
}

func TestEnsureSessionID_RegeneratesWhenCleared(t *testing.T) {
	store := &MemoryStore{}
	ctx := context.Background()

	first := EnsureSessionID(ctx, store)
	store.Put(ctx, "")
	second := EnsureSessionID(ctx, store)
	assert.NotEmpty(t, second)
	assert.NotEqual(t, first, second)
}

func TestSessionManagerStore_PersistsAcrossRequests(t *testing.T) {
	sm := scs.New()
	store := NewSessionManagerStore(sm)

	var ids []string
	h := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids = append(ids, EnsureSessionID(r.Context(), store))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/fotoalbum", nil)
	req.AddCookie(cookies[0])
	h.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, ids, 2)
	assert.Equal(t, ids[0], ids[1])

	// A browser without the cookie starts a new visit.
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEqual(t, ids[0], ids[2])
}

func TestSessionManagerStore_WithoutSessionData(t *testing.T) {
	store := NewSessionManagerStore(scs.New())
	ctx := context.Background()

	assert.NotPanics(t, func() {
		assert.Empty(t, store.Get(ctx))
		store.Put(ctx, "abc")
		assert.NotEmpty(t, EnsureSessionID(ctx, store))
	})
}
