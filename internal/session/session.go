// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session configures the browser-session store used for visit
// tracking and short-lived flash values.
package session

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

// Cookie names. Production uses the __Host- prefix, which requires Secure
// and Path=/.
const (
	DevCookieName  = "vcms_visit"
	ProdCookieName = "__Host-vcms_visit"
)

// Visits end after IdleTimeout without requests, or when the browser closes.
const (
	Lifetime    = 12 * time.Hour
	IdleTimeout = 30 * time.Minute
)

// New creates a session manager backed by the sessions table.
func New(db *sql.DB, isDev bool) *scs.SessionManager {
	sm := scs.New()
	sm.Store = sqlite3store.New(db)

	sm.Lifetime = Lifetime
	sm.IdleTimeout = IdleTimeout
	sm.Cookie.Persist = false
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"

	if isDev {
		sm.Cookie.Name = DevCookieName
		sm.Cookie.Secure = false
	} else {
		sm.Cookie.Name = ProdCookieName
		sm.Cookie.Secure = true
	}

	return sm
}
