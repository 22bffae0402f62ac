// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session configures the HTTP session manager and the session-held
// auth state of the caller.
package session

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"

	"github.com/olegiv/eduportal/internal/store"
)

// Session keys.
const (
	KeyAccessToken  = "auth.access_token"
	KeyRefreshToken = "auth.refresh_token"
	KeyExpiresAt    = "auth.expires_at"
	KeyPKCEVerifier = "auth.pkce_verifier"
	KeyFlash        = "flash"
	KeyFlashType    = "flash_type"
	KeyLang         = "lang"
)

// New creates a session manager. SQLite deployments keep sessions in the
// application database; other dialects use the in-process store.
func New(db *sql.DB, dialect store.Dialect, isDev bool) *scs.SessionManager {
	sm := scs.New()

	if dialect == store.DialectSQLite && db != nil {
		sm.Store = sqlite3store.New(db)
	} else {
		sm.Store = memstore.New()
	}

	sm.Lifetime = 30 * 24 * time.Hour
	sm.IdleTimeout = 7 * 24 * time.Hour
	sm.Cookie.Name = "edu_session"
	sm.Cookie.Path = "/"
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !isDev
	if !isDev {
		sm.Cookie.Name = "__Host-edu_session"
	}

	return sm
}
