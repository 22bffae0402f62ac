// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/olegiv/eduportal/internal/i18n"
	"github.com/olegiv/eduportal/internal/session"
)

// LanguageCookieName is the cookie name for language preference.
const LanguageCookieName = "edu_lang"

// Language creates middleware that detects the request language and stores
// it with i18n.WithLanguage. Priority order:
//  1. Query parameter ?lang=XX (explicit switch, saved to session and cookie)
//  2. URL parameter {lang} from the chi router (e.g. /en/news)
//  3. Session preference
//  4. Cookie preference
//  5. Accept-Language header
//  6. Default language
//
// sm may be nil, which skips the session steps.
func Language(sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := detectLanguage(w, r, sm)
			ctx := i18n.WithLanguage(r.Context(), lang)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detectLanguage(w http.ResponseWriter, r *http.Request, sm *scs.SessionManager) string {
	if q := strings.ToLower(r.URL.Query().Get("lang")); q != "" && i18n.IsSupported(q) {
		if sm != nil {
			sm.Put(r.Context(), session.KeyLang, q)
		}
		SetLanguageCookie(w, q)
		return q
	}

	if p := strings.ToLower(chi.URLParam(r, "lang")); p != "" && i18n.IsSupported(p) {
		return p
	}

	if sm != nil {
		if s := sm.GetString(r.Context(), session.KeyLang); s != "" && i18n.IsSupported(s) {
			return s
		}
	}

	if cookie, err := r.Cookie(LanguageCookieName); err == nil && i18n.IsSupported(cookie.Value) {
		return strings.ToLower(cookie.Value)
	}

	if accept := r.Header.Get("Accept-Language"); accept != "" {
		return i18n.MatchLanguage(accept)
	}
	return i18n.Default()
}

// GetLang returns the language detected for r.
func GetLang(r *http.Request) string {
	return i18n.FromContext(r.Context())
}

// SetLanguageCookie sets the language preference cookie.
func SetLanguageCookie(w http.ResponseWriter, lang string) {
	http.SetCookie(w, &http.Cookie{
		Name:     LanguageCookieName,
		Value:    lang,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
