// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package dal

import (
	"net/http"
	"net/url"
)

// Default redirect targets.
const (
	DefaultAuthenticatedRedirect   = "/"
	DefaultUnauthenticatedRedirect = "/login"
	DefaultForbiddenRedirect       = "/"
)

// PageAuth declares a page's access requirements. RequireAuth false marks
// an anonymous-only page (login, register) that signed-in callers leave.
type PageAuth struct {
	RequireAuth             bool
	RequiredRole            string
	RequiredCapability      Capability
	AuthenticatedRedirect   string
	UnauthenticatedRedirect string
}

// Decision is the outcome of a page gate. An empty Redirect means render.
type Decision struct {
	Redirect string
}

// Allowed reports whether the page may render.
func (d Decision) Allowed() bool {
	return d.Redirect == ""
}

// Decide applies pa to user without side effects.
func (g *Guard) Decide(user *User, pa PageAuth) Decision {
	authed := pa.AuthenticatedRedirect
	if authed == "" {
		authed = DefaultAuthenticatedRedirect
	}
	unauthed := pa.UnauthenticatedRedirect
	if unauthed == "" {
		unauthed = DefaultUnauthenticatedRedirect
	}

	if pa.RequireAuth && user == nil {
		return Decision{Redirect: unauthed}
	}
	if !pa.RequireAuth && user != nil {
		return Decision{Redirect: authed}
	}
	if user != nil && pa.RequiredRole != "" && user.Role != pa.RequiredRole {
		return Decision{Redirect: DefaultForbiddenRedirect}
	}
	if user != nil && pa.RequiredCapability != "" && !g.policy.Allows(user.Role, pa.RequiredCapability) {
		return Decision{Redirect: DefaultForbiddenRedirect}
	}
	return Decision{}
}

// GatePage resolves the caller once and redirects with 303 See Other when
// the page may not render. It returns the caller and whether to continue.
// Resolution failures are logged and treated as anonymous.
func (g *Guard) GatePage(w http.ResponseWriter, r *http.Request, pa PageAuth) (*User, bool) {
	user, err := g.CurrentUser(r.Context())
	if err != nil {
		g.logger.Warn("resolving current user", "error", err, "path", r.URL.Path)
		user = nil
	}

	d := g.Decide(user, pa)
	if d.Allowed() {
		return user, true
	}
	target := d.Redirect
	if user == nil && pa.RequireAuth && pa.UnauthenticatedRedirect == "" {
		target = WithNext(target, r.URL.RequestURI())
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
	return user, false
}

// WithNext appends a next parameter to target.
func WithNext(target, next string) string {
	if next == "" || next == "/" {
		return target
	}
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	q.Set("next", next)
	u.RawQuery = q.Encode()
	return u.String()
}

// LoginRedirect redirects to the login page for no-user failures. It
// reports whether a redirect was written.
func LoginRedirect[T any](w http.ResponseWriter, r *http.Request, res Result[T]) bool {
	if !res.Is(KindNoUser) {
		return false
	}
	http.Redirect(w, r, WithNext(DefaultUnauthenticatedRedirect, r.URL.RequestURI()), http.StatusSeeOther)
	return true
}

// UnauthorizedRedirect redirects to path (default "/") for no-access
// failures. It reports whether a redirect was written.
func UnauthorizedRedirect[T any](w http.ResponseWriter, r *http.Request, res Result[T], path string) bool {
	if !res.Is(KindNoAccess) {
		return false
	}
	if path == "" {
		path = DefaultForbiddenRedirect
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
	return true
}
