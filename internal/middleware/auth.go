// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for caller resolution,
// access control, language detection and request hardening.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/olegiv/eduportal/internal/dal"
	"github.com/olegiv/eduportal/internal/i18n"
	"github.com/olegiv/eduportal/internal/model"
	"github.com/olegiv/eduportal/internal/service"
	"github.com/olegiv/eduportal/internal/util"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys for request data.
const (
	ContextKeyUser ContextKey = "user"
)

// SecurityLogger records denied requests. *service.EventService
// implements it.
type SecurityLogger interface {
	LogSecurityEvent(ctx context.Context, level, message, userID string, metadata map[string]any) error
}

// RequestInfo attaches the client address, user agent and path to the
// request context for logging and audit events.
func RequestInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := service.WithRequest(r.Context(), service.RequestInfo{
			IP:        util.ClientIP(r),
			UserAgent: r.UserAgent(),
			Path:      r.URL.Path,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoadUser installs the per-request user memo and stores the resolved
// caller in the context. Anonymous requests continue without a user;
// resolution failures are logged and treated as anonymous.
func LoadUser(guard *dal.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := dal.WithUserMemo(r.Context())
			user, err := guard.CurrentUser(ctx)
			if err != nil {
				slog.WarnContext(ctx, "resolving session user", "error", err, "path", r.URL.Path)
			}
			if user != nil {
				ctx = context.WithValue(ctx, ContextKeyUser, user)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUser retrieves the current user from the request context.
// Returns nil if no user is in context.
func GetUser(r *http.Request) *dal.User {
	user, _ := r.Context().Value(ContextKeyUser).(*dal.User)
	return user
}

// GetUserID returns the current user's ID, or "" when anonymous.
func GetUserID(r *http.Request) string {
	if user := GetUser(r); user != nil {
		return user.ID
	}
	return ""
}

// RequireCapability gates a route group on a policy capability. Anonymous
// callers are sent to the login page; callers without the capability get
// 403 and a security event when events is non-nil.
func RequireCapability(guard *dal.Guard, c dal.Capability, events SecurityLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user == nil {
				http.Redirect(w, r, dal.WithNext(dal.DefaultUnauthenticatedRedirect, r.URL.RequestURI()), http.StatusSeeOther)
				return
			}
			if guard.Can(user, c) {
				next.ServeHTTP(w, r)
				return
			}

			slog.Warn("access denied",
				"status", http.StatusForbidden,
				"method", r.Method,
				"path", r.URL.Path,
				"user_id", user.ID,
				"user_role", user.Role,
				"capability", string(c),
			)
			if events != nil {
				_ = events.LogSecurityEvent(r.Context(), model.EventLevelWarning, "Access denied: missing capability", user.ID, map[string]any{
					"method":     r.Method,
					"user_role":  user.Role,
					"capability": string(c),
				})
			}

			http.Error(w, i18n.Tc(r.Context(), "error.no_access_generic"), http.StatusForbidden)
		})
	}
}
