// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
)

// Key namespaces shared by the typed caches.
const (
	NamespaceProfile = "profile"
	NamespaceNav     = "nav"
	NamespaceNews    = "news"
)

// NavKey is the nav cache key for a user and language. Anonymous visitors
// share the "anon" entry.
func NavKey(userID, lang string) string {
	if userID == "" {
		userID = "anon"
	}
	return userID + ":" + lang
}

// InvalidateUser drops every cached entry derived from userID's identity.
func InvalidateUser(ctx context.Context, c Cacher, userID string) error {
	if userID == "" {
		return nil
	}
	return errors.Join(
		c.Delete(ctx, NamespaceProfile+":"+userID),
		c.DeleteByPrefix(ctx, NamespaceNav+":"+userID+":"),
	)
}
