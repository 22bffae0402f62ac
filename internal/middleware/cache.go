// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"strconv"
	"time"
)

// StaticCache adds Cache-Control headers for static files. Fingerprinted
// URLs (those carrying a "v" query parameter) are marked immutable for a year.
func StaticCache(maxAge time.Duration) func(http.Handler) http.Handler {
	plain := "public, max-age=" + strconv.Itoa(int(maxAge.Seconds()))
	const versioned = "public, max-age=31536000, immutable"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("v") != "" {
				w.Header().Set("Cache-Control", versioned)
			} else {
				w.Header().Set("Cache-Control", plain)
			}
			next.ServeHTTP(w, r)
		})
	}
}
