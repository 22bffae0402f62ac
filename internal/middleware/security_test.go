// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func serveWithHeaders(cfg SecurityHeadersConfig, path string) *httptest.ResponseRecorder {
	h := SecurityHeaders(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestSecurityHeaders(t *testing.T) {
	tests := []struct {
		name     string
		isDev    bool
		wantHSTS bool
	}{
		{"development", true, false},
		{"production", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serveWithHeaders(DefaultSecurityHeadersConfig(tt.isDev), "/")

			csp := rr.Header().Get("Content-Security-Policy")
			if !strings.HasPrefix(csp, "default-src 'self'; script-src") {
				t.Errorf("CSP = %q", csp)
			}
			if !strings.Contains(csp, "https://images.unsplash.com") {
				t.Errorf("CSP should allow unsplash images: %q", csp)
			}
			if !strings.Contains(csp, "frame-ancestors 'none'") {
				t.Errorf("CSP should forbid framing: %q", csp)
			}

			hsts := rr.Header().Get("Strict-Transport-Security")
			if (hsts != "") != tt.wantHSTS {
				t.Errorf("HSTS = %q, want present=%v", hsts, tt.wantHSTS)
			}
			if tt.wantHSTS && hsts != "max-age=31536000; includeSubDomains" {
				t.Errorf("HSTS = %q", hsts)
			}

			want := map[string]string{
				"X-Frame-Options":        "DENY",
				"X-Content-Type-Options": "nosniff",
				"Referrer-Policy":        "strict-origin-when-cross-origin",
			}
			for k, v := range want {
				if got := rr.Header().Get(k); got != v {
					t.Errorf("%s = %q, want %q", k, got, v)
				}
			}
		})
	}
}

func TestSecurityHeadersExcludePaths(t *testing.T) {
	cfg := DefaultSecurityHeadersConfig(false)
	cfg.ExcludePaths = []string{"/metrics"}

	if rr := serveWithHeaders(cfg, "/metrics"); rr.Header().Get("Content-Security-Policy") != "" {
		t.Error("excluded path should not get a CSP")
	}
	if rr := serveWithHeaders(cfg, "/news"); rr.Header().Get("Content-Security-Policy") == "" {
		t.Error("other paths should get a CSP")
	}
}

func TestSecurityHeadersHSTSPreload(t *testing.T) {
	cfg := SecurityHeadersConfig{HSTSMaxAge: 600, HSTSPreload: true}
	if got := serveWithHeaders(cfg, "/").Header().Get("Strict-Transport-Security"); got != "max-age=600; preload" {
		t.Errorf("HSTS = %q", got)
	}
}

func TestBuildCSP(t *testing.T) {
	got := buildCSP(map[string]string{
		"report-to":   "csp",
		"img-src":     "'self'",
		"default-src": "'none'",
		"base-uri":    "'self'",
	})
	want := "default-src 'none'; img-src 'self'; base-uri 'self'; report-to csp"
	if got != want {
		t.Errorf("buildCSP() = %q, want %q", got, want)
	}
}

func TestBuildPermissionsPolicy(t *testing.T) {
	got := buildPermissionsPolicy(map[string]string{"usb": "()", "camera": "()"})
	if got != "camera=(), usb=()" {
		t.Errorf("buildPermissionsPolicy() = %q", got)
	}
}
