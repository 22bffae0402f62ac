// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/olegiv/eduportal/internal/i18n"
)

var testAuthKey = []byte("12345678901234567890123456789012")

func TestDefaultCSRFConfig_Development(t *testing.T) {
	cfg := DefaultCSRFConfig(testAuthKey, true)

	if len(cfg.AuthKey) != 32 {
		t.Errorf("expected 32-byte AuthKey, got %d bytes", len(cfg.AuthKey))
	}

	expected := map[string]bool{
		"localhost:8080": true,
		"127.0.0.1:8080": true,
	}
	if len(cfg.TrustedOrigins) != len(expected) {
		t.Fatalf("TrustedOrigins = %v", cfg.TrustedOrigins)
	}
	for _, origin := range cfg.TrustedOrigins {
		if !expected[origin] {
			t.Errorf("unexpected TrustedOrigin: %s", origin)
		}
	}
}

func TestDefaultCSRFConfig_Production(t *testing.T) {
	cfg := DefaultCSRFConfig(testAuthKey, false)
	if len(cfg.TrustedOrigins) != 0 {
		t.Errorf("expected no TrustedOrigins in production, got %v", cfg.TrustedOrigins)
	}

	cfg = DefaultCSRFConfig(testAuthKey, false, "https://edu.example.com", "https://edu.example.com/", "not a url", "http://admin.example.com:8443")
	want := []string{"edu.example.com", "admin.example.com:8443"}
	if strings.Join(cfg.TrustedOrigins, ",") != strings.Join(want, ",") {
		t.Errorf("TrustedOrigins = %v, want %v", cfg.TrustedOrigins, want)
	}
}

// The csrf library expects host[:port], not full URLs.
func TestTrustedOriginsFormat(t *testing.T) {
	cfg := DefaultCSRFConfig(testAuthKey, true, "https://edu.example.com")
	for _, origin := range cfg.TrustedOrigins {
		if strings.Contains(origin, "://") || strings.Contains(origin, "/") {
			t.Errorf("TrustedOrigin %q should be host[:port]", origin)
		}
	}
}

func TestCSRF_RejectsCrossSitePost(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := CSRF(DefaultCSRFConfig(testAuthKey, false))(ok)

	tests := []struct {
		name       string
		method     string
		fetchSite  string
		wantStatus int
	}{
		{"same origin post", http.MethodPost, "same-origin", http.StatusOK},
		{"cross site get", http.MethodGet, "cross-site", http.StatusOK},
		{"cross site post", http.MethodPost, "cross-site", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/login", nil)
			req.Header.Set("Sec-Fetch-Site", tt.fetchSite)
			req = req.WithContext(i18n.WithLanguage(req.Context(), "en"))
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusForbidden && !strings.Contains(rr.Body.String(), i18n.T("en", "error.csrf")) {
				t.Errorf("body = %q, want localized message", rr.Body.String())
			}
		})
	}
}

func TestSkipCSRF(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := SkipCSRF("/api/", "/health")(CSRF(DefaultCSRFConfig(testAuthKey, false))(ok))

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/api/auth/sign-in", http.StatusOK},
		{"/health", http.StatusOK},
		{"/healthz", http.StatusForbidden},
		{"/login", http.StatusForbidden},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, tt.path, nil)
		req.Header.Set("Sec-Fetch-Site", "cross-site")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != tt.wantStatus {
			t.Errorf("%s: status = %d, want %d", tt.path, rr.Code, tt.wantStatus)
		}
	}
}
