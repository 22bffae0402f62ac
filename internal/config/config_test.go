// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

const testSecret = "test-Secret-key-32-bytes-long!!!"

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set %s: %v", key, err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	setEnv(t, "EDU_SESSION_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBDriver != DriverSQLite {
		t.Errorf("DBDriver = %q, want %q", cfg.DBDriver, DriverSQLite)
	}
	if cfg.DBPath != "./data/eduportal.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "./data/eduportal.db")
	}
	if cfg.AuthBackend != AuthBackendLocal {
		t.Errorf("AuthBackend = %q, want %q", cfg.AuthBackend, AuthBackendLocal)
	}
	if cfg.DefaultLang != "ko" {
		t.Errorf("DefaultLang = %q, want ko", cfg.DefaultLang)
	}
	if cfg.CacheTTL != 10*time.Minute {
		t.Errorf("CacheTTL = %v, want 10m", cfg.CacheTTL)
	}
	if cfg.JWTSecret != testSecret {
		t.Errorf("JWTSecret should fall back to the session secret for the local backend")
	}
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false, want true")
	}
	if cfg.ServerAddr() != "localhost:8080" {
		t.Errorf("ServerAddr() = %q", cfg.ServerAddr())
	}
	if cfg.DSN() != cfg.DBPath {
		t.Errorf("DSN() = %q, want DB path", cfg.DSN())
	}
}

func TestLoad_Supabase(t *testing.T) {
	os.Clearenv()
	setEnv(t, "EDU_SESSION_SECRET", testSecret)
	setEnv(t, "EDU_AUTH_BACKEND", "supabase")
	setEnv(t, "EDU_SUPABASE_URL", "https://abc.supabase.co")
	setEnv(t, "EDU_SUPABASE_ANON_KEY", "anon")
	setEnv(t, "EDU_JWT_SECRET", "jwt-secret")
	setEnv(t, "EDU_SITE_URL", "https://edu.example.com/")
	setEnv(t, "EDU_CORS_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.UseSupabase() {
		t.Error("UseSupabase() = false")
	}
	if cfg.SiteURL != "https://edu.example.com" {
		t.Errorf("SiteURL = %q, trailing slash should be trimmed", cfg.SiteURL)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Errorf("CORSOrigins = %v, want 2 entries", cfg.CORSOrigins)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing secret",
			env:     map[string]string{},
			wantErr: "parsing config",
		},
		{
			name:    "short secret",
			env:     map[string]string{"EDU_SESSION_SECRET": "short"},
			wantErr: "at least 32 bytes",
		},
		{
			name:    "weak secret",
			env:     map[string]string{"EDU_SESSION_SECRET": "change-me-to-32-byte-secret-key!"},
			wantErr: "known default value",
		},
		{
			name:    "unknown driver",
			env:     map[string]string{"EDU_SESSION_SECRET": testSecret, "EDU_DB_DRIVER": "mysql"},
			wantErr: "EDU_DB_DRIVER",
		},
		{
			name:    "postgres without url",
			env:     map[string]string{"EDU_SESSION_SECRET": testSecret, "EDU_DB_DRIVER": "postgres"},
			wantErr: "EDU_DATABASE_URL",
		},
		{
			name:    "supabase without keys",
			env:     map[string]string{"EDU_SESSION_SECRET": testSecret, "EDU_AUTH_BACKEND": "supabase"},
			wantErr: "EDU_SUPABASE_URL",
		},
		{
			name: "supabase without jwt secret",
			env: map[string]string{
				"EDU_SESSION_SECRET":    testSecret,
				"EDU_AUTH_BACKEND":      "supabase",
				"EDU_SUPABASE_URL":      "https://abc.supabase.co",
				"EDU_SUPABASE_ANON_KEY": "anon",
			},
			wantErr: "EDU_JWT_SECRET",
		},
		{
			name:    "unknown auth backend",
			env:     map[string]string{"EDU_SESSION_SECRET": testSecret, "EDU_AUTH_BACKEND": "firebase"},
			wantErr: "EDU_AUTH_BACKEND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.env {
				setEnv(t, k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestHasMinimumEntropy(t *testing.T) {
	tests := []struct {
		secret string
		want   bool
	}{
		{"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", false},
		{"aaaaaaaaaaaaaaaaAAAAAAAAAAAAAAAA", false},
		{"aaaaaaaaaaaaAAAAAAAAAA1111111111", true},
		{"abc-ABC-123", true},
	}
	for _, tt := range tests {
		if got := hasMinimumEntropy(tt.secret); got != tt.want {
			t.Errorf("hasMinimumEntropy(%q) = %v, want %v", tt.secret, got, tt.want)
		}
	}
}
