// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads eduportal settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Auth backends.
const (
	AuthBackendSupabase = "supabase"
	AuthBackendLocal    = "local"
)

// knownWeakSecrets contains default/example secrets that must be rejected in production.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Env        string `env:"EDU_ENV" envDefault:"development"`
	LogLevel   string `env:"EDU_LOG_LEVEL" envDefault:"info"`
	ServerHost string `env:"EDU_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"EDU_SERVER_PORT" envDefault:"8080"`
	SiteURL    string `env:"EDU_SITE_URL" envDefault:"http://localhost:8080"`

	SessionSecret string `env:"EDU_SESSION_SECRET,required"`
	DefaultLang   string `env:"EDU_DEFAULT_LANG" envDefault:"ko"`

	// Database
	DBDriver    string `env:"EDU_DB_DRIVER" envDefault:"sqlite"`
	DBPath      string `env:"EDU_DB_PATH" envDefault:"./data/eduportal.db"`
	DatabaseURL string `env:"EDU_DATABASE_URL"`

	// Auth backend
	AuthBackend        string `env:"EDU_AUTH_BACKEND" envDefault:"local"`
	SupabaseURL        string `env:"EDU_SUPABASE_URL"`
	SupabaseAnonKey    string `env:"EDU_SUPABASE_ANON_KEY"`
	SupabaseServiceKey string `env:"EDU_SUPABASE_SERVICE_KEY"` // admin API, optional
	JWTSecret          string `env:"EDU_JWT_SECRET"`

	// Cache
	RedisURL    string        `env:"EDU_REDIS_URL"`
	CachePrefix string        `env:"EDU_CACHE_PREFIX" envDefault:"edu:"`
	CacheTTL    time.Duration `env:"EDU_CACHE_TTL" envDefault:"10m"`

	CORSOrigins []string `env:"EDU_CORS_ORIGINS" envSeparator:","`

	GeoIPDBPath string `env:"EDU_GEOIP_DB_PATH"` // Path to GeoLite2-Country.mmdb file

	EventRetentionDays int `env:"EDU_EVENT_RETENTION_DAYS" envDefault:"90"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// UseSupabase reports whether identity is delegated to a hosted GoTrue server.
func (c Config) UseSupabase() bool {
	return c.AuthBackend == AuthBackendSupabase
}

// GeoIPEnabled returns true if GeoIP database is configured.
func (c Config) GeoIPEnabled() bool {
	return c.GeoIPDBPath != ""
}

// DSN returns the data source name for the configured driver.
func (c Config) DSN() string {
	if c.DBDriver == DriverPostgres {
		return c.DatabaseURL
	}
	return c.DBPath
}

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	if len(c.SessionSecret) < MinSessionSecretLength {
		return fmt.Errorf("EDU_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(c.SessionSecret))
	}
	for _, weak := range knownWeakSecrets {
		if c.SessionSecret == weak {
			return errors.New("EDU_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}
	if !hasMinimumEntropy(c.SessionSecret) {
		slog.Warn("EDU_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			return errors.New("EDU_DB_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("EDU_DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("EDU_DB_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.DBDriver)
	}

	switch c.AuthBackend {
	case AuthBackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseAnonKey == "" {
			return errors.New("EDU_SUPABASE_URL and EDU_SUPABASE_ANON_KEY are required for the supabase auth backend")
		}
		if _, err := url.ParseRequestURI(c.SupabaseURL); err != nil {
			return fmt.Errorf("EDU_SUPABASE_URL is not a valid URL: %w", err)
		}
	case AuthBackendLocal:
	default:
		return fmt.Errorf("EDU_AUTH_BACKEND must be %q or %q, got %q", AuthBackendSupabase, AuthBackendLocal, c.AuthBackend)
	}

	if c.JWTSecret == "" {
		if c.UseSupabase() {
			return errors.New("EDU_JWT_SECRET is required to verify supabase access tokens")
		}
		// local tokens fall back to the session secret
		c.JWTSecret = c.SessionSecret
	}

	c.SiteURL = strings.TrimRight(c.SiteURL, "/")
	return nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
