// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"log/slog"
	"net/url"
	"time"
)

// Config selects and configures the cache backend.
type Config struct {
	// RedisURL selects Redis when set.
	RedisURL   string
	Prefix     string
	DefaultTTL time.Duration
	MaxItems   int
}

// New creates the configured cache. When Redis is configured but
// unreachable, it logs a warning and falls back to memory.
func New(cfg Config, logger *slog.Logger) Cacher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RedisURL != "" {
		opts := DefaultRedisOptions(cfg.RedisURL)
		if cfg.Prefix != "" {
			opts.Prefix = cfg.Prefix
		}
		if cfg.DefaultTTL > 0 {
			opts.DefaultTTL = cfg.DefaultTTL
		}
		rc, err := NewRedisCache(opts)
		if err == nil {
			logger.Info("cache backend: redis", "url", SanitizeRedisURL(cfg.RedisURL), "prefix", opts.Prefix)
			return rc
		}
		logger.Warn("redis unavailable, using memory cache", "url", SanitizeRedisURL(cfg.RedisURL), "error", err)
	}

	maxItems := cfg.MaxItems
	if maxItems == 0 {
		maxItems = 10000
	}
	logger.Info("cache backend: memory", "max_items", maxItems)
	return NewMemoryCache(MemoryOptions{
		DefaultTTL:      cfg.DefaultTTL,
		MaxItems:        maxItems,
		CleanupInterval: time.Minute,
	})
}

// SanitizeRedisURL masks the password of a Redis URL for logging.
func SanitizeRedisURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "[invalid URL]"
	}
	if u.User != nil {
		if _, has := u.User.Password(); has {
			u.User = url.UserPassword(u.User.Username(), "***")
		}
	}
	return u.String()
}
