// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/olegiv/eduportal/internal/model"
)

// Maintenance job names.
const (
	JobPurgeEvents     = "purge-events"
	JobPurgeAuthTokens = "purge-auth-tokens"
	JobReloadGeoIP     = "reload-geoip"
)

// EventPurger deletes audit events older than a cutoff.
type EventPurger interface {
	DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error)
}

// TokenPurger deletes expired local-backend tokens.
type TokenPurger interface {
	PurgeExpiredAuthTokens(ctx context.Context, now time.Time) (int64, error)
}

// Reloader re-reads an on-disk database.
type Reloader interface {
	Reload() error
}

// SystemLogger records the outcome of a maintenance run.
type SystemLogger interface {
	LogSystemEvent(ctx context.Context, level, message string, metadata map[string]any) error
}

// Maintenance describes the housekeeping jobs. Nil dependencies skip their
// job.
type Maintenance struct {
	Events        EventPurger
	RetentionDays int
	Tokens        TokenPurger
	GeoIP         Reloader
	Audit         SystemLogger
	Now           func() time.Time
}

// Register adds the maintenance jobs to r.
func (m Maintenance) Register(r *Registry) error {
	if m.Now == nil {
		m.Now = time.Now
	}

	var errs []error
	if m.Events != nil && m.RetentionDays > 0 {
		errs = append(errs, r.Add(JobPurgeEvents, "Delete audit events past the retention period", "@daily", m.purgeEvents))
	}
	if m.Tokens != nil {
		errs = append(errs, r.Add(JobPurgeAuthTokens, "Delete expired refresh and one-time tokens", "@hourly", m.purgeTokens))
	}
	if m.GeoIP != nil {
		errs = append(errs, r.Add(JobReloadGeoIP, "Reload the GeoIP country database", "30 3 * * *", m.reloadGeoIP))
	}
	return errors.Join(errs...)
}

func (m Maintenance) purgeEvents(ctx context.Context) error {
	retention := time.Duration(m.RetentionDays) * 24 * time.Hour
	n, err := m.Events.DeleteOldEvents(ctx, retention)
	if err != nil {
		return fmt.Errorf("purging events: %w", err)
	}
	if n > 0 {
		m.record(ctx, "Old events purged", map[string]any{"deleted": n, "retention_days": m.RetentionDays})
	}
	return nil
}

func (m Maintenance) purgeTokens(ctx context.Context) error {
	n, err := m.Tokens.PurgeExpiredAuthTokens(ctx, m.Now())
	if err != nil {
		return fmt.Errorf("purging auth tokens: %w", err)
	}
	if n > 0 {
		m.record(ctx, "Expired auth tokens purged", map[string]any{"deleted": n})
	}
	return nil
}

func (m Maintenance) reloadGeoIP(context.Context) error {
	if err := m.GeoIP.Reload(); err != nil {
		return fmt.Errorf("reloading geoip: %w", err)
	}
	return nil
}

func (m Maintenance) record(ctx context.Context, message string, meta map[string]any) {
	if m.Audit != nil {
		_ = m.Audit.LogSystemEvent(ctx, model.EventLevelInfo, message, meta)
	}
}
