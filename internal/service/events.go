// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service provides the audit trail: events about sign-ins, blog
// changes and user administration, enriched with request details.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/olegiv/eduportal/internal/geoip"
	"github.com/olegiv/eduportal/internal/identity"
	"github.com/olegiv/eduportal/internal/model"
	"github.com/olegiv/eduportal/internal/store"
	"github.com/olegiv/eduportal/internal/util"
)

// EventService writes and prunes event log rows.
type EventService struct {
	queries *store.Queries
	geo     *geoip.Lookup
	logger  *slog.Logger
	now     func() time.Time
}

// NewEventService creates an EventService. geo may be nil.
func NewEventService(queries *store.Queries, geo *geoip.Lookup, logger *slog.Logger) *EventService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventService{queries: queries, geo: geo, logger: logger, now: time.Now}
}

// LogEvent creates an event log entry. Request details attached with
// WithRequest are added to the entry.
func (s *EventService) LogEvent(ctx context.Context, level, category, message, userID string, metadata map[string]any) error {
	meta := make(map[string]any, len(metadata)+4)
	for k, v := range metadata {
		meta[k] = v
	}

	var ip string
	if req, ok := RequestFrom(ctx); ok {
		ip = req.IP
		if req.Path != "" {
			meta["path"] = req.Path
		}
		if req.UserAgent != "" {
			ua := ParseUserAgent(req.UserAgent)
			meta["browser"] = ua.Browser
			meta["os"] = ua.OS
			meta["device"] = ua.DeviceType
		}
		if s.geo != nil && ip != "" {
			if country := s.geo.Country(ip); country != "" {
				meta["country"] = country
			}
		}
	}

	metadataJSON := "{}"
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			metadataJSON = string(b)
		}
	}

	err := s.queries.CreateEvent(ctx, store.CreateEventParams{
		Level:     level,
		Category:  category,
		Message:   message,
		UserID:    util.NullStringFromValue(userID),
		IPAddress: ip,
		Metadata:  metadataJSON,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		s.logger.Error("failed to log event", "error", err, "category", category, "message", message)
		return err
	}
	return nil
}

// LogAuthEvent logs an authentication event.
func (s *EventService) LogAuthEvent(ctx context.Context, level, message, userID string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryAuth, message, userID, metadata)
}

// LogBlogEvent logs a blog event.
func (s *EventService) LogBlogEvent(ctx context.Context, level, message, userID string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryBlog, message, userID, metadata)
}

// LogUserEvent logs a user administration event.
func (s *EventService) LogUserEvent(ctx context.Context, level, message, userID string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryUser, message, userID, metadata)
}

// LogSecurityEvent logs an access or rate-limit event.
func (s *EventService) LogSecurityEvent(ctx context.Context, level, message, userID string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategorySecurity, message, userID, metadata)
}

// LogSystemEvent logs a system event.
func (s *EventService) LogSystemEvent(ctx context.Context, level, message string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategorySystem, message, "", metadata)
}

// RecentEvents returns the newest events, optionally of one category.
func (s *EventService) RecentEvents(ctx context.Context, category string, limit int) ([]model.Event, error) {
	return s.queries.ListEvents(ctx, category, limit, 0)
}

// DeleteOldEvents removes events older than the given duration.
func (s *EventService) DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.queries.DeleteEventsBefore(ctx, s.now().UTC().Add(-olderThan))
}

type auditEntry struct {
	category string
	level    string
	message  string
}

var identityAudit = map[identity.Kind]auditEntry{
	identity.SignedIn:       {model.EventCategoryAuth, model.EventLevelInfo, "User signed in"},
	identity.SignedOut:      {model.EventCategoryAuth, model.EventLevelInfo, "User signed out"},
	identity.SignedUp:       {model.EventCategoryAuth, model.EventLevelInfo, "User registered"},
	identity.PasswordReset:  {model.EventCategoryAuth, model.EventLevelInfo, "Password reset"},
	identity.ProfileUpdated: {model.EventCategoryUser, model.EventLevelInfo, "Profile updated"},
	identity.RoleChanged:    {model.EventCategoryUser, model.EventLevelWarning, "User role changed"},
	identity.UserDeleted:    {model.EventCategoryUser, model.EventLevelWarning, "User deleted"},
}

// Subscribe records every identity change in the event log. It runs after
// cache invalidation subscribers.
func (s *EventService) Subscribe(hub *identity.Hub) {
	hub.Subscribe("audit", 100, s.audit)
}

func (s *EventService) audit(ctx context.Context, e identity.Event) error {
	entry, ok := identityAudit[e.Kind]
	if !ok {
		return nil
	}
	meta := map[string]any{"user_id": e.UserID}
	if e.Email != "" {
		meta["email"] = e.Email
	}
	for k, v := range e.Attrs {
		meta[k] = v
	}
	actor := e.ActorID
	if actor == "" {
		actor = e.UserID
	}
	return s.LogEvent(ctx, entry.level, entry.category, entry.message, actor, meta)
}
