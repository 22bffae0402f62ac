// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package identity broadcasts changes to who the caller is, so caches and
// audit logs derived from a user's identity stay consistent.
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Kind names an identity change.
type Kind string

// Identity changes.
const (
	SignedIn       Kind = "signed_in"
	SignedOut      Kind = "signed_out"
	SignedUp       Kind = "signed_up"
	PasswordReset  Kind = "password_reset"
	ProfileUpdated Kind = "profile_updated"
	RoleChanged    Kind = "role_changed"
	UserDeleted    Kind = "user_deleted"
)

// Event describes one identity change. ActorID is the caller that caused it
// and differs from UserID for admin operations.
type Event struct {
	Kind    Kind
	UserID  string
	ActorID string
	Email   string
	At      time.Time
	Attrs   map[string]string
}

// HandlerFunc reacts to an event. Errors are logged and do not stop other
// handlers.
type HandlerFunc func(ctx context.Context, e Event) error

type handler struct {
	name     string
	priority int
	fn       HandlerFunc
}

// Hub delivers events synchronously to subscribers in priority order (lower
// first).
type Hub struct {
	mu       sync.RWMutex
	handlers []handler
	logger   *slog.Logger
	now      func() time.Time
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{logger: logger, now: time.Now}
}

// Subscribe registers fn under name.
func (h *Hub) Subscribe(name string, priority int, fn HandlerFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.handlers = append(h.handlers, handler{name: name, priority: priority, fn: fn})
	sort.SliceStable(h.handlers, func(i, j int) bool {
		return h.handlers[i].priority < h.handlers[j].priority
	})
	h.logger.Debug("identity subscriber registered", "name", name, "priority", priority)
}

// Publish delivers e to every subscriber and returns the number that failed.
// A zero At is stamped with the current time.
func (h *Hub) Publish(ctx context.Context, e Event) int {
	if e.At.IsZero() {
		e.At = h.now()
	}

	h.mu.RLock()
	handlers := make([]handler, len(h.handlers))
	copy(handlers, h.handlers)
	h.mu.RUnlock()

	failed := 0
	for _, hd := range handlers {
		if err := h.call(ctx, hd, e); err != nil {
			failed++
			h.logger.Warn("identity subscriber failed",
				"subscriber", hd.name,
				"event", string(e.Kind),
				"user_id", e.UserID,
				"error", err,
			)
		}
	}
	return failed
}

func (h *Hub) call(ctx context.Context, hd handler, e Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return hd.fn(ctx, e)
}

// Subscribers returns subscriber names in delivery order.
func (h *Hub) Subscribers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, len(h.handlers))
	for i, hd := range h.handlers {
		names[i] = hd.name
	}
	return names
}
