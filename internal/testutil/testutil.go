// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers for eduportal.
package testutil

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/olegiv/eduportal/internal/model"
	"github.com/olegiv/eduportal/internal/store"
)

// TestLogger creates a silent test logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// TestLoggerSilent creates a completely silent test logger (error level only).
func TestLoggerSilent() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// TestDB creates a temporary SQLite database with migrations applied.
// The database is closed when the test finishes.
func TestDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "eduportal-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	_ = f.Close()

	db, err := store.Open(store.DialectSQLite, dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := store.Migrate(db, store.DialectSQLite); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

// TestStore wraps TestDB in a *store.Store.
func TestStore(t *testing.T) *store.Store {
	t.Helper()
	return store.NewStore(TestDB(t), store.DialectSQLite)
}

// CreateProfile inserts a profile with fake data. Empty fields of p are filled in.
func CreateProfile(t *testing.T, s *store.Store, p model.Profile) model.Profile {
	t.Helper()
	if p.ID == "" {
		p.ID = gofakeit.UUID()
	}
	if p.Email == "" {
		p.Email = gofakeit.Email()
	}
	if p.DisplayName == "" {
		p.DisplayName = gofakeit.Username()
	}
	created, err := s.CreateProfile(context.Background(), store.CreateProfileParams{
		ID:          p.ID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		Role:        p.Role,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	return created
}
