// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/olegiv/eduportal/internal/model"
)

const profileColumns = `id, email, display_name, role, avatar_url, created_at, updated_at`

func scanProfile(row interface{ Scan(...any) error }) (model.Profile, error) {
	var p model.Profile
	err := row.Scan(&p.ID, &p.Email, &p.DisplayName, &p.Role, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// CreateProfileParams holds the fields for a new profile row.
type CreateProfileParams struct {
	ID          string
	Email       string
	DisplayName string
	Role        string
	AvatarURL   sql.NullString
	CreatedAt   time.Time
}

// CreateProfile inserts a profile. A display name collision is reported as
// ErrUniqueViolation.
func (q *Queries) CreateProfile(ctx context.Context, arg CreateProfileParams) (model.Profile, error) {
	if arg.Role == "" {
		arg.Role = model.RoleUser
	}
	if arg.CreatedAt.IsZero() {
		arg.CreatedAt = time.Now().UTC()
	}
	row := q.queryRow(ctx, `INSERT INTO profiles (id, email, display_name, role, avatar_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING `+profileColumns,
		arg.ID, arg.Email, arg.DisplayName, arg.Role, arg.AvatarURL, arg.CreatedAt, arg.CreatedAt)
	p, err := scanProfile(row)
	if err != nil {
		return model.Profile{}, wrapErr("creating profile", err)
	}
	return p, nil
}

// GetProfile returns exactly one profile or sql.ErrNoRows.
func (q *Queries) GetProfile(ctx context.Context, id string) (model.Profile, error) {
	p, err := scanProfile(q.queryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Profile{}, err
		}
		return model.Profile{}, wrapErr("getting profile", err)
	}
	return p, nil
}

// FindProfileByDisplayName returns the profile with an exactly matching
// display name, or nil when there is none.
func (q *Queries) FindProfileByDisplayName(ctx context.Context, name string) (*model.Profile, error) {
	p, err := scanProfile(q.queryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE display_name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("finding profile by display name", err)
	}
	return &p, nil
}

// DisplayNameExists reports whether any profile uses name verbatim.
func (q *Queries) DisplayNameExists(ctx context.Context, name string) (bool, error) {
	var exists int
	err := q.queryRow(ctx, `SELECT 1 FROM profiles WHERE display_name = ? LIMIT 1`, name).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrapErr("checking display name", err)
	}
	return true, nil
}

// GetProfileRole returns the role of the given profile.
func (q *Queries) GetProfileRole(ctx context.Context, id string) (string, error) {
	var role string
	err := q.queryRow(ctx, `SELECT role FROM profiles WHERE id = ?`, id).Scan(&role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
		return "", wrapErr("getting profile role", err)
	}
	return role, nil
}

// UpdateProfileParams holds editable profile fields.
type UpdateProfileParams struct {
	ID          string
	DisplayName string
	AvatarURL   sql.NullString
	UpdatedAt   time.Time
}

// UpdateProfile updates the display name and avatar.
func (q *Queries) UpdateProfile(ctx context.Context, arg UpdateProfileParams) (model.Profile, error) {
	if arg.UpdatedAt.IsZero() {
		arg.UpdatedAt = time.Now().UTC()
	}
	p, err := scanProfile(q.queryRow(ctx, `UPDATE profiles SET display_name = ?, avatar_url = ?, updated_at = ?
		WHERE id = ? RETURNING `+profileColumns,
		arg.DisplayName, arg.AvatarURL, arg.UpdatedAt, arg.ID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Profile{}, err
		}
		return model.Profile{}, wrapErr("updating profile", err)
	}
	return p, nil
}

// UpdateProfileRole sets the role of a profile.
func (q *Queries) UpdateProfileRole(ctx context.Context, id, role string) error {
	return q.execAffected(ctx, "updating profile role",
		`UPDATE profiles SET role = ?, updated_at = ? WHERE id = ?`, role, time.Now().UTC(), id)
}

// DeleteProfile removes a profile.
func (q *Queries) DeleteProfile(ctx context.Context, id string) error {
	return q.execAffected(ctx, "deleting profile", `DELETE FROM profiles WHERE id = ?`, id)
}

// ListProfiles returns a page of profiles, newest first.
func (q *Queries) ListProfiles(ctx context.Context, limit, offset int) ([]model.Profile, error) {
	rows, err := q.query(ctx, `SELECT `+profileColumns+` FROM profiles
		ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, wrapErr("listing profiles", err)
	}
	defer func() { _ = rows.Close() }()

	var profiles []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// CountProfiles returns the total number of profiles.
func (q *Queries) CountProfiles(ctx context.Context) (int64, error) {
	var n int64
	if err := q.queryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n); err != nil {
		return 0, wrapErr("counting profiles", err)
	}
	return n, nil
}
