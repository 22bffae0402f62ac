// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// AuthUser is an identity managed by the built-in auth backend.
type AuthUser struct {
	ID               string
	Email            string
	PasswordHash     string
	UserMetadata     string // JSON object
	EmailConfirmedAt sql.NullTime
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

const authUserColumns = `id, email, password_hash, user_metadata, email_confirmed_at, created_at, updated_at`

func scanAuthUser(row interface{ Scan(...any) error }) (AuthUser, error) {
	var u AuthUser
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.UserMetadata, &u.EmailConfirmedAt, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// CreateAuthUser inserts an identity. Duplicate emails yield ErrUniqueViolation.
func (q *Queries) CreateAuthUser(ctx context.Context, u AuthUser) error {
	if u.UserMetadata == "" {
		u.UserMetadata = "{}"
	}
	_, err := q.exec(ctx, `INSERT INTO auth_users (`+authUserColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.UserMetadata, u.EmailConfirmedAt, u.CreatedAt, u.UpdatedAt)
	return wrapErr("creating auth user", err)
}

// GetAuthUser returns an identity by id.
func (q *Queries) GetAuthUser(ctx context.Context, id string) (AuthUser, error) {
	u, err := scanAuthUser(q.queryRow(ctx, `SELECT `+authUserColumns+` FROM auth_users WHERE id = ?`, id))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return AuthUser{}, wrapErr("getting auth user", err)
	}
	return u, err
}

// GetAuthUserByEmail returns an identity by email.
func (q *Queries) GetAuthUserByEmail(ctx context.Context, email string) (AuthUser, error) {
	u, err := scanAuthUser(q.queryRow(ctx, `SELECT `+authUserColumns+` FROM auth_users WHERE email = ?`, email))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return AuthUser{}, wrapErr("getting auth user by email", err)
	}
	return u, err
}

// UpdateAuthUserPassword replaces the password hash.
func (q *Queries) UpdateAuthUserPassword(ctx context.Context, id, hash string) error {
	return q.execAffected(ctx, "updating auth user password",
		`UPDATE auth_users SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, time.Now().UTC(), id)
}

// UpdateAuthUserMetadata replaces the metadata JSON.
func (q *Queries) UpdateAuthUserMetadata(ctx context.Context, id, metadata string) error {
	return q.execAffected(ctx, "updating auth user metadata",
		`UPDATE auth_users SET user_metadata = ?, updated_at = ? WHERE id = ?`, metadata, time.Now().UTC(), id)
}

// ConfirmAuthUserEmail marks the email as verified.
func (q *Queries) ConfirmAuthUserEmail(ctx context.Context, id string, at time.Time) error {
	return q.execAffected(ctx, "confirming auth user email",
		`UPDATE auth_users SET email_confirmed_at = ?, updated_at = ? WHERE id = ?`, at, at, id)
}

// DeleteAuthUser removes an identity and, by cascade, its tokens.
func (q *Queries) DeleteAuthUser(ctx context.Context, id string) error {
	return q.execAffected(ctx, "deleting auth user", `DELETE FROM auth_users WHERE id = ?`, id)
}

// CreateRefreshToken stores a hashed refresh token.
func (q *Queries) CreateRefreshToken(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := q.exec(ctx, `INSERT INTO auth_refresh_tokens (token_hash, user_id, expires_at, revoked) VALUES (?, ?, ?, ?)`,
		tokenHash, userID, expiresAt, false)
	return wrapErr("creating refresh token", err)
}

// ConsumeRefreshToken revokes a live refresh token and returns its owner.
// Expired, revoked or unknown tokens yield sql.ErrNoRows.
func (q *Queries) ConsumeRefreshToken(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	var userID string
	err := q.queryRow(ctx, `UPDATE auth_refresh_tokens SET revoked = ?
		WHERE token_hash = ? AND revoked = ? AND expires_at > ? RETURNING user_id`,
		true, tokenHash, false, now).Scan(&userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", wrapErr("consuming refresh token", err)
	}
	return userID, err
}

// RevokeRefreshTokens revokes every refresh token of a user.
func (q *Queries) RevokeRefreshTokens(ctx context.Context, userID string) error {
	_, err := q.exec(ctx, `UPDATE auth_refresh_tokens SET revoked = ? WHERE user_id = ?`, true, userID)
	return wrapErr("revoking refresh tokens", err)
}

// CreateOneTimeToken stores a hashed verification or recovery token,
// replacing any earlier token of the same kind for the user.
func (q *Queries) CreateOneTimeToken(ctx context.Context, tokenHash, userID, kind string, expiresAt time.Time) error {
	if _, err := q.exec(ctx, `DELETE FROM auth_one_time_tokens WHERE user_id = ? AND kind = ?`, userID, kind); err != nil {
		return wrapErr("replacing one-time token", err)
	}
	_, err := q.exec(ctx, `INSERT INTO auth_one_time_tokens (token_hash, user_id, kind, expires_at) VALUES (?, ?, ?, ?)`,
		tokenHash, userID, kind, expiresAt)
	return wrapErr("creating one-time token", err)
}

// ConsumeOneTimeToken deletes a live token of the given kind and returns its owner.
func (q *Queries) ConsumeOneTimeToken(ctx context.Context, tokenHash, kind string, now time.Time) (string, error) {
	var userID string
	err := q.queryRow(ctx, `DELETE FROM auth_one_time_tokens
		WHERE token_hash = ? AND kind = ? AND expires_at > ? RETURNING user_id`,
		tokenHash, kind, now).Scan(&userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", wrapErr("consuming one-time token", err)
	}
	return userID, err
}

// PurgeExpiredAuthTokens removes expired or revoked tokens.
func (q *Queries) PurgeExpiredAuthTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := q.exec(ctx, `DELETE FROM auth_refresh_tokens WHERE revoked = ? OR expires_at < ?`, true, now)
	if err != nil {
		return 0, wrapErr("purging refresh tokens", err)
	}
	n, _ := res.RowsAffected()
	res, err = q.exec(ctx, `DELETE FROM auth_one_time_tokens WHERE expires_at < ?`, now)
	if err != nil {
		return n, wrapErr("purging one-time tokens", err)
	}
	m, _ := res.RowsAffected()
	return n + m, nil
}
