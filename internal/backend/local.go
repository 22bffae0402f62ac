// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/eduportal/internal/auth"
	"github.com/olegiv/eduportal/internal/store"
)

// Token lifetimes of the local backend.
const (
	LocalAccessTokenTTL  = time.Hour
	LocalRefreshTokenTTL = 30 * 24 * time.Hour
	LocalOTPTTL          = 24 * time.Hour
)

// Mail is an outgoing auth email.
type Mail struct {
	To      string
	Kind    OTPType
	Link    string
	Subject string
}

// Mailer delivers auth emails.
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// LogMailer writes auth emails to the log instead of sending them.
type LogMailer struct {
	Logger *slog.Logger
}

// Send logs the email.
func (m LogMailer) Send(_ context.Context, mail Mail) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("auth email", "to", mail.To, "kind", mail.Kind, "subject", mail.Subject, "link", mail.Link)
	return nil
}

// LocalConfig configures the built-in backend.
type LocalConfig struct {
	Store   *store.Store
	Tokens  *TokenService
	Hasher  *auth.Hasher
	Mailer  Mailer
	SiteURL string
	// AutoConfirm skips email verification.
	AutoConfirm bool
}

// Local implements Auth on top of the application database.
type Local struct {
	store       *store.Store
	tokens      *TokenService
	hasher      *auth.Hasher
	mailer      Mailer
	siteURL     string
	autoConfirm bool
	now         func() time.Time
}

var (
	_ Auth  = (*Local)(nil)
	_ Admin = (*Local)(nil)
)

// NewLocal creates a Local backend.
func NewLocal(cfg LocalConfig) *Local {
	if cfg.Hasher == nil {
		cfg.Hasher = auth.NewHasher(auth.DefaultParams)
	}
	if cfg.Mailer == nil {
		cfg.Mailer = LogMailer{}
	}
	return &Local{
		store:       cfg.Store,
		tokens:      cfg.Tokens,
		hasher:      cfg.Hasher,
		mailer:      cfg.Mailer,
		siteURL:     strings.TrimRight(cfg.SiteURL, "/"),
		autoConfirm: cfg.AutoConfirm,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

var (
	errInvalidCredentials = &Error{Status: http.StatusBadRequest, Code: CodeInvalidCredentials, Message: "Invalid login credentials"}
	errEmailNotConfirmed  = &Error{Status: http.StatusBadRequest, Code: CodeEmailNotConfirmed, Message: "Email not confirmed"}
	errSamePassword       = &Error{Status: http.StatusUnprocessableEntity, Code: CodeSamePassword, Message: "New password should be different from the old password."}
	errOTPExpired         = &Error{Status: http.StatusForbidden, Code: CodeOTPExpired, Message: "Email link is invalid or has expired"}
	errBadJWT             = &Error{Status: http.StatusUnauthorized, Code: CodeBadJWT, Message: "invalid JWT"}
	errRefreshInvalid     = &Error{Status: http.StatusBadRequest, Code: "refresh_token_not_found", Message: "Invalid Refresh Token: Refresh Token Not Found"}
	errUserNotFound       = &Error{Status: http.StatusNotFound, Code: CodeUserNotFound, Message: "User not found"}
)

func (l *Local) toUser(u store.AuthUser) *User {
	out := &User{
		ID:         u.ID,
		Email:      u.Email,
		CreatedAt:  u.CreatedAt,
		Identities: []Identity{{ID: u.ID, Provider: "email"}},
	}
	if u.EmailConfirmedAt.Valid {
		t := u.EmailConfirmedAt.Time
		out.EmailConfirmedAt = &t
	}
	if u.UserMetadata != "" {
		_ = json.Unmarshal([]byte(u.UserMetadata), &out.UserMetadata)
	}
	return out
}

func (l *Local) newSession(ctx context.Context, u *User) (*Session, error) {
	access, exp, err := l.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.NewOpaqueToken()
	if err != nil {
		return nil, err
	}
	if err := l.store.CreateRefreshToken(ctx, auth.HashToken(refresh), u.ID, l.now().Add(LocalRefreshTokenTTL)); err != nil {
		return nil, err
	}
	return &Session{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp, User: u}, nil
}

// SignInWithPassword checks credentials against the stored argon2id hash.
func (l *Local) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	row, err := l.store.GetAuthUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	ok, err := l.hasher.Verify(password, row.PasswordHash)
	if err != nil || !ok {
		return nil, errInvalidCredentials
	}
	if !row.EmailConfirmedAt.Valid {
		return nil, errEmailNotConfirmed
	}

	if l.hasher.NeedsRehash(row.PasswordHash) {
		if hash, err := l.hasher.Hash(password); err == nil {
			_ = l.store.UpdateAuthUserPassword(ctx, row.ID, hash)
		}
	}
	return l.newSession(ctx, l.toUser(row))
}

// SignUp creates an unconfirmed account and mails a verification link.
// A duplicate email yields a user without identities and sends nothing.
func (l *Local) SignUp(ctx context.Context, p SignUpParams) (*User, *Session, error) {
	email := normalizeEmail(p.Email)
	if _, err := l.store.GetAuthUserByEmail(ctx, email); err == nil {
		return &User{ID: uuid.NewString(), Email: email, Identities: []Identity{}, UserMetadata: p.Data}, nil, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, nil, err
	}

	hash, err := l.hasher.Hash(p.Password)
	if err != nil {
		return nil, nil, err
	}
	meta, err := json.Marshal(p.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding user metadata: %w", err)
	}
	now := l.now()
	row := store.AuthUser{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		UserMetadata: string(meta),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if l.autoConfirm {
		row.EmailConfirmedAt = sql.NullTime{Time: now, Valid: true}
	}
	if err := l.store.CreateAuthUser(ctx, row); err != nil {
		if store.IsUniqueViolation(err) {
			return &User{ID: uuid.NewString(), Email: email, Identities: []Identity{}}, nil, nil
		}
		return nil, nil, err
	}

	user := l.toUser(row)
	if l.autoConfirm {
		sess, err := l.newSession(ctx, user)
		return user, sess, err
	}
	if err := l.sendOTP(ctx, row.ID, email, OTPSignup, p.RedirectTo); err != nil {
		return nil, nil, err
	}
	return user, nil, nil
}

// SignOut revokes all refresh tokens of the token's owner.
func (l *Local) SignOut(ctx context.Context, accessToken string) error {
	claims, err := l.tokens.Verify(accessToken)
	if err != nil && !errors.Is(err, ErrTokenExpired) {
		return errBadJWT
	}
	return l.store.RevokeRefreshTokens(ctx, claims.Subject)
}

// GetUser validates accessToken and loads its owner.
func (l *Local) GetUser(ctx context.Context, accessToken string) (*User, error) {
	if accessToken == "" {
		return nil, ErrNoSession
	}
	claims, err := l.tokens.Verify(accessToken)
	if err != nil {
		return nil, errBadJWT
	}
	row, err := l.store.GetAuthUser(ctx, claims.Subject)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return l.toUser(row), nil
}

// RefreshSession rotates a refresh token.
func (l *Local) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	userID, err := l.store.ConsumeRefreshToken(ctx, auth.HashToken(refreshToken), l.now())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errRefreshInvalid
	}
	if err != nil {
		return nil, err
	}
	row, err := l.store.GetAuthUser(ctx, userID)
	if err != nil {
		return nil, errRefreshInvalid
	}
	return l.newSession(ctx, l.toUser(row))
}

// ResetPasswordForEmail mails a recovery link. Unknown emails succeed silently.
func (l *Local) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	row, err := l.store.GetAuthUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	return l.sendOTP(ctx, row.ID, row.Email, OTPRecovery, redirectTo)
}

// UpdatePassword sets a new password for the token's owner.
func (l *Local) UpdatePassword(ctx context.Context, accessToken, password string) (*User, error) {
	user, err := l.GetUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	row, err := l.store.GetAuthUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if same, _ := l.hasher.Verify(password, row.PasswordHash); same {
		return nil, errSamePassword
	}
	hash, err := l.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	if err := l.store.UpdateAuthUserPassword(ctx, user.ID, hash); err != nil {
		return nil, err
	}
	return user, nil
}

// Resend re-issues a signup verification token for unconfirmed accounts.
func (l *Local) Resend(ctx context.Context, kind OTPType, email, redirectTo string) error {
	row, err := l.store.GetAuthUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	if kind == OTPSignup && row.EmailConfirmedAt.Valid {
		return nil
	}
	return l.sendOTP(ctx, row.ID, row.Email, kind, redirectTo)
}

// VerifyOTP redeems a mailed token and opens a session.
func (l *Local) VerifyOTP(ctx context.Context, kind OTPType, token string) (*Session, error) {
	if kind == OTPEmail {
		kind = OTPSignup
	}
	userID, err := l.store.ConsumeOneTimeToken(ctx, auth.HashToken(token), string(kind), l.now())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errOTPExpired
	}
	if err != nil {
		return nil, err
	}
	row, err := l.store.GetAuthUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !row.EmailConfirmedAt.Valid {
		now := l.now()
		if err := l.store.ConfirmAuthUserEmail(ctx, userID, now); err != nil {
			return nil, err
		}
		row.EmailConfirmedAt = sql.NullTime{Time: now, Valid: true}
	}
	return l.newSession(ctx, l.toUser(row))
}

// OAuthURL is unsupported without a hosted provider.
func (l *Local) OAuthURL(provider, _, _ string) (string, error) {
	return "", &Error{Status: http.StatusBadRequest, Code: CodeProviderDisabled, Message: "Unsupported provider: " + provider + " is not enabled"}
}

// ExchangeCode is unsupported without a hosted provider.
func (l *Local) ExchangeCode(context.Context, string, string) (*Session, error) {
	return nil, &Error{Status: http.StatusBadRequest, Code: CodeProviderDisabled, Message: "OAuth is not enabled"}
}

// DeleteUser removes the account and its tokens.
func (l *Local) DeleteUser(ctx context.Context, userID string) error {
	err := l.store.DeleteAuthUser(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return errUserNotFound
	}
	return err
}

// CreateConfirmedUser provisions an account without email verification.
// Used by the create-admin command.
func (l *Local) CreateConfirmedUser(ctx context.Context, email, password string, data map[string]any) (*User, error) {
	hash, err := l.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	meta, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding user metadata: %w", err)
	}
	now := l.now()
	row := store.AuthUser{
		ID:               uuid.NewString(),
		Email:            normalizeEmail(email),
		PasswordHash:     hash,
		UserMetadata:     string(meta),
		EmailConfirmedAt: sql.NullTime{Time: now, Valid: true},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := l.store.CreateAuthUser(ctx, row); err != nil {
		return nil, err
	}
	return l.toUser(row), nil
}

func (l *Local) sendOTP(ctx context.Context, userID, email string, kind OTPType, redirectTo string) error {
	token, err := auth.NewOpaqueToken()
	if err != nil {
		return err
	}
	if err := l.store.CreateOneTimeToken(ctx, auth.HashToken(token), userID, string(kind), l.now().Add(LocalOTPTTL)); err != nil {
		return err
	}

	q := url.Values{}
	q.Set("token_hash", token)
	q.Set("type", string(kind))
	if next := nextFromRedirect(redirectTo); next != "" {
		q.Set("next", next)
	}
	subject := "Confirm your signup"
	if kind == OTPRecovery {
		subject = "Reset your password"
	}
	return l.mailer.Send(ctx, Mail{
		To:      email,
		Kind:    kind,
		Subject: subject,
		Link:    l.siteURL + "/auth/confirm?" + q.Encode(),
	})
}

// nextFromRedirect keeps only the path of a redirect target.
func nextFromRedirect(redirectTo string) string {
	if redirectTo == "" {
		return ""
	}
	u, err := url.Parse(redirectTo)
	if err != nil {
		return ""
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
