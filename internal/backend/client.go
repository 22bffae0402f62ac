// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package backend

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Tokens are the session credentials held for a caller.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// TokenStore persists the caller's tokens. Implementations are request
// scoped through ctx, typically backed by the HTTP session.
type TokenStore interface {
	LoadTokens(ctx context.Context) Tokens
	SaveTokens(ctx context.Context, t Tokens) error
	ClearTokens(ctx context.Context) error
}

// refreshLeeway refreshes tokens slightly before they expire.
const refreshLeeway = 30 * time.Second

// Client is the server-side handle bound to the caller's session. It
// resolves the current user, refreshing tokens when needed, and persists
// sessions produced by sign-in style operations.
type Client struct {
	auth   Auth
	tokens TokenStore
	logger *slog.Logger
	now    func() time.Time
}

// NewClient creates a Client.
func NewClient(a Auth, tokens TokenStore, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{auth: a, tokens: tokens, logger: logger, now: time.Now}
}

// Auth returns the underlying provider.
func (c *Client) Auth() Auth {
	return c.auth
}

// CurrentUser returns the signed-in user or nil. Provider rejections of the
// stored token clear the session and yield (nil, nil); transport failures
// are returned.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	t := c.tokens.LoadTokens(ctx)
	if t.AccessToken == "" {
		return nil, nil
	}

	if !t.ExpiresAt.IsZero() && c.now().Add(refreshLeeway).After(t.ExpiresAt) {
		if t.RefreshToken == "" {
			_ = c.tokens.ClearTokens(ctx)
			return nil, nil
		}
		sess, err := c.auth.RefreshSession(ctx, t.RefreshToken)
		if err != nil {
			return nil, c.dropOnRejection(ctx, err)
		}
		if err := c.store(ctx, sess); err != nil {
			return nil, err
		}
		if sess.User != nil {
			return sess.User, nil
		}
		t.AccessToken = sess.AccessToken
	}

	user, err := c.auth.GetUser(ctx, t.AccessToken)
	if err != nil {
		return nil, c.dropOnRejection(ctx, err)
	}
	return user, nil
}

func (c *Client) dropOnRejection(ctx context.Context, err error) error {
	var be *Error
	if errors.As(err, &be) && be.Status >= 400 && be.Status < 500 {
		c.logger.Debug("dropping rejected session", "code", be.ErrorCode())
		_ = c.tokens.ClearTokens(ctx)
		return nil
	}
	return err
}

func (c *Client) store(ctx context.Context, s *Session) error {
	if s == nil {
		return nil
	}
	return c.tokens.SaveTokens(ctx, Tokens{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt,
	})
}

// SignInWithPassword signs in and stores the session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	sess, err := c.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return sess, c.store(ctx, sess)
}

// SignUp registers an account and stores the session if one was opened.
func (c *Client) SignUp(ctx context.Context, p SignUpParams) (*User, error) {
	user, sess, err := c.auth.SignUp(ctx, p)
	if err != nil {
		return nil, err
	}
	return user, c.store(ctx, sess)
}

// SignOut revokes the provider session and clears the stored tokens. The
// local tokens are cleared even when the provider call fails.
func (c *Client) SignOut(ctx context.Context) error {
	t := c.tokens.LoadTokens(ctx)
	if t.AccessToken == "" {
		return ErrNoSession
	}
	err := c.auth.SignOut(ctx, t.AccessToken)
	if clearErr := c.tokens.ClearTokens(ctx); clearErr != nil && err == nil {
		err = clearErr
	}
	return err
}

// UpdatePassword changes the signed-in caller's password.
func (c *Client) UpdatePassword(ctx context.Context, password string) (*User, error) {
	t := c.tokens.LoadTokens(ctx)
	if t.AccessToken == "" {
		return nil, ErrNoSession
	}
	return c.auth.UpdatePassword(ctx, t.AccessToken, password)
}

// VerifyOTP redeems an emailed token and stores the resulting session.
func (c *Client) VerifyOTP(ctx context.Context, kind OTPType, tokenHash string) (*Session, error) {
	sess, err := c.auth.VerifyOTP(ctx, kind, tokenHash)
	if err != nil {
		return nil, err
	}
	return sess, c.store(ctx, sess)
}

// ExchangeCode finishes an OAuth flow and stores the session.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (*Session, error) {
	sess, err := c.auth.ExchangeCode(ctx, code, verifier)
	if err != nil {
		return nil, err
	}
	return sess, c.store(ctx, sess)
}

// ResetPasswordForEmail sends a recovery email.
func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	return c.auth.ResetPasswordForEmail(ctx, email, redirectTo)
}

// Resend re-sends a verification email.
func (c *Client) Resend(ctx context.Context, kind OTPType, email, redirectTo string) error {
	return c.auth.Resend(ctx, kind, email, redirectTo)
}

// OAuthURL builds a provider authorize URL.
func (c *Client) OAuthURL(provider, redirectTo, challenge string) (string, error) {
	return c.auth.OAuthURL(provider, redirectTo, challenge)
}
