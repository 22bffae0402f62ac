// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/eduportal/internal/backend"
)

// Tokens keeps the caller's auth tokens in the HTTP session. The request
// context must carry a session loaded by SessionManager.LoadAndSave.
type Tokens struct {
	sm *scs.SessionManager
}

var _ backend.TokenStore = Tokens{}

// NewTokens creates a Tokens store.
func NewTokens(sm *scs.SessionManager) Tokens {
	return Tokens{sm: sm}
}

// LoadTokens implements backend.TokenStore.
func (t Tokens) LoadTokens(ctx context.Context) backend.Tokens {
	out := backend.Tokens{
		AccessToken:  t.sm.GetString(ctx, KeyAccessToken),
		RefreshToken: t.sm.GetString(ctx, KeyRefreshToken),
	}
	if exp := t.sm.GetInt64(ctx, KeyExpiresAt); exp > 0 {
		out.ExpiresAt = time.Unix(exp, 0)
	}
	return out
}

// SaveTokens implements backend.TokenStore. The session token is renewed
// to prevent fixation.
func (t Tokens) SaveTokens(ctx context.Context, tok backend.Tokens) error {
	if err := t.sm.RenewToken(ctx); err != nil {
		return err
	}
	t.sm.Put(ctx, KeyAccessToken, tok.AccessToken)
	t.sm.Put(ctx, KeyRefreshToken, tok.RefreshToken)
	if !tok.ExpiresAt.IsZero() {
		t.sm.Put(ctx, KeyExpiresAt, tok.ExpiresAt.Unix())
	}
	return nil
}

// ClearTokens implements backend.TokenStore.
func (t Tokens) ClearTokens(ctx context.Context) error {
	t.sm.Remove(ctx, KeyAccessToken)
	t.sm.Remove(ctx, KeyRefreshToken)
	t.sm.Remove(ctx, KeyExpiresAt)
	return t.sm.RenewToken(ctx)
}

// PutPKCEVerifier stores the verifier of an OAuth flow in progress.
func PutPKCEVerifier(ctx context.Context, sm *scs.SessionManager, verifier string) {
	sm.Put(ctx, KeyPKCEVerifier, verifier)
}

// PopPKCEVerifier returns and removes the stored verifier.
func PopPKCEVerifier(ctx context.Context, sm *scs.SessionManager) string {
	return sm.PopString(ctx, KeyPKCEVerifier)
}

// Flash is a one-shot message shown on the next page.
type Flash struct {
	Type    string `json:"type"` // success or error
	Message string `json:"message"`
}

// PutFlash stores a flash message.
func PutFlash(ctx context.Context, sm *scs.SessionManager, f Flash) {
	sm.Put(ctx, KeyFlash, f.Message)
	sm.Put(ctx, KeyFlashType, f.Type)
}

// PopFlash returns and removes the pending flash message.
func PopFlash(ctx context.Context, sm *scs.SessionManager) (Flash, bool) {
	msg := sm.PopString(ctx, KeyFlash)
	kind := sm.PopString(ctx, KeyFlashType)
	if msg == "" {
		return Flash{}, false
	}
	if kind == "" {
		kind = "success"
	}
	return Flash{Type: kind, Message: msg}, true
}
