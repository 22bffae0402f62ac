// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package dal

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"

	"github.com/olegiv/eduportal/internal/backend"
	"github.com/olegiv/eduportal/internal/model"
)

// User is the signed-in caller: the backend identity joined with its
// profile row.
type User struct {
	ID          string
	Email       string
	DisplayName string
	Role        string
	AvatarURL   string
	Identity    *backend.User
	// HasProfile is false for identities that have no profile row yet,
	// such as a first OAuth sign-in.
	HasProfile bool
}

// IsAdmin reports whether the caller holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == model.RoleAdmin
}

// UserSource resolves the backend identity bound to ctx.
type UserSource interface {
	CurrentUser(ctx context.Context) (*backend.User, error)
}

// ProfileSource loads profile rows.
type ProfileSource interface {
	GetProfile(ctx context.Context, id string) (model.Profile, error)
}

// Guard resolves callers and applies the capability policy.
type Guard struct {
	users    UserSource
	profiles ProfileSource
	policy   Policy
	logger   *slog.Logger
}

// NewGuard creates a Guard.
func NewGuard(users UserSource, profiles ProfileSource, policy Policy, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{users: users, profiles: profiles, policy: policy, logger: logger}
}

// Policy returns the capability policy.
func (g *Guard) Policy() Policy {
	return g.policy
}

// Can reports whether u holds c. A nil user holds nothing.
func (g *Guard) Can(u *User, c Capability) bool {
	if u == nil {
		return false
	}
	return g.policy.Allows(u.Role, c)
}

type memoKey struct{}

type userMemo struct {
	mu       sync.Mutex
	resolved bool
	user     *User
	err      error
}

// WithUserMemo returns ctx with a per-request slot so CurrentUser reaches
// the backend at most once.
func WithUserMemo(ctx context.Context) context.Context {
	return context.WithValue(ctx, memoKey{}, &userMemo{})
}

// ForgetUser drops the memoized caller so the next CurrentUser in this
// request sees a sign-in or sign-out that just happened.
func ForgetUser(ctx context.Context) {
	memo, ok := ctx.Value(memoKey{}).(*userMemo)
	if !ok {
		return
	}
	memo.mu.Lock()
	memo.resolved, memo.user, memo.err = false, nil, nil
	memo.mu.Unlock()
}

// CurrentUser returns the signed-in caller, or nil when anonymous.
func (g *Guard) CurrentUser(ctx context.Context) (*User, error) {
	memo, ok := ctx.Value(memoKey{}).(*userMemo)
	if !ok {
		return g.resolve(ctx)
	}
	memo.mu.Lock()
	defer memo.mu.Unlock()
	if !memo.resolved {
		memo.user, memo.err = g.resolve(ctx)
		memo.resolved = true
	}
	return memo.user, memo.err
}

func (g *Guard) resolve(ctx context.Context) (*User, error) {
	identity, err := g.users.CurrentUser(ctx)
	if err != nil || identity == nil {
		return nil, err
	}

	u := &User{
		ID:          identity.ID,
		Email:       identity.Email,
		DisplayName: identity.Username(),
		Role:        model.RoleUser,
		Identity:    identity,
	}
	p, err := g.profiles.GetProfile(ctx, identity.ID)
	switch {
	case err == nil:
		u.DisplayName = p.DisplayName
		u.Role = p.Role
		u.AvatarURL = p.Avatar()
		u.HasProfile = true
	case errors.Is(err, sql.ErrNoRows):
		g.logger.Debug("identity has no profile", "user_id", identity.ID)
	default:
		return nil, err
	}
	return u, nil
}
