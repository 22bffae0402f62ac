// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package nav

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/eduportal/internal/cache"
	"github.com/olegiv/eduportal/internal/dal"
	"github.com/olegiv/eduportal/internal/i18n"
	"github.com/olegiv/eduportal/internal/identity"
	"github.com/olegiv/eduportal/internal/model"
)

func urls(links []Link) []string {
	out := make([]string, 0, len(links))
	for _, l := range links {
		out = append(out, l.URL)
	}
	return out
}

func TestMain(m *testing.M) {
	if err := i18n.Init(nil, "ko"); err != nil {
		panic(err)
	}
	m.Run()
}

func TestMenu_Visibility(t *testing.T) {
	b := NewBuilder(DefaultRoutes, dal.DefaultPolicy(), nil, 0, nil)
	ctx := context.Background()

	anon := b.Menu(ctx, nil, "ko", "/")
	assert.Equal(t, []string{"/", "/news", "/universities", "/blog", "/login", "/register"}, urls(anon.Links))
	assert.Nil(t, anon.Profile)

	user := &dal.User{ID: "u1", Role: model.RoleUser, DisplayName: "minji"}
	m := b.Menu(ctx, user, "ko", "/")
	assert.Equal(t, []string{"/", "/dashboard", "/news", "/universities", "/blog", "/account"}, urls(m.Links))
	require.NotNil(t, m.Profile)
	assert.Equal(t, "minji", m.Profile.DisplayName)

	admin := &dal.User{ID: "a1", Role: model.RoleAdmin}
	am := b.Menu(ctx, admin, "en", "/")
	assert.Contains(t, urls(am.Links), "/admin-dashboard")
	for _, l := range am.Links {
		if l.URL == "/admin-dashboard" {
			assert.Equal(t, "Admin", l.Label)
			assert.Equal(t, []string{"/admin-dashboard/blog/create", "/admin-dashboard/users"}, urls(l.Children))
		}
	}
}

func TestMenu_Active(t *testing.T) {
	b := NewBuilder(DefaultRoutes, dal.DefaultPolicy(), nil, 0, nil)
	admin := &dal.User{ID: "a1", Role: model.RoleAdmin}

	m := b.Menu(context.Background(), admin, "ko", "/admin-dashboard/users")
	for _, l := range m.Links {
		switch l.URL {
		case "/admin-dashboard":
			assert.True(t, l.Active)
			for _, c := range l.Children {
				assert.Equal(t, c.URL == "/admin-dashboard/users", c.Active, c.URL)
			}
		default:
			assert.False(t, l.Active, l.URL)
		}
	}

	home := b.Menu(context.Background(), nil, "ko", "/")
	assert.True(t, home.Links[0].Active)
}

func TestMenu_CachedUntilInvalidated(t *testing.T) {
	c := cache.NewMemoryCache(cache.MemoryOptions{})
	defer func() { _ = c.Close() }()
	b := NewBuilder(DefaultRoutes, dal.DefaultPolicy(), c, time.Minute, nil)
	ctx := context.Background()

	u := &dal.User{ID: "u1", Role: model.RoleUser, DisplayName: "before"}
	assert.Equal(t, "before", b.Menu(ctx, u, "ko", "/").Profile.DisplayName)

	u.DisplayName = "after"
	assert.Equal(t, "before", b.Menu(ctx, u, "ko", "/").Profile.DisplayName, "menu should be cached")

	require.NoError(t, b.Invalidate(ctx, "u1"))
	assert.Equal(t, "after", b.Menu(ctx, u, "ko", "/").Profile.DisplayName)

	// The generic per-user invalidation reaches the same entries.
	u.DisplayName = "again"
	require.NoError(t, cache.InvalidateUser(ctx, c, "u1"))
	assert.Equal(t, "again", b.Menu(ctx, u, "ko", "/").Profile.DisplayName)
}

func TestBreadcrumbs(t *testing.T) {
	b := NewBuilder(DefaultRoutes, dal.DefaultPolicy(), nil, 0, nil)

	crumbs := b.Breadcrumbs("ko", "/admin-dashboard/blog/edit/abc-123")
	require.Len(t, crumbs, 3)
	assert.Equal(t, "/", crumbs[0].URL)
	assert.Equal(t, "/admin-dashboard", crumbs[1].URL)
	assert.Equal(t, "/admin-dashboard/blog/edit", crumbs[2].URL)
	assert.True(t, crumbs[2].Active)
	assert.False(t, crumbs[0].Active)

	home := b.Breadcrumbs("ko", "/")
	require.Len(t, home, 1)
	assert.True(t, home[0].Active)
	assert.Equal(t, "홈", home[0].Label)
}

func TestSubscribe_SignOutDropsMenu(t *testing.T) {
	c := cache.NewMemoryCache(cache.MemoryOptions{})
	defer func() { _ = c.Close() }()
	b := NewBuilder(DefaultRoutes, dal.DefaultPolicy(), c, time.Minute, nil)
	hub := identity.NewHub(nil)
	b.Subscribe(hub)
	ctx := context.Background()

	u := &dal.User{ID: "u1", Role: model.RoleUser, DisplayName: "before"}
	_ = b.Menu(ctx, u, "ko", "/")
	u.DisplayName = "after"

	assert.Zero(t, hub.Publish(ctx, identity.Event{Kind: identity.PasswordReset, UserID: "u1"}))
	assert.Equal(t, "before", b.Menu(ctx, u, "ko", "/").Profile.DisplayName)

	assert.Zero(t, hub.Publish(ctx, identity.Event{Kind: identity.SignedOut, UserID: "u1"}))
	assert.Equal(t, "after", b.Menu(ctx, u, "ko", "/").Profile.DisplayName)
}
