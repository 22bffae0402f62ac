// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package dal

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/eduportal/internal/backend"
	"github.com/olegiv/eduportal/internal/i18n"
	"github.com/olegiv/eduportal/internal/model"
	"github.com/olegiv/eduportal/internal/store"
)

type fakeUsers struct {
	user  *backend.User
	err   error
	calls int
}

func (f *fakeUsers) CurrentUser(context.Context) (*backend.User, error) {
	f.calls++
	return f.user, f.err
}

type fakeProfiles map[string]model.Profile

func (f fakeProfiles) GetProfile(_ context.Context, id string) (model.Profile, error) {
	p, ok := f[id]
	if !ok {
		return model.Profile{}, sql.ErrNoRows
	}
	return p, nil
}

func newGuard(user *backend.User, role string) (*Guard, *fakeUsers) {
	users := &fakeUsers{user: user}
	profiles := fakeProfiles{}
	if user != nil && role != "" {
		profiles[user.ID] = model.Profile{ID: user.ID, DisplayName: "minji", Role: role}
	}
	return NewGuard(users, profiles, DefaultPolicy(), nil), users
}

func TestDbOperation(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		res := DbOperation(ctx, func(context.Context) (int, error) { return 42, nil })
		require.True(t, res.Success)
		assert.Equal(t, 42, res.Data)
		assert.Nil(t, res.Err)
	})

	t.Run("coded error is a backend failure", func(t *testing.T) {
		cause := &backend.Error{Status: 400, Code: "invalid_credentials", Message: "nope"}
		res := DbOperation(ctx, func(context.Context) (int, error) { return 0, cause })
		require.False(t, res.Success)
		assert.Equal(t, KindBackend, res.Err.Kind)
		assert.Equal(t, "invalid_credentials", res.Err.Code())
		assert.ErrorIs(t, res.Err, cause)
	})

	t.Run("store error is a backend failure", func(t *testing.T) {
		cause := &store.DBError{Op: "creating profile", Code: store.CodeUniqueViolation, Err: errors.New("dup")}
		res := DbOperation(ctx, func(context.Context) (int, error) { return 0, cause })
		assert.Equal(t, KindBackend, res.Err.Kind)
		assert.Equal(t, store.CodeUniqueViolation, res.Err.Code())
	})

	t.Run("plain error is unknown", func(t *testing.T) {
		res := DbOperation(ctx, func(context.Context) (int, error) { return 0, errors.New("boom") })
		assert.Equal(t, KindUnknown, res.Err.Kind)
	})

	t.Run("thrown error is unwrapped", func(t *testing.T) {
		res := DbOperation(ctx, func(context.Context) (int, error) { return 0, Throw(NoAccess("admin")) })
		assert.Equal(t, KindNoAccess, res.Err.Kind)
		assert.Equal(t, "admin", res.Err.RequiredRole)
	})

	t.Run("empty throwable is unknown", func(t *testing.T) {
		err := Throw(nil)
		assert.NotPanics(t, func() { _ = err.Error() })
		assert.Equal(t, "dal: unspecified failure", err.Error())
		assert.Nil(t, errors.Unwrap(err))

		res := DbOperation(ctx, func(context.Context) (int, error) { return 0, err })
		assert.True(t, res.Is(KindUnknown))
		assert.NotPanics(t, func() { _ = res.Err.Error() })

		res = DbOperation(ctx, func(context.Context) (int, error) { panic(err) })
		assert.True(t, res.Is(KindUnknown))
	})

	t.Run("panicked throwable is unwrapped", func(t *testing.T) {
		res := DbOperation(ctx, func(context.Context) (int, error) { panic(&ThrowableError{Err: NoUser()}) })
		assert.True(t, res.Is(KindNoUser))
	})

	t.Run("arbitrary panic is unknown", func(t *testing.T) {
		res := DbOperation(ctx, func(context.Context) (int, error) { panic("nil map") })
		assert.True(t, res.Is(KindUnknown))
		assert.Contains(t, res.Err.Error(), "nil map")
	})
}

func TestResult(t *testing.T) {
	assert.True(t, Fail[int](nil).Is(KindUnknown), "nil failure still has an error")

	data, err := Ok("x").Unwrap()
	assert.NoError(t, err)
	assert.Equal(t, "x", data)

	failed := Fail[string](NoUser())
	_, err = failed.Unwrap()
	assert.Error(t, err)
	assert.True(t, Forward[int](failed).Is(KindNoUser))
}

func TestRequireAuth(t *testing.T) {
	ctx := context.Background()
	op := func(_ context.Context, u *User) Result[string] { return Ok(u.ID) }

	t.Run("anonymous caller never reaches op", func(t *testing.T) {
		g, _ := newGuard(nil, "")
		called := false
		res := RequireAuth(ctx, g, func(context.Context, *User) Result[string] {
			called = true
			return Ok("")
		})
		assert.True(t, res.Is(KindNoUser))
		assert.False(t, called)
	})

	t.Run("signed in", func(t *testing.T) {
		g, _ := newGuard(&backend.User{ID: "u1"}, model.RoleUser)
		res := RequireAuth(ctx, g, op)
		require.True(t, res.Success)
		assert.Equal(t, "u1", res.Data)
	})

	t.Run("role mismatch", func(t *testing.T) {
		g, _ := newGuard(&backend.User{ID: "u1"}, model.RoleUser)
		called := false
		res := RequireAuth(ctx, g, func(context.Context, *User) Result[string] {
			called = true
			return Ok("")
		}, WithRole(model.RoleAdmin))
		require.True(t, res.Is(KindNoAccess))
		assert.Equal(t, model.RoleAdmin, res.Err.RequiredRole)
		assert.False(t, called)
	})

	t.Run("missing profile defaults to member", func(t *testing.T) {
		g, _ := newGuard(&backend.User{ID: "u1"}, "")
		res := RequireAuth(ctx, g, op, WithRole(model.RoleAdmin))
		assert.True(t, res.Is(KindNoAccess))
	})

	t.Run("capability", func(t *testing.T) {
		g, _ := newGuard(&backend.User{ID: "u1"}, model.RoleUser)
		called := false
		res := RequireAuth(ctx, g, func(context.Context, *User) Result[string] {
			called = true
			return Ok("")
		}, WithCapability(CapBlogManage))
		require.True(t, res.Is(KindNoAccess))
		assert.Equal(t, model.RoleAdmin, res.Err.RequiredRole)
		assert.False(t, called)

		admin, _ := newGuard(&backend.User{ID: "a1"}, model.RoleAdmin)
		assert.True(t, RequireAuth(ctx, admin, op, WithCapability(CapBlogManage)).Success)
	})

	t.Run("op failure is returned unchanged", func(t *testing.T) {
		g, _ := newGuard(&backend.User{ID: "u1"}, model.RoleAdmin)
		want := Invalid("title", "bad")
		res := RequireAuth(ctx, g, func(context.Context, *User) Result[string] { return Fail[string](want) })
		assert.Same(t, want, res.Err)
	})

	t.Run("resolution error", func(t *testing.T) {
		g := NewGuard(&fakeUsers{err: &backend.Error{Status: 503, Message: "down"}}, fakeProfiles{}, DefaultPolicy(), nil)
		assert.True(t, RequireAuth(ctx, g, op).Is(KindBackend))
	})
}

func TestUserMemo(t *testing.T) {
	g, users := newGuard(&backend.User{ID: "u1"}, model.RoleAdmin)

	ctx := WithUserMemo(context.Background())
	for range 3 {
		u, err := g.CurrentUser(ctx)
		require.NoError(t, err)
		assert.Equal(t, "minji", u.DisplayName)
	}
	assert.Equal(t, 1, users.calls)

	ForgetUser(ctx)
	_, _ = g.CurrentUser(ctx)
	_, _ = g.CurrentUser(ctx)
	assert.Equal(t, 2, users.calls)
	ForgetUser(context.Background())

	_, _ = g.CurrentUser(context.Background())
	_, _ = g.CurrentUser(context.Background())
	assert.Equal(t, 4, users.calls, "no memo without WithUserMemo")
}

func TestPolicy(t *testing.T) {
	p := DefaultPolicy()
	for _, c := range []Capability{CapBlogManage, CapUsersManage, CapDashboardView, CapPremiumRead} {
		assert.True(t, p.Allows(model.RoleAdmin, c), "admin holds %s", c)
	}
	assert.True(t, p.Allows(model.RoleUser, CapPremiumRead))
	assert.False(t, p.Allows(model.RoleUser, CapBlogManage))
	assert.False(t, p.Allows("", CapDashboardView))
	assert.False(t, p.Allows("guest", CapDashboardView))
	assert.Equal(t, model.RoleUser, p.RoleFor(CapDashboardView))
	assert.Equal(t, model.RoleAdmin, p.RoleFor(CapUsersManage))
}

func TestDecide(t *testing.T) {
	g, _ := newGuard(nil, "")
	member := &User{ID: "u1", Role: model.RoleUser}
	admin := &User{ID: "a1", Role: model.RoleAdmin}

	tests := []struct {
		name string
		user *User
		pa   PageAuth
		want string
	}{
		{"protected anonymous", nil, PageAuth{RequireAuth: true}, "/login"},
		{"protected custom", nil, PageAuth{RequireAuth: true, UnauthenticatedRedirect: "/en/login"}, "/en/login"},
		{"protected member", member, PageAuth{RequireAuth: true}, ""},
		{"anonymous-only anonymous", nil, PageAuth{}, ""},
		{"anonymous-only member", member, PageAuth{}, "/"},
		{"anonymous-only custom", member, PageAuth{AuthenticatedRedirect: "/account"}, "/account"},
		{"role mismatch", member, PageAuth{RequireAuth: true, RequiredRole: model.RoleAdmin}, "/"},
		{"role match", admin, PageAuth{RequireAuth: true, RequiredRole: model.RoleAdmin}, ""},
		{"capability mismatch", member, PageAuth{RequireAuth: true, RequiredCapability: CapUsersManage}, "/"},
		{"capability match", admin, PageAuth{RequireAuth: true, RequiredCapability: CapUsersManage}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Decide(tt.user, tt.pa).Redirect)
		})
	}
}

func TestGatePage(t *testing.T) {
	t.Run("anonymous on protected page", func(t *testing.T) {
		g, _ := newGuard(nil, "")
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/admin-dashboard/users?page=2", nil)

		_, ok := g.GatePage(w, r, PageAuth{RequireAuth: true})
		assert.False(t, ok)
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/login?next=%2Fadmin-dashboard%2Fusers%3Fpage%3D2", w.Header().Get("Location"))
	})

	t.Run("member on admin page", func(t *testing.T) {
		g, _ := newGuard(&backend.User{ID: "u1"}, model.RoleUser)
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/admin-dashboard", nil)

		_, ok := g.GatePage(w, r, PageAuth{RequireAuth: true, RequiredRole: model.RoleAdmin})
		assert.False(t, ok)
		assert.Equal(t, "/", w.Header().Get("Location"))
	})

	t.Run("admin renders", func(t *testing.T) {
		g, _ := newGuard(&backend.User{ID: "a1"}, model.RoleAdmin)
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/admin-dashboard", nil)

		u, ok := g.GatePage(w, r, PageAuth{RequireAuth: true, RequiredRole: model.RoleAdmin})
		assert.True(t, ok)
		assert.Equal(t, "a1", u.ID)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("resolution failure is anonymous", func(t *testing.T) {
		g := NewGuard(&fakeUsers{err: errors.New("timeout")}, fakeProfiles{}, DefaultPolicy(), nil)
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/login", nil)

		_, ok := g.GatePage(w, r, PageAuth{})
		assert.True(t, ok)
	})
}

func TestRedirectHelpers(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/account", nil)
	assert.True(t, LoginRedirect(w, r, Fail[int](NoUser())))
	assert.Equal(t, "/login?next=%2Faccount", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	assert.False(t, LoginRedirect(w, r, Fail[int](NoAccess("admin"))))
	assert.True(t, UnauthorizedRedirect(w, r, Fail[int](NoAccess("admin")), ""))
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	assert.False(t, UnauthorizedRedirect(w, r, Ok(1), ""))
}

func TestErrorMessage(t *testing.T) {
	require.NoError(t, i18n.Init(nil, "ko"))

	tests := []struct {
		err  *Error
		want string
	}{
		{NoUser(), "인증이 필요한 페이지입니다."},
		{NoAccess("admin"), "관리자 권한이 필요합니다."},
		{&Error{Kind: KindNoAccess}, "권한이 부족합니다."},
		{Backend(errors.New("x")), "데이터베이스 오류가 발생했습니다."},
		{Unknown(errors.New("x")), "알 수 없는 오류가 발생했습니다."},
		{Invalid("email", "이메일 형식이 올바르지 않습니다."), "이메일 형식이 올바르지 않습니다."},
		{nil, "오류가 발생했습니다."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorMessage("ko", tt.err))
	}
	assert.Equal(t, "Admin permission is required.", ErrorMessage("en", NoAccess("admin")))
}
