// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package action

import (
	"context"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/eduportal/internal/backend"
	"github.com/olegiv/eduportal/internal/cache"
	"github.com/olegiv/eduportal/internal/dal"
	"github.com/olegiv/eduportal/internal/i18n"
	"github.com/olegiv/eduportal/internal/identity"
	"github.com/olegiv/eduportal/internal/model"
	"github.com/olegiv/eduportal/internal/store"
	"github.com/olegiv/eduportal/internal/testutil"
	"github.com/olegiv/eduportal/internal/validation"
)

func TestMain(m *testing.M) {
	if err := i18n.Init(nil, "ko"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// fakeAuth is an in-memory AuthClient and dal.UserSource. Hooks left nil
// succeed with zero values.
type fakeAuth struct {
	mu      sync.Mutex
	current *backend.User
	calls   []string

	signIn         func(email, password string) (*backend.Session, error)
	signUp         func(p backend.SignUpParams) (*backend.User, error)
	signOut        func() error
	updatePassword func(password string) (*backend.User, error)
	verifyOTP      func(kind backend.OTPType, tokenHash string) (*backend.Session, error)
	exchange       func(code, verifier string) (*backend.Session, error)
	resetFor       func(email, redirectTo string) error
	resend         func(kind backend.OTPType, email, redirectTo string) error
}

func (f *fakeAuth) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeAuth) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAuth) CurrentUser(context.Context) (*backend.User, error) {
	return f.current, nil
}

func (f *fakeAuth) SignInWithPassword(_ context.Context, email, password string) (*backend.Session, error) {
	f.record("SignInWithPassword")
	if f.signIn != nil {
		return f.signIn(email, password)
	}
	return &backend.Session{User: &backend.User{ID: "u1", Email: email}}, nil
}

func (f *fakeAuth) SignUp(_ context.Context, p backend.SignUpParams) (*backend.User, error) {
	f.record("SignUp")
	if f.signUp != nil {
		return f.signUp(p)
	}
	return &backend.User{ID: "new-user", Email: p.Email, Identities: []backend.Identity{{ID: "i1", Provider: "email"}},
		UserMetadata: p.Data}, nil
}

func (f *fakeAuth) SignOut(context.Context) error {
	f.record("SignOut")
	if f.signOut != nil {
		return f.signOut()
	}
	return nil
}

func (f *fakeAuth) UpdatePassword(_ context.Context, password string) (*backend.User, error) {
	f.record("UpdatePassword")
	if f.updatePassword != nil {
		return f.updatePassword(password)
	}
	return f.current, nil
}

func (f *fakeAuth) VerifyOTP(_ context.Context, kind backend.OTPType, tokenHash string) (*backend.Session, error) {
	f.record("VerifyOTP")
	if f.verifyOTP != nil {
		return f.verifyOTP(kind, tokenHash)
	}
	return nil, nil
}

func (f *fakeAuth) ExchangeCode(_ context.Context, code, verifier string) (*backend.Session, error) {
	f.record("ExchangeCode")
	if f.exchange != nil {
		return f.exchange(code, verifier)
	}
	return nil, nil
}

func (f *fakeAuth) ResetPasswordForEmail(_ context.Context, email, redirectTo string) error {
	f.record("ResetPasswordForEmail")
	if f.resetFor != nil {
		return f.resetFor(email, redirectTo)
	}
	return nil
}

func (f *fakeAuth) Resend(_ context.Context, kind backend.OTPType, email, redirectTo string) error {
	f.record("Resend")
	if f.resend != nil {
		return f.resend(kind, email, redirectTo)
	}
	return nil
}

func (f *fakeAuth) OAuthURL(provider, redirectTo, challenge string) (string, error) {
	f.record("OAuthURL")
	return "https://auth.example.com/authorize?provider=" + provider +
		"&redirect_to=" + redirectTo + "&code_challenge=" + challenge, nil
}

type fakeAdmin struct {
	deleted []string
	err     error
}

func (a *fakeAdmin) DeleteUser(_ context.Context, id string) error {
	a.deleted = append(a.deleted, id)
	return a.err
}

type fixture struct {
	svc    *Service
	auth   *fakeAuth
	admin  *fakeAdmin
	store  *store.Store
	events *[]identity.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := testutil.TestStore(t)
	auth := &fakeAuth{}
	admin := &fakeAdmin{}
	logger := testutil.TestLoggerSilent()

	hub := identity.NewHub(logger)
	var events []identity.Event
	hub.Subscribe("recorder", 0, func(_ context.Context, e identity.Event) error {
		events = append(events, e)
		return nil
	})

	guard := dal.NewGuard(auth, NewProfiles(st, nil, 0), dal.DefaultPolicy(), logger)
	svc := New(Config{
		Auth:    auth,
		Admin:   admin,
		Store:   st,
		Guard:   guard,
		Hub:     hub,
		Cache:   cache.NewMemoryCache(cache.MemoryOptions{}),
		SiteURL: "https://edu.example.com/",
		Logger:  logger,
	})
	return &fixture{svc: svc, auth: auth, admin: admin, store: st, events: &events}
}

// signIn makes the fake backend return a user with the given role.
func (f *fixture) signIn(t *testing.T, role string) model.Profile {
	t.Helper()
	p := testutil.CreateProfile(t, f.store, model.Profile{Role: role})
	f.auth.current = &backend.User{ID: p.ID, Email: p.Email}
	return p
}

func (f *fixture) kinds() []identity.Kind {
	var out []identity.Kind
	for _, e := range *f.events {
		out = append(out, e.Kind)
	}
	return out
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid input never reaches backend", func(t *testing.T) {
		f := newFixture(t)
		res := f.svc.SignIn(ctx, validation.SignIn{Email: "nope", Password: "Abc123!@"})
		require.True(t, res.Is(dal.KindValidation))
		assert.Equal(t, validation.FieldEmail, res.Err.Field)
		assert.Equal(t, i18n.T("ko", "validation.email_invalid"), res.Err.Message)
		assert.Empty(t, f.auth.called())
	})

	t.Run("backend message passes through", func(t *testing.T) {
		f := newFixture(t)
		f.auth.signIn = func(string, string) (*backend.Session, error) {
			return nil, &backend.Error{Status: http.StatusBadRequest, Code: backend.CodeInvalidCredentials, Message: "Invalid login credentials"}
		}
		res := f.svc.SignIn(ctx, validation.SignIn{Email: "a@b.com", Password: "Abc123!@"})
		require.True(t, res.Is(dal.KindBackend))
		assert.Equal(t, "Invalid login credentials", res.Err.Message)
		assert.Equal(t, backend.CodeInvalidCredentials, res.Err.Code())
	})

	t.Run("backend error without message uses fallback", func(t *testing.T) {
		f := newFixture(t)
		f.auth.signIn = func(string, string) (*backend.Session, error) {
			return nil, &backend.Error{Status: http.StatusInternalServerError}
		}
		res := f.svc.SignIn(ctx, validation.SignIn{Email: "a@b.com", Password: "Abc123!@"})
		assert.Equal(t, i18n.T("ko", "auth.signin_failed"), res.Err.Message)
	})

	t.Run("success", func(t *testing.T) {
		f := newFixture(t)
		var gotEmail string
		f.auth.signIn = func(email, _ string) (*backend.Session, error) {
			gotEmail = email
			return &backend.Session{User: &backend.User{ID: "u1", Email: email}}, nil
		}
		res := f.svc.SignIn(ctx, validation.SignIn{Email: "  Student@Example.com ", Password: "Abc123!@"})
		require.True(t, res.Success)
		assert.Equal(t, "student@example.com", gotEmail)
		assert.Equal(t, i18n.T("ko", "auth.signin_success"), res.Message)
		assert.Equal(t, []identity.Kind{identity.SignedIn}, f.kinds())
	})
}

func TestSignInAndOut_RefreshMemoizedCaller(t *testing.T) {
	f := newFixture(t)
	ctx := dal.WithUserMemo(context.Background())

	u, err := f.svc.guard.CurrentUser(ctx)
	require.NoError(t, err)
	require.Nil(t, u)

	p := f.signIn(t, model.RoleUser)
	res := f.svc.SignIn(ctx, validation.SignIn{Email: p.Email, Password: "Abc123!@"})
	require.True(t, res.Success, "%v", res.Err)

	u, err = f.svc.guard.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, p.ID, u.ID)

	f.auth.current = nil
	require.True(t, f.svc.SignOut(ctx).Success)
	u, err = f.svc.guard.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()
	form := validation.SignUp{Email: "new@example.com", Password: "Abc123!@", PasswordConfirm: "Abc123!@", Username: "minji"}

	t.Run("mismatch is reported on passwordConfirm", func(t *testing.T) {
		f := newFixture(t)
		in := form
		in.PasswordConfirm = "Abc123!#"
		res := f.svc.SignUp(ctx, in)
		require.True(t, res.Is(dal.KindValidation))
		assert.Equal(t, validation.FieldPasswordConfirm, res.Err.Field)
		assert.Empty(t, f.auth.called())
	})

	t.Run("taken username", func(t *testing.T) {
		f := newFixture(t)
		testutil.CreateProfile(t, f.store, model.Profile{DisplayName: "minji"})
		res := f.svc.SignUp(ctx, form)
		require.True(t, res.Is(dal.KindValidation))
		assert.Equal(t, validation.FieldUsername, res.Err.Field)
		assert.Equal(t, i18n.T("ko", "auth.username_taken"), res.Err.Message)
		assert.Empty(t, f.auth.called())
	})

	t.Run("email already registered", func(t *testing.T) {
		f := newFixture(t)
		f.auth.signUp = func(p backend.SignUpParams) (*backend.User, error) {
			return &backend.User{ID: "existing", Email: p.Email}, nil
		}
		res := f.svc.SignUp(ctx, form)
		require.True(t, res.Is(dal.KindValidation))
		assert.Equal(t, i18n.T("ko", "auth.email_in_use"), res.Err.Message)
		_, err := f.store.GetProfile(ctx, "existing")
		assert.Error(t, err)
	})

	t.Run("success creates profile", func(t *testing.T) {
		f := newFixture(t)
		var params backend.SignUpParams
		f.auth.signUp = func(p backend.SignUpParams) (*backend.User, error) {
			params = p
			return &backend.User{ID: "new-user", Email: p.Email, Identities: []backend.Identity{{ID: "i1"}}}, nil
		}
		res := f.svc.SignUp(ctx, form)
		require.True(t, res.Success, "%v", res.Err)
		assert.Equal(t, i18n.T("ko", "auth.signup_success"), res.Message)
		assert.Equal(t, "minji", params.Data[backend.MetadataUsername])
		assert.Equal(t, "https://edu.example.com/register/email-verified", params.RedirectTo)

		p, err := f.store.GetProfile(ctx, "new-user")
		require.NoError(t, err)
		assert.Equal(t, "minji", p.DisplayName)
		assert.Equal(t, model.RoleUser, p.Role)
		assert.Equal(t, []identity.Kind{identity.SignedUp}, f.kinds())
	})

	t.Run("lost display name race is compensated", func(t *testing.T) {
		f := newFixture(t)
		f.auth.signUp = func(p backend.SignUpParams) (*backend.User, error) {
			// Another registration claims the name between check and insert.
			testutil.CreateProfile(t, f.store, model.Profile{DisplayName: "minji"})
			return &backend.User{ID: "loser", Email: p.Email, Identities: []backend.Identity{{ID: "i1"}}}, nil
		}
		res := f.svc.SignUp(ctx, form)
		require.True(t, res.Is(dal.KindValidation))
		assert.Equal(t, validation.FieldUsername, res.Err.Field)
		assert.Equal(t, []string{"loser"}, f.admin.deleted)
	})
}

func TestSignOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.signIn(t, model.RoleUser)
	f.auth.signOut = func() error { return &backend.Error{Status: http.StatusBadGateway} }

	res := f.svc.SignOut(ctx)
	require.True(t, res.Success)
	assert.Equal(t, i18n.T("ko", "auth.signout_success"), res.Message)
	require.Len(t, *f.events, 1)
	assert.Equal(t, identity.SignedOut, (*f.events)[0].Kind)
	assert.Equal(t, p.ID, (*f.events)[0].UserID)
}

func TestSignOut_Anonymous(t *testing.T) {
	f := newFixture(t)
	f.auth.signOut = func() error { return backend.ErrNoSession }
	res := f.svc.SignOut(context.Background())
	assert.True(t, res.Success)
	assert.Empty(t, *f.events)
}

func TestForgotPassword(t *testing.T) {
	ctx := i18n.WithLanguage(context.Background(), "en")
	f := newFixture(t)
	var redirect string
	f.auth.resetFor = func(_, r string) error {
		redirect = r
		return nil
	}

	res := f.svc.ForgotPassword(ctx, validation.ForgotPassword{Email: "a@b.com"})
	require.True(t, res.Success)
	assert.Equal(t, i18n.T("en", "auth.forgot_success"), res.Message)
	assert.Equal(t, "https://edu.example.com/forgot-password/reset-password", redirect)

	res = f.svc.ForgotPassword(ctx, validation.ForgotPassword{})
	assert.Equal(t, i18n.T("en", "validation.email_required"), res.Err.Message)
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	form := validation.ResetPassword{Password: "Abc123!@", PasswordConfirm: "Abc123!@"}

	tests := []struct {
		name    string
		err     error
		kind    dal.Kind
		message string
	}{
		{"same password by message", &backend.Error{Status: 422, Message: "New password should be different from the old password."},
			dal.KindBackend, i18n.T("ko", "auth.password_same")},
		{"same password by code", &backend.Error{Status: 422, Code: backend.CodeSamePassword, Message: "whatever"},
			dal.KindBackend, i18n.T("ko", "auth.password_same")},
		{"other backend error", &backend.Error{Status: 422, Code: backend.CodeWeakPassword, Message: "Password is too weak"},
			dal.KindBackend, "Password is too weak"},
		{"no recovery session", backend.ErrNoSession, dal.KindNoUser, i18n.T("ko", "auth.session_expired")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.auth.updatePassword = func(string) (*backend.User, error) { return nil, tt.err }
			res := f.svc.ResetPassword(ctx, form)
			require.True(t, res.Is(tt.kind), "%v", res.Err)
			assert.Equal(t, tt.message, res.Err.Message)
		})
	}

	t.Run("success", func(t *testing.T) {
		f := newFixture(t)
		f.signIn(t, model.RoleUser)
		res := f.svc.ResetPassword(ctx, form)
		require.True(t, res.Success)
		assert.Equal(t, []identity.Kind{identity.PasswordReset}, f.kinds())
	})
}

func TestCheckUsername(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	testutil.CreateProfile(t, f.store, model.Profile{DisplayName: "taken"})

	res := f.svc.CheckUsername(ctx, " taken ")
	require.True(t, res.Success)
	assert.False(t, res.Data)
	assert.Equal(t, i18n.T("ko", "auth.username_taken"), res.Message)

	res = f.svc.CheckUsername(ctx, "free")
	require.True(t, res.Success)
	assert.True(t, res.Data)

	res = f.svc.CheckUsername(ctx, "a")
	assert.True(t, res.Is(dal.KindValidation))
}

func TestResendVerification(t *testing.T) {
	f := newFixture(t)
	var kind backend.OTPType
	f.auth.resend = func(k backend.OTPType, _, _ string) error {
		kind = k
		return nil
	}
	res := f.svc.ResendVerification(context.Background(), "a@b.com")
	require.True(t, res.Success)
	assert.Equal(t, backend.OTPSignup, kind)
}

func TestVerifyEmail_CreatesMissingProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.auth.verifyOTP = func(backend.OTPType, string) (*backend.Session, error) {
		return &backend.Session{User: &backend.User{ID: "v1", Email: "v@example.com",
			UserMetadata: map[string]any{backend.MetadataUsername: "verified"}}}, nil
	}

	res := f.svc.VerifyEmail(ctx, backend.OTPSignup, "hash")
	require.True(t, res.Success)
	p, err := f.store.GetProfile(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "verified", p.DisplayName)

	res = f.svc.VerifyEmail(ctx, "bogus", "hash")
	assert.True(t, res.Is(dal.KindValidation))
}

func TestOAuth(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	start := f.svc.StartOAuth(ctx, backend.ProviderGoogle, "https://evil.example.com")
	require.True(t, start.Success)
	assert.NotEmpty(t, start.Data.Verifier)
	assert.Contains(t, start.Data.URL, "https://edu.example.com/auth/callback?next=%2F")

	assert.True(t, f.svc.StartOAuth(ctx, "github", "/").Is(dal.KindValidation))

	testutil.CreateProfile(t, f.store, model.Profile{DisplayName: "kim"})
	f.auth.exchange = func(code, verifier string) (*backend.Session, error) {
		assert.Equal(t, "code", code)
		assert.Equal(t, start.Data.Verifier, verifier)
		return &backend.Session{User: &backend.User{ID: "0b7c-4f1e-9a2d", Email: "kim@gmail.com"}}, nil
	}
	res := f.svc.CompleteOAuth(ctx, "code", start.Data.Verifier)
	require.True(t, res.Success)

	p, err := f.store.GetProfile(ctx, "0b7c-4f1e-9a2d")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p.DisplayName, "kim_"), p.DisplayName)
}

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"":                    "/",
		"/":                   "/",
		"/account":            "/account",
		"/blog/x?y=1":         "/blog/x?y=1",
		"//evil.com":          "/",
		"/\\evil.com":         "/",
		"https://evil.com/":   "/",
		"javascript:alert(1)": "/",
		"account":             "/",
	}
	for in, want := range tests {
		assert.Equal(t, want, SafeNext(in), "SafeNext(%q)", in)
	}
}

func TestVerifyDestination(t *testing.T) {
	assert.Equal(t, PathEmailVerified, VerifyDestination(backend.OTPSignup, ""))
	assert.Equal(t, PathResetPassword, VerifyDestination(backend.OTPRecovery, ""))
	assert.Equal(t, "/account", VerifyDestination(backend.OTPRecovery, "/account"))
	assert.Equal(t, PathEmailVerified, VerifyDestination(backend.OTPSignup, "//evil.com"))
}
