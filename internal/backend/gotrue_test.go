// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	query  url.Values
	auth   string
	apikey string
	body   map[string]any
}

func newGoTrueServer(t *testing.T, handler func(w http.ResponseWriter, rec recorded)) (*GoTrue, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.Query(),
			auth:   r.Header.Get("Authorization"),
			apikey: r.Header.Get("apikey"),
		}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&rec.body)
		}
		calls = append(calls, rec)
		w.Header().Set("Content-Type", "application/json")
		handler(w, rec)
	}))
	t.Cleanup(srv.Close)
	return NewGoTrue(GoTrueConfig{URL: srv.URL, AnonKey: "anon", ServiceKey: "service"}), &calls
}

const sessionBody = `{"access_token":"at","refresh_token":"rt","expires_in":3600,"expires_at":1900000000,
	"user":{"id":"u1","email":"a@example.com","identities":[{"identity_id":"i1","provider":"email"}],"user_metadata":{"username":"minji"}}}`

func TestGoTrue_SignInWithPassword(t *testing.T) {
	g, calls := newGoTrueServer(t, func(w http.ResponseWriter, _ recorded) {
		_, _ = w.Write([]byte(sessionBody))
	})

	sess, err := g.SignInWithPassword(context.Background(), "a@example.com", "Secret1!")
	require.NoError(t, err)
	assert.Equal(t, "at", sess.AccessToken)
	assert.Equal(t, "rt", sess.RefreshToken)
	assert.EqualValues(t, 1900000000, sess.ExpiresAt.Unix())
	require.NotNil(t, sess.User)
	assert.Equal(t, "minji", sess.User.Username())

	require.Len(t, *calls, 1)
	c := (*calls)[0]
	assert.Equal(t, "/auth/v1/token", c.path)
	assert.Equal(t, "password", c.query.Get("grant_type"))
	assert.Equal(t, "anon", c.apikey)
	assert.Equal(t, "a@example.com", c.body["email"])
}

func TestGoTrue_SignUpShapes(t *testing.T) {
	t.Run("confirmation required returns bare user", func(t *testing.T) {
		g, calls := newGoTrueServer(t, func(w http.ResponseWriter, _ recorded) {
			_, _ = w.Write([]byte(`{"id":"u2","email":"b@example.com","identities":[{"identity_id":"x","provider":"email"}]}`))
		})
		user, sess, err := g.SignUp(context.Background(), SignUpParams{
			Email: "b@example.com", Password: "Secret1!",
			Data:       map[string]any{"username": "minji"},
			RedirectTo: "http://localhost/register/email-verified",
		})
		require.NoError(t, err)
		assert.Nil(t, sess)
		require.NotNil(t, user)
		assert.Equal(t, "u2", user.ID)
		assert.Len(t, user.Identities, 1)

		c := (*calls)[0]
		assert.Equal(t, "/auth/v1/signup", c.path)
		assert.Equal(t, "http://localhost/register/email-verified", c.query.Get("redirect_to"))
		data, _ := c.body["data"].(map[string]any)
		assert.Equal(t, "minji", data["username"])
	})

	t.Run("existing email returns empty identities", func(t *testing.T) {
		g, _ := newGoTrueServer(t, func(w http.ResponseWriter, _ recorded) {
			_, _ = w.Write([]byte(`{"id":"fake","email":"b@example.com","identities":[]}`))
		})
		user, _, err := g.SignUp(context.Background(), SignUpParams{Email: "b@example.com", Password: "x"})
		require.NoError(t, err)
		assert.Empty(t, user.Identities)
	})

	t.Run("autoconfirm returns session", func(t *testing.T) {
		g, _ := newGoTrueServer(t, func(w http.ResponseWriter, _ recorded) {
			_, _ = w.Write([]byte(sessionBody))
		})
		user, sess, err := g.SignUp(context.Background(), SignUpParams{Email: "a@example.com", Password: "x"})
		require.NoError(t, err)
		require.NotNil(t, sess)
		assert.Equal(t, "u1", user.ID)
	})
}

func TestGoTrue_ErrorShapes(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
		wantMsg  string
	}{
		{"error_code and msg", 400, `{"code":400,"error_code":"invalid_credentials","msg":"Invalid login credentials"}`, "invalid_credentials", "Invalid login credentials"},
		{"oauth style", 400, `{"error":"invalid_grant","error_description":"Email not confirmed"}`, "invalid_grant", "Email not confirmed"},
		{"message only", 422, `{"message":"New password should be different from the old password."}`, "", "New password should be different from the old password."},
		{"empty body", 500, `{}`, "", "Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := newGoTrueServer(t, func(w http.ResponseWriter, _ recorded) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := g.SignInWithPassword(context.Background(), "a@example.com", "x")
			var be *Error
			require.True(t, errors.As(err, &be), "want *Error, got %T", err)
			assert.Equal(t, tt.status, be.Status)
			assert.Equal(t, tt.wantCode, be.Code)
			assert.Equal(t, tt.wantMsg, be.Message)
			assert.NotEmpty(t, be.ErrorCode())
		})
	}
}

func TestGoTrue_AuthenticatedCalls(t *testing.T) {
	g, calls := newGoTrueServer(t, func(w http.ResponseWriter, rec recorded) {
		switch rec.path {
		case "/auth/v1/user":
			_, _ = w.Write([]byte(`{"id":"u1","email":"a@example.com"}`))
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	ctx := context.Background()

	user, err := g.GetUser(ctx, "at")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	_, err = g.UpdatePassword(ctx, "at", "Secret2!")
	require.NoError(t, err)
	require.NoError(t, g.SignOut(ctx, "at"))
	require.NoError(t, g.DeleteUser(ctx, "u1"))

	require.Len(t, *calls, 4)
	assert.Equal(t, "Bearer at", (*calls)[0].auth)
	assert.Equal(t, http.MethodPut, (*calls)[1].method)
	assert.Equal(t, "/auth/v1/logout", (*calls)[2].path)
	assert.Equal(t, "/auth/v1/admin/users/u1", (*calls)[3].path)
	assert.Equal(t, "Bearer service", (*calls)[3].auth)
	assert.Equal(t, "service", (*calls)[3].apikey)

	_, err = g.GetUser(ctx, "")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestGoTrue_OAuthURL(t *testing.T) {
	g := NewGoTrue(GoTrueConfig{URL: "https://abc.supabase.co/", AnonKey: "anon"})
	pkce := NewPKCE()
	raw, err := g.OAuthURL(ProviderGoogle, "http://localhost:8080/auth/callback?next=%2F", pkce.Challenge)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "https://abc.supabase.co/auth/v1/authorize?"))
	assert.Equal(t, "google", u.Query().Get("provider"))
	assert.Equal(t, "s256", u.Query().Get("code_challenge_method"))
	assert.Equal(t, pkce.Challenge, u.Query().Get("code_challenge"))
	assert.Equal(t, "http://localhost:8080/auth/callback?next=%2F", u.Query().Get("redirect_to"))
	assert.NotEqual(t, pkce.Verifier, pkce.Challenge)
}

func TestGoTrue_DeleteUserWithoutServiceKey(t *testing.T) {
	g := NewGoTrue(GoTrueConfig{URL: "http://127.0.0.1:1", AnonKey: "anon"})
	err := g.DeleteUser(context.Background(), "u1")
	var be *Error
	require.True(t, errors.As(err, &be))
	assert.Equal(t, http.StatusForbidden, be.Status)
}

func TestGoTrue_GetUserVerifiesSignature(t *testing.T) {
	g, calls := newGoTrueServer(t, func(w http.ResponseWriter, _ recorded) {
		_, _ = w.Write([]byte(`{"id":"u1","email":"a@example.com"}`))
	})
	g.verifier = NewTokenService("project-jwt-secret", "supabase", time.Hour)

	_, err := g.GetUser(context.Background(), "not-a-jwt")
	assert.True(t, IsCode(err, CodeBadJWT))
	assert.Empty(t, *calls)

	token, _, err := g.verifier.Issue(&User{ID: "u1", Email: "a@example.com"})
	require.NoError(t, err)
	user, err := g.GetUser(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Len(t, *calls, 1)
}
