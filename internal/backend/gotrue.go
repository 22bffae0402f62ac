// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// GoTrueConfig configures the hosted auth client.
type GoTrueConfig struct {
	// URL is the project URL, e.g. https://abc.supabase.co
	URL        string
	AnonKey    string
	ServiceKey string // optional, enables Admin operations
	Timeout    time.Duration
	// Verifier checks access-token signatures before calling the server.
	// Optional; the project's JWT secret.
	Verifier *TokenService
}

// GoTrue is a REST client for a Supabase GoTrue server.
type GoTrue struct {
	client     *resty.Client
	baseURL    string
	serviceKey string
	verifier   *TokenService
}

var (
	_ Auth  = (*GoTrue)(nil)
	_ Admin = (*GoTrue)(nil)
)

// NewGoTrue creates a GoTrue client.
func NewGoTrue(cfg GoTrueConfig) *GoTrue {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	base := strings.TrimRight(cfg.URL, "/") + "/auth/v1"
	client := resty.New().
		SetBaseURL(base).
		SetTimeout(cfg.Timeout).
		SetHeader("apikey", cfg.AnonKey).
		SetHeader("Content-Type", "application/json")
	return &GoTrue{client: client, baseURL: base, serviceKey: cfg.ServiceKey, verifier: cfg.Verifier}
}

type identityJSON struct {
	ID       string `json:"identity_id"`
	Provider string `json:"provider"`
}

type userJSON struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at"`
	Identities       []identityJSON `json:"identities"`
	UserMetadata     map[string]any `json:"user_metadata"`
	CreatedAt        time.Time      `json:"created_at"`
}

func (u *userJSON) toUser() *User {
	if u == nil || u.ID == "" {
		return nil
	}
	out := &User{
		ID:               u.ID,
		Email:            u.Email,
		EmailConfirmedAt: u.EmailConfirmedAt,
		UserMetadata:     u.UserMetadata,
		CreatedAt:        u.CreatedAt,
		Identities:       make([]Identity, 0, len(u.Identities)),
	}
	for _, id := range u.Identities {
		out.Identities = append(out.Identities, Identity{ID: id.ID, Provider: id.Provider})
	}
	return out
}

type sessionJSON struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    int64     `json:"expires_at"`
	User         *userJSON `json:"user"`
}

func (s *sessionJSON) toSession() *Session {
	if s == nil || s.AccessToken == "" {
		return nil
	}
	exp := time.Now().Add(time.Duration(s.ExpiresIn) * time.Second)
	if s.ExpiresAt > 0 {
		exp = time.Unix(s.ExpiresAt, 0)
	}
	return &Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    exp,
		User:         s.User.toUser(),
	}
}

// signUpJSON covers both sign-up response shapes: a session when email
// confirmation is disabled, a bare user otherwise.
type signUpJSON struct {
	sessionJSON
	userJSON
}

type errorJSON struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func toError(resp *resty.Response) error {
	e := &Error{Status: resp.StatusCode()}
	if body, ok := resp.Error().(*errorJSON); ok && body != nil {
		e.Code = body.ErrorCode
		if e.Code == "" {
			e.Code = body.Error
		}
		for _, m := range []string{body.Msg, body.Message, body.ErrorDescription, body.Error} {
			if m != "" {
				e.Message = m
				break
			}
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(e.Status)
	}
	return e
}

func (g *GoTrue) request(ctx context.Context, accessToken string) *resty.Request {
	r := g.client.R().SetContext(ctx).SetError(&errorJSON{})
	if accessToken != "" {
		r.SetAuthToken(accessToken)
	}
	return r
}

func (g *GoTrue) do(r *resty.Request, method, path string) error {
	resp, err := r.Execute(method, path)
	if err != nil {
		return fmt.Errorf("auth backend %s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return toError(resp)
	}
	return nil
}

func withRedirect(path, redirectTo string) string {
	if redirectTo == "" {
		return path
	}
	return path + "?redirect_to=" + url.QueryEscape(redirectTo)
}

// SignInWithPassword exchanges credentials for a session.
func (g *GoTrue) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var out sessionJSON
	r := g.request(ctx, "").
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out)
	if err := g.do(r, http.MethodPost, "/token?grant_type=password"); err != nil {
		return nil, err
	}
	return out.toSession(), nil
}

// SignUp registers a new account.
func (g *GoTrue) SignUp(ctx context.Context, p SignUpParams) (*User, *Session, error) {
	var out signUpJSON
	r := g.request(ctx, "").
		SetBody(map[string]any{"email": p.Email, "password": p.Password, "data": p.Data}).
		SetResult(&out)
	if err := g.do(r, http.MethodPost, withRedirect("/signup", p.RedirectTo)); err != nil {
		return nil, nil, err
	}
	if s := out.sessionJSON.toSession(); s != nil {
		return s.User, s, nil
	}
	return out.userJSON.toUser(), nil, nil
}

// SignOut revokes the session behind accessToken.
func (g *GoTrue) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return ErrNoSession
	}
	return g.do(g.request(ctx, accessToken), http.MethodPost, "/logout")
}

// GetUser returns the user owning accessToken.
func (g *GoTrue) GetUser(ctx context.Context, accessToken string) (*User, error) {
	if accessToken == "" {
		return nil, ErrNoSession
	}
	if g.verifier != nil {
		// expired tokens still go to the server, which reports them with its own code
		if _, err := g.verifier.Verify(accessToken); err != nil && !errors.Is(err, ErrTokenExpired) {
			return nil, &Error{Status: http.StatusUnauthorized, Code: CodeBadJWT, Message: "invalid JWT"}
		}
	}
	var out userJSON
	if err := g.do(g.request(ctx, accessToken).SetResult(&out), http.MethodGet, "/user"); err != nil {
		return nil, err
	}
	return out.toUser(), nil
}

// RefreshSession rotates a refresh token.
func (g *GoTrue) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	var out sessionJSON
	r := g.request(ctx, "").
		SetBody(map[string]string{"refresh_token": refreshToken}).
		SetResult(&out)
	if err := g.do(r, http.MethodPost, "/token?grant_type=refresh_token"); err != nil {
		return nil, err
	}
	return out.toSession(), nil
}

// ResetPasswordForEmail sends a recovery email.
func (g *GoTrue) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	r := g.request(ctx, "").SetBody(map[string]string{"email": email})
	return g.do(r, http.MethodPost, withRedirect("/recover", redirectTo))
}

// UpdatePassword changes the caller's password.
func (g *GoTrue) UpdatePassword(ctx context.Context, accessToken, password string) (*User, error) {
	if accessToken == "" {
		return nil, ErrNoSession
	}
	var out userJSON
	r := g.request(ctx, accessToken).
		SetBody(map[string]string{"password": password}).
		SetResult(&out)
	if err := g.do(r, http.MethodPut, "/user"); err != nil {
		return nil, err
	}
	return out.toUser(), nil
}

// Resend re-sends a one-time token email.
func (g *GoTrue) Resend(ctx context.Context, kind OTPType, email, redirectTo string) error {
	r := g.request(ctx, "").SetBody(map[string]string{"type": string(kind), "email": email})
	return g.do(r, http.MethodPost, withRedirect("/resend", redirectTo))
}

// VerifyOTP redeems an emailed token hash for a session.
func (g *GoTrue) VerifyOTP(ctx context.Context, kind OTPType, tokenHash string) (*Session, error) {
	var out sessionJSON
	r := g.request(ctx, "").
		SetBody(map[string]string{"type": string(kind), "token_hash": tokenHash}).
		SetResult(&out)
	if err := g.do(r, http.MethodPost, "/verify"); err != nil {
		return nil, err
	}
	return out.toSession(), nil
}

// OAuthURL builds the provider authorize URL for a PKCE flow.
func (g *GoTrue) OAuthURL(provider, redirectTo, codeChallenge string) (string, error) {
	q := url.Values{}
	q.Set("provider", provider)
	q.Set("redirect_to", redirectTo)
	q.Set("code_challenge", codeChallenge)
	q.Set("code_challenge_method", "s256")
	return g.baseURL + "/authorize?" + q.Encode(), nil
}

// ExchangeCode trades an authorization code for a session.
func (g *GoTrue) ExchangeCode(ctx context.Context, code, verifier string) (*Session, error) {
	var out sessionJSON
	r := g.request(ctx, "").
		SetBody(map[string]string{"auth_code": code, "code_verifier": verifier}).
		SetResult(&out)
	if err := g.do(r, http.MethodPost, "/token?grant_type=pkce"); err != nil {
		return nil, err
	}
	return out.toSession(), nil
}

// DeleteUser removes an account through the admin API.
func (g *GoTrue) DeleteUser(ctx context.Context, userID string) error {
	if g.serviceKey == "" {
		return &Error{Status: http.StatusForbidden, Code: "no_service_key", Message: "service role key is not configured"}
	}
	r := g.request(ctx, g.serviceKey).SetHeader("apikey", g.serviceKey)
	return g.do(r, http.MethodDelete, "/admin/users/"+url.PathEscape(userID))
}
