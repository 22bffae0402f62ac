// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package backend talks to the identity provider. Two implementations share
// the Auth contract: GoTrue (a hosted Supabase auth server reached over REST)
// and Local (identities stored in the application database).
package backend

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// OTPType names the purpose of an emailed one-time token.
type OTPType string

// One-time token purposes.
const (
	OTPSignup   OTPType = "signup"
	OTPRecovery OTPType = "recovery"
	OTPEmail    OTPType = "email"
)

// ProviderGoogle is the only OAuth provider wired into the UI.
const ProviderGoogle = "google"

// MetadataUsername is the user-metadata key carrying the chosen display name.
const MetadataUsername = "username"

// ErrNoSession is returned when an operation needs a signed-in caller.
var ErrNoSession = errors.New("no active session")

// Identity is a linked sign-in method of a user.
type Identity struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
}

// User is an identity-provider account.
type User struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at,omitempty"`
	Identities       []Identity     `json:"identities"`
	UserMetadata     map[string]any `json:"user_metadata"`
	CreatedAt        time.Time      `json:"created_at"`
}

// Username returns the display name chosen at sign-up, if any.
func (u *User) Username() string {
	if u == nil || u.UserMetadata == nil {
		return ""
	}
	s, _ := u.UserMetadata[MetadataUsername].(string)
	return s
}

// Session is an authenticated token pair.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *User     `json:"user"`
}

// SignUpParams holds the inputs of a password sign-up.
type SignUpParams struct {
	Email      string
	Password   string
	Data       map[string]any
	RedirectTo string
}

// Auth is the identity-provider contract.
type Auth interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	// SignUp creates an account. When the email already belongs to a
	// confirmed account the returned user has no identities.
	SignUp(ctx context.Context, p SignUpParams) (*User, *Session, error)
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (*User, error)
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	UpdatePassword(ctx context.Context, accessToken, password string) (*User, error)
	Resend(ctx context.Context, kind OTPType, email, redirectTo string) error
	VerifyOTP(ctx context.Context, kind OTPType, tokenHash string) (*Session, error)
	OAuthURL(provider, redirectTo, codeChallenge string) (string, error)
	ExchangeCode(ctx context.Context, code, verifier string) (*Session, error)
}

// Admin covers service-role operations.
type Admin interface {
	DeleteUser(ctx context.Context, userID string) error
}

// Error is a failure reported by the identity provider.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("auth backend: %s (%s, status %d)", e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("auth backend: %s (status %d)", e.Message, e.Status)
}

// ErrorCode returns the provider error code.
func (e *Error) ErrorCode() string {
	if e.Code == "" {
		return fmt.Sprintf("http_%d", e.Status)
	}
	return e.Code
}

// Provider error codes the application reacts to.
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeEmailNotConfirmed  = "email_not_confirmed"
	CodeSamePassword       = "same_password"
	CodeWeakPassword       = "weak_password"
	CodeOTPExpired         = "otp_expired"
	CodeProviderDisabled   = "provider_disabled"
	CodeUserNotFound       = "user_not_found"
	CodeSessionNotFound    = "session_not_found"
	CodeBadJWT             = "bad_jwt"
)

// IsCode reports whether err is a provider error with the given code.
func IsCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
