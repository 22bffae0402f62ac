// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package action implements the server actions behind the auth, account and
// admin forms. Every action validates its input, talks to the auth backend
// or the store, and reports the outcome as a dal.Result.
package action

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/olegiv/eduportal/internal/backend"
	"github.com/olegiv/eduportal/internal/cache"
	"github.com/olegiv/eduportal/internal/dal"
	"github.com/olegiv/eduportal/internal/i18n"
	"github.com/olegiv/eduportal/internal/identity"
	"github.com/olegiv/eduportal/internal/markdown"
	"github.com/olegiv/eduportal/internal/store"
	"github.com/olegiv/eduportal/internal/validation"
)

// AuthClient is the session-bound backend handle. *backend.Client
// implements it.
type AuthClient interface {
	SignInWithPassword(ctx context.Context, email, password string) (*backend.Session, error)
	SignUp(ctx context.Context, p backend.SignUpParams) (*backend.User, error)
	SignOut(ctx context.Context) error
	UpdatePassword(ctx context.Context, password string) (*backend.User, error)
	VerifyOTP(ctx context.Context, kind backend.OTPType, tokenHash string) (*backend.Session, error)
	ExchangeCode(ctx context.Context, code, verifier string) (*backend.Session, error)
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	Resend(ctx context.Context, kind backend.OTPType, email, redirectTo string) error
	OAuthURL(provider, redirectTo, challenge string) (string, error)
}

// Auditor records admin changes in the event log.
type Auditor interface {
	LogBlogEvent(ctx context.Context, level, message, userID string, metadata map[string]any) error
}

// Paths the emailed links and OAuth callback land on.
const (
	PathEmailVerified = "/register/email-verified"
	PathResetPassword = "/forgot-password/reset-password"
	PathOAuthCallback = "/auth/callback"
)

// Config holds the dependencies of a Service.
type Config struct {
	Auth     AuthClient
	Admin    backend.Admin // optional; enables sign-up compensation and user deletion
	Store    *store.Store
	Guard    *dal.Guard
	Hub      *identity.Hub
	Audit    Auditor // optional
	Cache    cache.Cacher
	CacheTTL time.Duration
	SiteURL  string
	Logger   *slog.Logger
}

// Service runs the actions.
type Service struct {
	auth     AuthClient
	admin    backend.Admin
	store    *store.Store
	guard    *dal.Guard
	hub      *identity.Hub
	audit    Auditor
	profiles *Profiles
	md       *markdown.Renderer
	siteURL  string
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Service.
func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hub := cfg.Hub
	if hub == nil {
		hub = identity.NewHub(logger)
	}
	return &Service{
		auth:     cfg.Auth,
		admin:    cfg.Admin,
		store:    cfg.Store,
		guard:    cfg.Guard,
		hub:      hub,
		audit:    cfg.Audit,
		profiles: NewProfiles(cfg.Store, cfg.Cache, cfg.CacheTTL),
		md:       markdown.New(),
		siteURL:  strings.TrimRight(cfg.SiteURL, "/"),
		logger:   logger,
		now:      time.Now,
	}
}

// Profiles returns the cached profile reader.
func (s *Service) Profiles() *Profiles {
	return s.profiles
}

// Hub returns the identity event hub.
func (s *Service) Hub() *identity.Hub {
	return s.hub
}

func (s *Service) publish(ctx context.Context, e identity.Event) {
	if n := s.hub.Publish(ctx, e); n > 0 {
		s.logger.Warn("identity event subscribers failed", "kind", e.Kind, "failures", n)
	}
}

func (s *Service) auditBlog(ctx context.Context, level, message, userID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogBlogEvent(ctx, level, message, userID, meta); err != nil {
		s.logger.Warn("failed to record blog event", "error", err)
	}
}

func (s *Service) link(path string) string {
	return s.siteURL + path
}

// invalid converts validation issues into a failed result.
func invalid[T any](lang string, is validation.Issues, fallbackKey string) dal.Result[T] {
	first, _ := is.First()
	return dal.Fail[T](dal.Invalid(first.Field, is.FirstMessage(lang, fallbackKey)))
}

// backendFailure wraps a backend error. The provider's message is shown
// as-is; fallbackKey covers errors that carry none.
func backendFailure[T any](lang string, err error, fallbackKey string) dal.Result[T] {
	e := dal.Classify(err)
	if e.Message != "" {
		return dal.Fail[T](e)
	}
	var msg string
	var be *backend.Error
	if errors.As(err, &be) {
		msg = be.Message
	}
	if msg == "" {
		msg = i18n.T(lang, fallbackKey)
	}
	return dal.Fail[T](e.WithMessage(msg))
}

// SafeNext returns next when it is a local absolute path, else "/".
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") {
		return "/"
	}
	if strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return next
}
