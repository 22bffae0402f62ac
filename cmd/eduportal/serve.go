// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/urfave/cli/v2"

	"github.com/olegiv/eduportal/internal/action"
	"github.com/olegiv/eduportal/internal/backend"
	"github.com/olegiv/eduportal/internal/cache"
	"github.com/olegiv/eduportal/internal/dal"
	"github.com/olegiv/eduportal/internal/geoip"
	"github.com/olegiv/eduportal/internal/handler"
	"github.com/olegiv/eduportal/internal/handler/api"
	"github.com/olegiv/eduportal/internal/identity"
	"github.com/olegiv/eduportal/internal/logging"
	"github.com/olegiv/eduportal/internal/metrics"
	"github.com/olegiv/eduportal/internal/middleware"
	"github.com/olegiv/eduportal/internal/nav"
	"github.com/olegiv/eduportal/internal/news"
	"github.com/olegiv/eduportal/internal/render"
	"github.com/olegiv/eduportal/internal/scheduler"
	"github.com/olegiv/eduportal/internal/service"
	"github.com/olegiv/eduportal/internal/session"
	"github.com/olegiv/eduportal/internal/version"
	"github.com/olegiv/eduportal/web"
)

// Server limits.
const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 30 * time.Second
	staticMaxAge    = 24 * time.Hour
	rateLimitRPS    = 10.0
	rateLimitBurst  = 20
	maxRateLimiters = 10000
)

// authBackend picks the identity provider. admin is nil when no
// service-role operations are available.
func authBackend(e *appEnv) (a backend.Auth, admin backend.Admin) {
	if e.cfg.UseSupabase() {
		g := backend.NewGoTrue(backend.GoTrueConfig{
			URL:        e.cfg.SupabaseURL,
			AnonKey:    e.cfg.SupabaseAnonKey,
			ServiceKey: e.cfg.SupabaseServiceKey,
			Verifier:   backend.NewTokenService(e.cfg.JWTSecret, "", 0),
		})
		if e.cfg.SupabaseServiceKey != "" {
			return g, g
		}
		e.logger.Warn("EDU_SUPABASE_SERVICE_KEY not set; user deletion and sign-up compensation disabled")
		return g, nil
	}
	local := newLocalBackend(e)
	return local, local
}

func serve(*cli.Context) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()
	cfg := e.cfg

	// WARN and above also go to the event log
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: e.level})
	logger := slog.New(logging.NewEventLogHandler(textHandler, e.store.Queries))
	slog.SetDefault(logger)
	e.logger = logger

	geo, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn("geoip database unavailable", "path", cfg.GeoIPDBPath, "error", err)
	}
	defer func() { _ = geo.Close() }()

	cacher := cache.New(cache.Config{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: cfg.CacheTTL,
	}, logger)
	defer func() { _ = cacher.Close() }()

	sessions := session.New(e.db, e.dialect, cfg.IsDevelopment())

	hub := identity.NewHub(logger)
	events := service.NewEventService(e.store.Queries, geo, logger)
	events.Subscribe(hub)
	m := metrics.New()
	m.Subscribe(hub)

	authImpl, admin := authBackend(e)
	client := backend.NewClient(authImpl, session.NewTokens(sessions), logger)
	policy := dal.DefaultPolicy()
	guard := dal.NewGuard(client, action.NewProfiles(e.store, cacher, cfg.CacheTTL), policy, logger)

	actions := action.New(action.Config{
		Auth:     client,
		Admin:    admin,
		Store:    e.store,
		Guard:    guard,
		Hub:      hub,
		Audit:    events,
		Cache:    cacher,
		CacheTTL: cfg.CacheTTL,
		SiteURL:  cfg.SiteURL,
		Logger:   logger,
	})

	navBuilder := nav.NewBuilder(nav.DefaultRoutes, policy, cacher, cfg.CacheTTL, logger)
	navBuilder.Subscribe(hub)

	renderer, err := render.New(render.Config{
		TemplatesFS:    web.Templates,
		SessionManager: sessions,
		Nav:            navBuilder,
		Logger:         logger,
		IsDev:          cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	defer loginProtection.Close()
	rateLimiter := middleware.NewRateLimiter(rateLimitRPS, rateLimitBurst)

	sched := scheduler.New(logger)
	maint := scheduler.Maintenance{
		Events:        events,
		RetentionDays: cfg.EventRetentionDays,
		Audit:         events,
	}
	if !cfg.UseSupabase() {
		maint.Tokens = e.store
	}
	if cfg.GeoIPEnabled() {
		maint.GeoIP = geo
	}
	if err := maint.Register(sched.Jobs()); err != nil {
		return fmt.Errorf("registering maintenance jobs: %w", err)
	}
	if err := sched.Jobs().Add("prune-rate-limiters", "Drop idle per-IP rate limiters", "@every 10m",
		func(context.Context) error {
			rateLimiter.Prune(maxRateLimiters)
			return nil
		}); err != nil {
		return fmt.Errorf("registering rate limiter job: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	deps := handler.Deps{
		Actions:         actions,
		Guard:           guard,
		Renderer:        renderer,
		Sessions:        sessions,
		Store:           e.store,
		News:            news.NewService(e.store, cacher, cfg.CacheTTL),
		Events:          events,
		Jobs:            sched.Jobs(),
		LoginProtection: loginProtection,
		Logger:          logger,
		SiteURL:         cfg.SiteURL,
		Production:      !cfg.IsDevelopment(),
	}
	health := handler.NewHealthHandler(e.db, guard, version.Current().Version)
	apiHandler := api.NewHandler(actions, sessions, handler.NewLoginGuard(loginProtection), logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(m.Middleware)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.StripTrailingSlash)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	r.Use(middleware.RequestInfo)

	r.Get("/health", health.Health)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Method(http.MethodGet, "/metrics", m.Handler())
	r.With(middleware.StaticCache(staticMaxAge)).
		Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.Static)))

	origins := append([]string{cfg.SiteURL}, cfg.CORSOrigins...)
	csrf := middleware.CSRF(middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment(), origins...))

	r.Group(func(r chi.Router) {
		r.Use(sessions.LoadAndSave)
		r.Use(csrf)
		r.Use(rateLimiter.Middleware())
		r.Use(middleware.Language(sessions))
		r.Use(middleware.LoadUser(guard))

		r.Route("/api", func(r chi.Router) {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   cfg.CORSOrigins,
				AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
				AllowCredentials: true,
				MaxAge:           300,
			}))
			apiHandler.Routes(r)
		})
		handler.Register(r, deps)
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env,
			"auth_backend", cfg.AuthBackend, "version", version.Current().Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
