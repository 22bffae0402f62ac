// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Command eduportal runs the education portal web server and its
// maintenance commands.
package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/olegiv/eduportal/internal/config"
	"github.com/olegiv/eduportal/internal/i18n"
	"github.com/olegiv/eduportal/internal/logging"
	"github.com/olegiv/eduportal/internal/store"
	"github.com/olegiv/eduportal/internal/version"
)

func main() {
	app := &cli.App{
		Name:    "eduportal",
		Usage:   "education portal: auth flows, blog admin, news and university search",
		Version: version.Current().String(),
		Action:  serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP server (default)",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply database migrations and exit",
				Action: migrate,
			},
			{
				Name:  "seed",
				Usage: "load sample news and universities",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "demo", Usage: "also create demo accounts (local auth backend)"},
				},
				Action: seed,
			},
			{
				Name:  "create-admin",
				Usage: "create a confirmed admin account (local auth backend)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"EDU_ADMIN_PASSWORD"}},
					&cli.StringFlag{Name: "name", Required: true, Usage: "display name"},
				},
				Action: createAdmin,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

// appEnv holds what every command needs: configuration, logger and an
// open, migrated database.
type appEnv struct {
	cfg     *config.Config
	level   slog.Level
	logger  *slog.Logger
	dialect store.Dialect
	db      *sql.DB
	store   *store.Store
}

// setup loads configuration, initializes logging and i18n, and opens the
// database with migrations applied.
func setup() (*appEnv, error) {
	// .env is optional outside development
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	level := logging.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := i18n.Init(logger, cfg.DefaultLang); err != nil {
		return nil, fmt.Errorf("initializing i18n: %w", err)
	}

	dialect := store.Dialect(cfg.DBDriver)
	if dialect == store.DialectSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	logger.Info("opening database", "driver", cfg.DBDriver)
	db, err := store.Open(dialect, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := store.Migrate(db, dialect); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("database ready")

	return &appEnv{
		cfg:     cfg,
		level:   level,
		logger:  logger,
		dialect: dialect,
		db:      db,
		store:   store.NewStore(db, dialect),
	}, nil
}

func (e *appEnv) close() {
	if err := e.db.Close(); err != nil {
		e.logger.Error("error closing database connection", "error", err)
	}
}
