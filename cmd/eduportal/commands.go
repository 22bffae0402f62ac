// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/olegiv/eduportal/internal/auth"
	"github.com/olegiv/eduportal/internal/backend"
	"github.com/olegiv/eduportal/internal/model"
	"github.com/olegiv/eduportal/internal/store"
	"github.com/olegiv/eduportal/internal/validation"
)

// migrate applies migrations; setup does the work.
func migrate(*cli.Context) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()
	e.logger.Info("migrations applied")
	return nil
}

// demoAccounts are created by seed --demo.
var demoAccounts = []struct {
	email, name, role string
}{
	{"admin@eduportal.test", "admin", model.RoleAdmin},
	{"student@eduportal.test", "student", model.RoleUser},
}

// demoPassword satisfies the password policy.
const demoPassword = "Demo1234!"

func seed(c *cli.Context) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()

	if err := store.SeedDemo(c.Context, e.store); err != nil {
		return fmt.Errorf("seeding demo content: %w", err)
	}
	if !c.Bool("demo") {
		return nil
	}
	if e.cfg.UseSupabase() {
		return errors.New("demo accounts require EDU_AUTH_BACKEND=local")
	}

	local := newLocalBackend(e)
	for _, a := range demoAccounts {
		if _, err := provisionAccount(c, e, local, a.email, demoPassword, a.name, a.role); err != nil {
			if errors.Is(err, store.ErrUniqueViolation) {
				e.logger.Info("demo account exists", "email", a.email)
				continue
			}
			return err
		}
		e.logger.Info("demo account created", "email", a.email, "role", a.role, "password", demoPassword)
	}
	return nil
}

func createAdmin(c *cli.Context) error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer e.close()

	if e.cfg.UseSupabase() {
		return errors.New("create-admin requires EDU_AUTH_BACKEND=local; promote a Supabase user from the admin dashboard instead")
	}

	email := strings.ToLower(strings.TrimSpace(c.String("email")))
	password := c.String("password")
	name := strings.TrimSpace(c.String("name"))

	form := validation.SignUp{Email: email, Password: password, PasswordConfirm: password, Username: name}
	if is := form.Validate(); !is.OK() {
		first, _ := is.First()
		return fmt.Errorf("invalid %s: %s", first.Field, is.FirstMessage("en", "error.generic"))
	}

	p, err := provisionAccount(c, e, newLocalBackend(e), email, password, name, model.RoleAdmin)
	if err != nil {
		return err
	}
	e.logger.Info("admin created", "id", p.ID, "email", p.Email, "display_name", p.DisplayName)
	return nil
}

// provisionAccount creates a confirmed backend user and its profile in one
// go. A failed profile insert removes the backend user again.
func provisionAccount(c *cli.Context, e *appEnv, local *backend.Local, email, password, name, role string) (model.Profile, error) {
	ctx := c.Context
	if _, err := e.store.GetAuthUserByEmail(ctx, email); err == nil {
		return model.Profile{}, fmt.Errorf("account %s: %w", email, store.ErrUniqueViolation)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return model.Profile{}, fmt.Errorf("looking up %s: %w", email, err)
	}

	u, err := local.CreateConfirmedUser(ctx, email, password, map[string]any{backend.MetadataUsername: name})
	if err != nil {
		return model.Profile{}, fmt.Errorf("creating user %s: %w", email, err)
	}
	p, err := e.store.CreateProfile(ctx, store.CreateProfileParams{
		ID:          u.ID,
		Email:       email,
		DisplayName: name,
		Role:        role,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		if delErr := local.DeleteUser(ctx, u.ID); delErr != nil {
			e.logger.Error("failed to remove user after profile error", "id", u.ID, "error", delErr)
		}
		return model.Profile{}, fmt.Errorf("creating profile for %s: %w", email, err)
	}
	return p, nil
}

func newLocalBackend(e *appEnv) *backend.Local {
	return backend.NewLocal(backend.LocalConfig{
		Store:   e.store,
		Tokens:  backend.NewTokenService(e.cfg.JWTSecret, localIssuer, backend.LocalAccessTokenTTL),
		Hasher:  auth.NewHasher(auth.DefaultParams),
		Mailer:  backend.LogMailer{Logger: e.logger},
		SiteURL: e.cfg.SiteURL,
	})
}

// localIssuer is the iss claim of locally issued access tokens.
const localIssuer = "eduportal"
