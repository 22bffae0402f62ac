// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"fmt"
	"time"

	"github.com/olegiv/eduportal/internal/dal"
	"github.com/olegiv/eduportal/internal/i18n"
	"github.com/olegiv/eduportal/internal/middleware"
)

// LoginGuard applies account lockout around sign-in. The zero value and a
// nil LoginProtection allow every attempt.
type LoginGuard struct {
	lp *middleware.LoginProtection
}

// NewLoginGuard wraps lp.
func NewLoginGuard(lp *middleware.LoginProtection) LoginGuard {
	return LoginGuard{lp: lp}
}

// Locked returns the lockout message when email may not sign in now.
func (g LoginGuard) Locked(lang, email string) (string, bool) {
	if g.lp == nil {
		return "", false
	}
	if locked, remaining := g.lp.IsAccountLocked(email); locked {
		return i18n.T(lang, "auth.too_many_attempts", formatDuration(remaining)), true
	}
	return "", false
}

// Record updates the attempt counters from a sign-in outcome. Only backend
// rejections count as failures; validation errors never reach the backend.
// It returns the lockout message when this failure locked the account.
func (g LoginGuard) Record(lang, email string, success bool, err *dal.Error) (string, bool) {
	if g.lp == nil {
		return "", false
	}
	if success {
		g.lp.RecordSuccessfulLogin(email)
		return "", false
	}
	if err == nil || err.Kind != dal.KindBackend {
		return "", false
	}
	if locked, d := g.lp.RecordFailedAttempt(email); locked {
		return i18n.T(lang, "auth.too_many_attempts", formatDuration(d)), true
	}
	return "", false
}

// formatDuration renders a lockout period as hours and minutes.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	if d < time.Minute {
		return "1m"
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh%dm", h, m)
	}
}
