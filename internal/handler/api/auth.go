// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/olegiv/eduportal/internal/backend"
	"github.com/olegiv/eduportal/internal/dal"
	"github.com/olegiv/eduportal/internal/i18n"
	"github.com/olegiv/eduportal/internal/model"
	"github.com/olegiv/eduportal/internal/validation"
)

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signUpRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
	Username        string `json:"username"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// UserView is the public part of a backend user.
type UserView struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Confirmed bool   `json:"confirmed"`
}

func userView(u *backend.User) any {
	if u == nil {
		return nil
	}
	return UserView{ID: u.ID, Email: u.Email, Confirmed: u.EmailConfirmedAt != nil}
}

// ProfileView is the caller's profile.
type ProfileView struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	AvatarURL   string `json:"avatarURL,omitempty"`
}

func profileView(p model.Profile) any {
	return ProfileView{ID: p.ID, Email: p.Email, DisplayName: p.DisplayName, Role: p.Role, AvatarURL: p.Avatar()}
}

// UsernameAvailability handles GET /api/username-availability?username=.
func (h *Handler) UsernameAvailability(w http.ResponseWriter, r *http.Request) {
	res := h.actions.CheckUsername(r.Context(), r.URL.Query().Get("username"))
	respond(w, r, res, func(available bool) any {
		return map[string]bool{"available": available}
	})
}

// SignIn handles POST /api/auth/sign-in.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	lang := i18n.FromContext(ctx)

	if msg, locked := h.lockout.Locked(lang, req.Email); locked {
		WriteJSON(w, http.StatusTooManyRequests, Envelope{Error: &ErrorBody{
			Type: string(dal.KindValidation), Message: msg,
		}})
		return
	}

	res := h.actions.SignIn(ctx, validation.SignIn{Email: req.Email, Password: req.Password})
	if msg, locked := h.lockout.Record(lang, req.Email, res.Success, res.Err); locked {
		WriteJSON(w, http.StatusTooManyRequests, Envelope{Error: &ErrorBody{
			Type: string(dal.KindValidation), Message: msg,
		}})
		return
	}
	if res.Success {
		if err := h.sessions.RenewToken(ctx); err != nil {
			h.logger.Error("failed to renew session token", "error", err)
			WriteError(w, r, dal.Unknown(err))
			return
		}
	}
	respond(w, r, res, userView)
}

// SignUp handles POST /api/auth/sign-up.
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !decode(w, r, &req) {
		return
	}
	res := h.actions.SignUp(r.Context(), validation.SignUp{
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		Username:        req.Username,
	})
	respond(w, r, res, userView)
}

// SignOut handles POST /api/auth/sign-out.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res := h.actions.SignOut(ctx)
	if err := h.sessions.RenewToken(ctx); err != nil {
		h.logger.Warn("failed to renew session token on sign-out", "error", err)
	}
	respond[struct{}](w, r, res, nil)
}

// ForgotPassword handles POST /api/auth/forgot-password.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decode(w, r, &req) {
		return
	}
	respond[struct{}](w, r, h.actions.ForgotPassword(r.Context(), validation.ForgotPassword{Email: req.Email}), nil)
}

// ResetPassword handles POST /api/auth/reset-password.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if !decode(w, r, &req) {
		return
	}
	res := h.actions.ResetPassword(r.Context(), validation.ResetPassword{
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	respond[struct{}](w, r, res, nil)
}

// Resend handles POST /api/auth/resend.
func (h *Handler) Resend(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decode(w, r, &req) {
		return
	}
	respond[struct{}](w, r, h.actions.ResendVerification(r.Context(), req.Email), nil)
}

// Me handles GET /api/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	respond(w, r, h.actions.CurrentProfile(r.Context()), profileView)
}
