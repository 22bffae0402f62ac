// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import "github.com/go-chi/chi/v5"

// Routes mounts the API on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/username-availability", h.UsernameAvailability)
	r.Get("/me", h.Me)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/sign-in", h.SignIn)
		r.Post("/sign-up", h.SignUp)
		r.Post("/sign-out", h.SignOut)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/reset-password", h.ResetPassword)
		r.Post("/resend", h.Resend)
	})
}
