// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/eduportal/internal/action"
	"github.com/olegiv/eduportal/internal/backend"
	"github.com/olegiv/eduportal/internal/dal"
	"github.com/olegiv/eduportal/internal/i18n"
	"github.com/olegiv/eduportal/internal/model"
	"github.com/olegiv/eduportal/internal/render"
	"github.com/olegiv/eduportal/internal/session"
	"github.com/olegiv/eduportal/internal/usercheck"
	"github.com/olegiv/eduportal/internal/validation"
)

// Form field names used by the auth pages.
const (
	fieldUsernameChecked = "username_checked"
	fieldUsernameStatus  = "username_status"
	fieldIntent          = "intent"
	fieldNext            = "next"

	intentCheckUsername = "check"
)

// anonymousOnly gates the sign-in and sign-up pages.
var anonymousOnly = dal.PageAuth{RequireAuth: false}

// AuthHandler handles the authentication pages.
type AuthHandler struct {
	base
	lockout LoginGuard
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(d Deps) *AuthHandler {
	return &AuthHandler{base: newBase(d), lockout: NewLoginGuard(d.LoginProtection)}
}

// LoginPage is the data of auth/login.
type LoginPage struct {
	Next string
}

// LoginForm renders the sign-in form.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Guard.GatePage(w, r, anonymousOnly); !ok {
		return
	}
	lang := i18n.FromContext(r.Context())
	h.page(w, r, http.StatusOK, "auth/login", render.TemplateData{
		Title: i18n.T(lang, "page.login"),
		Data:  LoginPage{Next: action.SafeNext(r.URL.Query().Get(fieldNext))},
	})
}

// Login signs the caller in with email and password.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Guard.GatePage(w, r, anonymousOnly); !ok {
		return
	}
	if !parseFormOrRedirect(w, r, h.Renderer, RouteLogin) {
		return
	}
	ctx := r.Context()
	lang := i18n.FromContext(ctx)
	in := validation.SignIn{
		Email:    r.PostFormValue(validation.FieldEmail),
		Password: r.PostFormValue(validation.FieldPassword),
	}
	next := action.SafeNext(r.PostFormValue(fieldNext))
	values := formValues(r, validation.FieldEmail)

	fail := func(err *dal.Error) {
		h.page(w, r, http.StatusUnprocessableEntity, "auth/login", render.TemplateData{
			Title: i18n.T(lang, "page.login"),
			Form:  formWithError(values, lang, err),
			Data:  LoginPage{Next: next},
		})
	}

	if msg, locked := h.lockout.Locked(lang, in.Email); locked {
		h.logSecurity(r, "Sign-in blocked by lockout", map[string]any{"email": in.Email})
		fail(dal.Invalid("", msg))
		return
	}

	res := h.Actions.SignIn(ctx, in)
	if msg, locked := h.lockout.Record(lang, in.Email, res.Success, res.Err); locked {
		h.logSecurity(r, "Account locked after failed sign-ins", map[string]any{"email": in.Email})
		fail(dal.Invalid("", msg))
		return
	}
	if !res.Success {
		fail(res.Err)
		return
	}

	if err := h.Sessions.RenewToken(ctx); err != nil {
		logAndInternalError(w, "failed to renew session token", "error", err)
		return
	}
	flashSuccess(w, r, h.Renderer, next, res.Message)
}

func (h *AuthHandler) logSecurity(r *http.Request, msg string, meta map[string]any) {
	if h.Events == nil {
		return
	}
	_ = h.Events.LogSecurityEvent(r.Context(), model.EventLevelWarning, msg, "", meta)
}

// RegisterPage is the data of auth/register.
type RegisterPage struct {
	Username *usercheck.Widget
}

// RegisterForm renders the sign-up form.
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Guard.GatePage(w, r, anonymousOnly); !ok {
		return
	}
	lang := i18n.FromContext(r.Context())
	h.page(w, r, http.StatusOK, "auth/register", render.TemplateData{
		Title: i18n.T(lang, "page.register"),
		Data:  RegisterPage{Username: usercheck.New()},
	})
}

// Register either checks the username (intent=check) or creates the
// account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Guard.GatePage(w, r, anonymousOnly); !ok {
		return
	}
	if !parseFormOrRedirect(w, r, h.Renderer, RouteRegister) {
		return
	}
	ctx := r.Context()
	lang := i18n.FromContext(ctx)
	values := formValues(r, validation.FieldEmail, validation.FieldUsername)
	widget := usercheck.Restore(
		r.PostFormValue(fieldUsernameChecked),
		r.PostFormValue(fieldUsernameStatus),
		r.PostFormValue(validation.FieldUsername),
	)
	data := render.TemplateData{
		Title: i18n.T(lang, "page.register"),
		Form:  render.Form{Values: values},
		Data:  RegisterPage{Username: widget},
	}

	if r.PostFormValue(fieldIntent) == intentCheckUsername {
		if value, ok := widget.Begin(); ok {
			res := h.Actions.CheckUsername(ctx, value)
			if !res.Success {
				data.Form = formWithError(values, lang, res.Err)
				data.Data = RegisterPage{Username: usercheck.Restore("", "", widget.Input())}
			} else {
				widget.Complete(value, !res.Data)
			}
		}
		h.page(w, r, http.StatusOK, "auth/register", data)
		return
	}

	res := h.Actions.SignUp(ctx, validation.SignUp{
		Email:           r.PostFormValue(validation.FieldEmail),
		Password:        r.PostFormValue(validation.FieldPassword),
		PasswordConfirm: r.PostFormValue(validation.FieldPasswordConfirm),
		Username:        r.PostFormValue(validation.FieldUsername),
	})
	if !res.Success {
		data.Form = formWithError(values, lang, res.Err)
		h.page(w, r, http.StatusUnprocessableEntity, "auth/register", data)
		return
	}

	h.Sessions.Put(ctx, sessionKeyPendingEmail, values[validation.FieldEmail])
	flashSuccess(w, r, h.Renderer, RouteRegisterConfirmation, res.Message)
}

// ConfirmationPage is the data of the "check your inbox" pages.
type ConfirmationPage struct {
	Email string
}

// RegisterConfirmation tells the caller to check their inbox.
func (h *AuthHandler) RegisterConfirmation(w http.ResponseWriter, r *http.Request) {
	lang := i18n.FromContext(r.Context())
	h.page(w, r, http.StatusOK, "auth/register_confirmation", render.TemplateData{
		Title: i18n.T(lang, "page.register_confirmation"),
		Data:  ConfirmationPage{Email: h.Sessions.GetString(r.Context(), sessionKeyPendingEmail)},
	})
}

// ResendVerification sends the sign-up email again.
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.Renderer, RouteRegisterConfirmation) {
		return
	}
	email := r.PostFormValue(validation.FieldEmail)
	if email == "" {
		email = h.Sessions.GetString(r.Context(), sessionKeyPendingEmail)
	}
	res := h.Actions.ResendVerification(r.Context(), email)
	if res.Success {
		h.Sessions.Put(r.Context(), sessionKeyPendingEmail, email)
	}
	flashResult(w, r, h.Renderer, res, RouteRegisterConfirmation, RouteRegisterConfirmation)
}

// EmailVerified confirms a completed verification.
func (h *AuthHandler) EmailVerified(w http.ResponseWriter, r *http.Request) {
	lang := i18n.FromContext(r.Context())
	h.Sessions.Remove(r.Context(), sessionKeyPendingEmail)
	h.page(w, r, http.StatusOK, "auth/email_verified", render.TemplateData{
		Title: i18n.T(lang, "page.email_verified"),
	})
}

// ForgotForm renders the password recovery form.
func (h *AuthHandler) ForgotForm(w http.ResponseWriter, r *http.Request) {
	lang := i18n.FromContext(r.Context())
	h.page(w, r, http.StatusOK, "auth/forgot", render.TemplateData{
		Title: i18n.T(lang, "page.forgot"),
	})
}

// Forgot sends a recovery email.
func (h *AuthHandler) Forgot(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.Renderer, RouteForgot) {
		return
	}
	ctx := r.Context()
	lang := i18n.FromContext(ctx)
	values := formValues(r, validation.FieldEmail)

	res := h.Actions.ForgotPassword(ctx, validation.ForgotPassword{Email: values[validation.FieldEmail]})
	if !res.Success {
		h.page(w, r, http.StatusUnprocessableEntity, "auth/forgot", render.TemplateData{
			Title: i18n.T(lang, "page.forgot"),
			Form:  formWithError(values, lang, res.Err),
		})
		return
	}
	h.Sessions.Put(ctx, sessionKeyPendingEmail, values[validation.FieldEmail])
	http.Redirect(w, r, RouteForgotConfirmation, http.StatusSeeOther)
}

// ForgotConfirmation tells the caller a recovery email is on its way.
func (h *AuthHandler) ForgotConfirmation(w http.ResponseWriter, r *http.Request) {
	lang := i18n.FromContext(r.Context())
	h.page(w, r, http.StatusOK, "auth/forgot_confirmation", render.TemplateData{
		Title: i18n.T(lang, "page.forgot_confirmation"),
		Data:  ConfirmationPage{Email: h.Sessions.PopString(r.Context(), sessionKeyPendingEmail)},
	})
}

// ResetForm renders the new-password form. It needs the recovery session
// opened by the emailed link.
func (h *AuthHandler) ResetForm(w http.ResponseWriter, r *http.Request) {
	u, err := h.Guard.CurrentUser(r.Context())
	if err != nil || u == nil {
		flashError(w, r, h.Renderer, RouteForgot, i18n.Tc(r.Context(), "auth.session_expired"))
		return
	}
	lang := i18n.FromContext(r.Context())
	h.page(w, r, http.StatusOK, "auth/reset", render.TemplateData{
		Title: i18n.T(lang, "page.reset"),
		User:  u,
	})
}

// Reset sets the new password.
func (h *AuthHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.Renderer, RouteResetPassword) {
		return
	}
	ctx := r.Context()
	lang := i18n.FromContext(ctx)

	res := h.Actions.ResetPassword(ctx, validation.ResetPassword{
		Password:        r.PostFormValue(validation.FieldPassword),
		PasswordConfirm: r.PostFormValue(validation.FieldPasswordConfirm),
	})
	switch {
	case res.Success:
		flashSuccess(w, r, h.Renderer, RouteRoot, res.Message)
	case res.Is(dal.KindNoUser):
		flashError(w, r, h.Renderer, RouteForgot, dal.ErrorMessage(lang, res.Err))
	default:
		h.page(w, r, http.StatusUnprocessableEntity, "auth/reset", render.TemplateData{
			Title: i18n.T(lang, "page.reset"),
			Form:  formWithError(map[string]string{}, lang, res.Err),
		})
	}
}

// Logout ends the session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res := h.Actions.SignOut(ctx)
	if err := h.Sessions.RenewToken(ctx); err != nil {
		h.Logger.Warn("failed to renew session token on sign-out", "error", err)
	}
	flashSuccess(w, r, h.Renderer, RouteLogin, res.Message)
}

// Confirm redeems an emailed link (?token_hash=&type=&next=).
func (h *AuthHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	kind := backend.OTPType(q.Get("type"))

	res := h.Actions.VerifyEmail(ctx, kind, q.Get("token_hash"))
	if !res.Success {
		flashError(w, r, h.Renderer, RouteLogin, dal.ErrorMessage(i18n.FromContext(ctx), res.Err))
		return
	}
	if err := h.Sessions.RenewToken(ctx); err != nil {
		logAndInternalError(w, "failed to renew session token", "error", err)
		return
	}
	http.Redirect(w, r, action.VerifyDestination(kind, q.Get(fieldNext)), http.StatusSeeOther)
}

// OAuthStart redirects to the provider's consent screen.
func (h *AuthHandler) OAuthStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res := h.Actions.StartOAuth(ctx, chi.URLParam(r, "provider"), r.URL.Query().Get(fieldNext))
	if !res.Success {
		flashError(w, r, h.Renderer, RouteLogin, dal.ErrorMessage(i18n.FromContext(ctx), res.Err))
		return
	}
	session.PutPKCEVerifier(ctx, h.Sessions, res.Data.Verifier)
	http.Redirect(w, r, res.Data.URL, http.StatusSeeOther)
}

// OAuthCallback completes the provider sign-in.
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lang := i18n.FromContext(ctx)
	q := r.URL.Query()

	if e := q.Get("error"); e != "" {
		h.Logger.Warn("oauth provider returned an error", "error", e, "description", q.Get("error_description"))
		flashError(w, r, h.Renderer, RouteLogin, i18n.T(lang, "auth.oauth_failed"))
		return
	}

	verifier := session.PopPKCEVerifier(ctx, h.Sessions)
	res := h.Actions.CompleteOAuth(ctx, q.Get("code"), verifier)
	if !res.Success {
		flashError(w, r, h.Renderer, RouteLogin, dal.ErrorMessage(lang, res.Err))
		return
	}
	if err := h.Sessions.RenewToken(ctx); err != nil {
		logAndInternalError(w, "failed to renew session token", "error", err)
		return
	}
	flashSuccess(w, r, h.Renderer, action.SafeNext(q.Get(fieldNext)), i18n.T(lang, "auth.signin_success"))
}
