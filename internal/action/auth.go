// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package action

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/olegiv/eduportal/internal/backend"
	"github.com/olegiv/eduportal/internal/dal"
	"github.com/olegiv/eduportal/internal/i18n"
	"github.com/olegiv/eduportal/internal/identity"
	"github.com/olegiv/eduportal/internal/model"
	"github.com/olegiv/eduportal/internal/store"
	"github.com/olegiv/eduportal/internal/validation"
)

// samePasswordPhrase is how the provider words a reset to the current
// password when it sends no error code.
const samePasswordPhrase = "new password should be different"

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignIn signs the caller in with email and password.
func (s *Service) SignIn(ctx context.Context, in validation.SignIn) dal.Result[*backend.User] {
	lang := i18n.FromContext(ctx)
	if is := in.Validate(); !is.OK() {
		return invalid[*backend.User](lang, is, "auth.signin_error")
	}

	sess, err := s.auth.SignInWithPassword(ctx, normalizeEmail(in.Email), in.Password)
	if err != nil {
		return backendFailure[*backend.User](lang, err, "auth.signin_failed")
	}

	var user *backend.User
	if sess != nil {
		user = sess.User
	}
	dal.ForgetUser(ctx)
	if user != nil {
		s.publish(ctx, identity.Event{Kind: identity.SignedIn, UserID: user.ID, Email: user.Email})
	}
	return dal.OkMessage(user, i18n.T(lang, "auth.signin_success"))
}

// SignUp registers an account and creates its profile. A profile insert
// that loses the display-name race removes the backend account again when
// an admin handle is configured.
func (s *Service) SignUp(ctx context.Context, in validation.SignUp) dal.Result[*backend.User] {
	lang := i18n.FromContext(ctx)
	if is := in.Validate(); !is.OK() {
		return invalid[*backend.User](lang, is, "auth.signup_error")
	}
	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)

	taken, err := s.store.DisplayNameExists(ctx, username)
	if err != nil {
		return backendFailure[*backend.User](lang, err, "auth.signup_error")
	}
	if taken {
		return dal.Fail[*backend.User](dal.Invalid(validation.FieldUsername, i18n.T(lang, "auth.username_taken")))
	}

	user, err := s.auth.SignUp(ctx, backend.SignUpParams{
		Email:      email,
		Password:   in.Password,
		Data:       map[string]any{backend.MetadataUsername: username},
		RedirectTo: s.link(PathEmailVerified),
	})
	if err != nil {
		return backendFailure[*backend.User](lang, err, "auth.signup_error")
	}
	if user == nil || len(user.Identities) == 0 {
		return dal.Fail[*backend.User](dal.Invalid(validation.FieldEmail, i18n.T(lang, "auth.email_in_use")))
	}

	_, err = s.store.CreateProfile(ctx, store.CreateProfileParams{
		ID:          user.ID,
		Email:       email,
		DisplayName: username,
		Role:        model.RoleUser,
		CreatedAt:   s.now().UTC(),
	})
	if err != nil {
		s.compensateSignUp(ctx, user.ID, err)
		if store.IsUniqueViolation(err) {
			return dal.Fail[*backend.User](dal.Invalid(validation.FieldUsername, i18n.T(lang, "auth.username_taken")))
		}
		return backendFailure[*backend.User](lang, err, "auth.signup_error")
	}

	s.publish(ctx, identity.Event{Kind: identity.SignedUp, UserID: user.ID, Email: email,
		Attrs: map[string]string{"username": username}})
	return dal.OkMessage(user, i18n.T(lang, "auth.signup_success"))
}

func (s *Service) compensateSignUp(ctx context.Context, userID string, cause error) {
	if s.admin == nil {
		s.logger.Warn("profile creation failed, backend user left without profile",
			"user_id", userID, "error", cause)
		return
	}
	if err := s.admin.DeleteUser(ctx, userID); err != nil {
		s.logger.Error("failed to remove backend user after profile failure",
			"user_id", userID, "error", err, "cause", cause)
		return
	}
	s.logger.Info("removed backend user after profile failure", "user_id", userID, "cause", cause)
}

// SignOut ends the caller's session. Tokens are dropped even when the
// provider call fails, so the action still succeeds.
func (s *Service) SignOut(ctx context.Context) dal.Result[struct{}] {
	lang := i18n.FromContext(ctx)

	var userID string
	if u, err := s.guard.CurrentUser(ctx); err == nil && u != nil {
		userID = u.ID
	}

	if err := s.auth.SignOut(ctx); err != nil && !errors.Is(err, backend.ErrNoSession) {
		s.logger.Warn("backend sign-out failed", "user_id", userID, "error", err)
	}
	dal.ForgetUser(ctx)
	if userID != "" {
		s.publish(ctx, identity.Event{Kind: identity.SignedOut, UserID: userID})
	}
	return dal.OkMessage(struct{}{}, i18n.T(lang, "auth.signout_success"))
}

// ForgotPassword sends a recovery email whose link lands on the reset page.
func (s *Service) ForgotPassword(ctx context.Context, in validation.ForgotPassword) dal.Result[struct{}] {
	lang := i18n.FromContext(ctx)
	if is := in.Validate(); !is.OK() {
		return invalid[struct{}](lang, is, "auth.forgot_error")
	}
	if err := s.auth.ResetPasswordForEmail(ctx, normalizeEmail(in.Email), s.link(PathResetPassword)); err != nil {
		return backendFailure[struct{}](lang, err, "auth.forgot_error")
	}
	return dal.OkMessage(struct{}{}, i18n.T(lang, "auth.forgot_success"))
}

// ResetPassword sets a new password for the caller, who holds a recovery
// session after following the emailed link.
func (s *Service) ResetPassword(ctx context.Context, in validation.ResetPassword) dal.Result[struct{}] {
	lang := i18n.FromContext(ctx)
	if is := in.Validate(); !is.OK() {
		return invalid[struct{}](lang, is, "auth.reset_error")
	}

	user, err := s.auth.UpdatePassword(ctx, in.Password)
	switch {
	case errors.Is(err, backend.ErrNoSession):
		return dal.Fail[struct{}](dal.NoUser().WithMessage(i18n.T(lang, "auth.session_expired")))
	case isSamePassword(err):
		return dal.Fail[struct{}](dal.Classify(err).WithMessage(i18n.T(lang, "auth.password_same")))
	case err != nil:
		return backendFailure[struct{}](lang, err, "auth.reset_error")
	}

	if user != nil {
		s.publish(ctx, identity.Event{Kind: identity.PasswordReset, UserID: user.ID, Email: user.Email})
	}
	return dal.OkMessage(struct{}{}, i18n.T(lang, "auth.reset_success"))
}

func isSamePassword(err error) bool {
	if err == nil {
		return false
	}
	if backend.IsCode(err, backend.CodeSamePassword) {
		return true
	}
	var be *backend.Error
	if errors.As(err, &be) {
		return strings.Contains(strings.ToLower(be.Message), samePasswordPhrase)
	}
	return strings.Contains(strings.ToLower(err.Error()), samePasswordPhrase)
}

// CheckUsername reports whether a display name is free. The answer is a
// hint; the UNIQUE constraint decides at sign-up.
func (s *Service) CheckUsername(ctx context.Context, username string) dal.Result[bool] {
	lang := i18n.FromContext(ctx)
	username = strings.TrimSpace(username)
	if !validation.NeedsAvailabilityCheck(username) {
		return dal.Fail[bool](dal.Invalid(validation.FieldUsername, i18n.T(lang, "auth.username_check_hint")))
	}

	res := dal.DbOperation(ctx, func(ctx context.Context) (bool, error) {
		return s.store.DisplayNameExists(ctx, username)
	})
	if !res.Success {
		return res
	}
	if res.Data {
		return dal.OkMessage(false, i18n.T(lang, "auth.username_taken"))
	}
	return dal.OkMessage(true, i18n.T(lang, "auth.username_available"))
}

// ResendVerification re-sends the sign-up confirmation email.
func (s *Service) ResendVerification(ctx context.Context, email string) dal.Result[struct{}] {
	lang := i18n.FromContext(ctx)
	in := validation.ForgotPassword{Email: email}
	if is := in.Validate(); !is.OK() {
		return invalid[struct{}](lang, is, "auth.resend_error")
	}
	if err := s.auth.Resend(ctx, backend.OTPSignup, normalizeEmail(email), s.link(PathEmailVerified)); err != nil {
		return backendFailure[struct{}](lang, err, "auth.resend_error")
	}
	return dal.OkMessage(struct{}{}, i18n.T(lang, "auth.resend_success"))
}

// VerifyEmail redeems the token hash from an emailed link. The caller is
// signed in afterwards.
func (s *Service) VerifyEmail(ctx context.Context, kind backend.OTPType, tokenHash string) dal.Result[*backend.User] {
	lang := i18n.FromContext(ctx)
	if tokenHash == "" || !validOTPType(kind) {
		return dal.Fail[*backend.User](dal.Invalid("", i18n.T(lang, "auth.verify_failed")))
	}

	sess, err := s.auth.VerifyOTP(ctx, kind, tokenHash)
	if err != nil {
		return backendFailure[*backend.User](lang, err, "auth.verify_failed")
	}
	if sess == nil || sess.User == nil {
		return dal.Ok[*backend.User](nil)
	}
	dal.ForgetUser(ctx)
	if kind == backend.OTPSignup {
		s.ensureProfile(ctx, sess.User)
	}
	s.publish(ctx, identity.Event{Kind: identity.SignedIn, UserID: sess.User.ID, Email: sess.User.Email,
		Attrs: map[string]string{"method": "otp_" + string(kind)}})
	return dal.Ok(sess.User)
}

func validOTPType(kind backend.OTPType) bool {
	switch kind {
	case backend.OTPSignup, backend.OTPRecovery, backend.OTPEmail:
		return true
	}
	return false
}

// VerifyDestination is where a verified link continues: next when it is a
// safe local path, otherwise the page for kind.
func VerifyDestination(kind backend.OTPType, next string) string {
	if next != "" && SafeNext(next) == next {
		return next
	}
	if kind == backend.OTPRecovery {
		return PathResetPassword
	}
	return PathEmailVerified
}

// OAuthStart is the first leg of a PKCE OAuth sign-in.
type OAuthStart struct {
	URL      string
	Verifier string
}

// StartOAuth builds the provider authorize URL. The verifier must be kept
// in the caller's session until the callback.
func (s *Service) StartOAuth(ctx context.Context, provider, next string) dal.Result[OAuthStart] {
	lang := i18n.FromContext(ctx)
	if provider != backend.ProviderGoogle {
		return dal.Fail[OAuthStart](dal.Invalid("provider", i18n.T(lang, "auth.oauth_failed")))
	}

	pkce := backend.NewPKCE()
	callback := s.link(PathOAuthCallback) + "?next=" + url.QueryEscape(SafeNext(next))
	authURL, err := s.auth.OAuthURL(provider, callback, pkce.Challenge)
	if err != nil {
		return backendFailure[OAuthStart](lang, err, "auth.oauth_failed")
	}
	return dal.Ok(OAuthStart{URL: authURL, Verifier: pkce.Verifier})
}

// CompleteOAuth exchanges the authorization code and makes sure the
// account has a profile.
func (s *Service) CompleteOAuth(ctx context.Context, code, verifier string) dal.Result[*backend.User] {
	lang := i18n.FromContext(ctx)
	if code == "" || verifier == "" {
		return dal.Fail[*backend.User](dal.Invalid("", i18n.T(lang, "auth.oauth_failed")))
	}

	sess, err := s.auth.ExchangeCode(ctx, code, verifier)
	if err != nil {
		return backendFailure[*backend.User](lang, err, "auth.oauth_failed")
	}
	if sess == nil || sess.User == nil {
		return dal.Fail[*backend.User](dal.Unknown(errors.New("code exchange returned no user")).
			WithMessage(i18n.T(lang, "auth.oauth_failed")))
	}

	dal.ForgetUser(ctx)
	s.ensureProfile(ctx, sess.User)
	s.publish(ctx, identity.Event{Kind: identity.SignedIn, UserID: sess.User.ID, Email: sess.User.Email,
		Attrs: map[string]string{"method": "oauth"}})
	return dal.Ok(sess.User)
}

// maxProfileNameAttempts bounds the suffix search for a free display name.
const maxProfileNameAttempts = 5

// ensureProfile creates the profile row for an identity that has none,
// such as a first OAuth sign-in. Failures are logged; the guard treats a
// missing profile as a plain member.
func (s *Service) ensureProfile(ctx context.Context, u *backend.User) {
	if _, err := s.store.GetProfile(ctx, u.ID); err == nil {
		return
	} else if !isNoRows(err) {
		s.logger.Error("failed to look up profile", "user_id", u.ID, "error", err)
		return
	}

	base := profileNameFor(u)
	name := base
	for attempt := 1; attempt <= maxProfileNameAttempts; attempt++ {
		_, err := s.store.CreateProfile(ctx, store.CreateProfileParams{
			ID:          u.ID,
			Email:       normalizeEmail(u.Email),
			DisplayName: name,
			Role:        model.RoleUser,
			CreatedAt:   s.now().UTC(),
		})
		if err == nil {
			s.profiles.Forget(ctx, u.ID)
			return
		}
		if !store.IsUniqueViolation(err) {
			s.logger.Error("failed to create profile", "user_id", u.ID, "error", err)
			return
		}
		name = suffixName(base, u.ID, attempt)
	}
	s.logger.Warn("no free display name for profile", "user_id", u.ID, "base", base)
}

// profileNameFor picks a display name from sign-up metadata or the email
// local part.
func profileNameFor(u *backend.User) string {
	name := strings.TrimSpace(u.Username())
	if name == "" {
		name, _, _ = strings.Cut(u.Email, "@")
	}
	runes := []rune(name)
	if len(runes) > validation.UsernameMaxLength-5 {
		runes = runes[:validation.UsernameMaxLength-5]
	}
	if len(runes) < validation.UsernameMinLength {
		return "user"
	}
	return string(runes)
}

func suffixName(base, userID string, attempt int) string {
	id := strings.ReplaceAll(userID, "-", "")
	n := attempt + 3
	if n > len(id) {
		n = len(id)
	}
	return base + "_" + id[:n]
}
