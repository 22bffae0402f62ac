// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/olegiv/eduportal/internal/dal"
	"github.com/olegiv/eduportal/internal/i18n"
	"github.com/olegiv/eduportal/internal/model"
	"github.com/olegiv/eduportal/internal/render"
	"github.com/olegiv/eduportal/internal/validation"
)

var accountPage = dal.PageAuth{RequireAuth: true, RequiredCapability: dal.CapAccountManage}

// AccountHandler handles the caller's own profile.
type AccountHandler struct {
	base
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(d Deps) *AccountHandler {
	return &AccountHandler{base: newBase(d)}
}

// AccountPage is the data of pages/account.
type AccountPage struct {
	Profile model.Profile
}

// Show renders the profile form.
func (h *AccountHandler) Show(w http.ResponseWriter, r *http.Request) {
	u, ok := h.Guard.GatePage(w, r, accountPage)
	if !ok {
		return
	}
	ctx := r.Context()
	res := h.Actions.CurrentProfile(ctx)
	if !res.Success {
		h.failure(w, r, res.Err)
		return
	}
	h.page(w, r, http.StatusOK, "pages/account", render.TemplateData{
		Title: i18n.T(i18n.FromContext(ctx), "page.account"),
		User:  u,
		Form: render.Form{Values: map[string]string{
			validation.FieldDisplayName: res.Data.DisplayName,
			validation.FieldAvatarURL:   res.Data.Avatar(),
		}},
		Data: AccountPage{Profile: res.Data},
	})
}

// Update saves the profile form.
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	u, ok := h.Guard.GatePage(w, r, accountPage)
	if !ok {
		return
	}
	if !parseFormOrRedirect(w, r, h.Renderer, RouteAccount) {
		return
	}
	ctx := r.Context()
	lang := i18n.FromContext(ctx)
	values := formValues(r, validation.FieldDisplayName, validation.FieldAvatarURL)

	res := h.Actions.UpdateProfile(ctx, validation.Profile{
		DisplayName: values[validation.FieldDisplayName],
		AvatarURL:   values[validation.FieldAvatarURL],
	})
	if res.Success {
		flashSuccess(w, r, h.Renderer, RouteAccount, res.Message)
		return
	}
	if dal.LoginRedirect(w, r, res) {
		return
	}

	current := h.Actions.CurrentProfile(ctx)
	h.page(w, r, http.StatusUnprocessableEntity, "pages/account", render.TemplateData{
		Title: i18n.T(lang, "page.account"),
		User:  u,
		Form:  formWithError(values, lang, res.Err),
		Data:  AccountPage{Profile: current.Data},
	})
}
