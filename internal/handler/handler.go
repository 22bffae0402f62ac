// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler serves the HTML pages and form posts of eduportal.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/eduportal/internal/action"
	"github.com/olegiv/eduportal/internal/dal"
	"github.com/olegiv/eduportal/internal/i18n"
	"github.com/olegiv/eduportal/internal/markdown"
	"github.com/olegiv/eduportal/internal/middleware"
	"github.com/olegiv/eduportal/internal/news"
	"github.com/olegiv/eduportal/internal/render"
	"github.com/olegiv/eduportal/internal/scheduler"
	"github.com/olegiv/eduportal/internal/service"
	"github.com/olegiv/eduportal/internal/store"
)

// Deps are the dependencies shared by the page handlers.
type Deps struct {
	Actions         *action.Service
	Guard           *dal.Guard
	Renderer        *render.Renderer
	Sessions        *scs.SessionManager
	Store           *store.Store
	News            *news.Service
	Events          *service.EventService       // optional
	Jobs            *scheduler.Registry         // optional
	LoginProtection *middleware.LoginProtection // optional
	Logger          *slog.Logger

	SiteURL    string // absolute base URL used in the sitemap
	Production bool   // allow crawlers in robots.txt
}

// base is embedded by every page handler.
type base struct {
	Deps
	md *markdown.Renderer
}

func newBase(d Deps) base {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return base{Deps: d, md: markdown.New()}
}

// page renders a template with status, falling back to a plain 500 when the
// template fails.
func (b base) page(w http.ResponseWriter, r *http.Request, status int, name string, data render.TemplateData) {
	if data.User == nil {
		data.User = b.caller(r)
	}
	if err := b.Renderer.RenderStatus(w, r, status, name, data); err != nil {
		logAndInternalError(w, "failed to render template", "template", name, "error", err)
	}
}

// notFound renders the localized 404 page.
func (b base) notFound(w http.ResponseWriter, r *http.Request) {
	lang := i18n.FromContext(r.Context())
	b.page(w, r, http.StatusNotFound, "pages/error", render.TemplateData{
		Title: i18n.T(lang, "page.not_found"),
		Data:  ErrorPage{Status: http.StatusNotFound, Message: i18n.T(lang, "error.not_found")},
	})
}

// failure renders the error page for a failed result.
func (b base) failure(w http.ResponseWriter, r *http.Request, err *dal.Error) {
	lang := i18n.FromContext(r.Context())
	status := http.StatusInternalServerError
	if err != nil && err.Kind == dal.KindValidation {
		status = http.StatusBadRequest
	}
	b.Logger.Warn("request failed", "path", r.URL.Path, "error", err)
	b.page(w, r, status, "pages/error", render.TemplateData{
		Title: i18n.T(lang, "page.error"),
		Data:  ErrorPage{Status: status, Message: dal.ErrorMessage(lang, err)},
	})
}

// ErrorPage is the data of pages/error.
type ErrorPage struct {
	Status  int
	Message string
}

// NotFound is the router's fallback handler.
func NotFound(d Deps) http.HandlerFunc {
	b := newBase(d)
	return b.notFound
}

// caller returns the user loaded by middleware, resolving it when the
// middleware did not run.
func (b base) caller(r *http.Request) *dal.User {
	if u := middleware.GetUser(r); u != nil {
		return u
	}
	u, err := b.Guard.CurrentUser(r.Context())
	if err != nil {
		return nil
	}
	return u
}
