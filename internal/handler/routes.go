// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"github.com/go-chi/chi/v5"

	"github.com/olegiv/eduportal/internal/dal"
	"github.com/olegiv/eduportal/internal/middleware"
)

// Register mounts the HTML pages on r. Public pages are also served under
// a /{lang} prefix.
func Register(r chi.Router, d Deps) {
	pages := NewPagesHandler(d)
	auth := NewAuthHandler(d)
	account := NewAccountHandler(d)
	admin := NewAdminHandler(d)
	seoHandler := NewSEOHandler(d)

	r.Get(RouteSitemap, seoHandler.Sitemap)
	r.Get(RouteRobots, seoHandler.Robots)

	public := func(r chi.Router) {
		r.Get(RouteRoot, pages.Home)
		r.Get(RouteNews, pages.News)
		r.Get(RouteUniversities, pages.Universities)
		r.Get(RouteBlog, pages.BlogList)
		r.Get(RouteBlogSlug, pages.BlogPost)
	}
	public(r)
	r.Route("/{lang:ko|en}", public)

	r.Get(RouteDashboard, pages.Dashboard)
	r.Get(RouteAccount, account.Show)
	r.Post(RouteAccount, account.Update)

	r.Get(RouteLogin, auth.LoginForm)
	if d.LoginProtection != nil {
		r.With(d.LoginProtection.Middleware()).Post(RouteLogin, auth.Login)
	} else {
		r.Post(RouteLogin, auth.Login)
	}
	r.Post(RouteLogout, auth.Logout)
	r.Get(RouteRegister, auth.RegisterForm)
	r.Post(RouteRegister, auth.Register)
	r.Get(RouteRegisterConfirmation, auth.RegisterConfirmation)
	r.Post(RouteRegisterConfirmation, auth.ResendVerification)
	r.Get(RouteEmailVerified, auth.EmailVerified)
	r.Get(RouteForgot, auth.ForgotForm)
	r.Post(RouteForgot, auth.Forgot)
	r.Get(RouteForgotConfirmation, auth.ForgotConfirmation)
	r.Get(RouteResetPassword, auth.ResetForm)
	r.Post(RouteResetPassword, auth.Reset)
	r.Get(RouteAuthConfirm, auth.Confirm)
	r.Get(RouteOAuthStart, auth.OAuthStart)
	r.Get(RouteOAuthCallback, auth.OAuthCallback)

	var events middleware.SecurityLogger
	if d.Events != nil {
		events = d.Events
	}
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireCapability(d.Guard, dal.CapBlogManage, events))
		r.Get(RouteAdmin, admin.Dashboard)
		r.Get(RouteAdminBlogCreate, admin.NewBlog)
		r.Post(RouteAdminBlogCreate, admin.CreateBlog)
		r.Get(RouteAdminBlogEdit, admin.EditBlog)
		r.Post(RouteAdminBlogEdit, admin.UpdateBlog)
		r.Post(RouteAdminBlogFlags, admin.UpdateBlogFlags)
		r.Post(RouteAdminBlogDelete, admin.DeleteBlog)
		r.Post(RouteAdminJobRun, admin.RunJob)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireCapability(d.Guard, dal.CapUsersManage, events))
		r.Get(RouteAdminUsers, admin.Users)
		r.Post(RouteAdminUserRole, admin.ChangeRole)
		r.Post(RouteAdminUserDelete, admin.DeleteUser)
	})

	r.NotFound(NotFound(d))
}
