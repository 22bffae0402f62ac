// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import "github.com/olegiv/eduportal/internal/action"

// Route pattern constants for chi router registration.
const (
	RouteRoot         = "/"
	RouteDashboard    = "/dashboard"
	RouteNews         = "/news"
	RouteUniversities = "/universities"
	RouteBlog         = "/blog"
	RouteBlogSlug     = "/blog/{slug}"
	RouteAccount      = "/account"
	RouteSitemap      = "/sitemap.xml"
	RouteRobots       = "/robots.txt"

	RouteLogin                = "/login"
	RouteLogout               = "/logout"
	RouteRegister             = "/register"
	RouteRegisterConfirmation = "/register/confirmation"
	RouteEmailVerified        = action.PathEmailVerified
	RouteForgot               = "/forgot-password"
	RouteForgotConfirmation   = "/forgot-password/confirmation"
	RouteResetPassword        = action.PathResetPassword
	RouteAuthConfirm          = "/auth/confirm"
	RouteOAuthStart           = "/auth/oauth/{provider}"
	RouteOAuthCallback        = action.PathOAuthCallback

	RouteAdmin           = "/admin-dashboard"
	RouteAdminBlogCreate = RouteAdmin + "/blog/create"
	RouteAdminBlogEdit   = RouteAdmin + "/blog/edit/{id}"
	RouteAdminBlogFlags  = RouteAdmin + "/blog/{id}/flags"
	RouteAdminBlogDelete = RouteAdmin + "/blog/{id}/delete"
	RouteAdminUsers      = RouteAdmin + "/users"
	RouteAdminUserRole   = RouteAdminUsers + "/{id}/role"
	RouteAdminUserDelete = RouteAdminUsers + "/{id}/delete"
	RouteAdminJobRun     = RouteAdmin + "/jobs/{name}/run"
)

// Flash message types.
const (
	flashTypeSuccess = "success"
	flashTypeError   = "error"
)

// Page sizes.
const (
	blogPerPage      = 10
	adminBlogPerPage = 20
	usersPerPage     = 25
	homeLatestPosts  = 3
	recentEventLimit = 10
)

// sessionKeyPendingEmail holds the address a confirmation email was sent to.
const sessionKeyPendingEmail = "auth.pending_email"
