// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package nav

import "github.com/olegiv/eduportal/internal/dal"

// Route is one entry of the site map. Label is an i18n key.
type Route struct {
	Path       string
	Label      string
	Icon       string
	Capability dal.Capability
	// AnonymousOnly hides the route from signed-in users.
	AnonymousOnly bool
	Sidebar       bool
	Children      []Route
}

// DefaultRoutes is the site map used for the sidebar and breadcrumbs.
var DefaultRoutes = []Route{
	{Path: "/", Label: "nav.home", Icon: "home", Sidebar: true},
	{Path: "/dashboard", Label: "nav.dashboard", Icon: "layout", Capability: dal.CapDashboardView, Sidebar: true},
	{Path: "/news", Label: "nav.news", Icon: "newspaper", Sidebar: true},
	{Path: "/universities", Label: "nav.universities", Icon: "school", Sidebar: true},
	{Path: "/blog", Label: "nav.blog", Icon: "book", Sidebar: true},
	{
		Path: "/admin-dashboard", Label: "nav.admin", Icon: "settings", Capability: dal.CapBlogManage, Sidebar: true,
		Children: []Route{
			{Path: "/admin-dashboard/blog/create", Label: "nav.admin_blog_create", Capability: dal.CapBlogManage, Sidebar: true},
			{Path: "/admin-dashboard/blog/edit", Label: "nav.admin_blog_edit", Capability: dal.CapBlogManage},
			{Path: "/admin-dashboard/users", Label: "nav.admin_users", Capability: dal.CapUsersManage, Sidebar: true},
		},
	},
	{Path: "/account", Label: "nav.account", Icon: "user", Capability: dal.CapAccountManage, Sidebar: true},
	{Path: "/login", Label: "nav.login", AnonymousOnly: true, Sidebar: true},
	{Path: "/register", Label: "nav.register", AnonymousOnly: true, Sidebar: true},
}
