// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/eduportal/internal/dal"
	"github.com/olegiv/eduportal/internal/i18n"
	"github.com/olegiv/eduportal/internal/model"
	"github.com/olegiv/eduportal/internal/render"
	"github.com/olegiv/eduportal/internal/scheduler"
	"github.com/olegiv/eduportal/internal/uikit"
	"github.com/olegiv/eduportal/internal/validation"
)

// Blog form checkbox names.
const (
	fieldIsPublished = "isPublished"
	fieldIsPremium   = "isPremium"
	fieldRole        = "role"
)

var (
	blogAdminPage = dal.PageAuth{RequireAuth: true, RequiredCapability: dal.CapBlogManage}
	userAdminPage = dal.PageAuth{RequireAuth: true, RequiredCapability: dal.CapUsersManage}
	jobAdminPage  = dal.PageAuth{RequireAuth: true, RequiredRole: model.RoleAdmin}
)

// AdminHandler handles the admin dashboard.
type AdminHandler struct {
	base
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(d Deps) *AdminHandler {
	return &AdminHandler{base: newBase(d)}
}

func adminBlogEditURL(id string) string {
	return RouteAdmin + "/blog/edit/" + id
}

// AdminStats are the dashboard counters.
type AdminStats struct {
	Posts     int64
	Published int64
	Users     int64
	News      int64
}

// AdminDashboardPage is the data of admin/dashboard.
type AdminDashboardPage struct {
	Stats      AdminStats
	Posts      []model.BlogPost
	Pagination uikit.Pagination
	Events     []model.Event
	Jobs       []scheduler.JobInfo
}

// Dashboard renders the post list with site counters, recent activity and
// the maintenance jobs.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	u, ok := h.Guard.GatePage(w, r, blogAdminPage)
	if !ok {
		return
	}
	ctx := r.Context()
	lang := i18n.FromContext(ctx)
	page := uikit.ParsePageParam(r)

	list := h.Actions.ListBlogs(ctx, adminBlogPerPage, uikit.PageOffset(page, adminBlogPerPage))
	if dal.UnauthorizedRedirect(w, r, list, "") {
		return
	}
	if !list.Success {
		h.failure(w, r, list.Err)
		return
	}

	stats := dal.DbOperation(ctx, h.stats)
	if !stats.Success {
		h.failure(w, r, stats.Err)
		return
	}

	data := AdminDashboardPage{
		Stats:      stats.Data,
		Posts:      list.Data.Posts,
		Pagination: uikit.BuildPagination(page, int(list.Data.Total), adminBlogPerPage, RouteAdmin, nil),
	}
	if h.Events != nil {
		events, err := h.Events.RecentEvents(ctx, "", recentEventLimit)
		if err != nil {
			h.Logger.Warn("failed to load recent events", "error", err)
		}
		data.Events = events
	}
	if h.Jobs != nil && u.IsAdmin() {
		data.Jobs = h.Jobs.List()
	}

	h.page(w, r, http.StatusOK, "admin/dashboard", render.TemplateData{
		Title: i18n.T(lang, "page.admin"),
		User:  u,
		Data:  data,
	})
}

func (h *AdminHandler) stats(ctx context.Context) (AdminStats, error) {
	var s AdminStats
	var err error
	if s.Posts, err = h.Store.CountBlogs(ctx, false); err != nil {
		return s, err
	}
	if s.Published, err = h.Store.CountBlogs(ctx, true); err != nil {
		return s, err
	}
	if s.Users, err = h.Store.CountProfiles(ctx); err != nil {
		return s, err
	}
	s.News, err = h.Store.CountNewsItems(ctx)
	return s, err
}

// BlogFormPage is the data of admin/blog_form.
type BlogFormPage struct {
	ID     string
	Slug   string
	IsEdit bool
	Action string
}

func blogFormValues(p model.BlogPost) map[string]string {
	return map[string]string{
		validation.FieldTitle:    p.Title,
		validation.FieldContent:  p.Content,
		validation.FieldImageURL: p.ImageURL,
		fieldIsPublished:         strconv.FormatBool(p.IsPublished),
		fieldIsPremium:           strconv.FormatBool(p.IsPremium),
	}
}

func readBlogForm(r *http.Request) validation.BlogForm {
	return validation.BlogForm{
		Title:       r.PostFormValue(validation.FieldTitle),
		Content:     r.PostFormValue(validation.FieldContent),
		ImageURL:    r.PostFormValue(validation.FieldImageURL),
		IsPublished: checkbox(r, fieldIsPublished),
		IsPremium:   checkbox(r, fieldIsPremium),
	}
}

func (h *AdminHandler) blogForm(w http.ResponseWriter, r *http.Request, status int, u *dal.User, titleKey string, form render.Form, data BlogFormPage) {
	h.page(w, r, status, "admin/blog_form", render.TemplateData{
		Title: i18n.T(i18n.FromContext(r.Context()), titleKey),
		User:  u,
		Form:  form,
		Data:  data,
	})
}

// NewBlog renders an empty post form.
func (h *AdminHandler) NewBlog(w http.ResponseWriter, r *http.Request) {
	u, ok := h.Guard.GatePage(w, r, blogAdminPage)
	if !ok {
		return
	}
	h.blogForm(w, r, http.StatusOK, u, "page.admin_blog_create",
		render.Form{Values: blogFormValues(model.BlogPost{})},
		BlogFormPage{Action: RouteAdminBlogCreate})
}

// CreateBlog stores a new post.
func (h *AdminHandler) CreateBlog(w http.ResponseWriter, r *http.Request) {
	u, ok := h.Guard.GatePage(w, r, blogAdminPage)
	if !ok {
		return
	}
	if !parseFormOrRedirect(w, r, h.Renderer, RouteAdminBlogCreate) {
		return
	}
	in := readBlogForm(r)
	res := h.Actions.CreateBlog(r.Context(), in)
	if res.Success {
		flashSuccess(w, r, h.Renderer, RouteAdmin, res.Message)
		return
	}
	if dal.LoginRedirect(w, r, res) || dal.UnauthorizedRedirect(w, r, res, "") {
		return
	}
	h.blogForm(w, r, http.StatusUnprocessableEntity, u, "page.admin_blog_create",
		formWithError(submittedBlogValues(in), i18n.FromContext(r.Context()), res.Err),
		BlogFormPage{Action: RouteAdminBlogCreate})
}

func submittedBlogValues(in validation.BlogForm) map[string]string {
	return blogFormValues(model.BlogPost{
		Title:       in.Title,
		Content:     in.Content,
		ImageURL:    in.ImageURL,
		IsPublished: in.IsPublished,
		IsPremium:   in.IsPremium,
	})
}

// EditBlog renders the form for an existing post.
func (h *AdminHandler) EditBlog(w http.ResponseWriter, r *http.Request) {
	u, ok := h.Guard.GatePage(w, r, blogAdminPage)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	res := h.Actions.GetBlog(r.Context(), id)
	if res.Is(dal.KindValidation) {
		h.notFound(w, r)
		return
	}
	if !res.Success {
		h.failure(w, r, res.Err)
		return
	}
	h.blogForm(w, r, http.StatusOK, u, "page.admin_blog_edit",
		render.Form{Values: blogFormValues(res.Data)},
		BlogFormPage{ID: id, Slug: res.Data.Slug, IsEdit: true, Action: adminBlogEditURL(id)})
}

// UpdateBlog saves an existing post.
func (h *AdminHandler) UpdateBlog(w http.ResponseWriter, r *http.Request) {
	u, ok := h.Guard.GatePage(w, r, blogAdminPage)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if !parseFormOrRedirect(w, r, h.Renderer, adminBlogEditURL(id)) {
		return
	}
	in := readBlogForm(r)
	res := h.Actions.UpdateBlog(r.Context(), id, in)
	if res.Success {
		flashSuccess(w, r, h.Renderer, RouteAdmin, res.Message)
		return
	}
	if dal.LoginRedirect(w, r, res) || dal.UnauthorizedRedirect(w, r, res, "") {
		return
	}
	h.blogForm(w, r, http.StatusUnprocessableEntity, u, "page.admin_blog_edit",
		formWithError(submittedBlogValues(in), i18n.FromContext(r.Context()), res.Err),
		BlogFormPage{ID: id, IsEdit: true, Action: adminBlogEditURL(id)})
}

// UpdateBlogFlags toggles publish or premium from the list.
func (h *AdminHandler) UpdateBlogFlags(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Guard.GatePage(w, r, blogAdminPage); !ok {
		return
	}
	if !parseFormOrRedirect(w, r, h.Renderer, RouteAdmin) {
		return
	}
	res := h.Actions.UpdateBlogFlags(r.Context(), chi.URLParam(r, "id"), model.BlogFlags{
		IsPublished: optionalBool(r, fieldIsPublished),
		IsPremium:   optionalBool(r, fieldIsPremium),
	})
	flashResult(w, r, h.Renderer, res, RouteAdmin, RouteAdmin)
}

// DeleteBlog removes a post.
func (h *AdminHandler) DeleteBlog(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Guard.GatePage(w, r, blogAdminPage); !ok {
		return
	}
	res := h.Actions.DeleteBlog(r.Context(), chi.URLParam(r, "id"))
	flashResult(w, r, h.Renderer, res, RouteAdmin, RouteAdmin)
}

// UsersPage is the data of admin/users.
type UsersPage struct {
	Profiles   []model.Profile
	Pagination uikit.Pagination
	Roles      []string
}

// Users lists profiles.
func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	u, ok := h.Guard.GatePage(w, r, userAdminPage)
	if !ok {
		return
	}
	ctx := r.Context()
	page := uikit.ParsePageParam(r)

	res := h.Actions.ListUsers(ctx, usersPerPage, uikit.PageOffset(page, usersPerPage))
	if dal.UnauthorizedRedirect(w, r, res, "") {
		return
	}
	if !res.Success {
		h.failure(w, r, res.Err)
		return
	}

	h.page(w, r, http.StatusOK, "admin/users", render.TemplateData{
		Title: i18n.T(i18n.FromContext(ctx), "page.admin_users"),
		User:  u,
		Data: UsersPage{
			Profiles:   res.Data.Profiles,
			Pagination: uikit.BuildPagination(page, int(res.Data.Total), usersPerPage, RouteAdminUsers, nil),
			Roles:      model.ValidRoles,
		},
	})
}

// ChangeRole sets a user's role.
func (h *AdminHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Guard.GatePage(w, r, userAdminPage); !ok {
		return
	}
	if !parseFormOrRedirect(w, r, h.Renderer, RouteAdminUsers) {
		return
	}
	res := h.Actions.ChangeRole(r.Context(), chi.URLParam(r, "id"), r.PostFormValue(fieldRole))
	flashResult(w, r, h.Renderer, res, RouteAdminUsers, RouteAdminUsers)
}

// DeleteUser removes a user.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Guard.GatePage(w, r, userAdminPage); !ok {
		return
	}
	res := h.Actions.DeleteUser(r.Context(), chi.URLParam(r, "id"))
	flashResult(w, r, h.Renderer, res, RouteAdminUsers, RouteAdminUsers)
}

// RunJob triggers a maintenance job immediately.
func (h *AdminHandler) RunJob(w http.ResponseWriter, r *http.Request) {
	u, ok := h.Guard.GatePage(w, r, jobAdminPage)
	if !ok {
		return
	}
	ctx := r.Context()
	lang := i18n.FromContext(ctx)
	if h.Jobs == nil {
		h.notFound(w, r)
		return
	}

	name := chi.URLParam(r, "name")
	if err := h.Jobs.TriggerNow(ctx, name); err != nil {
		h.Logger.Warn("manual job run failed", "job", name, "user_id", u.ID, "error", err)
		flashError(w, r, h.Renderer, RouteAdmin, i18n.T(lang, "admin.job_failed", name))
		return
	}
	if h.Events != nil {
		_ = h.Events.LogSystemEvent(ctx, model.EventLevelInfo, "Job triggered manually",
			map[string]any{"job": name, "user_id": u.ID})
	}
	flashSuccess(w, r, h.Renderer, RouteAdmin, i18n.T(lang, "admin.job_done", name))
}
