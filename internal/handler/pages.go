// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/eduportal/internal/action"
	"github.com/olegiv/eduportal/internal/dal"
	"github.com/olegiv/eduportal/internal/i18n"
	"github.com/olegiv/eduportal/internal/model"
	"github.com/olegiv/eduportal/internal/news"
	"github.com/olegiv/eduportal/internal/render"
	"github.com/olegiv/eduportal/internal/uikit"
	"github.com/olegiv/eduportal/internal/university"
)

// carouselWindow is the number of headline cards shown at once.
const carouselWindow = 3

// PagesHandler handles the public and member pages.
type PagesHandler struct {
	base
}

// NewPagesHandler creates a new PagesHandler.
func NewPagesHandler(d Deps) *PagesHandler {
	return &PagesHandler{base: newBase(d)}
}

// HomePage is the data of pages/home.
type HomePage struct {
	Carousel *news.Carousel
	Slides   []model.NewsItem
	Posts    []model.BlogPost
}

// Home renders the landing page: a carousel over important news and the
// latest posts. ?slide selects the carousel position.
func (h *PagesHandler) Home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lang := i18n.FromContext(ctx)

	all := h.Deps.News.All(ctx)
	if !all.Success {
		h.failure(w, r, all.Err)
		return
	}
	var important []model.NewsItem
	for _, it := range all.Data {
		if it.IsImportant {
			important = append(important, it)
		}
	}

	c := news.NewCarousel(len(important), carouselWindow)
	c.GoTo(uikit.ParseIntParam(r, "slide", 0, 0, max(len(important)-1, 0)))
	slides := make([]model.NewsItem, 0, carouselWindow)
	for _, i := range c.Visible() {
		slides = append(slides, important[i])
	}

	posts := h.Actions.ListPublishedBlogs(ctx, homeLatestPosts, 0)
	if !posts.Success {
		h.failure(w, r, posts.Err)
		return
	}

	h.page(w, r, http.StatusOK, "pages/home", render.TemplateData{
		Title: i18n.T(lang, "page.home"),
		Data:  HomePage{Carousel: c, Slides: slides, Posts: posts.Data.Posts},
	})
}

// DashboardPage is the data of pages/dashboard.
type DashboardPage struct {
	Profile model.Profile
	News    []model.NewsItem
	Posts   []model.BlogPost
}

// Dashboard renders the member home.
func (h *PagesHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	u, ok := h.Guard.GatePage(w, r, dal.PageAuth{RequireAuth: true, RequiredCapability: dal.CapDashboardView})
	if !ok {
		return
	}
	ctx := r.Context()
	lang := i18n.FromContext(ctx)

	profile := h.Actions.CurrentProfile(ctx)
	if !profile.Success {
		h.failure(w, r, profile.Err)
		return
	}
	items := h.Deps.News.List(ctx, news.Query{Category: model.NewsCategoryAll, Sort: news.SortNewest})
	if !items.Success {
		h.failure(w, r, items.Err)
		return
	}
	posts := h.Actions.ListPublishedBlogs(ctx, homeLatestPosts, 0)
	if !posts.Success {
		h.failure(w, r, posts.Err)
		return
	}

	latest := items.Data
	if len(latest) > 5 {
		latest = latest[:5]
	}
	h.page(w, r, http.StatusOK, "pages/dashboard", render.TemplateData{
		Title: i18n.T(lang, "page.dashboard"),
		User:  u,
		Data:  DashboardPage{Profile: profile.Data, News: latest, Posts: posts.Data.Posts},
	})
}

// NewsPage is the data of pages/news.
type NewsPage struct {
	Query   news.Query
	Items   []model.NewsItem
	Options []news.CategoryOption
	Premium bool
}

// News renders the filtered news list.
func (h *PagesHandler) News(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lang := i18n.FromContext(ctx)
	q := news.ParseQuery(r.URL.Query())

	all := h.Deps.News.All(ctx)
	if !all.Success {
		h.failure(w, r, all.Err)
		return
	}

	h.page(w, r, http.StatusOK, "pages/news", render.TemplateData{
		Title: i18n.T(lang, "page.news"),
		Data: NewsPage{
			Query:   q,
			Items:   news.Apply(all.Data, q),
			Options: news.FilterOptions(news.Counts(all.Data), q.Category),
			Premium: h.Guard.Can(h.caller(r), dal.CapPremiumRead),
		},
	})
}

// UniversitiesPage is the data of pages/universities.
type UniversitiesPage struct {
	university.Page
	CardURL  string
	TableURL string
	SortKeys []string
	Controls []string
}

// Universities renders the university search.
func (h *PagesHandler) Universities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lang := i18n.FromContext(ctx)
	s := university.ParseSearch(r.URL.Query())

	res := university.Run(ctx, h.Store, s, RouteUniversities)
	if !res.Success {
		h.failure(w, r, res.Err)
		return
	}

	h.page(w, r, http.StatusOK, "pages/universities", render.TemplateData{
		Title: i18n.T(lang, "page.universities"),
		Data: UniversitiesPage{
			Page:     res.Data,
			CardURL:  withQuery(RouteUniversities, res.Data.Search.WithView(university.ViewCard).Values().Encode()),
			TableURL: withQuery(RouteUniversities, res.Data.Search.WithView(university.ViewTable).Values().Encode()),
			SortKeys: university.SortKeys,
			Controls: university.Controls,
		},
	})
}

func withQuery(path, query string) string {
	if query == "" {
		return path
	}
	return path + "?" + query
}

// BlogListPage is the data of pages/blog_list.
type BlogListPage struct {
	Posts      []model.BlogPost
	Pagination uikit.Pagination
}

// BlogList renders the published posts.
func (h *PagesHandler) BlogList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lang := i18n.FromContext(ctx)
	page := uikit.ParsePageParam(r)

	res := h.Actions.ListPublishedBlogs(ctx, blogPerPage, uikit.PageOffset(page, blogPerPage))
	if !res.Success {
		h.failure(w, r, res.Err)
		return
	}

	h.page(w, r, http.StatusOK, "pages/blog_list", render.TemplateData{
		Title: i18n.T(lang, "page.blog"),
		Data: BlogListPage{
			Posts:      res.Data.Posts,
			Pagination: uikit.BuildPagination(page, int(res.Data.Total), blogPerPage, RouteBlog, nil),
		},
	})
}

// BlogPostPage is the data of pages/blog_post.
type BlogPostPage struct {
	action.PostView
	Body template.HTML
}

// BlogPost renders one post. Premium posts show an excerpt to callers
// without premium access.
func (h *PagesHandler) BlogPost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res := h.Actions.ReadPost(ctx, chi.URLParam(r, "slug"))
	if res.Is(dal.KindValidation) {
		h.notFound(w, r)
		return
	}
	if !res.Success {
		h.failure(w, r, res.Err)
		return
	}

	body, err := h.md.Render(res.Data.Post.Content)
	if err != nil {
		logAndInternalError(w, "failed to render post body", "slug", res.Data.Post.Slug, "error", err)
		return
	}

	h.page(w, r, http.StatusOK, "pages/blog_post", render.TemplateData{
		Title: res.Data.Post.Title,
		Data:  BlogPostPage{PostView: res.Data, Body: body},
	})
}
