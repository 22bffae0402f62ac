// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/olegiv/eduportal/internal/i18n"
	"github.com/olegiv/eduportal/internal/seo"
)

// sitemapPostLimit bounds the posts listed in the sitemap.
const sitemapPostLimit = 5000

// SEOHandler serves /sitemap.xml and /robots.txt.
type SEOHandler struct {
	base
}

// NewSEOHandler creates a new SEOHandler.
func NewSEOHandler(d Deps) *SEOHandler {
	return &SEOHandler{base: newBase(d)}
}

// Sitemap lists the public sections and every published post.
func (h *SEOHandler) Sitemap(w http.ResponseWriter, r *http.Request) {
	posts, err := h.Store.ListPublishedBlogs(r.Context(), sitemapPostLimit, 0)
	if err != nil {
		logAndInternalError(w, "failed to list posts for sitemap", "error", err)
		return
	}

	b := seo.NewSitemapBuilder(h.SiteURL, i18n.SupportedLanguages...)
	b.AddHomepage()
	b.AddSection(RouteNews, seo.ChangeFreqDaily, "0.8")
	b.AddSection(RouteUniversities, seo.ChangeFreqWeekly, "0.7")
	b.AddSection(RouteBlog, seo.ChangeFreqDaily, "0.8")
	for _, p := range posts {
		b.AddPost(seo.SitemapPost{Slug: p.Slug, UpdatedAt: p.UpdatedAt})
	}

	out, err := b.Build()
	if err != nil {
		logAndInternalError(w, "failed to build sitemap", "error", err)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(out)
}

// Robots serves robots.txt. Non-production deployments disallow crawling.
func (h *SEOHandler) Robots(w http.ResponseWriter, _ *http.Request) {
	body := seo.NewRobotsBuilder(seo.RobotsConfig{
		SiteURL:     h.SiteURL,
		DisallowAll: !h.Production,
	}).Build()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(body))
}
