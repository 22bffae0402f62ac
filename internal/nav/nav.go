// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package nav builds the sidebar, breadcrumbs and profile button for the
// current caller.
package nav

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/olegiv/eduportal/internal/cache"
	"github.com/olegiv/eduportal/internal/dal"
	"github.com/olegiv/eduportal/internal/i18n"
	"github.com/olegiv/eduportal/internal/identity"
	"github.com/olegiv/eduportal/internal/uikit"
)

// Link is a rendered navigation entry.
type Link struct {
	Label    string `json:"label"`
	URL      string `json:"url"`
	Icon     string `json:"icon,omitempty"`
	Active   bool   `json:"-"`
	Children []Link `json:"children,omitempty"`
}

// Profile is the signed-in caller's profile button.
type Profile struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Role        string `json:"role"`
}

// Menu is the navigation of one caller in one language.
type Menu struct {
	Links   []Link   `json:"links"`
	Profile *Profile `json:"profile,omitempty"`
}

// Builder renders menus from a route table.
type Builder struct {
	routes []Route
	index  map[string]Route
	policy dal.Policy
	menus  *cache.Typed[Menu]
	logger *slog.Logger
}

// NewBuilder creates a Builder. c may be nil to disable caching.
func NewBuilder(routes []Route, policy dal.Policy, c cache.Cacher, ttl time.Duration, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Builder{
		routes: routes,
		index:  make(map[string]Route),
		policy: policy,
		logger: logger,
	}
	if c != nil {
		b.menus = cache.NewTyped[Menu](c, cache.NamespaceNav, ttl)
	}
	var walk func([]Route)
	walk = func(rs []Route) {
		for _, r := range rs {
			b.index[r.Path] = r
			walk(r.Children)
		}
	}
	walk(routes)
	return b
}

// Menu returns the caller's menu with the entry for currentPath marked
// active. Menus are cached per user and language.
func (b *Builder) Menu(ctx context.Context, u *dal.User, lang, currentPath string) Menu {
	userID := ""
	if u != nil {
		userID = u.ID
	}
	key := cache.NavKey(userID, lang)

	var m Menu
	if b.menus != nil {
		var err error
		m, err = b.menus.GetOrLoad(ctx, key, func(context.Context) (Menu, error) {
			return b.build(u, lang), nil
		})
		if err != nil {
			m = b.build(u, lang)
		}
	} else {
		m = b.build(u, lang)
	}

	m.Links = markActive(m.Links, currentPath)
	return m
}

func (b *Builder) build(u *dal.User, lang string) Menu {
	m := Menu{Links: b.links(b.routes, u, lang)}
	if u != nil {
		m.Profile = &Profile{
			DisplayName: u.DisplayName,
			Email:       u.Email,
			AvatarURL:   u.AvatarURL,
			Role:        u.Role,
		}
	}
	return m
}

func (b *Builder) visible(r Route, u *dal.User) bool {
	if r.AnonymousOnly {
		return u == nil
	}
	if r.Capability == "" {
		return true
	}
	return u != nil && b.policy.Allows(u.Role, r.Capability)
}

func (b *Builder) links(rs []Route, u *dal.User, lang string) []Link {
	var out []Link
	for _, r := range rs {
		if !r.Sidebar || !b.visible(r, u) {
			continue
		}
		out = append(out, Link{
			Label:    i18n.T(lang, r.Label),
			URL:      r.Path,
			Icon:     r.Icon,
			Children: b.links(r.Children, u, lang),
		})
	}
	return out
}

// markActive copies links, flagging the deepest entry whose URL prefixes
// path and every ancestor of it.
func markActive(links []Link, path string) []Link {
	if len(links) == 0 {
		return links
	}
	out := make([]Link, len(links))
	best := -1
	for i, l := range links {
		out[i] = l
		out[i].Children = markActive(l.Children, path)
		if matches(l.URL, path) && (best < 0 || len(l.URL) > len(out[best].URL)) {
			best = i
		}
	}
	if best >= 0 {
		out[best].Active = true
	}
	return out
}

func matches(url, path string) bool {
	if url == "/" {
		return path == "/"
	}
	return path == url || strings.HasPrefix(path, url+"/")
}

// Breadcrumbs returns the trail from home to path. Path segments without a
// route, such as record ids, are skipped.
func (b *Builder) Breadcrumbs(lang, path string) []uikit.Breadcrumb {
	crumbs := []uikit.Breadcrumb{{Label: i18n.T(lang, "nav.home"), URL: "/"}}

	segments := strings.Split(strings.Trim(path, "/"), "/")
	prefix := ""
	for _, seg := range segments {
		if seg == "" {
			continue
		}
		prefix += "/" + seg
		if r, ok := b.index[prefix]; ok {
			crumbs = append(crumbs, uikit.Breadcrumb{Label: i18n.T(lang, r.Label), URL: r.Path})
		}
	}
	crumbs[len(crumbs)-1].Active = true
	return crumbs
}

// Invalidate drops the cached menus of userID.
func (b *Builder) Invalidate(ctx context.Context, userID string) error {
	if b.menus == nil || userID == "" {
		return nil
	}
	return b.menus.DeletePrefix(ctx, userID+":")
}

// Subscribe drops a user's cached menus whenever their identity changes.
func (b *Builder) Subscribe(hub *identity.Hub) {
	hub.Subscribe("nav", 20, func(ctx context.Context, e identity.Event) error {
		switch e.Kind {
		case identity.SignedIn, identity.SignedOut, identity.ProfileUpdated,
			identity.RoleChanged, identity.UserDeleted:
			return b.Invalidate(ctx, e.UserID)
		}
		return nil
	})
}
