// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package news filters, searches and sorts the trending news list and
// drives the news carousel.
package news

import (
	"net/url"
	"slices"
	"strings"

	"github.com/olegiv/eduportal/internal/model"
)

// Sort orders news by publication date.
type Sort string

// Sort orders.
const (
	SortNewest Sort = "newest"
	SortOldest Sort = "oldest"
)

// Query is a parsed news list request.
type Query struct {
	Category string
	Search   string
	Sort     Sort
}

// ParseQuery reads category, q and sort from v. Unknown values fall back to
// all categories and newest first.
func ParseQuery(v url.Values) Query {
	q := Query{
		Category: model.NewsCategoryAll,
		Search:   strings.TrimSpace(v.Get("q")),
		Sort:     SortNewest,
	}
	if c := v.Get("category"); slices.Contains(model.NewsCategories, c) {
		q.Category = c
	}
	if Sort(v.Get("sort")) == SortOldest {
		q.Sort = SortOldest
	}
	return q
}

// Values encodes q for links, omitting defaults.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Category != "" && q.Category != model.NewsCategoryAll {
		v.Set("category", q.Category)
	}
	if q.Search != "" {
		v.Set("q", q.Search)
	}
	if q.Sort == SortOldest {
		v.Set("sort", string(q.Sort))
	}
	return v
}

// ByCategory returns the items in category. "all" and "" return every item.
func ByCategory(items []model.NewsItem, category string) []model.NewsItem {
	if category == "" || category == model.NewsCategoryAll {
		return items
	}
	var out []model.NewsItem
	for _, it := range items {
		if it.Category == category {
			out = append(out, it)
		}
	}
	return out
}

// Search returns items whose title or description contains query,
// ignoring case. An empty query matches everything.
func Search(items []model.NewsItem, query string) []model.NewsItem {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return items
	}
	var out []model.NewsItem
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Title), query) ||
			strings.Contains(strings.ToLower(it.Description), query) {
			out = append(out, it)
		}
	}
	return out
}

// SortByDate returns a sorted copy of items. Equal dates keep their order.
func SortByDate(items []model.NewsItem, order Sort) []model.NewsItem {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b model.NewsItem) int {
		if order == SortOldest {
			return a.PublishedAt.Compare(b.PublishedAt)
		}
		return b.PublishedAt.Compare(a.PublishedAt)
	})
	return out
}

// Counts returns the number of items per category plus the "all" total.
func Counts(items []model.NewsItem) map[string]int {
	counts := map[string]int{model.NewsCategoryAll: len(items)}
	for _, it := range items {
		counts[it.Category]++
	}
	return counts
}

// Apply filters, searches and sorts items.
func Apply(items []model.NewsItem, q Query) []model.NewsItem {
	return SortByDate(Search(ByCategory(items, q.Category), q.Search), q.Sort)
}

// CategoryOption is one filter tab.
type CategoryOption struct {
	Value    string
	LabelKey string
	Count    int
	Selected bool
}

// FilterOptions returns the "all" tab followed by each category.
func FilterOptions(counts map[string]int, selected string) []CategoryOption {
	values := append([]string{model.NewsCategoryAll}, model.NewsCategories...)
	out := make([]CategoryOption, 0, len(values))
	for _, v := range values {
		out = append(out, CategoryOption{
			Value:    v,
			LabelKey: "news.category." + v,
			Count:    counts[v],
			Selected: v == selected,
		})
	}
	return out
}
