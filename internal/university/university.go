// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package university parses university search requests and runs them
// against the store.
package university

import (
	"context"
	"database/sql"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/olegiv/eduportal/internal/dal"
	"github.com/olegiv/eduportal/internal/model"
	"github.com/olegiv/eduportal/internal/store"
	"github.com/olegiv/eduportal/internal/uikit"
)

// View selects the result layout.
type View string

// Result layouts.
const (
	ViewCard  View = "card"
	ViewTable View = "table"
)

// Sort keys accepted in the sort parameter.
var SortKeys = []string{"name", "acceptance", "tuition", "retention", "size"}

// Controls accepted in the control parameter.
var Controls = []string{model.ControlPublic, model.ControlPrivate, model.ControlProprietary}

// DefaultPerPage is the page size when per_page is absent.
const DefaultPerPage = 12

// MaxPerPage bounds per_page.
const MaxPerPage = 100

// Search is a parsed search request. Acceptance bounds are percentages.
type Search struct {
	Query         string
	Control       string
	MinAcceptance *float64
	MaxAcceptance *float64
	Sort          string
	Desc          bool
	View          View
	Page          int
	PerPage       int
}

// ParseSearch reads a search request from query parameters. Invalid values
// are dropped rather than rejected.
func ParseSearch(v url.Values) Search {
	s := Search{
		Query:   strings.TrimSpace(v.Get("q")),
		Sort:    "name",
		View:    ViewCard,
		Page:    1,
		PerPage: DefaultPerPage,
	}
	if c := v.Get("control"); contains(Controls, c) {
		s.Control = c
	}
	s.MinAcceptance = parsePercent(v.Get("min_acceptance"))
	s.MaxAcceptance = parsePercent(v.Get("max_acceptance"))
	if s.MinAcceptance != nil && s.MaxAcceptance != nil && *s.MinAcceptance > *s.MaxAcceptance {
		s.MinAcceptance, s.MaxAcceptance = s.MaxAcceptance, s.MinAcceptance
	}
	if k := v.Get("sort"); contains(SortKeys, k) {
		s.Sort = k
	}
	s.Desc = v.Get("order") == "desc"
	if View(v.Get("view")) == ViewTable {
		s.View = ViewTable
	}
	if p, err := strconv.Atoi(v.Get("page")); err == nil && p > 0 {
		s.Page = min(p, uikit.MaxPage)
	}
	if n, err := strconv.Atoi(v.Get("per_page")); err == nil && n > 0 && n <= MaxPerPage {
		s.PerPage = n
	}
	return s
}

func parsePercent(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > 100 {
		return nil
	}
	return &f
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Values encodes s for pagination and view-toggle links, omitting page.
func (s Search) Values() url.Values {
	v := url.Values{}
	if s.Query != "" {
		v.Set("q", s.Query)
	}
	if s.Control != "" {
		v.Set("control", s.Control)
	}
	if s.MinAcceptance != nil {
		v.Set("min_acceptance", strconv.FormatFloat(*s.MinAcceptance, 'f', -1, 64))
	}
	if s.MaxAcceptance != nil {
		v.Set("max_acceptance", strconv.FormatFloat(*s.MaxAcceptance, 'f', -1, 64))
	}
	if s.Sort != "" && s.Sort != "name" {
		v.Set("sort", s.Sort)
	}
	if s.Desc {
		v.Set("order", "desc")
	}
	if s.View == ViewTable {
		v.Set("view", string(ViewTable))
	}
	if s.PerPage != DefaultPerPage {
		v.Set("per_page", strconv.Itoa(s.PerPage))
	}
	return v
}

// WithView returns a copy of s using view.
func (s Search) WithView(view View) Search {
	s.View = view
	return s
}

// Filter converts s to a store filter.
func (s Search) Filter() store.UniversityFilter {
	f := store.UniversityFilter{
		Query:   s.Query,
		Control: s.Control,
		Sort:    s.Sort,
		Desc:    s.Desc,
		Limit:   s.PerPage,
		Offset:  uikit.PageOffset(s.Page, s.PerPage),
	}
	if s.MinAcceptance != nil {
		f.MinAcceptance = sql.NullFloat64{Float64: *s.MinAcceptance, Valid: true}
	}
	if s.MaxAcceptance != nil {
		f.MaxAcceptance = sql.NullFloat64{Float64: *s.MaxAcceptance, Valid: true}
	}
	return f
}

// Searcher runs a university query.
type Searcher interface {
	SearchUniversities(ctx context.Context, f store.UniversityFilter) ([]model.University, int64, error)
}

// Page is one page of results.
type Page struct {
	Search     Search
	Items      []model.University
	Total      int64
	Pagination uikit.Pagination
}

type found struct {
	items []model.University
	total int64
}

// Run executes s. A page past the end is clamped to the last page.
func Run(ctx context.Context, db Searcher, s Search, basePath string) dal.Result[Page] {
	res := dal.DbOperation(ctx, func(ctx context.Context) (found, error) {
		items, total, err := db.SearchUniversities(ctx, s.Filter())
		return found{items, total}, err
	})
	if !res.Success {
		return dal.Forward[Page](res)
	}

	if len(res.Data.items) == 0 && res.Data.total > 0 && s.Page > 1 {
		last, _ := uikit.NormalizePagination(s.Page, int(res.Data.total), s.PerPage)
		if last != s.Page {
			s.Page = last
			return Run(ctx, db, s, basePath)
		}
	}

	return dal.Ok(Page{
		Search:     s,
		Items:      res.Data.items,
		Total:      res.Data.total,
		Pagination: uikit.BuildPagination(s.Page, int(res.Data.total), s.PerPage, basePath, s.Values()),
	})
}
