// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package uikit

import (
	"net/http"
	"net/url"
	"strconv"
)

// pageWindow is how many numbered links surround the current page.
const pageWindow = 5

// MaxPage bounds requested page numbers so row offsets stay small.
const MaxPage = 10000

// Pagination is the template data of the "pagination" partial.
type Pagination struct {
	CurrentPage int
	TotalPages  int
	TotalItems  int
	PerPage     int
	HasPrev     bool
	HasNext     bool
	Pages       []PageLink
	BaseURL     string
	// QueryString carries the list filters, without page.
	QueryString string
}

// PageLink is one numbered link or a gap.
type PageLink struct {
	Number     int
	URL        string
	IsCurrent  bool
	IsEllipsis bool
}

// BuildPagination creates the pager for a list of totalItems rows. filters
// are kept on every page link; empty values and "page" are dropped.
func BuildPagination(currentPage, totalItems, perPage int, baseURL string, filters url.Values) Pagination {
	currentPage, totalPages := NormalizePagination(currentPage, totalItems, perPage)
	p := Pagination{
		CurrentPage: currentPage,
		TotalPages:  totalPages,
		TotalItems:  totalItems,
		PerPage:     perPage,
		HasPrev:     currentPage > 1,
		HasNext:     currentPage < totalPages,
		BaseURL:     baseURL,
	}

	kept := make(url.Values)
	for k, v := range filters {
		if k != "page" && len(v) > 0 && v[0] != "" {
			kept[k] = v
		}
	}
	p.QueryString = kept.Encode()

	start := max(currentPage-pageWindow/2, 1)
	end := min(start+pageWindow-1, totalPages)
	start = max(end-pageWindow+1, 1)

	if start > 1 {
		p.Pages = append(p.Pages, p.link(1))
		if start > 2 {
			p.Pages = append(p.Pages, PageLink{IsEllipsis: true})
		}
	}
	for i := start; i <= end; i++ {
		p.Pages = append(p.Pages, p.link(i))
	}
	if end < totalPages {
		if end < totalPages-1 {
			p.Pages = append(p.Pages, PageLink{IsEllipsis: true})
		}
		p.Pages = append(p.Pages, p.link(totalPages))
	}
	return p
}

func (p Pagination) link(n int) PageLink {
	return PageLink{Number: n, URL: p.PageURL(n), IsCurrent: n == p.CurrentPage}
}

// PageURL returns the link to page n with the filters kept.
func (p Pagination) PageURL(n int) string {
	page := "page=" + strconv.Itoa(n)
	if p.QueryString != "" {
		return p.BaseURL + "?" + p.QueryString + "&" + page
	}
	return p.BaseURL + "?" + page
}

func (p Pagination) PrevURL() string { return p.PageURL(p.CurrentPage - 1) }

func (p Pagination) NextURL() string { return p.PageURL(p.CurrentPage + 1) }

// ShouldShow reports whether there is more than one page.
func (p Pagination) ShouldShow() bool {
	return p.TotalPages > 1
}

// PageRange describes the rows on the current page, e.g. "21-30".
func (p Pagination) PageRange() string {
	if p.TotalItems == 0 {
		return "0"
	}
	start := p.Offset() + 1
	end := min(p.CurrentPage*p.PerPage, p.TotalItems)
	return strconv.Itoa(start) + "-" + strconv.Itoa(end)
}

// Offset returns the row offset of the current page.
func (p Pagination) Offset() int {
	return PageOffset(p.CurrentPage, p.PerPage)
}

// PageOffset returns the row offset of page, with page clamped into
// [1, MaxPage].
func PageOffset(page, perPage int) int {
	return (min(max(page, 1), MaxPage) - 1) * perPage
}

// NormalizePagination clamps page into [1, totalPages]. There is always at
// least one page.
func NormalizePagination(page, totalItems, perPage int) (normalizedPage, totalPages int) {
	totalPages = 1
	if perPage > 0 && totalItems > perPage {
		totalPages = (totalItems + perPage - 1) / perPage
	}
	return min(max(page, 1), totalPages), totalPages
}

// ParsePageParam reads the "page" query parameter, 1 when absent or invalid.
// Pages above MaxPage are clamped to it.
func ParsePageParam(r *http.Request) int {
	return min(ParseIntParam(r, "page", 1, 1, 0), MaxPage)
}

// ParseIntParam reads an integer query parameter. Missing, malformed and
// out-of-range values yield defaultVal; a zero bound is not checked.
func ParseIntParam(r *http.Request, param string, defaultVal, minVal, maxVal int) int {
	val, err := strconv.Atoi(r.URL.Query().Get(param))
	if err != nil {
		return defaultVal
	}
	if minVal > 0 && val < minVal {
		return defaultVal
	}
	if maxVal > 0 && val > maxVal {
		return defaultVal
	}
	return val
}
