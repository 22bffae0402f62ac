// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package uikit

import (
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestBuildPagination(t *testing.T) {
	q := url.Values{"q": {"state"}, "page": {"3"}, "control": {""}}
	p := BuildPagination(3, 95, 10, "/universities", q)

	if p.TotalPages != 10 || p.CurrentPage != 3 {
		t.Fatalf("pages = %d current = %d", p.TotalPages, p.CurrentPage)
	}
	if !p.HasPrev || !p.HasNext {
		t.Error("expected prev and next")
	}
	if got := p.NextURL(); got != "/universities?q=state&page=4" {
		t.Errorf("NextURL() = %q", got)
	}
	if got := p.Offset(); got != 20 {
		t.Errorf("Offset() = %d, want 20", got)
	}
	if got := p.PageRange(); got != "21-30" {
		t.Errorf("PageRange() = %q", got)
	}

	// 1 2 3 4 5 ... 10
	if n := len(p.Pages); n != 7 {
		t.Fatalf("len(Pages) = %d, want 7", n)
	}
	if !p.Pages[5].IsEllipsis || p.Pages[6].Number != 10 {
		t.Errorf("unexpected tail: %+v", p.Pages[5:])
	}
}

func TestBuildPagination_Clamps(t *testing.T) {
	p := BuildPagination(99, 5, 10, "/news", nil)
	if p.CurrentPage != 1 || p.TotalPages != 1 || p.ShouldShow() {
		t.Errorf("unexpected pagination: %+v", p)
	}

	empty := BuildPagination(1, 0, 10, "/news", nil)
	if empty.PageRange() != "0" {
		t.Errorf("PageRange() = %q", empty.PageRange())
	}
}

func TestParseIntParam(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 1},
		{"page=4", 4},
		{"page=0", 1},
		{"page=-2", 1},
		{"page=abc", 1},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/x?"+tt.query, nil)
		if got := ParsePageParam(r); got != tt.want {
			t.Errorf("ParsePageParam(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}

	r := httptest.NewRequest("GET", "/x?slide=9", nil)
	if got := ParseIntParam(r, "slide", 0, 0, 4); got != 0 {
		t.Errorf("ParseIntParam over max = %d, want default 0", got)
	}
}

func TestPageOffset(t *testing.T) {
	tests := []struct {
		page, perPage, want int
	}{
		{1, 10, 0},
		{3, 10, 20},
		{0, 10, 0},
		{-5, 10, 0},
		{MaxPage + 1, 10, (MaxPage - 1) * 10},
		{int(^uint(0) >> 1), 100, (MaxPage - 1) * 100},
	}
	for _, tt := range tests {
		if got := PageOffset(tt.page, tt.perPage); got != tt.want {
			t.Errorf("PageOffset(%d, %d) = %d, want %d", tt.page, tt.perPage, got, tt.want)
		}
	}

	r := httptest.NewRequest("GET", "/blog?page=922337203685477580", nil)
	if got := ParsePageParam(r); got != MaxPage {
		t.Errorf("ParsePageParam(huge) = %d, want %d", got, MaxPage)
	}
}
