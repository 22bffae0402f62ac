// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package uikit

import (
	"html/template"
	"testing"
	"time"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello world", 5, "hello..."},
		{"대학 입시 뉴스", 2, "대학..."},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := map[int64]string{
		0:        "0",
		999:      "999",
		1000:     "1,000",
		45123:    "45,123",
		1234567:  "1,234,567",
		-1234567: "-1,234,567",
	}
	for in, want := range tests {
		if got := FormatNumber(in); got != want {
			t.Errorf("FormatNumber(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestTemplateFuncs_SafeURL(t *testing.T) {
	safeURL := TemplateFuncs()["safeURL"].(func(string) template.URL)

	for in, want := range map[string]template.URL{
		"/blog/a":                       "/blog/a",
		"https://images.unsplash.com/x": "https://images.unsplash.com/x",
		"javascript:alert(1)":           "",
		"data:text/html,hi":             "",
	} {
		if got := safeURL(in); got != want {
			t.Errorf("safeURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTemplateFuncs_Percent(t *testing.T) {
	percent := TemplateFuncs()["percent"].(func(float64) string)
	if got := percent(5.23); got != "5.2%" {
		t.Errorf("percent(5.23) = %q", got)
	}
}

func TestTemplateFuncs_Dict(t *testing.T) {
	dict := TemplateFuncs()["dict"].(func(...any) map[string]any)

	d := dict("a", 1, "b", "two")
	if d["a"] != 1 || d["b"] != "two" {
		t.Errorf("dict() = %v", d)
	}
	if dict("odd") != nil {
		t.Error("dict() with odd args should be nil")
	}
}

func TestFormatDateForLocale(t *testing.T) {
	ts := time.Date(2025, 3, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		lang string
		date string
		dt   string
	}{
		{"ko", "2025년 3월 15일", "2025년 3월 15일 14:30"},
		{"en", "Mar 15, 2025", "Mar 15, 2025 2:30 PM"},
	}
	for _, tt := range tests {
		if got := FormatDateForLocale(ts, tt.lang); got != tt.date {
			t.Errorf("FormatDateForLocale(%s) = %q, want %q", tt.lang, got, tt.date)
		}
		if got := FormatDateTimeForLocale(ts, tt.lang); got != tt.dt {
			t.Errorf("FormatDateTimeForLocale(%s) = %q, want %q", tt.lang, got, tt.dt)
		}
	}
}

func TestApplyTimeFormatter(t *testing.T) {
	ts := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	var nilTime *time.Time

	if got := ApplyTimeFormatter(ts, "en", FormatDateForLocale); got != "Mar 15, 2025" {
		t.Errorf("value = %q", got)
	}
	if got := ApplyTimeFormatter(&ts, "ko", FormatDateForLocale); got != "2025년 3월 15일" {
		t.Errorf("pointer = %q", got)
	}
	if got := ApplyTimeFormatter(nilTime, "en", FormatDateForLocale); got != "" {
		t.Errorf("nil pointer = %q", got)
	}
	if got := ApplyTimeFormatter("2025-03-15", "en", FormatDateForLocale); got != "" {
		t.Errorf("string = %q", got)
	}
}
