// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple title",
			input:    "Hello World",
			expected: "hello-world",
		},
		{
			name:     "with special characters",
			input:    "Hello, World!",
			expected: "hello-world",
		},
		{
			name:     "with numbers",
			input:    "Page 123",
			expected: "page-123",
		},
		{
			name:     "with accents",
			input:    "Café résumé",
			expected: "cafe-resume",
		},
		{
			name:     "with multiple spaces",
			input:    "Hello   World",
			expected: "hello-world",
		},
		{
			name:     "with hyphens",
			input:    "Hello - World",
			expected: "hello-world",
		},
		{
			name:     "with leading/trailing spaces",
			input:    "  Hello World  ",
			expected: "hello-world",
		},
		{
			name:     "all special characters",
			input:    "!@#$%^&*()",
			expected: "",
		},
		{
			name:     "german umlauts",
			input:    "Über München",
			expected: "uber-munchen",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "single word",
			input:    "Hello",
			expected: "hello",
		},
		{
			name:     "mixed case",
			input:    "HeLLo WoRLd",
			expected: "hello-world",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Slugify(tt.input)
			if result != tt.expected {
				t.Errorf("Slugify(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestIsValidSlug(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{
			name:     "valid simple slug",
			input:    "hello-world",
			expected: true,
		},
		{
			name:     "valid slug with numbers",
			input:    "page-123",
			expected: true,
		},
		{
			name:     "valid single word",
			input:    "hello",
			expected: true,
		},
		{
			name:     "valid numbers only",
			input:    "123",
			expected: true,
		},
		{
			name:     "invalid - empty",
			input:    "",
			expected: false,
		},
		{
			name:     "invalid - uppercase",
			input:    "Hello-World",
			expected: false,
		},
		{
			name:     "invalid - spaces",
			input:    "hello world",
			expected: false,
		},
		{
			name:     "invalid - special chars",
			input:    "hello!world",
			expected: false,
		},
		{
			name:     "invalid - starts with hyphen",
			input:    "-hello",
			expected: false,
		},
		{
			name:     "invalid - ends with hyphen",
			input:    "hello-",
			expected: false,
		},
		{
			name:     "invalid - consecutive hyphens",
			input:    "hello--world",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValidSlug(tt.input)
			if result != tt.expected {
				t.Errorf("IsValidSlug(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSlugify_Transliterates(t *testing.T) {
	for _, in := range []string{"대학 입시 가이드", "2026 수시 전략", "日本語タイトル"} {
		got := Slugify(in)
		if got == "" || !IsValidSlug(got) {
			t.Errorf("Slugify(%q) = %q, want a non-empty valid slug", in, got)
		}
	}
	if got := Slugify("서울 Guide"); !strings.HasSuffix(got, "-guide") {
		t.Errorf("Slugify mixed = %q, want suffix -guide", got)
	}
}

func TestSlugify_Length(t *testing.T) {
	got := Slugify(strings.Repeat("ab ", 100))
	if len(got) > MaxSlugLength || !IsValidSlug(got) {
		t.Errorf("Slugify(long) = %q (len %d)", got, len(got))
	}
}

func TestUniqueSlug(t *testing.T) {
	taken := map[string]bool{"hello": true, "hello-2": true}
	exists := func(_ context.Context, s string) (bool, error) { return taken[s], nil }

	got, err := UniqueSlug(context.Background(), "hello", "post", exists)
	if err != nil || got != "hello-3" {
		t.Errorf("UniqueSlug(hello) = %q, %v; want hello-3", got, err)
	}

	got, err = UniqueSlug(context.Background(), "", "post", exists)
	if err != nil || got != "post" {
		t.Errorf("UniqueSlug(empty) = %q, %v; want post", got, err)
	}

	boom := errors.New("db down")
	_, err = UniqueSlug(context.Background(), "x", "post", func(context.Context, string) (bool, error) { return false, boom })
	if !errors.Is(err, boom) {
		t.Errorf("UniqueSlug error = %v, want %v", err, boom)
	}
}
