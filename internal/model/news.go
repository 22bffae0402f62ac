// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// News categories.
const (
	NewsCategoryAll     = "all"
	NewsCategoryLife    = "life"
	NewsCategoryCareer  = "career"
	NewsCategoryCollege = "college"
	NewsCategoryEtc     = "etc"
)

// NewsCategories lists the concrete categories in display order.
var NewsCategories = []string{NewsCategoryLife, NewsCategoryCareer, NewsCategoryCollege, NewsCategoryEtc}

// NewsItem is a curated external article.
type NewsItem struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Href        string    `json:"href"`
	ImageURL    string    `json:"image_url"`
	Category    string    `json:"category"`
	IsImportant bool      `json:"is_important"`
	IsPremium   bool      `json:"is_premium"`
	PublishedAt time.Time `json:"published_at"`
}
