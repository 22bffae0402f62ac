// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// BlogPost is a blog metadata row. Content lives in a separate row keyed
// by the same ID and is only populated by reads that join it.
type BlogPost struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	ImageURL    string    `json:"image_url"`
	IsPublished bool      `json:"is_published"`
	IsPremium   bool      `json:"is_premium"`
	AuthorID    string    `json:"author_id,omitempty"`
	Content     string    `json:"content,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BlogFlags is a partial update of the publication flags.
// Nil fields are left unchanged.
type BlogFlags struct {
	IsPublished *bool `json:"is_published,omitempty"`
	IsPremium   *bool `json:"is_premium,omitempty"`
}

// Empty reports whether no flag is set.
func (f BlogFlags) Empty() bool {
	return f.IsPublished == nil && f.IsPremium == nil
}
