// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"

	"github.com/olegiv/eduportal/internal/model"
)

const newsColumns = `id, title, description, href, image_url, category, is_important, is_premium, published_at`

// CreateNewsItem inserts a news item and returns it with its id.
func (q *Queries) CreateNewsItem(ctx context.Context, n model.NewsItem) (model.NewsItem, error) {
	err := q.queryRow(ctx, `INSERT INTO news_items (title, description, href, image_url, category, is_important, is_premium, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		n.Title, n.Description, n.Href, n.ImageURL, n.Category, n.IsImportant, n.IsPremium, n.PublishedAt).Scan(&n.ID)
	if err != nil {
		return model.NewsItem{}, wrapErr("creating news item", err)
	}
	return n, nil
}

// ListNewsItems returns all news items, newest first. Filtering and
// searching happen in memory on the cached list.
func (q *Queries) ListNewsItems(ctx context.Context) ([]model.NewsItem, error) {
	rows, err := q.query(ctx, `SELECT `+newsColumns+` FROM news_items ORDER BY published_at DESC, id DESC`)
	if err != nil {
		return nil, wrapErr("listing news", err)
	}
	defer func() { _ = rows.Close() }()

	var items []model.NewsItem
	for rows.Next() {
		var n model.NewsItem
		if err := rows.Scan(&n.ID, &n.Title, &n.Description, &n.Href, &n.ImageURL, &n.Category,
			&n.IsImportant, &n.IsPremium, &n.PublishedAt); err != nil {
			return nil, fmt.Errorf("scanning news item: %w", err)
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

// CountNewsItems returns the number of stored news items.
func (q *Queries) CountNewsItems(ctx context.Context) (int64, error) {
	var n int64
	if err := q.queryRow(ctx, `SELECT COUNT(*) FROM news_items`).Scan(&n); err != nil {
		return 0, wrapErr("counting news", err)
	}
	return n, nil
}
