// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/olegiv/eduportal/internal/model"
)

const blogColumns = `b.id, b.title, b.slug, b.image_url, b.is_published, b.is_premium, COALESCE(b.author_id, ''), b.created_at, b.updated_at`

func scanBlog(row interface{ Scan(...any) error }, withContent bool) (model.BlogPost, error) {
	var p model.BlogPost
	dest := []any{&p.ID, &p.Title, &p.Slug, &p.ImageURL, &p.IsPublished, &p.IsPremium, &p.AuthorID, &p.CreatedAt, &p.UpdatedAt}
	if withContent {
		dest = append(dest, &p.Content)
	}
	err := row.Scan(dest...)
	return p, err
}

// InsertBlog inserts the metadata row. Callers pair it with InsertBlogContent
// inside one transaction.
func (q *Queries) InsertBlog(ctx context.Context, p model.BlogPost) error {
	var author any
	if p.AuthorID != "" {
		author = p.AuthorID
	}
	_, err := q.exec(ctx, `INSERT INTO blog (id, title, slug, image_url, is_published, is_premium, author_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Slug, p.ImageURL, p.IsPublished, p.IsPremium, author, p.CreatedAt, p.UpdatedAt)
	return wrapErr("inserting blog", err)
}

// InsertBlogContent inserts the content row for a blog id.
func (q *Queries) InsertBlogContent(ctx context.Context, id, content string) error {
	_, err := q.exec(ctx, `INSERT INTO blog_content (id, content) VALUES (?, ?)`, id, content)
	return wrapErr("inserting blog content", err)
}

// UpdateBlogDetail updates the metadata row.
func (q *Queries) UpdateBlogDetail(ctx context.Context, p model.BlogPost) error {
	return q.execAffected(ctx, "updating blog",
		`UPDATE blog SET title = ?, slug = ?, image_url = ?, is_published = ?, is_premium = ?, updated_at = ? WHERE id = ?`,
		p.Title, p.Slug, p.ImageURL, p.IsPublished, p.IsPremium, p.UpdatedAt, p.ID)
}

// UpsertBlogContent replaces the content row for id.
func (q *Queries) UpsertBlogContent(ctx context.Context, id, content string) error {
	_, err := q.exec(ctx, `INSERT INTO blog_content (id, content) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET content = excluded.content`, id, content)
	return wrapErr("updating blog content", err)
}

// UpdateBlogFlags applies a partial flag update. Content is never touched.
func (q *Queries) UpdateBlogFlags(ctx context.Context, id string, flags model.BlogFlags) error {
	if flags.Empty() {
		return nil
	}
	set := ""
	var args []any
	if flags.IsPublished != nil {
		set += "is_published = ?, "
		args = append(args, *flags.IsPublished)
	}
	if flags.IsPremium != nil {
		set += "is_premium = ?, "
		args = append(args, *flags.IsPremium)
	}
	args = append(args, time.Now().UTC(), id)
	return q.execAffected(ctx, "updating blog flags", `UPDATE blog SET `+set+`updated_at = ? WHERE id = ?`, args...)
}

// DeleteBlogContent removes the content row.
func (q *Queries) DeleteBlogContent(ctx context.Context, id string) error {
	_, err := q.exec(ctx, `DELETE FROM blog_content WHERE id = ?`, id)
	return wrapErr("deleting blog content", err)
}

// DeleteBlog removes the metadata row.
func (q *Queries) DeleteBlog(ctx context.Context, id string) error {
	return q.execAffected(ctx, "deleting blog", `DELETE FROM blog WHERE id = ?`, id)
}

// GetBlogWithContent returns one post joined with its content.
func (q *Queries) GetBlogWithContent(ctx context.Context, id string) (model.BlogPost, error) {
	p, err := scanBlog(q.queryRow(ctx, `SELECT `+blogColumns+`, COALESCE(c.content, '')
		FROM blog b LEFT JOIN blog_content c ON c.id = b.id WHERE b.id = ?`, id), true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.BlogPost{}, err
		}
		return model.BlogPost{}, wrapErr("getting blog", err)
	}
	return p, nil
}

// GetBlogBySlug returns one post with content by slug.
func (q *Queries) GetBlogBySlug(ctx context.Context, slug string) (model.BlogPost, error) {
	p, err := scanBlog(q.queryRow(ctx, `SELECT `+blogColumns+`, COALESCE(c.content, '')
		FROM blog b LEFT JOIN blog_content c ON c.id = b.id WHERE b.slug = ?`, slug), true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.BlogPost{}, err
		}
		return model.BlogPost{}, wrapErr("getting blog by slug", err)
	}
	return p, nil
}

// SlugExists reports whether slug is used by a post other than excludeID.
func (q *Queries) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	var one int
	err := q.queryRow(ctx, `SELECT 1 FROM blog WHERE slug = ? AND id <> ? LIMIT 1`, slug, excludeID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrapErr("checking slug", err)
	}
	return true, nil
}

// ListPublishedBlogs returns published posts, newest first.
func (q *Queries) ListPublishedBlogs(ctx context.Context, limit, offset int) ([]model.BlogPost, error) {
	return q.listBlogs(ctx, `WHERE b.is_published = ?`, []any{true}, limit, offset)
}

// ListAllBlogs returns every post, newest first.
func (q *Queries) ListAllBlogs(ctx context.Context, limit, offset int) ([]model.BlogPost, error) {
	return q.listBlogs(ctx, ``, nil, limit, offset)
}

func (q *Queries) listBlogs(ctx context.Context, where string, args []any, limit, offset int) ([]model.BlogPost, error) {
	args = append(args, limit, offset)
	rows, err := q.query(ctx, `SELECT `+blogColumns+` FROM blog b `+where+`
		ORDER BY b.created_at DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, wrapErr("listing blogs", err)
	}
	defer func() { _ = rows.Close() }()

	var posts []model.BlogPost
	for rows.Next() {
		p, err := scanBlog(rows, false)
		if err != nil {
			return nil, fmt.Errorf("scanning blog: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// CountBlogs returns the number of posts, optionally only published ones.
func (q *Queries) CountBlogs(ctx context.Context, publishedOnly bool) (int64, error) {
	query := `SELECT COUNT(*) FROM blog`
	var args []any
	if publishedOnly {
		query += ` WHERE is_published = ?`
		args = append(args, true)
	}
	var n int64
	if err := q.queryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, wrapErr("counting blogs", err)
	}
	return n, nil
}
