// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package action

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/olegiv/eduportal/internal/dal"
	"github.com/olegiv/eduportal/internal/i18n"
	"github.com/olegiv/eduportal/internal/model"
	"github.com/olegiv/eduportal/internal/store"
	"github.com/olegiv/eduportal/internal/util"
	"github.com/olegiv/eduportal/internal/validation"
)

// Blog slug settings.
const (
	fallbackSlug      = "post"
	maxSlugAttempts   = 3
	PremiumExcerptLen = 280
)

func blogManage() dal.AuthOption {
	return dal.WithCapability(dal.CapBlogManage)
}

func blogNotFound(lang string) *dal.Error {
	return dal.Invalid("", i18n.T(lang, "blog.not_found"))
}

// slugFor returns a slug for title that no post other than excludeID uses.
func (s *Service) slugFor(ctx context.Context, q *store.Queries, title, excludeID string) (string, error) {
	return util.UniqueSlug(ctx, util.Slugify(title), fallbackSlug, func(ctx context.Context, slug string) (bool, error) {
		return q.SlugExists(ctx, slug, excludeID)
	})
}

// CreateBlog stores a new post. The metadata and content rows are written
// in one transaction.
func (s *Service) CreateBlog(ctx context.Context, in validation.BlogForm) dal.Result[model.BlogPost] {
	return dal.RequireAuth(ctx, s.guard, func(ctx context.Context, u *dal.User) dal.Result[model.BlogPost] {
		lang := i18n.FromContext(ctx)
		in = in.Normalize()
		if is := in.Validate(); !is.OK() {
			return invalid[model.BlogPost](lang, is, "validation.invalid_input")
		}

		now := s.now().UTC()
		post := model.BlogPost{
			ID:          uuid.NewString(),
			Title:       in.Title,
			ImageURL:    in.ImageURL,
			IsPublished: in.IsPublished,
			IsPremium:   in.IsPremium,
			AuthorID:    u.ID,
			Content:     in.Content,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		var err error
		for attempt := 0; attempt < maxSlugAttempts; attempt++ {
			err = s.store.InTx(ctx, func(q *store.Queries) error {
				slug, err := s.slugFor(ctx, q, post.Title, "")
				if err != nil {
					return err
				}
				post.Slug = slug
				if err := q.InsertBlog(ctx, post); err != nil {
					return err
				}
				return q.InsertBlogContent(ctx, post.ID, post.Content)
			})
			if !store.IsUniqueViolation(err) {
				break
			}
		}
		if err != nil {
			return dal.Fail[model.BlogPost](dal.Classify(err))
		}

		s.auditBlog(ctx, model.EventLevelInfo, "Blog post created", u.ID,
			map[string]any{"blog_id": post.ID, "slug": post.Slug})
		return dal.OkMessage(post, i18n.T(lang, "blog.created"))
	}, blogManage())
}

// GetBlog returns any post with its content, for editing.
func (s *Service) GetBlog(ctx context.Context, id string) dal.Result[model.BlogPost] {
	return dal.RequireAuth(ctx, s.guard, func(ctx context.Context, _ *dal.User) dal.Result[model.BlogPost] {
		return dal.DbOperation(ctx, func(ctx context.Context) (model.BlogPost, error) {
			p, err := s.store.GetBlogWithContent(ctx, id)
			if isNoRows(err) {
				return p, dal.Throw(blogNotFound(i18n.FromContext(ctx)))
			}
			return p, err
		})
	}, blogManage())
}

// BlogList is a page of posts without content.
type BlogList struct {
	Posts []model.BlogPost
	Total int64
}

// ListBlogs returns a page of every post, drafts included.
func (s *Service) ListBlogs(ctx context.Context, limit, offset int) dal.Result[BlogList] {
	return dal.RequireAuth(ctx, s.guard, func(ctx context.Context, _ *dal.User) dal.Result[BlogList] {
		return s.listBlogs(ctx, false, limit, offset)
	}, blogManage())
}

// ListPublishedBlogs returns a page of published posts. It needs no
// caller.
func (s *Service) ListPublishedBlogs(ctx context.Context, limit, offset int) dal.Result[BlogList] {
	return s.listBlogs(ctx, true, limit, offset)
}

func (s *Service) listBlogs(ctx context.Context, publishedOnly bool, limit, offset int) dal.Result[BlogList] {
	return dal.DbOperation(ctx, func(ctx context.Context) (BlogList, error) {
		var posts []model.BlogPost
		var err error
		if publishedOnly {
			posts, err = s.store.ListPublishedBlogs(ctx, limit, offset)
		} else {
			posts, err = s.store.ListAllBlogs(ctx, limit, offset)
		}
		if err != nil {
			return BlogList{}, err
		}
		total, err := s.store.CountBlogs(ctx, publishedOnly)
		if err != nil {
			return BlogList{}, err
		}
		return BlogList{Posts: posts, Total: total}, nil
	})
}

// PostView is a post as shown to a reader. Locked posts carry only an
// excerpt in Content.
type PostView struct {
	Post   model.BlogPost
	Locked bool
}

// ReadPost returns a published post by slug. Drafts are visible to blog
// managers only; premium content is cut to an excerpt for callers without
// premium access.
func (s *Service) ReadPost(ctx context.Context, slug string) dal.Result[PostView] {
	lang := i18n.FromContext(ctx)
	u, err := s.guard.CurrentUser(ctx)
	if err != nil {
		return dal.Fail[PostView](dal.Classify(err))
	}

	if !util.IsValidSlug(slug) {
		return dal.Fail[PostView](blogNotFound(lang))
	}
	post, err := s.store.GetBlogBySlug(ctx, slug)
	if isNoRows(err) {
		return dal.Fail[PostView](blogNotFound(lang))
	}
	if err != nil {
		return dal.Fail[PostView](dal.Classify(err))
	}
	if !post.IsPublished && !s.guard.Can(u, dal.CapBlogManage) {
		return dal.Fail[PostView](blogNotFound(lang))
	}

	view := PostView{Post: post}
	if post.IsPremium && !s.guard.Can(u, dal.CapPremiumRead) {
		view.Locked = true
		view.Post.Content = s.md.Excerpt(post.Content, PremiumExcerptLen)
	}
	return dal.Ok(view)
}

// UpdateBlog replaces the title, image, flags and content of a post. The
// slug follows the title.
func (s *Service) UpdateBlog(ctx context.Context, id string, in validation.BlogForm) dal.Result[model.BlogPost] {
	return dal.RequireAuth(ctx, s.guard, func(ctx context.Context, u *dal.User) dal.Result[model.BlogPost] {
		lang := i18n.FromContext(ctx)
		in = in.Normalize()
		if is := in.Validate(); !is.OK() {
			return invalid[model.BlogPost](lang, is, "validation.invalid_input")
		}

		var post model.BlogPost
		err := s.store.InTx(ctx, func(q *store.Queries) error {
			current, err := q.GetBlogWithContent(ctx, id)
			if err != nil {
				return err
			}
			post = current
			if in.Title != current.Title {
				if post.Slug, err = s.slugFor(ctx, q, in.Title, id); err != nil {
					return err
				}
			}
			post.Title = in.Title
			post.ImageURL = in.ImageURL
			post.IsPublished = in.IsPublished
			post.IsPremium = in.IsPremium
			post.Content = in.Content
			post.UpdatedAt = s.now().UTC()

			if err := q.UpdateBlogDetail(ctx, post); err != nil {
				return err
			}
			return q.UpsertBlogContent(ctx, id, post.Content)
		})
		if isNoRows(err) {
			return dal.Fail[model.BlogPost](blogNotFound(lang))
		}
		if err != nil {
			return dal.Fail[model.BlogPost](dal.Classify(err))
		}

		s.auditBlog(ctx, model.EventLevelInfo, "Blog post updated", u.ID,
			map[string]any{"blog_id": id, "slug": post.Slug})
		return dal.OkMessage(post, i18n.T(lang, "blog.updated"))
	}, blogManage())
}

// UpdateBlogFlags changes the publish and premium flags only.
func (s *Service) UpdateBlogFlags(ctx context.Context, id string, flags model.BlogFlags) dal.Result[struct{}] {
	return dal.RequireAuth(ctx, s.guard, func(ctx context.Context, u *dal.User) dal.Result[struct{}] {
		lang := i18n.FromContext(ctx)
		if flags.Empty() {
			return dal.Fail[struct{}](dal.Invalid("", i18n.T(lang, "validation.invalid_input")))
		}

		err := s.store.UpdateBlogFlags(ctx, id, flags)
		if isNoRows(err) {
			return dal.Fail[struct{}](blogNotFound(lang))
		}
		if err != nil {
			return dal.Fail[struct{}](dal.Classify(err))
		}

		s.auditBlog(ctx, model.EventLevelInfo, "Blog post flags updated", u.ID, flagsMeta(id, flags))
		return dal.OkMessage(struct{}{}, i18n.T(lang, "blog.flags_updated"))
	}, blogManage())
}

func flagsMeta(id string, flags model.BlogFlags) map[string]any {
	meta := map[string]any{"blog_id": id}
	if flags.IsPublished != nil {
		meta["is_published"] = *flags.IsPublished
	}
	if flags.IsPremium != nil {
		meta["is_premium"] = *flags.IsPremium
	}
	return meta
}

// DeleteBlog removes a post and its content.
func (s *Service) DeleteBlog(ctx context.Context, id string) dal.Result[struct{}] {
	return dal.RequireAuth(ctx, s.guard, func(ctx context.Context, u *dal.User) dal.Result[struct{}] {
		lang := i18n.FromContext(ctx)
		err := s.store.InTx(ctx, func(q *store.Queries) error {
			if err := q.DeleteBlogContent(ctx, id); err != nil {
				return err
			}
			return q.DeleteBlog(ctx, id)
		})
		if isNoRows(err) {
			return dal.Fail[struct{}](blogNotFound(lang))
		}
		if err != nil {
			return dal.Fail[struct{}](dal.Classify(fmt.Errorf("deleting blog %s: %w", id, err)))
		}

		s.auditBlog(ctx, model.EventLevelInfo, "Blog post deleted", u.ID, map[string]any{"blog_id": id})
		return dal.OkMessage(struct{}{}, i18n.T(lang, "blog.deleted"))
	}, blogManage())
}
