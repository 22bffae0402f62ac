// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package news

import (
	"context"
	"time"

	"github.com/olegiv/eduportal/internal/cache"
	"github.com/olegiv/eduportal/internal/dal"
	"github.com/olegiv/eduportal/internal/model"
)

// Source loads news items.
type Source interface {
	ListNewsItems(ctx context.Context) ([]model.NewsItem, error)
}

// Service serves the news list through the cache.
type Service struct {
	src   Source
	items *cache.Typed[[]model.NewsItem]
}

// NewService creates a Service. c may be nil.
func NewService(src Source, c cache.Cacher, ttl time.Duration) *Service {
	s := &Service{src: src}
	if c != nil {
		s.items = cache.NewTyped[[]model.NewsItem](c, cache.NamespaceNews, ttl)
	}
	return s
}

const allKey = "all"

// All returns every news item.
func (s *Service) All(ctx context.Context) dal.Result[[]model.NewsItem] {
	return dal.DbOperation(ctx, func(ctx context.Context) ([]model.NewsItem, error) {
		if s.items == nil {
			return s.src.ListNewsItems(ctx)
		}
		return s.items.GetOrLoad(ctx, allKey, s.src.ListNewsItems)
	})
}

// List returns the items matching q.
func (s *Service) List(ctx context.Context, q Query) dal.Result[[]model.NewsItem] {
	res := s.All(ctx)
	if !res.Success {
		return res
	}
	return dal.Ok(Apply(res.Data, q))
}

// Invalidate drops the cached list.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.items == nil {
		return nil
	}
	return s.items.Delete(ctx, allKey)
}
