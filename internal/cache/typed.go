// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Typed stores JSON-encoded values of T under a namespace.
type Typed[T any] struct {
	cache     Cacher
	namespace string
	ttl       time.Duration
}

// NewTyped creates a Typed cache. Keys are stored as namespace + ":" + key.
func NewTyped[T any](c Cacher, namespace string, ttl time.Duration) *Typed[T] {
	return &Typed[T]{cache: c, namespace: namespace + ":", ttl: ttl}
}

// Get returns the cached value and whether it was found. Undecodable
// entries count as misses.
func (t *Typed[T]) Get(ctx context.Context, key string) (T, bool) {
	var v T
	data, err := t.cache.Get(ctx, t.namespace+key)
	if err != nil {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false
	}
	return v, true
}

// Set stores v.
func (t *Typed[T]) Set(ctx context.Context, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return t.cache.Set(ctx, t.namespace+key, data, t.ttl)
}

// Delete removes key.
func (t *Typed[T]) Delete(ctx context.Context, key string) error {
	return t.cache.Delete(ctx, t.namespace+key)
}

// DeletePrefix removes every key in the namespace starting with prefix.
func (t *Typed[T]) DeletePrefix(ctx context.Context, prefix string) error {
	return t.cache.DeleteByPrefix(ctx, t.namespace+prefix)
}

// GetOrLoad returns the cached value or calls load and caches its result.
// Cache write failures are ignored; load errors are returned uncached.
func (t *Typed[T]) GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) (T, error)) (T, error) {
	if v, ok := t.Get(ctx, key); ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	_ = t.Set(ctx, key, v)
	return v, nil
}
