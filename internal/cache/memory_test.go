// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestMemory(t *testing.T, opts MemoryOptions) (*MemoryCache, *time.Time) {
	t.Helper()
	c := NewMemoryCache(opts)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	t.Cleanup(func() { _ = c.Close() })
	return c, &now
}

func TestMemoryCache_BasicOperations(t *testing.T) {
	c, _ := newTestMemory(t, MemoryOptions{DefaultTTL: time.Hour})
	ctx := context.Background()

	if err := c.Set(ctx, "key1", []byte("value1"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	val, err := c.Get(ctx, "key1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != "value1" {
		t.Errorf("expected value1, got %s", val)
	}

	if err := c.Delete(ctx, "key1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := c.Get(ctx, "key1"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryCache_Expiration(t *testing.T) {
	c, now := newTestMemory(t, MemoryOptions{DefaultTTL: time.Minute})
	ctx := context.Background()

	_ = c.Set(ctx, "short", []byte("v"), 10*time.Second)
	_ = c.Set(ctx, "default", []byte("v"), 0)

	*now = now.Add(11 * time.Second)
	if _, err := c.Get(ctx, "short"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("short: expected miss, got %v", err)
	}
	if _, err := c.Get(ctx, "default"); err != nil {
		t.Errorf("default: expected hit, got %v", err)
	}

	*now = now.Add(time.Minute)
	c.removeExpired()
	if got := c.Stats().Items; got != 0 {
		t.Errorf("items after cleanup = %d, want 0", got)
	}
}

func TestMemoryCache_DeleteByPrefix(t *testing.T) {
	c, _ := newTestMemory(t, MemoryOptions{})
	ctx := context.Background()

	for _, k := range []string{"nav:u1:ko", "nav:u1:en", "nav:u12:ko", "profile:u1"} {
		_ = c.Set(ctx, k, []byte(k), 0)
	}
	if err := c.DeleteByPrefix(ctx, "nav:u1:"); err != nil {
		t.Fatalf("DeleteByPrefix failed: %v", err)
	}

	for k, want := range map[string]bool{"nav:u1:ko": false, "nav:u1:en": false, "nav:u12:ko": true, "profile:u1": true} {
		_, err := c.Get(ctx, k)
		if got := err == nil; got != want {
			t.Errorf("%s present = %v, want %v", k, got, want)
		}
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	c, _ := newTestMemory(t, MemoryOptions{})
	ctx := context.Background()
	_ = c.Set(ctx, "a", []byte("1"), 0)
	_ = c.Set(ctx, "b", []byte("2"), 0)

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if got := c.Stats().Items; got != 0 {
		t.Errorf("items = %d, want 0", got)
	}
}

func TestMemoryCache_Eviction(t *testing.T) {
	c, now := newTestMemory(t, MemoryOptions{MaxItems: 2})
	ctx := context.Background()

	_ = c.Set(ctx, "soon", []byte("1"), time.Minute)
	_ = c.Set(ctx, "late", []byte("2"), 2*time.Hour)
	_ = c.Set(ctx, "new", []byte("3"), time.Hour)

	if _, err := c.Get(ctx, "soon"); !errors.Is(err, ErrCacheMiss) {
		t.Error("entry closest to expiry should be evicted")
	}
	if _, err := c.Get(ctx, "late"); err != nil {
		t.Errorf("late: %v", err)
	}

	// Expired entries are reclaimed before live ones.
	_ = c.Set(ctx, "brief", []byte("4"), time.Second)
	*now = now.Add(2 * time.Second)
	_ = c.Set(ctx, "fresh", []byte("5"), time.Hour)
	if _, err := c.Get(ctx, "late"); err != nil {
		t.Errorf("late evicted instead of expired entry: %v", err)
	}

	// Overwriting an existing key never evicts.
	_ = c.Set(ctx, "fresh", []byte("6"), time.Hour)
	if got := c.Stats().Items; got != 2 {
		t.Errorf("items = %d, want 2", got)
	}
}

func TestMemoryCache_Stats(t *testing.T) {
	c, _ := newTestMemory(t, MemoryOptions{})
	ctx := context.Background()

	_ = c.Set(ctx, "k", []byte("v"), 0)
	_, _ = c.Get(ctx, "k")
	_, _ = c.Get(ctx, "k")
	_, _ = c.Get(ctx, "missing")

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 || s.Sets != 1 || s.Items != 1 {
		t.Errorf("unexpected stats: %+v", s)
	}
	if s.HitRate < 66 || s.HitRate > 67 {
		t.Errorf("hit rate = %f", s.HitRate)
	}

	c.ResetStats()
	if s := c.Stats(); s.Hits != 0 || s.Misses != 0 || s.Items != 1 {
		t.Errorf("after reset: %+v", s)
	}
}

func TestMemoryCache_ValueCopy(t *testing.T) {
	c, _ := newTestMemory(t, MemoryOptions{})
	ctx := context.Background()

	in := []byte("original")
	_ = c.Set(ctx, "k", in, 0)
	in[0] = 'X'

	out, _ := c.Get(ctx, "k")
	if string(out) != "original" {
		t.Errorf("stored value changed through caller slice: %s", out)
	}
	out[0] = 'Y'
	again, _ := c.Get(ctx, "k")
	if string(again) != "original" {
		t.Errorf("stored value changed through returned slice: %s", again)
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	c := NewMemoryCache(MemoryOptions{MaxItems: 50, CleanupInterval: time.Millisecond})
	defer func() { _ = c.Close() }()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := range 100 {
				key := fmt.Sprintf("k%d-%d", id, j%10)
				_ = c.Set(ctx, key, []byte("v"), 0)
				_, _ = c.Get(ctx, key)
				if j%25 == 0 {
					_ = c.DeleteByPrefix(ctx, fmt.Sprintf("k%d-", id))
				}
			}
		}(i)
	}
	wg.Wait()

	if got := c.Stats().Items; got > 50 {
		t.Errorf("items = %d, exceeds MaxItems", got)
	}
}

func TestMemoryCache_Close(t *testing.T) {
	c := NewMemoryCache(MemoryOptions{CleanupInterval: time.Millisecond})
	ctx := context.Background()

	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Get after close = %v", err)
	}
	if err := c.Set(ctx, "k", nil, 0); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Set after close = %v", err)
	}
}

func TestInvalidateUser(t *testing.T) {
	c, _ := newTestMemory(t, MemoryOptions{})
	ctx := context.Background()

	keys := []string{
		NamespaceProfile + ":u1",
		NamespaceNav + ":" + NavKey("u1", "ko"),
		NamespaceNav + ":" + NavKey("u1", "en"),
		NamespaceNav + ":" + NavKey("", "ko"),
		NamespaceProfile + ":u2",
	}
	for _, k := range keys {
		_ = c.Set(ctx, k, []byte("x"), 0)
	}

	if err := InvalidateUser(ctx, c, "u1"); err != nil {
		t.Fatalf("InvalidateUser: %v", err)
	}
	if got := c.Stats().Items; got != 2 {
		t.Errorf("items = %d, want 2 (anon nav and u2 profile)", got)
	}
	if err := InvalidateUser(ctx, c, ""); err != nil {
		t.Errorf("empty id: %v", err)
	}
}
