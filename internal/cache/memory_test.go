// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"
)

func newTestMemory(t *testing.T, opts MemoryCacheOptions) *MemoryCache {
	t.Helper()
	c := NewMemoryCache(opts)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestMemoryCache_BasicOperations(t *testing.T) {
	c := newTestMemory(t, MemoryCacheOptions{DefaultTTL: time.Hour})
	ctx := context.Background()

	if err := c.Set(ctx, "key1", []byte("value1"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	val, err := c.Get(ctx, "key1")
	if err != nil || string(val) != "value1" {
		t.Fatalf("Get = %q, %v", val, err)
	}
	if has, _ := c.Has(ctx, "key1"); !has {
		t.Error("expected key1 to exist")
	}

	if err := c.Delete(ctx, "key1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := c.Get(ctx, "key1"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
	if has, _ := c.Has(ctx, "key1"); has {
		t.Error("deleted key reported present")
	}
}

func TestMemoryCache_Expiration(t *testing.T) {
	c := newTestMemory(t, MemoryCacheOptions{DefaultTTL: time.Hour})
	ctx := context.Background()

	_ = c.Set(ctx, "short", []byte("v"), 30*time.Millisecond)
	_ = c.Set(ctx, "default", []byte("v"), 0)

	time.Sleep(50 * time.Millisecond)

	if _, err := c.Get(ctx, "short"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected short TTL key to expire, got %v", err)
	}
	if _, err := c.Get(ctx, "default"); err != nil {
		t.Errorf("default TTL key expired early: %v", err)
	}
}

func TestMemoryCache_ClearAndPrefix(t *testing.T) {
	c := newTestMemory(t, MemoryCacheOptions{})
	ctx := context.Background()

	_ = c.Set(ctx, "preview:a", []byte("1"), 0)
	_ = c.Set(ctx, "preview:b", []byte("2"), 0)
	_ = c.Set(ctx, "other", []byte("3"), 0)

	if err := c.DeleteByPrefix(ctx, "preview:"); err != nil {
		t.Fatalf("DeleteByPrefix failed: %v", err)
	}
	if c.Stats().Items != 1 {
		t.Errorf("items after DeleteByPrefix = %d, want 1", c.Stats().Items)
	}
	if _, err := c.Get(ctx, "other"); err != nil {
		t.Error("expected other to survive DeleteByPrefix")
	}

	_ = c.Clear(ctx)
	if s := c.Stats(); s.Items != 0 || s.Size != 0 {
		t.Errorf("stats after Clear = %+v", s)
	}
}

func TestMemoryCache_EvictsWhenFull(t *testing.T) {
	c := newTestMemory(t, MemoryCacheOptions{DefaultTTL: time.Hour, MaxItems: 3})
	ctx := context.Background()

	_ = c.Set(ctx, "soonest", []byte("x"), time.Minute)
	for i := range 2 {
		_ = c.Set(ctx, "k"+strconv.Itoa(i), []byte("x"), 0)
	}
	_ = c.Set(ctx, "new", []byte("x"), 0)

	if got := c.Stats().Items; got != 3 {
		t.Errorf("items = %d, want 3", got)
	}
	if _, err := c.Get(ctx, "soonest"); !errors.Is(err, ErrCacheMiss) {
		t.Error("entry closest to expiry should have been evicted")
	}
	if _, err := c.Get(ctx, "new"); err != nil {
		t.Errorf("new entry missing: %v", err)
	}

	// Overwriting an existing key never evicts.
	_ = c.Set(ctx, "new", []byte("y"), 0)
	if got := c.Stats().Items; got != 3 {
		t.Errorf("items after overwrite = %d, want 3", got)
	}
}

func TestMemoryCache_Stats(t *testing.T) {
	c := newTestMemory(t, MemoryCacheOptions{})
	ctx := context.Background()

	_ = c.Set(ctx, "key1", []byte("value1"), 0)
	_ = c.Set(ctx, "key2", []byte("value2"), 0)
	_, _ = c.Get(ctx, "key1")
	_, _ = c.Get(ctx, "key1")
	_, _ = c.Get(ctx, "nonexistent")

	stats := c.Stats()
	if stats.Hits != 2 || stats.Misses != 1 || stats.Sets != 2 || stats.Items != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Size != 12 {
		t.Errorf("size = %d, want 12", stats.Size)
	}
	want := float64(2) / float64(3) * 100
	if stats.HitRate < want-0.01 || stats.HitRate > want+0.01 {
		t.Errorf("hit rate = %.2f, want ~%.2f", stats.HitRate, want)
	}

	c.ResetStats()
	if s := c.Stats(); s.Hits != 0 || s.Misses != 0 || s.Sets != 0 {
		t.Errorf("stats after reset = %+v", s)
	}
}

func TestMemoryCache_ValueCopy(t *testing.T) {
	c := newTestMemory(t, MemoryCacheOptions{})
	ctx := context.Background()

	original := []byte("original")
	_ = c.Set(ctx, "key", original, 0)
	original[0] = 'X'

	val, _ := c.Get(ctx, "key")
	if string(val) != "original" {
		t.Errorf("got %s; cache did not copy on Set", val)
	}
	val[0] = 'Y'
	val2, _ := c.Get(ctx, "key")
	if string(val2) != "original" {
		t.Errorf("got %s; cache did not copy on Get", val2)
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	c := newTestMemory(t, MemoryCacheOptions{MaxItems: 50})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			for j := range 100 {
				_ = c.Set(ctx, strconv.Itoa((id+j)%80), []byte("value"), 0)
			}
		}(i)
		go func(id int) {
			defer wg.Done()
			for j := range 100 {
				_, _ = c.Get(ctx, strconv.Itoa((id+j)%80))
			}
		}(i)
	}
	wg.Wait()

	if items := c.Stats().Items; items > 50 {
		t.Errorf("items = %d, exceeds MaxItems", items)
	}
}

func TestMemoryCache_Close(t *testing.T) {
	c := NewMemoryCache(MemoryCacheOptions{CleanupInterval: time.Second})
	ctx := context.Background()
	_ = c.Set(ctx, "key", []byte("value"), 0)

	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := c.Get(ctx, "key"); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Get after Close = %v", err)
	}
	if err := c.Set(ctx, "key2", []byte("v"), 0); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Set after Close = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close should succeed, got %v", err)
	}
}
