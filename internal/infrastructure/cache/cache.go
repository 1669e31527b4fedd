// Package cache is the time-bounded read cache for dataset snapshots.
// Values are stored JSON-encoded so the in-process and redis backends
// behave the same.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Cache stores snapshots for a fixed validity window.
type Cache interface {
	// Get decodes the cached value into dst. ok is false on a miss or an
	// expired entry.
	Get(ctx context.Context, key string, dst any) (ok bool, err error)
	Set(ctx context.Context, key string, value any) error
	// Invalidate drops every entry so the next read fetches fresh data.
	Invalidate(ctx context.Context) error
}

type entry struct {
	data    []byte
	expires time.Time
}

// Memory is an in-process Cache.
type Memory struct {
	ttl   time.Duration
	now   func() time.Time
	items *ttlcache.Cache[string, entry]
}

func NewMemory(ttl time.Duration) *Memory {
	items := ttlcache.New[string, entry](
		ttlcache.WithTTL[string, entry](ttl),
		ttlcache.WithDisableTouchOnHit[string, entry](),
	)
	return &Memory{ttl: ttl, now: time.Now, items: items}
}

// WithClock replaces the time source used for expiry.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	return m
}

func (m *Memory) Get(_ context.Context, key string, dst any) (bool, error) {
	item := m.items.Get(key)
	if item == nil {
		return false, nil
	}
	e := item.Value()
	if !m.now().Before(e.expires) {
		m.items.Delete(key)
		return false, nil
	}
	if err := json.Unmarshal(e.data, dst); err != nil {
		return false, fmt.Errorf("decode cached %q: %w", key, err)
	}
	return true, nil
}

func (m *Memory) Set(_ context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	m.items.Set(key, entry{data: data, expires: m.now().Add(m.ttl)}, ttlcache.DefaultTTL)
	return nil
}

func (m *Memory) Invalidate(_ context.Context) error {
	m.items.DeleteAll()
	return nil
}

// Key joins parts into a cache key.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
