// Package cache stores rendered HTML keyed by a content hash.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

const renderKey = "craftforum:render:%s:%s" // <mode>:<content hash>

// RenderKey builds the key for the HTML of one piece of content.
func RenderKey(mode, hash string) string {
	return fmt.Sprintf(renderKey, mode, hash)
}

type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Close() error
}

type entry struct {
	value   string
	expires time.Time
}

// Memory is an in-process LRU cache with per-key expiry. Expired entries are
// never returned and age out of the LRU like any other.
type Memory struct {
	lru     *expirable.LRU[string, entry]
	nowFunc func() time.Time
}

func NewMemory(max int) *Memory {
	if max <= 0 {
		max = 4096
	}
	return &Memory{lru: expirable.NewLRU[string, entry](max, nil, 0), nowFunc: time.Now}
}

func (m *Memory) Get(ctx context.Context, key string) (string, error) {
	e, ok := m.lru.Get(key)
	if !ok || (!e.expires.IsZero() && m.nowFunc().After(e.expires)) {
		return "", ErrMiss
	}
	return e.value, nil
}

func (m *Memory) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = m.nowFunc().Add(ttl)
	}
	m.lru.Add(key, entry{value: value, expires: exp})
	return nil
}

func (m *Memory) Len() int { return m.lru.Len() }

func (m *Memory) Close() error {
	m.lru.Purge()
	return nil
}
