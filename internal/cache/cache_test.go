package cache

import (
	"context"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(2)
	m.nowFunc = func() time.Time { return now }

	t.Run("miss", func(t *testing.T) {
		_, err := m.Get(ctx, "absent")
		assert.ErrorIs(t, err, ErrMiss)
	})

	t.Run("hit then expire", func(t *testing.T) {
		require.NoError(t, m.Set(ctx, "a", "<p>a</p>", time.Minute))
		got, err := m.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "<p>a</p>", got)

		now = now.Add(2 * time.Minute)
		_, err = m.Get(ctx, "a")
		assert.ErrorIs(t, err, ErrMiss)
	})

	t.Run("expired key can be set again", func(t *testing.T) {
		require.NoError(t, m.Set(ctx, "a", "<p>b</p>", time.Minute))
		got, err := m.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "<p>b</p>", got)
	})
}

func TestMemory_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2)

	require.NoError(t, m.Set(ctx, "x", "x", 0))
	require.NoError(t, m.Set(ctx, "y", "y", 0))
	_, err := m.Get(ctx, "x")
	require.NoError(t, err)
	require.NoError(t, m.Set(ctx, "z", "z", 0))

	assert.Equal(t, 2, m.Len())
	_, err = m.Get(ctx, "y")
	assert.ErrorIs(t, err, ErrMiss)
	for _, k := range []string{"x", "z"} {
		got, err := m.Get(ctx, k)
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(8)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := strconv.Itoa(i % 4)
			for j := 0; j < 200; j++ {
				_ = m.Set(ctx, key, key, time.Nanosecond)
				_, _ = m.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()

	require.NoError(t, m.Set(ctx, "0", "fresh", time.Minute))
	got, err := m.Get(ctx, "0")
	require.NoError(t, err)
	assert.Equal(t, "fresh", got)
	require.NoError(t, m.Close())
	assert.Equal(t, 0, m.Len())
}

func TestRenderKey(t *testing.T) {
	assert.Equal(t, "craftforum:render:markdown:abc", RenderKey("markdown", "abc"))
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("CRAFTFORUM_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CRAFTFORUM_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	r, err := NewRedis(ctx, addr, "", 0)
	require.NoError(t, err)
	defer r.Close()

	key := RenderKey("test", time.Now().Format(time.RFC3339Nano))
	_, err = r.Get(ctx, key)
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, r.Set(ctx, key, "<p>hi</p>", time.Minute))
	got, err := r.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", got)
}
