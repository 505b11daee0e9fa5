package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestMemory(ttl time.Duration) (*Memory, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	m := NewMemory(ttl)
	m.now = clock.Now
	return m, clock
}

func item(id string, ts int64) HistoryItem {
	return HistoryItem{ID: id, OriginalQuote: "quote " + id, KeyTakeaway: "takeaway " + id, Timestamp: ts}
}

func ids(items []HistoryItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestMemoryListNewestFirst(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(0)

	require.NoError(t, m.SaveHistory(ctx, item("a", 100)))
	require.NoError(t, m.SaveHistory(ctx, item("c", 300)))
	require.NoError(t, m.SaveHistory(ctx, item("b", 200)))

	all, err := m.ListHistory(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, ids(all))

	limited, err := m.ListHistory(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, ids(limited))
}

func TestMemoryAttachImage(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(time.Hour)

	require.NoError(t, m.SaveHistory(ctx, item("a", 100)))
	require.NoError(t, m.AttachImage(ctx, "a", "data:image/png;base64,AAAA"))

	all, err := m.ListHistory(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "data:image/png;base64,AAAA", all[0].ImageURL)

	assert.ErrorIs(t, m.AttachImage(ctx, "missing", "x"), ErrNotFound)
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestMemory(time.Hour)

	require.NoError(t, m.SaveHistory(ctx, item("old", 100)))
	clock.Advance(30 * time.Minute)
	require.NoError(t, m.SaveHistory(ctx, item("new", 200)))
	clock.Advance(45 * time.Minute)

	live, err := m.ListHistory(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, ids(live))
	assert.ErrorIs(t, m.AttachImage(ctx, "old", "x"), ErrNotFound)

	removed, err := m.TrimHistory(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestMemoryTrimKeepsNewest(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMemory(0)

	for i := 1; i <= 5; i++ {
		require.NoError(t, m.SaveHistory(ctx, item(fmt.Sprintf("i%d", i), int64(i))))
	}

	removed, err := m.TrimHistory(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	left, err := m.ListHistory(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"i5", "i4"}, ids(left))
}

func TestMemoryConcurrentUse(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.SaveHistory(ctx, item(fmt.Sprintf("id-%02d", i), int64(i)))
			_, _ = m.ListHistory(ctx, 5)
		}()
	}
	wg.Wait()

	all, err := m.ListHistory(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 50)
	assert.Equal(t, "id-49", all[0].ID)
}
