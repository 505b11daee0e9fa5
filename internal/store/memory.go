package store

import (
	"context"
	"sync"
	"time"
)

// Memory keeps history in process. Items expire after ttl; a zero ttl keeps
// them until trimmed.
type Memory struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	ttl   time.Duration
	now   func() time.Time
}

type memoryItem struct {
	item      HistoryItem
	expiresAt time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		items: make(map[string]memoryItem),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (m *Memory) expired(it memoryItem, now time.Time) bool {
	return m.ttl > 0 && !now.Before(it.expiresAt)
}

// SaveHistory stores or replaces item.
func (m *Memory) SaveHistory(ctx context.Context, item HistoryItem) error {
	m.mu.Lock()
	m.items[item.ID] = memoryItem{
		item:      item,
		expiresAt: m.now().Add(m.ttl),
	}
	m.mu.Unlock()
	return nil
}

// AttachImage records the generated image for an existing item.
func (m *Memory) AttachImage(ctx context.Context, id, imageURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.items[id]
	if !ok || m.expired(it, m.now()) {
		return ErrNotFound
	}
	it.item.ImageURL = imageURL
	m.items[id] = it
	return nil
}

// ListHistory returns up to limit live items, newest first. limit <= 0 means all.
func (m *Memory) ListHistory(ctx context.Context, limit int) ([]HistoryItem, error) {
	now := m.now()

	m.mu.RLock()
	items := make([]HistoryItem, 0, len(m.items))
	for _, it := range m.items {
		if !m.expired(it, now) {
			items = append(items, it.item)
		}
	}
	m.mu.RUnlock()

	newestFirst(items)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// TrimHistory drops expired items and everything older than the keep newest.
// It returns how many items were removed.
func (m *Memory) TrimHistory(ctx context.Context, keep int) (int, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	live := make([]HistoryItem, 0, len(m.items))
	removed := 0
	for id, it := range m.items {
		if m.expired(it, now) {
			delete(m.items, id)
			removed++
			continue
		}
		live = append(live, it.item)
	}

	newestFirst(live)
	if keep >= 0 && len(live) > keep {
		for _, item := range live[keep:] {
			delete(m.items, item.ID)
			removed++
		}
	}
	return removed, nil
}

func (m *Memory) Close() error { return nil }
