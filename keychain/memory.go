package keychain

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps items in process memory. It is safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Item
	now   func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]Item),
		now:   time.Now,
	}
}

func (m *MemoryStore) Load(_ context.Context, key string) (Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[key]
	if !ok {
		return Item{}, ErrNotFound
	}
	return item, nil
}

// Save inserts the item or replaces the stored one, keeping its CreatedAt.
func (m *MemoryStore) Save(_ context.Context, item Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now().UTC()
	item.CreatedAt = now
	if old, ok := m.items[item.Key]; ok {
		item.CreatedAt = old.CreatedAt
	}
	item.UpdatedAt = now
	m.items[item.Key] = item
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[key]; !ok {
		return ErrNotFound
	}
	delete(m.items, key)
	return nil
}

// List returns all items sorted by key, without passwords.
func (m *MemoryStore) List(_ context.Context) ([]Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Item, 0, len(m.items))
	for _, item := range m.items {
		item.Password = ""
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
