package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a mutex-guarded in-memory Store used in tests and as the
// development fallback when no Redis host is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	items    map[string]memoryItem
	maxItems int

	stop      chan struct{}
	closeOnce sync.Once
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an in-memory store. maxItems <= 0 disables the size
// cap. A background sweep evicts expired entries until Close is called.
func NewMemoryStore(maxItems int) *MemoryStore {
	store := &MemoryStore{
		items:    make(map[string]memoryItem),
		maxItems: maxItems,
		stop:     make(chan struct{}),
	}

	go store.sweepExpired()

	return store
}

// Close stops the background sweep. Safe to call more than once; the store
// itself remains usable, entries just stop being swept.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	if !item.expiresAt.IsZero() && time.Now().After(item.expiresAt) {
		return nil, false, nil
	}

	return item.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxItems > 0 && len(s.items) >= s.maxItems {
		if _, exists := s.items[key]; !exists {
			s.evictOneLocked()
		}
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	s.items[key] = memoryItem{value: value, expiresAt: expiresAt}

	return nil
}

func (s *MemoryStore) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]memoryItem)
	return nil
}

// evictOneLocked drops an expired entry if one exists, otherwise an arbitrary
// entry. Good enough for a dev fallback; real deployments run Redis.
func (s *MemoryStore) evictOneLocked() {
	now := time.Now()
	for key, item := range s.items {
		if !item.expiresAt.IsZero() && now.After(item.expiresAt) {
			delete(s.items, key)
			return
		}
	}
	for key := range s.items {
		delete(s.items, key)
		return
	}
}

func (s *MemoryStore) sweepExpired() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for key, item := range s.items {
				if !item.expiresAt.IsZero() && now.After(item.expiresAt) {
					delete(s.items, key)
				}
			}
			s.mu.Unlock()
		case <-s.stop:
			return
		}
	}
}
