package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	fetchedAt time.Time
}

// MemoryStore is a process-local Store with a fixed time to live.
type MemoryStore struct {
	ttl     time.Duration
	now     func() time.Time
	mu      sync.RWMutex
	gen     uint64
	entries map[string]entry
}

// NewMemoryStore creates a MemoryStore whose entries expire after ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok || s.now().Sub(e.fetchedAt) >= s.ttl {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) Generation(context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen, nil
}

func (s *MemoryStore) Set(_ context.Context, gen uint64, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return nil
	}
	now := s.now()
	for k, e := range s.entries {
		if now.Sub(e.fetchedAt) >= s.ttl {
			delete(s.entries, k)
		}
	}
	s.entries[key] = entry{value: value, fetchedAt: now}
	return nil
}

func (s *MemoryStore) Invalidate(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	clear(s.entries)
	return nil
}
