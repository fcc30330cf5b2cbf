package queue

import (
	"context"
	"sync"
)

// Store is the durable key-value surface a queue persists to. Each queue
// owns one key and overwrites its whole JSON array on every mutation.
// Load returns nil, nil for a key that was never saved.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
}

// MemoryStore is a Store held in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	// Optional error overrides for tests.
	LoadErr error
	SaveErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, key string) ([]byte, error) {
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (s *MemoryStore) Save(_ context.Context, key string, value []byte) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	return nil
}

var _ Store = (*MemoryStore)(nil)
