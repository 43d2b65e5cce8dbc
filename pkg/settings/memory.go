package settings

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory settings store for tests and the simulator.
type MemoryStore struct {
	mu   sync.RWMutex
	keys map[string]Settings
}

// NewMemoryStore creates an empty in-memory settings store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]Settings)}
}

func (s *MemoryStore) Get(ctx context.Context, keyContext string) (*Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.keys[keyContext]
	if !ok {
		return nil, nil
	}
	return &stored, nil
}

func (s *MemoryStore) Set(ctx context.Context, keyContext string, stored Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys[keyContext] = stored
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, keyContext string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.keys, keyContext)
	return nil
}

var _ Store = (*MemoryStore)(nil)
