package secrets

import (
	"context"
	"sync"
)

// MemoryStore keeps secrets in process memory. Used in development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, subjectID, provider string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.items[secretName(subjectID, provider)]
	if !ok {
		return nil, ErrNotFound
	}

	// Copy so callers cannot mutate the stored blob.
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *MemoryStore) Put(ctx context.Context, subjectID, provider string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	s.items[secretName(subjectID, provider)] = stored
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, subjectID, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, secretName(subjectID, provider))
	return nil
}
