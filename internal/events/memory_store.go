package events

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu      sync.Mutex
	records []Record
}

// NewMemoryStore creates a concurrency-safe in-memory event log, used when no
// database is configured and by unit tests.
func NewMemoryStore() Store {
	return &memoryStore{}
}

func (s *memoryStore) Append(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

// Records is a test helper returning a snapshot of the stored events when the
// store is the in-memory implementation.
func Records(s Store) []Record {
	mem, ok := s.(*memoryStore)
	if !ok {
		return nil
	}
	mem.mu.Lock()
	defer mem.mu.Unlock()
	out := make([]Record, len(mem.records))
	copy(out, mem.records)
	return out
}
