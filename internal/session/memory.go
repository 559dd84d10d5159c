package session

import (
	"context"
	"sync"
)

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string][]Record
}

// NewMemory creates the in-process session store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		sessions: map[string][]Record{},
	}
}

func (s *MemoryStore) History(ctx context.Context, sessionID string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.sessions[sessionID]
	out := make([]Record, len(history))
	copy(out, history)
	return out, nil
}

func (s *MemoryStore) Append(ctx context.Context, sessionID string, records ...Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = append(s.sessions[sessionID], records...)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
