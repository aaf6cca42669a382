package conversation

import (
	"context"
	"sort"
	"sync"
)

// Store keeps conversation states keyed by user. Implementations must be
// safe for concurrent use; the Machine serializes access per user.
type Store interface {
	Load(ctx context.Context, userID int64) (State, bool, error)
	Save(ctx context.Context, st State) error
	Delete(ctx context.Context, userID int64) error
	ListByPhase(ctx context.Context, phase Phase) ([]State, error)
}

// MemoryStore holds states for the lifetime of the process.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[int64]State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[int64]State)}
}

func (s *MemoryStore) Load(_ context.Context, userID int64) (State, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[userID]
	return st, ok, nil
}

func (s *MemoryStore) Save(_ context.Context, st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[st.UserID] = st
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, userID)
	return nil
}

func (s *MemoryStore) ListByPhase(_ context.Context, phase Phase) ([]State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []State
	for _, st := range s.states {
		if st.Phase == phase {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}
