package jobs

import (
	"context"
	"sync"
	"time"

	"stock-screener/internal/interfaces"
	"stock-screener/internal/types"
)

// MemoryStore keeps jobs in process memory. Everything is lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	states  map[string]types.JobState
	results map[string]types.JobResult
}

var _ interfaces.JobStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states:  make(map[string]types.JobState),
		results: make(map[string]types.JobResult),
	}
}

func (s *MemoryStore) Create(_ context.Context, job *types.JobState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[job.ID] = *job
	return nil
}

func (s *MemoryStore) Update(_ context.Context, job *types.JobState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[job.ID]; !ok {
		return ErrJobNotFound
	}
	s.states[job.ID] = *job
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*types.JobState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return &st, nil
}

func (s *MemoryStore) SaveResult(_ context.Context, result *types.JobResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.JobID] = *result
	return nil
}

func (s *MemoryStore) GetResult(_ context.Context, id string) (*types.JobResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return &r, nil
}

func (s *MemoryStore) EvictBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, st := range s.states {
		if st.CreatedAt.Before(cutoff) {
			delete(s.states, id)
			delete(s.results, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Close() error { return nil }
