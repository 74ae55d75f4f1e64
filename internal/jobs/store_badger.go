package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"stock-screener/internal/interfaces"
	"stock-screener/internal/types"
)

// BadgerStore persists jobs in an embedded badger database.
type BadgerStore struct {
	store *badgerhold.Store
}

var _ interfaces.JobStore = (*BadgerStore)(nil)

func NewBadgerStore(path string) (*BadgerStore, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &BadgerStore{store: store}, nil
}

func (s *BadgerStore) Create(_ context.Context, job *types.JobState) error {
	return s.store.Insert(job.ID, job)
}

func (s *BadgerStore) Update(_ context.Context, job *types.JobState) error {
	err := s.store.Update(job.ID, job)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return ErrJobNotFound
	}
	return err
}

func (s *BadgerStore) Get(_ context.Context, id string) (*types.JobState, error) {
	var st types.JobState
	if err := s.store.Get(id, &st); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &st, nil
}

func (s *BadgerStore) SaveResult(_ context.Context, result *types.JobResult) error {
	return s.store.Upsert(result.JobID, result)
}

func (s *BadgerStore) GetResult(_ context.Context, id string) (*types.JobResult, error) {
	var r types.JobResult
	if err := s.store.Get(id, &r); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (s *BadgerStore) EvictBefore(_ context.Context, cutoff time.Time) (int, error) {
	var stale []types.JobState
	if err := s.store.Find(&stale, badgerhold.Where("CreatedAt").Lt(cutoff)); err != nil {
		return 0, err
	}
	for _, st := range stale {
		if err := s.store.Delete(st.ID, &types.JobResult{}); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
			return 0, err
		}
		if err := s.store.Delete(st.ID, &types.JobState{}); err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
			return 0, err
		}
	}
	return len(stale), nil
}

func (s *BadgerStore) Close() error {
	return s.store.Close()
}
