// Package jobs runs screens in the background and tracks their progress.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"stock-screener/internal/interfaces"
	"stock-screener/internal/logger"
	"stock-screener/internal/screener"
	"stock-screener/internal/types"
)

// Recorder receives the records of every finished run.
type Recorder interface {
	Append(jobID string, records []types.ScreeningRecord) error
}

// Manager owns the background runs. Each submitted job gets exactly one
// worker goroutine, the only writer of that job's state.
type Manager struct {
	store    interfaces.JobStore
	screener interfaces.Screener
	recorder Recorder
	now      func() time.Time

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex
	closing bool
	cron    *cron.Cron
}

// ErrShuttingDown is returned by Submit once Shutdown has begun.
var ErrShuttingDown = errors.New("job manager is shutting down")

type Option func(*Manager)

func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		m.recorder = r
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(store interfaces.JobStore, s interfaces.Screener, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		store:    store,
		screener: s,
		now:      time.Now,
		baseCtx:  ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Submit validates the request, records a pending job and starts its
// worker. Invalid input is returned synchronously and starts nothing.
func (m *Manager) Submit(ctx context.Context, tickers []string, benchmarkForwardPE float64) (*types.JobState, error) {
	tickers, err := screener.PrepareInput(tickers, benchmarkForwardPE)
	if err != nil {
		return nil, err
	}
	// The worker slot is reserved under mu so Shutdown never waits on a
	// WaitGroup that is still being added to.
	m.mu.Lock()
	if m.closing || m.baseCtx.Err() != nil {
		m.mu.Unlock()
		return nil, ErrShuttingDown
	}
	m.wg.Add(1)
	m.mu.Unlock()

	job := &types.JobState{
		ID:        uuid.NewString(),
		Status:    types.JobPending,
		Total:     len(tickers),
		Benchmark: benchmarkForwardPE,
		Tickers:   tickers,
		CreatedAt: m.now().UTC(),
	}
	if err := m.store.Create(ctx, job); err != nil {
		m.wg.Done()
		return nil, fmt.Errorf("create job: %w", err)
	}

	logger.Info(ctx, "Job submitted", "job_id", job.ID, "tickers", len(tickers), "benchmark_forward_pe", benchmarkForwardPE)

	snapshot := *job
	go m.work(job)
	return &snapshot, nil
}

func (m *Manager) work(job *types.JobState) {
	defer m.wg.Done()
	ctx := m.baseCtx

	started := m.now().UTC()
	job.Status = types.JobRunning
	job.StartedAt = &started
	m.save(ctx, job)

	records, err := m.screener.Run(ctx, job.Tickers, job.Benchmark, func(completed, total int) {
		job.SetProgress(completed, total)
		m.save(ctx, job)
	})
	if err != nil {
		m.fail(job, err)
		return
	}

	result := &types.JobResult{
		JobID:         job.ID,
		Benchmark:     job.Benchmark,
		Records:       records,
		BuyCandidates: types.BuyCandidates(records),
		CompletedAt:   m.now().UTC(),
	}
	if err := m.store.SaveResult(ctx, result); err != nil {
		m.fail(job, fmt.Errorf("save result: %w", err))
		return
	}

	if m.recorder != nil {
		if err := m.recorder.Append(job.ID, records); err != nil {
			logger.Warn(ctx, "Failed to append audit log", "job_id", job.ID, "error", err)
		}
	}

	finished := result.CompletedAt
	job.Status = types.JobDone
	job.SetProgress(len(records), len(records))
	job.FinishedAt = &finished
	m.save(ctx, job)

	logger.Info(ctx, "Job completed", "job_id", job.ID, "screened", len(records), "buy_candidates", len(result.BuyCandidates))
}

func (m *Manager) fail(job *types.JobState, err error) {
	finished := m.now().UTC()
	job.Status = types.JobFailed
	job.Error = err.Error()
	job.FinishedAt = &finished
	// the base context may already be cancelled at shutdown
	m.save(context.Background(), job)
	logger.ErrorWithErr(context.Background(), "Job failed", err, "job_id", job.ID, "completed", job.Completed, "total", job.Total)
}

func (m *Manager) save(ctx context.Context, job *types.JobState) {
	if err := m.store.Update(ctx, job); err != nil {
		logger.Warn(ctx, "Failed to update job state", "job_id", job.ID, "status", string(job.Status), "error", err)
	}
}

// Status returns a snapshot of the job's progress.
func (m *Manager) Status(ctx context.Context, id string) (*types.JobState, error) {
	return m.store.Get(ctx, id)
}

// Result returns the finished run. ErrJobNotReady until the job is done.
func (m *Manager) Result(ctx context.Context, id string) (*types.JobResult, error) {
	st, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.Status != types.JobDone {
		return nil, fmt.Errorf("%w: job %s is %s", ErrJobNotReady, id, st.Status)
	}
	return m.store.GetResult(ctx, id)
}

// Evict drops jobs created more than retention ago, whatever their status.
func (m *Manager) Evict(ctx context.Context, retention time.Duration) (int, error) {
	n, err := m.store.EvictBefore(ctx, m.now().UTC().Add(-retention))
	if err != nil {
		return n, fmt.Errorf("evict jobs: %w", err)
	}
	if n > 0 {
		logger.Info(ctx, "Evicted expired jobs", "count", n, "retention", retention.String())
	}
	return n, nil
}

// StartEviction schedules Evict on a cron spec such as "@every 10m".
func (m *Manager) StartEviction(schedule string, retention time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cron != nil {
		return errors.New("eviction already scheduled")
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if _, err := m.Evict(m.baseCtx, retention); err != nil {
			logger.ErrorWithErr(m.baseCtx, "Scheduled eviction failed", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid eviction schedule %q: %w", schedule, err)
	}
	c.Start()
	m.cron = c
	return nil
}

// Shutdown stops the eviction schedule and waits for running jobs. When
// ctx expires first the jobs are cancelled and marked failed.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closing = true
	if m.cron != nil {
		<-m.cron.Stop().Done()
		m.cron = nil
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.cancel()
		return nil
	case <-ctx.Done():
		m.cancel()
		<-done
		return ctx.Err()
	}
}
