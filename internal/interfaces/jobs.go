package interfaces

import (
	"context"
	"time"

	"stock-screener/internal/types"
)

// JobStore keeps job progress and results for status polling.
// Get and GetResult return jobs.ErrJobNotFound for unknown ids.
type JobStore interface {
	Create(ctx context.Context, job *types.JobState) error
	Update(ctx context.Context, job *types.JobState) error
	Get(ctx context.Context, id string) (*types.JobState, error)
	SaveResult(ctx context.Context, result *types.JobResult) error
	GetResult(ctx context.Context, id string) (*types.JobResult, error)
	// EvictBefore drops jobs created before cutoff and returns how many went.
	EvictBefore(ctx context.Context, cutoff time.Time) (int, error)
	Close() error
}

type ReportBuilder interface {
	Build(result *types.JobResult, format string) (data []byte, contentType string, filename string, err error)
}
