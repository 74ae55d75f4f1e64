package types

import "time"

type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Terminal reports whether the job will not change any more.
func (s JobStatus) Terminal() bool {
	return s == JobDone || s == JobFailed
}

// JobState is the progress record of one screening run.
type JobState struct {
	ID         string     `json:"id" badgerhold:"key"`
	Status     JobStatus  `json:"status" badgerhold:"index"`
	Total      int        `json:"total"`
	Completed  int        `json:"completed"`
	Progress   int        `json:"progress"`
	Benchmark  float64    `json:"benchmark_forward_pe"`
	Tickers    []string   `json:"tickers,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// SetProgress records completed out of total and derives the percentage.
func (j *JobState) SetProgress(completed, total int) {
	j.Completed = completed
	j.Total = total
	if total > 0 {
		j.Progress = completed * 100 / total
	}
}

// JobResult is what a finished run hands to the report builder.
type JobResult struct {
	JobID         string            `json:"job_id" badgerhold:"key"`
	Benchmark     float64           `json:"benchmark_forward_pe"`
	Records       []ScreeningRecord `json:"results"`
	BuyCandidates []string          `json:"buy_tickers"`
	CompletedAt   time.Time         `json:"completed_at"`
}
