package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a scheduled or on-demand job run.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobSuccess JobStatus = "success"
	JobFailed  JobStatus = "failed"
)

// JobRecord is the status the scheduler exposes for GET /tasks/status/{id}.
// A retried attempt keeps the same logical id — Attempt increments, Status
// reflects only the latest attempt's outcome.
type JobRecord struct {
	ID        string
	Kind      string
	Status    JobStatus
	Attempt   int
	Error     string
	StartedAt time.Time
	EndedAt   time.Time
}

func newJobID() string {
	return uuid.NewString()
}

// jobFunc is the body of one scheduler job execution; context carries the
// hard deadline.
type jobFunc func(ctx context.Context) error
