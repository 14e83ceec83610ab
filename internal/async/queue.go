package async

import (
	"context"
	"time"

	"github.com/joseph-ayodele/tender-checklist/internal/entity"
)

// Job is one queued tender run.
type Job struct {
	Message     entity.JobMessage
	SubmittedAt time.Time
	TraceID     string
}

// JobRunner executes a job once. The queue owns retries and deadlines.
type JobRunner interface {
	Process(ctx context.Context, msg entity.JobMessage) (entity.JobSummary, error)
}

// Result is reported once per job after its last attempt.
type Result struct {
	Job      Job
	Attempts int
	Summary  entity.JobSummary
	Err      error
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
