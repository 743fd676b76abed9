package async

import (
	"context"
	"time"
)

// Job asks for one document to be processed.
type Job struct {
	Path        string
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// Handler processes one job.
type Handler func(ctx context.Context, job Job) error
