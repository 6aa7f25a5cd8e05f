package async

import (
	"context"
	"time"

	"github.com/medtext/labguard/internal/entity"
)

// Job is the smallest useful unit: a claimed run ready for processing.
type Job struct {
	Run         *entity.ProcessingRun
	SubmittedAt time.Time
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
