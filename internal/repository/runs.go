package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/medtext/labguard/constants"
	"github.com/medtext/labguard/internal/entity"
)

// RunRecorder persists the lifecycle of a processing run. Both the
// Postgres and the sqlite stores implement it.
type RunRecorder interface {
	Create(ctx context.Context, run *entity.ProcessingRun) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status constants.RunStatus) error
	FinishSuccess(ctx context.Context, id uuid.UUID, confidence float32, testCount int, outputJSON []byte) error
	FinishFailure(ctx context.Context, id uuid.UUID, reason string, outputJSON []byte) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.ProcessingRun, error)
}

// RunQueue extends RunRecorder with queue semantics for the daemon.
type RunQueue interface {
	RunRecorder

	// ClaimNextQueued atomically moves the oldest QUEUED run to RUNNING
	// and returns it, or (nil, nil) when the queue is empty.
	ClaimNextQueued(ctx context.Context) (*entity.ProcessingRun, error)
}
