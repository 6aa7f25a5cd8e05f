package entity

import (
	"time"

	"github.com/google/uuid"
)

// ProcessingRun is one pipeline invocation as persisted. The row exists
// for auditability; the pipeline itself never reads it back.
type ProcessingRun struct {
	ID         uuid.UUID
	InputType  string
	InputData  string
	Status     string
	Reason     *string
	Confidence *float32
	TestCount  *int
	OutputJSON []byte
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
	ElapsedMS  *int64
}
