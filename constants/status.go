package constants

// RunStatus is the canonical status for rows in processing_run.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusQueued      RunStatus = "QUEUED"       // queued for processing
	RunStatusRunning     RunStatus = "RUNNING"      // in progress
	RunStatusExtractOK   RunStatus = "EXTRACT_OK"   // stage 1 completed (raw tests extracted)
	RunStatusNormalizeOK RunStatus = "NORMALIZE_OK" // stage 2 completed (tests normalized)
	RunStatusGuardrailOK RunStatus = "GUARDRAIL_OK" // stage 3 completed (guardrails passed)
	RunStatusCompleted   RunStatus = "COMPLETED"    // summary generated, result compiled
	RunStatusFailed      RunStatus = "FAILED"       // terminal failure
)

// Output status values surfaced to callers in the final payload.
const (
	OutputStatusOK          = "ok"
	OutputStatusUnprocessed = "unprocessed"
)

// Aggregate batch status values.
const (
	BatchStatusCompleted      = "completed"
	BatchStatusPartialFailure = "partial_failure"
	BatchStatusFailed         = "failed"
)
