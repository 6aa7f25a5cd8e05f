// Package pipeline sequences the lab-report processing stages: input
// validation, text/OCR extraction, normalization, guardrail validation,
// summary generation and result compilation. Control flow is strictly
// linear; every stage failure terminates the run with a structured error.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/status"

	"github.com/medtext/labguard/constants"
	"github.com/medtext/labguard/internal/common"
	"github.com/medtext/labguard/internal/guardrail"
	"github.com/medtext/labguard/internal/llm"
	"github.com/medtext/labguard/internal/normalize"
	"github.com/medtext/labguard/internal/preprocess"
	"github.com/medtext/labguard/internal/report"
)

// Terminal failure reasons for the stages that own them.
const (
	reasonExtractFailed   = "Failed to extract text from input"
	reasonNoTests         = "No valid medical tests could be normalized"
	reasonSummaryFailed   = "Failed to generate patient-friendly summary"
	reasonInternalFailure = "Internal processing error"
)

// StageRecorder receives state-machine transitions for a run. The
// repository RunRecorder satisfies it. Recording failures are logged and
// never affect the run outcome.
type StageRecorder interface {
	UpdateStatus(ctx context.Context, runID uuid.UUID, status constants.RunStatus) error
}

// Pipeline is the per-request orchestrator. All components are stateless
// and shared; one Pipeline serves concurrent callers.
type Pipeline struct {
	logger     *slog.Logger
	normalizer *normalize.Normalizer
	guard      *guardrail.Validator
	ocr        llm.OCRCapability
	summarizer llm.SummaryCapability
	recorder   StageRecorder // optional
}

func New(logger *slog.Logger, normalizer *normalize.Normalizer, guard *guardrail.Validator, ocr llm.OCRCapability, summarizer llm.SummaryCapability) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		logger:     logger,
		normalizer: normalizer,
		guard:      guard,
		ocr:        ocr,
		summarizer: summarizer,
	}
}

// WithRecorder attaches a stage recorder (used by the daemon to persist
// run status transitions). Returns the pipeline for chaining.
func (p *Pipeline) WithRecorder(r StageRecorder) *Pipeline {
	p.recorder = r
	return p
}

// Process is the sole entry point the rest of the system needs: one
// request in, exactly one FinalOutput or ErrorOutput back.
func (p *Pipeline) Process(ctx context.Context, in report.Input) report.Output {
	return p.ProcessRun(ctx, uuid.New(), in)
}

// ProcessRun executes the pipeline under an externally assigned run ID.
func (p *Pipeline) ProcessRun(ctx context.Context, runID uuid.UUID, in report.Input) (out report.Output) {
	start := time.Now()
	ctx = common.WithRequestID(ctx, runID.String())

	// The orchestrator boundary never lets an internal failure escape.
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline.panic", "run_id", runID, "panic", r)
			out = p.fail(reasonInternalFailure, map[string]any{"error": fmt.Sprintf("%v", r)})
		}
	}()

	p.logger.Info("pipeline.start",
		"run_id", runID,
		"input_type", in.Type,
		"data_len", len(in.Data),
	)

	// Stage 1: input validation. The reason carries only the status
	// message, not the gRPC error wrapper.
	if err := common.ValidateInputFormat(in.Type, in.Data); err != nil {
		p.logger.Warn("pipeline.input_invalid", "run_id", runID, "error", err)
		return p.fail(status.Convert(err).Message(), nil)
	}

	// Stage 2: extraction (OCR oracle for images, then the preprocessor).
	originalText, rawTests, extractionConf, err := p.extract(ctx, runID, in)
	if err != nil {
		p.logger.Error("pipeline.extract.failed", "run_id", runID, "error", err)
		return p.fail(reasonExtractFailed, map[string]any{"error": err.Error()})
	}
	p.record(ctx, runID, constants.RunStatusExtractOK)
	p.logger.Info("pipeline.extract.ok",
		"run_id", runID,
		"raw_tests", len(rawTests),
		"confidence", extractionConf,
	)

	// Stage 3: normalization. Zero survivors is terminal.
	normalized := p.normalizer.NormalizeTests(rawTests, originalText)
	if len(normalized.Tests) == 0 {
		p.logger.Warn("pipeline.normalize.empty", "run_id", runID, "raw_tests", len(rawTests))
		return p.fail(reasonNoTests, map[string]any{"raw_test_count": len(rawTests)})
	}
	p.record(ctx, runID, constants.RunStatusNormalizeOK)
	p.logger.Info("pipeline.normalize.ok",
		"run_id", runID,
		"tests", len(normalized.Tests),
		"confidence", normalized.Confidence,
	)

	combined := minConf(extractionConf, normalized.Confidence)

	// Stage 4: guardrails. The floor evaluates the normalization
	// confidence; the extraction heuristic's test-count factor would
	// otherwise cap every one- or two-test report below the threshold.
	// The compiled output still reports the conservative combined score.
	// Rejections propagate verbatim.
	verdict := p.guard.Validate(ctx, originalText, rawTests, normalized, normalized.Confidence)
	if !verdict.Valid {
		return report.Output{Err: &report.ErrorOutput{
			Status:    constants.OutputStatusUnprocessed,
			Reason:    verdict.Reason,
			Details:   verdict.Details,
			Timestamp: verdict.Timestamp,
		}}
	}
	p.record(ctx, runID, constants.RunStatusGuardrailOK)

	// Stage 5: summary generation.
	summary, err := p.summarizer.Summarize(ctx, normalized.Tests)
	if err != nil {
		p.logger.Error("pipeline.summary.failed", "run_id", runID, "error", err)
		return p.fail(reasonSummaryFailed, map[string]any{"error": err.Error()})
	}

	// Stage 6: compile.
	elapsed := time.Since(start)
	p.record(ctx, runID, constants.RunStatusCompleted)
	p.logger.Info("pipeline.ok",
		"run_id", runID,
		"tests", len(normalized.Tests),
		"confidence", combined,
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return report.Output{Result: &report.FinalOutput{
		Tests:          normalized.Tests,
		Summary:        summary.Summary,
		Explanations:   summary.Explanations,
		Status:         constants.OutputStatusOK,
		Confidence:     combined,
		ProcessingTime: fmt.Sprintf("%.1fs", elapsed.Seconds()),
	}}
}

// extract resolves the original report text and raw test candidates.
// For text input the preprocessor runs directly; for image input the OCR
// oracle runs first and its confidence is averaged with the extraction
// heuristic.
func (p *Pipeline) extract(ctx context.Context, runID uuid.UUID, in report.Input) (string, []string, float32, error) {
	var originalText string
	var ocrConf float32
	isImage := constants.NormalizeInputType(in.Type) == constants.InputTypeImage

	if isImage {
		res, err := p.ocr.ExtractText(ctx, in.Data)
		if err != nil {
			return "", nil, 0, fmt.Errorf("ocr oracle: %w", err)
		}
		p.logger.Info("pipeline.ocr.ok", "run_id", runID, "text_len", len(res.Text), "confidence", res.Confidence)
		originalText = res.Text
		ocrConf = res.Confidence
	} else {
		originalText = in.Data
	}

	pre := preprocess.PreprocessText(originalText)
	rawTests := preprocess.ExtractTests(pre)
	conf := preprocess.CalculateConfidence(originalText, rawTests)

	if isImage {
		conf = (ocrConf + conf) / 2
	}
	return originalText, rawTests, conf, nil
}

func (p *Pipeline) fail(reason string, details map[string]any) report.Output {
	return report.Output{Err: &report.ErrorOutput{
		Status:    constants.OutputStatusUnprocessed,
		Reason:    reason,
		Details:   details,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}}
}

func (p *Pipeline) record(ctx context.Context, runID uuid.UUID, status constants.RunStatus) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.UpdateStatus(ctx, runID, status); err != nil {
		p.logger.Warn("pipeline.record_stage_failed", "run_id", runID, "status", status, "error", err)
	}
}

func minConf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
