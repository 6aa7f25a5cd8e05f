package llm

import (
	"context"

	"github.com/medtext/labguard/internal/report"
)

// OCRResult is one extraction attempt over image bytes. Confidence is
// clamped into [0,1] by the implementation.
type OCRResult struct {
	Text       string  `json:"text"`
	Confidence float32 `json:"confidence"`
}

// Summary is the patient-friendly rendering of a normalized result.
type Summary struct {
	Summary      string   `json:"summary"`
	Explanations []string `json:"explanations"`
}

// OCRCapability turns base64-encoded image bytes into text. One attempt,
// no retry; a failure surfaces as an error.
type OCRCapability interface {
	ExtractText(ctx context.Context, imageB64 string) (OCRResult, error)
}

// SummaryCapability produces the end-user summary for normalized tests.
type SummaryCapability interface {
	Summarize(ctx context.Context, tests []report.NormalizedTest) (Summary, error)
}

// ValidationCapability answers whether every extracted test string is
// traceable to the original input. Callers must fail closed on error.
type ValidationCapability interface {
	ValidateExtraction(ctx context.Context, originalInput string, extractedTests []string) (bool, error)
}
