// Package guardrail rejects processing results that should never reach an
// end user: low-confidence extractions, implausible counts, values the
// original input cannot account for, and biologically impossible results.
package guardrail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medtext/labguard/internal/llm"
	"github.com/medtext/labguard/internal/normalize"
	"github.com/medtext/labguard/internal/report"
)

// Config holds the rejection thresholds.
type Config struct {
	MinConfidence float32 // default 0.7
	MaxTests      int     // default 20
	MinTests      int     // default 1
}

// Validator runs the ordered rule chain. Stateless apart from fixed
// tables; safe to share across concurrent pipelines.
type Validator struct {
	cfg    Config
	oracle llm.ValidationCapability
	logger *slog.Logger
	rules  []rule
}

// Verdict is either valid or a structured rejection.
type Verdict struct {
	ID        string         `json:"id"`
	Valid     bool           `json:"valid"`
	Reason    string         `json:"reason,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// evaluation is the immutable input one rule chain run sees.
type evaluation struct {
	originalInput string
	rawTests      []string
	normalized    report.NormalizedResult
	confidence    float32
}

type rejection struct {
	reason  string
	details map[string]any
}

// rule pairs a name with a predicate that returns nil to pass. Rules run
// in declaration order and the chain stops at the first rejection; the
// order determines which reason a caller sees when several would fail.
type rule struct {
	name  string
	check func(ctx context.Context, ev evaluation) *rejection
}

func NewValidator(cfg Config, oracle llm.ValidationCapability, logger *slog.Logger) *Validator {
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 0.7
	}
	if cfg.MaxTests <= 0 {
		cfg.MaxTests = 20
	}
	if cfg.MinTests <= 0 {
		cfg.MinTests = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	v := &Validator{cfg: cfg, oracle: oracle, logger: logger}
	v.rules = []rule{
		{name: "confidence_floor", check: v.checkConfidenceFloor},
		{name: "max_test_count", check: v.checkMaxCount},
		{name: "min_test_count", check: v.checkMinCount},
		{name: "hallucination", check: v.checkHallucination},
		{name: "plausibility", check: v.checkPlausibility},
	}
	return v
}

// Validate runs the chain over a normalized result. confidence is the
// score the floor rule evaluates and the one echoed into rejection
// details.
func (v *Validator) Validate(ctx context.Context, originalInput string, rawTests []string, normalized report.NormalizedResult, confidence float32) Verdict {
	ev := evaluation{
		originalInput: originalInput,
		rawTests:      rawTests,
		normalized:    normalized,
		confidence:    confidence,
	}
	for _, r := range v.rules {
		if rej := r.check(ctx, ev); rej != nil {
			v.logger.Warn("guardrail.rejected",
				"rule", r.name,
				"reason", rej.reason,
				"confidence", confidence,
				"test_count", len(normalized.Tests),
			)
			return Verdict{
				ID:        uuid.New().String(),
				Valid:     false,
				Reason:    rej.reason,
				Details:   rej.details,
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			}
		}
	}
	v.logger.Info("guardrail.passed",
		"test_count", len(normalized.Tests),
		"confidence", confidence,
	)
	return Verdict{
		ID:        uuid.New().String(),
		Valid:     true,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func (v *Validator) checkConfidenceFloor(_ context.Context, ev evaluation) *rejection {
	if ev.confidence >= v.cfg.MinConfidence {
		return nil
	}
	return &rejection{
		reason: "confidence below acceptable threshold",
		details: map[string]any{
			"confidence_score": ev.confidence,
			"minimum_required": v.cfg.MinConfidence,
		},
	}
}

func (v *Validator) checkMaxCount(_ context.Context, ev evaluation) *rejection {
	if len(ev.normalized.Tests) <= v.cfg.MaxTests {
		return nil
	}
	return &rejection{
		reason: "too many tests detected",
		details: map[string]any{
			"detected_count":   len(ev.normalized.Tests),
			"maximum_allowed":  v.cfg.MaxTests,
			"confidence_score": ev.confidence,
		},
	}
}

func (v *Validator) checkMinCount(_ context.Context, ev evaluation) *rejection {
	if len(ev.normalized.Tests) >= v.cfg.MinTests {
		return nil
	}
	return &rejection{
		reason: "no valid tests detected",
		details: map[string]any{
			"detected_count":   len(ev.normalized.Tests),
			"minimum_required": v.cfg.MinTests,
			"confidence_score": ev.confidence,
		},
	}
}

// checkHallucination delegates to the validation oracle and, on a negative
// verdict, computes a local per-test explanation. An oracle failure is a
// rejection in its own right: this rule fails closed.
func (v *Validator) checkHallucination(ctx context.Context, ev evaluation) *rejection {
	ok, err := v.oracle.ValidateExtraction(ctx, ev.originalInput, ev.rawTests)
	if err != nil {
		v.logger.Error("guardrail.validation_oracle_error", "error", err)
		return &rejection{
			reason: "validation system error",
			details: map[string]any{
				"error":            err.Error(),
				"confidence_score": ev.confidence,
			},
		}
	}
	if ok {
		return nil
	}
	return &rejection{
		reason: "potential hallucination detected: extracted tests not present in original input",
		details: map[string]any{
			"detected_hallucinations": v.explainHallucinations(ev),
			"confidence_score":        ev.confidence,
		},
	}
}

// explainHallucinations names the normalized tests that cannot be traced
// back to the original input: no known synonym of the canonical name
// appears in the lower-cased original, or neither the plain nor the
// locale-formatted value string does.
func (v *Validator) explainHallucinations(ev evaluation) []string {
	original := strings.ToLower(ev.originalInput)
	var flagged []string
	for _, t := range ev.normalized.Tests {
		nameSeen := false
		for _, syn := range normalize.SynonymsFor(t.Name) {
			if strings.Contains(original, syn) {
				nameSeen = true
				break
			}
		}
		valueSeen := strings.Contains(ev.originalInput, plainValue(t.Value)) ||
			strings.Contains(ev.originalInput, groupedValue(t.Value))
		if !nameSeen || !valueSeen {
			flagged = append(flagged, t.Name)
		}
	}
	return flagged
}

func (v *Validator) checkPlausibility(_ context.Context, ev evaluation) *rejection {
	for _, t := range ev.normalized.Tests {
		if t.Value <= 0 {
			return &rejection{
				reason: fmt.Sprintf("%s value must be positive", t.Name),
				details: map[string]any{
					"test":             t.Name,
					"value":            t.Value,
					"confidence_score": ev.confidence,
				},
			}
		}
		bounds, ok := plausibilityBounds[t.Name]
		if !ok {
			continue
		}
		if t.Value < bounds.Low || t.Value > bounds.High {
			return &rejection{
				reason: fmt.Sprintf("%s value outside biologically possible range", t.Name),
				details: map[string]any{
					"test":             t.Name,
					"value":            t.Value,
					"unit":             t.Unit,
					"plausible_low":    bounds.Low,
					"plausible_high":   bounds.High,
					"confidence_score": ev.confidence,
				},
			}
		}
	}
	return nil
}
