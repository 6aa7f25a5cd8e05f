package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/medtext/labguard/constants"
	"github.com/medtext/labguard/internal/report"
)

// BatchOptions controls batch execution. The default is strictly
// sequential processing; Concurrency > 1 is an explicit opt-in for
// bounded fan-out and does not change per-item semantics.
type BatchOptions struct {
	Concurrency int
}

// ProcessBatch runs N independent pipeline invocations and aggregates the
// outcome. Item failures never fail the batch; they are counted.
func (p *Pipeline) ProcessBatch(ctx context.Context, inputs []report.Input, opts BatchOptions) report.BatchResult {
	results := make([]report.Output, len(inputs))

	if opts.Concurrency > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Concurrency)
		for i, in := range inputs {
			g.Go(func() error {
				results[i] = p.Process(gctx, in)
				return nil
			})
		}
		// workers never return errors; Wait only orders the writes
		_ = g.Wait()
	} else {
		for i, in := range inputs {
			results[i] = p.Process(ctx, in)
		}
	}

	var successful, failed int
	for _, r := range results {
		if r.OK() {
			successful++
		} else {
			failed++
		}
	}

	status := constants.BatchStatusPartialFailure
	switch {
	case failed == 0:
		status = constants.BatchStatusCompleted
	case successful == 0:
		status = constants.BatchStatusFailed
	}

	p.logger.Info("pipeline.batch.done",
		"total", len(inputs),
		"successful", successful,
		"failed", failed,
		"status", status,
	)
	return report.BatchResult{
		Successful: successful,
		Failed:     failed,
		Results:    results,
		Status:     status,
	}
}
