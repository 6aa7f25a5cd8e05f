package async

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"log/slog"

	"github.com/medtext/labguard/internal/pipeline"
	"github.com/medtext/labguard/internal/report"
	"github.com/medtext/labguard/internal/repository"
)

// RunnerQueue processes claimed runs with a bounded worker pool and
// persists the terminal outcome on the run record.
type RunnerQueue struct {
	pipe    *pipeline.Pipeline
	store   repository.RunRecorder
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*RunnerQueue)

func WithWorkers(n int) Option {
	return func(q *RunnerQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *RunnerQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *RunnerQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewRunnerQueue(pipe *pipeline.Pipeline, store repository.RunRecorder, logger *slog.Logger, opts ...Option) *RunnerQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &RunnerQueue{
		pipe:    pipe,
		store:   store,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *RunnerQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					q.process(ctx, workerID, job)
					cancel()
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *RunnerQueue) process(ctx context.Context, workerID int, job Job) {
	run := job.Run
	out := q.pipe.ProcessRun(ctx, run.ID, report.Input{Type: run.InputType, Data: run.InputData})

	payload, err := json.Marshal(out)
	if err != nil {
		q.logger.Error("marshal run output failed", "worker_id", workerID, "run_id", run.ID, "error", err)
	}

	if out.OK() {
		if err := q.store.FinishSuccess(ctx, run.ID, out.Result.Confidence, len(out.Result.Tests), payload); err != nil {
			q.logger.Error("persist run success failed", "worker_id", workerID, "run_id", run.ID, "error", err)
			return
		}
		q.logger.Info("processed run successfully", "worker_id", workerID, "run_id", run.ID,
			"tests", len(out.Result.Tests), "confidence", out.Result.Confidence)
		return
	}

	if err := q.store.FinishFailure(ctx, run.ID, out.Err.Reason, payload); err != nil {
		q.logger.Error("persist run failure failed", "worker_id", workerID, "run_id", run.ID, "error", err)
		return
	}
	q.logger.Warn("run rejected", "worker_id", workerID, "run_id", run.ID, "reason", out.Err.Reason)
}

func (q *RunnerQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "run_id", job.Run.ID)
		return nil
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued run for processing", "run_id", job.Run.ID)
	default:
		q.logger.Warn("queue full, applying backpressure", "run_id", job.Run.ID)
		q.ch <- job
	}
	return nil
}

func (q *RunnerQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
