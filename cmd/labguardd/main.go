// labguardd is the long-running worker daemon. Queued runs land in the
// processing_run table (Postgres); the daemon claims them, pushes them
// through the pipeline with a bounded worker pool and writes the outcome
// back. A gRPC endpoint serves synchronous processing requests and a
// health service reports liveness for orchestrators.
package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/medtext/labguard/internal/async"
	"github.com/medtext/labguard/internal/common"
	"github.com/medtext/labguard/internal/guardrail"
	"github.com/medtext/labguard/internal/llm/openai"
	"github.com/medtext/labguard/internal/normalize"
	"github.com/medtext/labguard/internal/pipeline"
	"github.com/medtext/labguard/internal/repository"
	"github.com/medtext/labguard/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("database connect failed", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

	if err := repository.HealthCheck(ctx, pool, cfg.Database.DialTimeout, logger); err != nil {
		logger.Error("database health check failed", "error", err)
		os.Exit(1)
	}

	store := repository.NewPGRunStore(pool, logger)

	oracle := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		VisionModel: cfg.LLM.VisionModel,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	normalizer := normalize.NewNormalizer(logger)
	guard := guardrail.NewValidator(guardrail.Config{
		MinConfidence: cfg.Pipeline.MinConfidence,
		MaxTests:      cfg.Pipeline.MaxTests,
	}, oracle, logger)
	pipe := pipeline.New(logger, normalizer, guard, oracle, oracle).WithRecorder(store)

	queue := async.NewRunnerQueue(pipe, store, logger,
		async.WithWorkers(cfg.Server.Workers),
		async.WithQueueSize(cfg.Server.QueueSize),
	)

	// gRPC: synchronous processing + health + reflection
	grpcServer := grpc.NewServer()
	server.Register(grpcServer, server.NewService(pipe, logger))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("listen failed", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	go func() {
		logger.Info("grpc serving", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc serve failed", "error", err)
			stop()
		}
	}()

	go pollLoop(ctx, logger, store, queue, cfg.Server.PollInterval)

	<-ctx.Done()
	logger.Info("shutting down")
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	grpcServer.GracefulStop()

	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	queue.Shutdown(drainCtx)
	logger.Info("stopped")
}

// pollLoop claims queued runs and hands them to the worker queue. An
// empty claim backs off for the poll interval; a claim error does too,
// so a flapping database does not spin the loop.
func pollLoop(ctx context.Context, logger *slog.Logger, store *repository.PGRunStore, queue *async.RunnerQueue, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		run, err := store.ClaimNextQueued(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			logger.Error("claim queued run failed", "error", err)
		case run != nil:
			if err := queue.Enqueue(ctx, async.Job{Run: run, SubmittedAt: time.Now()}); err != nil {
				logger.Error("enqueue run failed", "run_id", run.ID, "error", err)
			}
			// keep draining the backlog without waiting for the ticker
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
