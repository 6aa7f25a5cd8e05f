// labguard-batch processes many lab reports in one invocation. Inputs are
// text files given as arguments (or every *.txt under -dir). Results are
// printed as a JSON batch summary and can optionally be exported to XLSX
// and recorded in a local SQLite file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/medtext/labguard/constants"
	"github.com/medtext/labguard/internal/common"
	"github.com/medtext/labguard/internal/entity"
	"github.com/medtext/labguard/internal/export"
	"github.com/medtext/labguard/internal/guardrail"
	"github.com/medtext/labguard/internal/llm/openai"
	"github.com/medtext/labguard/internal/normalize"
	"github.com/medtext/labguard/internal/pipeline"
	"github.com/medtext/labguard/internal/report"
	"github.com/medtext/labguard/internal/repository"
)

func main() {
	dir := flag.String("dir", "", "process every *.txt file under this directory")
	concurrency := flag.Int("concurrency", 0, "max parallel items (default: BATCH_CONCURRENCY env, sequential)")
	xlsxPath := flag.String("xlsx", "", "write an XLSX report of the batch to this path")
	sqlitePath := flag.String("sqlite", "", "record runs in this SQLite file")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	paths := flag.Args()
	if *dir != "" {
		found, err := collectTextFiles(*dir)
		if err != nil {
			logger.Error("scan directory failed", "dir", *dir, "error", err)
			os.Exit(1)
		}
		paths = append(paths, found...)
	}
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "no inputs: pass file paths or -dir")
		flag.Usage()
		os.Exit(2)
	}

	inputs := make([]report.Input, 0, len(paths))
	for _, p := range paths {
		bs, err := os.ReadFile(p)
		if err != nil {
			logger.Error("read input failed", "path", p, "error", err)
			os.Exit(1)
		}
		inputs = append(inputs, report.Input{Type: string(constants.InputTypeText), Data: string(bs)})
	}

	cfg := common.LoadConfig()
	if *concurrency <= 0 {
		*concurrency = cfg.Pipeline.BatchConcurrency
	}

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
	pipe := pipeline.New(logger, normalizer, guard, oracle, oracle)

	var store *repository.SQLiteRunStore
	if *sqlitePath != "" {
		var err error
		store, err = repository.OpenSQLiteRunStore(*sqlitePath, logger)
		if err != nil {
			logger.Error("open sqlite store failed", "path", *sqlitePath, "error", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	res := pipe.ProcessBatch(ctx, inputs, pipeline.BatchOptions{Concurrency: *concurrency})

	if store != nil {
		recordBatch(ctx, logger, store, inputs, res)
	}

	if *xlsxPath != "" {
		bs, err := export.NewService(logger).ExportBatchXLSX(res)
		if err != nil {
			logger.Error("xlsx export failed", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*xlsxPath, bs, 0o644); err != nil {
			logger.Error("write xlsx failed", "path", *xlsxPath, "error", err)
			os.Exit(1)
		}
		logger.Info("xlsx written", "path", *xlsxPath, "bytes", len(bs))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		logger.Error("encode batch result failed", "error", err)
		os.Exit(1)
	}
	if res.Status == constants.BatchStatusFailed {
		os.Exit(1)
	}
}

// recordBatch persists one completed run row per item. The batch already
// ran; recording failures are logged and do not change the exit code.
func recordBatch(ctx context.Context, logger *slog.Logger, store *repository.SQLiteRunStore, inputs []report.Input, res report.BatchResult) {
	for i, out := range res.Results {
		run := &entity.ProcessingRun{
			InputType: inputs[i].Type,
			InputData: inputs[i].Data,
		}
		if err := store.Create(ctx, run); err != nil {
			logger.Error("record run failed", "item", i+1, "error", err)
			continue
		}
		payload, err := json.Marshal(out)
		if err != nil {
			logger.Error("marshal run output failed", "item", i+1, "error", err)
		}
		if out.OK() {
			err = store.FinishSuccess(ctx, run.ID, out.Result.Confidence, len(out.Result.Tests), payload)
		} else {
			err = store.FinishFailure(ctx, run.ID, out.Err.Reason, payload)
		}
		if err != nil {
			logger.Error("finish run record failed", "item", i+1, "run_id", run.ID, "error", err)
		}
	}
}

func collectTextFiles(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".txt" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
