// labguard processes a single lab report (text or image) and prints the
// structured result as JSON.
//
// Usage:
//
//	labguard -type text -data "Hemoglobin 14.5 g/dL, WBC 7500 /uL"
//	labguard -type image -file report.png
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/medtext/labguard/internal/common"
	"github.com/medtext/labguard/internal/guardrail"
	"github.com/medtext/labguard/internal/llm/openai"
	"github.com/medtext/labguard/internal/normalize"
	"github.com/medtext/labguard/internal/pipeline"
	"github.com/medtext/labguard/internal/report"
)

func main() {
	inputType := flag.String("type", "text", "input type: text | image")
	data := flag.String("data", "", "literal report text (for -type text)")
	file := flag.String("file", "", "path to a report file; image bytes are base64-encoded")
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

	payload := *data
	if *file != "" {
		bs, err := os.ReadFile(*file)
		if err != nil {
			logger.Error("read input file failed", "path", *file, "error", err)
			os.Exit(1)
		}
		if *inputType == "image" {
			payload = base64.StdEncoding.EncodeToString(bs)
		} else {
			payload = string(bs)
		}
	}
	if payload == "" {
		fmt.Fprintln(os.Stderr, "one of -data or -file is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg := common.LoadConfig()
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

	out := pipe.Process(ctx, report.Input{Type: *inputType, Data: payload})

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Error("encode output failed", "error", err)
		os.Exit(1)
	}
	if !out.OK() {
		os.Exit(1)
	}
}
