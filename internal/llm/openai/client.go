package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medtext/labguard/internal/llm"
	"github.com/medtext/labguard/internal/report"
)

// ExtractText implements llm.OCRCapability via a vision message carrying
// the base64 payload as a data URL. The returned confidence is clamped
// into [0,1] before anything downstream sees it.
func (c *Client) ExtractText(ctx context.Context, imageB64 string) (llm.OCRResult, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.ocr.start",
		"req_id", rid,
		"model", c.cfg.VisionModel,
		"payload_len", len(imageB64),
	)

	schema := llm.BuildOCRResponseSchema()
	sys := strings.Join([]string{
		"You are a medical-document OCR engine.",
		"Transcribe ALL text visible in the image, preserving test names, values and units exactly as printed.",
		"Estimate your transcription confidence as a number between 0 and 1.",
		"Return ONLY JSON that matches the provided schema.",
	}, " ")

	body := map[string]any{
		"model":           c.cfg.VisionModel,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": sys},
			{"role": "user", "content": []map[string]any{
				{"type": "image_url", "image_url": map[string]any{
					"url": "data:image/png;base64," + imageB64,
				}},
			}},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(schema)},
		},
	}

	content, err := c.chatJSON(ctx, rid, body, schema)
	if err != nil {
		c.log.Error("llm.ocr.failed", "req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return llm.OCRResult{}, err
	}

	var out llm.OCRResult
	if err := json.Unmarshal(content, &out); err != nil {
		return llm.OCRResult{}, fmt.Errorf("unmarshal ocr result: %w", err)
	}
	if out.Confidence < 0 {
		out.Confidence = 0
	}
	if out.Confidence > 1 {
		out.Confidence = 1
	}

	c.log.Info("llm.ocr.ok",
		"req_id", rid,
		"text_len", len(out.Text),
		"confidence", out.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// Summarize implements llm.SummaryCapability.
func (c *Client) Summarize(ctx context.Context, tests []report.NormalizedTest) (llm.Summary, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.summary.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"test_count", len(tests),
	)

	schema := llm.BuildSummaryResponseSchema()
	sys := strings.Join([]string{
		"You summarize lab results for patients in plain language.",
		"Do not diagnose, do not give medical advice; describe what each value means relative to its reference range.",
		"Provide one short explanation per test in 'explanations'.",
		"Return ONLY JSON that matches the provided schema.",
	}, " ")

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": sys},
			{"role": "user", "content": buildTestsPrompt(tests)},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(schema)},
		},
	}

	content, err := c.chatJSON(ctx, rid, body, schema)
	if err != nil {
		c.log.Error("llm.summary.failed", "req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return llm.Summary{}, err
	}

	var out llm.Summary
	if err := json.Unmarshal(content, &out); err != nil {
		return llm.Summary{}, fmt.Errorf("unmarshal summary: %w", err)
	}

	c.log.Info("llm.summary.ok",
		"req_id", rid,
		"summary_len", len(out.Summary),
		"explanations", len(out.Explanations),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// ValidateExtraction implements llm.ValidationCapability: it asks whether
// every extracted test string is actually present in the original input.
func (c *Client) ValidateExtraction(ctx context.Context, originalInput string, extractedTests []string) (bool, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.validate.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"input_len", len(originalInput),
		"test_count", len(extractedTests),
	)

	schema := llm.BuildValidationResponseSchema()
	sys := strings.Join([]string{
		"You verify data provenance for a medical extraction pipeline.",
		"Given an original document text and a list of extracted test strings,",
		"answer whether every extracted test (name and value) is supported by the original text.",
		"Return ONLY JSON that matches the provided schema.",
	}, " ")

	var user strings.Builder
	user.WriteString("Original text:\n")
	user.WriteString(originalInput)
	user.WriteString("\n\nExtracted tests:\n")
	for _, t := range extractedTests {
		user.WriteString("- ")
		user.WriteString(t)
		user.WriteString("\n")
	}

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": sys},
			{"role": "user", "content": user.String()},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(schema)},
		},
	}

	content, err := c.chatJSON(ctx, rid, body, schema)
	if err != nil {
		c.log.Error("llm.validate.failed", "req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return false, err
	}

	var out struct {
		AllTestsPresent bool `json:"all_tests_present"`
	}
	if err := json.Unmarshal(content, &out); err != nil {
		return false, fmt.Errorf("unmarshal validation verdict: %w", err)
	}

	c.log.Info("llm.validate.ok",
		"req_id", rid,
		"all_tests_present", out.AllTestsPresent,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out.AllTestsPresent, nil
}

// chatJSON posts one chat-completions request, pulls the first choice and
// validates it against the local schema before handing it back.
func (c *Client) chatJSON(ctx context.Context, rid string, body map[string]any, schema map[string]any) ([]byte, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	raw, _, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.log)
	if err != nil {
		return nil, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return nil, fmt.Errorf("no choices in chat response")
	}
	content := []byte(strings.TrimSpace(cc.Choices[0].Message.Content))

	if err := llm.ValidateJSONAgainstSchema(schema, content); err != nil {
		c.log.Error("llm.schema_validation_failed", "req_id", rid, "error", err, "content", string(content))
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}
	return content, nil
}

func buildTestsPrompt(tests []report.NormalizedTest) string {
	var b strings.Builder
	b.WriteString("Normalized lab tests:\n")
	for _, t := range tests {
		fmt.Fprintf(&b, "- %s: %g %s (%s, reference %g-%g)\n",
			t.Name, t.Value, t.Unit, t.Status, t.RefRange.Low, t.RefRange.High)
	}
	return b.String()
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
