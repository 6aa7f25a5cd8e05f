package llm

// BuildOCRResponseSchema returns the JSON-Schema (draft 2020-12 subset)
// the OCR oracle's response must satisfy. We pass it to the model as a
// structured-output constraint and also validate locally.
func BuildOCRResponseSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"text":       map[string]any{"type": "string"},
			"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
		},
		"required": []string{"text", "confidence"},
	}
}

// BuildSummaryResponseSchema constrains the summarization oracle output.
func BuildSummaryResponseSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"summary": map[string]any{"type": "string", "minLength": 1},
			"explanations": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required": []string{"summary", "explanations"},
	}
}

// BuildValidationResponseSchema constrains the hallucination-validation
// oracle output to a single boolean verdict.
func BuildValidationResponseSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"all_tests_present": map[string]any{"type": "boolean"},
		},
		"required": []string{"all_tests_present"},
	}
}
