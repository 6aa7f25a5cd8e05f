package report

// ReferenceRange is the population-normal interval for a canonical test,
// in the test's canonical unit.
type ReferenceRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`

	// Sex-specific variants. Only the default Low/High pair is applied
	// today; these are carried for the vocabulary tables that define them.
	MaleLow    float64 `json:"male_low,omitempty"`
	MaleHigh   float64 `json:"male_high,omitempty"`
	FemaleLow  float64 `json:"female_low,omitempty"`
	FemaleHigh float64 `json:"female_high,omitempty"`
}

// TestStatus classifies a value against its reference range.
type TestStatus string

const (
	StatusLow    TestStatus = "low"
	StatusNormal TestStatus = "normal"
	StatusHigh   TestStatus = "high"
)

// NormalizedTest is one measurement mapped onto the canonical vocabulary.
type NormalizedTest struct {
	Name     string         `json:"name"` // canonical test name
	Value    float64        `json:"value"`
	Unit     string         `json:"unit"`
	Status   TestStatus     `json:"status"`
	RefRange ReferenceRange `json:"ref_range"`
}

// RawExtraction is the output of the extraction stage: one raw test string
// per detected measurement, plus a heuristic extraction confidence.
type RawExtraction struct {
	Tests      []string `json:"tests_raw"`
	Confidence float32  `json:"confidence"` // 0..1
}

// NormalizedResult is the output of the normalization stage.
type NormalizedResult struct {
	Tests      []NormalizedTest `json:"tests"`
	Confidence float32          `json:"normalization_confidence"` // 0..1
}

// Input is the sole entry-point payload: literal text for "text",
// base64-encoded bytes for "image".
type Input struct {
	Type string `json:"input_type"`
	Data string `json:"data"`
}

// FinalOutput is a fully processed, guardrail-approved result.
type FinalOutput struct {
	Tests          []NormalizedTest `json:"tests"`
	Summary        string           `json:"summary"`
	Explanations   []string         `json:"explanations"`
	Status         string           `json:"status"` // "ok"
	Confidence     float32          `json:"confidence"`
	ProcessingTime string           `json:"processing_time"` // e.g. "1.3s"
}

// ErrorOutput is the structured terminal failure for one request.
type ErrorOutput struct {
	Status    string         `json:"status"` // "unprocessed"
	Reason    string         `json:"reason"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp string         `json:"timestamp"` // RFC3339
}

// Output is the union returned by the pipeline: exactly one of Result or
// Err is set.
type Output struct {
	Result *FinalOutput `json:"result,omitempty"`
	Err    *ErrorOutput `json:"error,omitempty"`
}

// OK reports whether the run produced an approved result.
func (o Output) OK() bool { return o.Result != nil }

// BatchResult aggregates N sequential pipeline invocations.
type BatchResult struct {
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Results    []Output `json:"results"`
	Status     string   `json:"status"` // completed | partial_failure | failed
}
