package preprocess

import (
	"reflect"
	"testing"
)

func TestPreprocessText_Corrections(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"typo hemoglobin", "Hemogloben 14.5 g/dL", "hemoglobin 14.5 g/dl"},
		{"typo cholesterol", "Cholestrol 180 mg/dl", "cholesterol 180 mg/dl"},
		{"ocr unit di", "glucose 95 mg/di", "glucose 95 mg/dl"},
		{"ocr unit ui", "wbc 7500 /ui", "wbc 7500 /ul"},
		{"collapse whitespace", "glucose   95\t mg/dl", "glucose 95 mg/dl"},
		{"punctuation spacing", "glucose : 95 mg/dl , sodium : 140", "glucose: 95 mg/dl, sodium: 140"},
		{"paren spacing", "glucose 95 mg/dl( high )", "glucose 95 mg/dl (high)"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := PreprocessText(c.in)
			if got != c.want {
				t.Errorf("PreprocessText(%q) = %q, want %q", c.in, got, c.want)
			}
		})
	}
}

func TestPreprocessText_Idempotent(t *testing.T) {
	inputs := []string{
		"Hemogloben  14.5 g/di (HIGH)",
		"glucose : 95 mg/di,wbc 7500 /ui",
		"  Cholestrol   180  mg/d1  ",
		"potasium 4.2 meq/i; sodiurn 140 meq/i",
	}
	for _, in := range inputs {
		once := PreprocessText(in)
		twice := PreprocessText(once)
		if once != twice {
			t.Errorf("not idempotent for %q:\n once: %q\ntwice: %q", in, once, twice)
		}
	}
}

func TestPreprocessText_NoIdentityRewrites(t *testing.T) {
	// correct spellings must pass through untouched
	in := "hemoglobin 14.5 g/dl, cholesterol 180 mg/dl, hematocrit 42 %"
	if got := PreprocessText(in); got != in {
		t.Errorf("correct text was rewritten: %q -> %q", in, got)
	}
}

func TestExtractTests_Structured(t *testing.T) {
	text := "hemoglobin 14.5 g/dl, wbc 7500 /ul (high), glucose 95 mg/dl"
	want := []string{
		"hemoglobin 14.5 g/dl",
		"wbc 7500 /ul (high)",
		"glucose 95 mg/dl",
	}
	got := ExtractTests(text)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractTests(%q) = %v, want %v", text, got, want)
	}
}

func TestExtractTests_DelimiterFallback(t *testing.T) {
	// colon-delimited, unitless entries miss the structured pattern but
	// survive the delimiter split
	text := "glucose: 95; sodium: 140; notes follow here"
	got := ExtractTests(text)
	want := []string{"glucose: 95", "sodium: 140"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractTests(%q) = %v, want %v", text, got, want)
	}
}

func TestExtractTests_Empty(t *testing.T) {
	if got := ExtractTests("no measurements in this sentence"); len(got) != 0 {
		t.Errorf("expected no tests, got %v", got)
	}
}

func TestCalculateConfidence_NoTests(t *testing.T) {
	if got := CalculateConfidence("glucose 95 mg/dl", nil); got != 0 {
		t.Errorf("expected 0 for empty extraction, got %v", got)
	}
}

func TestCalculateConfidence_CleanInput(t *testing.T) {
	original := "hemoglobin 14.5 g/dl wbc 7500 /ul glucose 95 mg/dl"
	tests := []string{
		"hemoglobin 14.5 g/dl",
		"wbc 7500 /ul",
		"glucose 95 mg/dl",
	}
	got := CalculateConfidence(original, tests)
	if got != 1.0 {
		t.Errorf("expected 1.0 for fully grounded three-test extraction, got %v", got)
	}
}

func TestCalculateConfidence_CountFactor(t *testing.T) {
	original := "glucose 95 mg/dl"
	one := CalculateConfidence(original, []string{"glucose 95 mg/dl"})
	// one test: base 1.0 scaled by 1/3
	if one < 0.3 || one > 0.35 {
		t.Errorf("expected ~0.333 for a single test, got %v", one)
	}
}

func TestCalculateConfidence_CorruptionPenalty(t *testing.T) {
	clean := CalculateConfidence(
		"glucose 95 mg/dl sodium 140 meq/l potassium 4.2 meq/l",
		[]string{"glucose 95 mg/dl", "sodium 140 meq/l", "potassium 4.2 meq/l"},
	)
	// same tests but the original is littered with single-char OCR noise
	noisy := CalculateConfidence(
		"x q z j w glucose 95 mg/dl sodium 140 meq/l potassium 4.2 meq/l r k p m n",
		[]string{"glucose 95 mg/dl", "sodium 140 meq/l", "potassium 4.2 meq/l"},
	)
	if noisy >= clean {
		t.Errorf("corrupted input should score lower: clean=%v noisy=%v", clean, noisy)
	}
}

func TestCalculateConfidence_Bounds(t *testing.T) {
	got := CalculateConfidence("x", []string{"completely unrelated 999 units"})
	if got < 0 || got > 1 {
		t.Errorf("confidence out of [0,1]: %v", got)
	}
}
