package preprocess

import (
	"regexp"
	"strings"
)

// corrections maps OCR-typical misspellings and sloppy abbreviations to
// the spellings the normalizer's vocabulary expects. Keys are matched on
// word boundaries, case-insensitively (input is lowercased first).
var corrections = map[string]string{
	// medical terms
	"hemogloben":  "hemoglobin",
	"hemglobin":   "hemoglobin",
	"haemoglobin": "hemoglobin",
	"hemoglobine": "hemoglobin",
	"glucos":      "glucose",
	"glocose":     "glucose",
	"gluc0se":     "glucose",
	"cholestrol":   "cholesterol",
	"colesterol":   "cholesterol",
	"creatinin":    "creatinine",
	"creatnine":    "creatinine",
	"platlets":     "platelets",
	"platelettes":  "platelets",
	"potasium":     "potassium",
	"potassiurn":   "potassium",
	"sodiurn":      "sodium",
	"triglyceride": "triglycerides",
	"hernoglobin":  "hemoglobin",
	"hematocrlt":   "hematocrit",

	// unit spellings (OCR confuses l/i/1 and m/rn)
	"mg/di":  "mg/dl",
	"mg/d1":  "mg/dl",
	"rng/dl": "mg/dl",
	"g/di":   "g/dl",
	"g/d1":   "g/dl",
	"/ui":    "/ul",
	"/u1":    "/ul",
	"mmol/i": "mmol/l",
	"meq/i":  "meq/l",
	"u/i":    "u/l",
	"miu/i":  "miu/l",
}

var (
	reWhitespace = regexp.MustCompile(`\s+`)

	// punctuation spacing: no space before, one space after
	reSpaceBeforePunct = regexp.MustCompile(`\s+([,:;])`)
	reSpaceAfterPunct  = regexp.MustCompile(`([,:;])(\S)`)

	// status parentheses: "(  high )" -> "(high)", "g/dl(high)" -> "g/dl (high)"
	reParenInner  = regexp.MustCompile(`\(\s*([^)\s]+)\s*\)`)
	reParenBefore = regexp.MustCompile(`(\S)\(`)

	correctionRules = buildCorrectionRules()
)

type correctionRule struct {
	re          *regexp.Regexp
	replacement string
}

func buildCorrectionRules() []correctionRule {
	rules := make([]correctionRule, 0, len(corrections))
	for from, to := range corrections {
		// \b only works against a word character; keys like "/ui" start
		// at a slash and must anchor without it.
		pattern := regexp.QuoteMeta(from) + `\b`
		if isWordChar(from[0]) {
			pattern = `\b` + pattern
		}
		rules = append(rules, correctionRule{
			re:          regexp.MustCompile(pattern),
			replacement: to,
		})
	}
	return rules
}

func isWordChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

// PreprocessText lowercases, collapses whitespace, applies the correction
// table and normalizes punctuation spacing. Pure and idempotent: applying
// it twice yields the same output as applying it once.
func PreprocessText(text string) string {
	s := strings.ToLower(text)
	s = reWhitespace.ReplaceAllString(s, " ")
	for _, rule := range correctionRules {
		s = rule.re.ReplaceAllString(s, rule.replacement)
	}
	s = reWhitespace.ReplaceAllString(s, " ")
	s = reSpaceBeforePunct.ReplaceAllString(s, "$1")
	s = reSpaceAfterPunct.ReplaceAllString(s, "$1 $2")
	s = reParenInner.ReplaceAllString(s, "($1)")
	s = reParenBefore.ReplaceAllString(s, "$1 (")
	return strings.TrimSpace(s)
}

// reRawTest matches one "<name> <number> <unit> (status)?" occurrence in
// preprocessed (lowercased, space-collapsed) text. The name may span
// multiple words; the unit starts at the first non-space token after the
// number and may carry slashes ("/ul", "mg/dl").
var reRawTest = regexp.MustCompile(
	`([a-z][a-z0-9/ ]*?)\s+(\d+(?:\.\d+)?)\s*([a-zµ%/][a-z0-9/µ%^]*)\s*(?:\(([a-z0-9]+)\))?`)

var reDelimiters = regexp.MustCompile(`[,;|\n]+`)

var reDigit = regexp.MustCompile(`\d`)

// ExtractTests pulls candidate raw-test substrings out of preprocessed
// text, one per structured match, re-joined into the canonical
// "name value unit (status)" shape. When the structured pattern matches
// nothing it falls back to delimiter splitting, keeping segments that
// carry at least one digit. Output strings are never empty.
func ExtractTests(text string) []string {
	matches := reRawTest.FindAllStringSubmatch(text, -1)
	if len(matches) > 0 {
		out := make([]string, 0, len(matches))
		for _, m := range matches {
			name := strings.TrimSpace(m[1])
			if name == "" {
				continue
			}
			var b strings.Builder
			b.WriteString(name)
			b.WriteString(" ")
			b.WriteString(m[2])
			b.WriteString(" ")
			b.WriteString(m[3])
			if m[4] != "" {
				b.WriteString(" (")
				b.WriteString(m[4])
				b.WriteString(")")
			}
			out = append(out, b.String())
		}
		if len(out) > 0 {
			return out
		}
	}

	// fallback: split on delimiters, keep lines that look measured
	parts := reDelimiters.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || !reDigit.MatchString(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}
