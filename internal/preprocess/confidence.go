package preprocess

import "strings"

// CalculateConfidence estimates how reliable the extraction was, in [0,1].
//
// Base score: the fraction of whitespace-split tokens across the extracted
// test strings that literally appear (case-insensitively) in the original
// text. That is scaled by a test-count factor peaking at three tests and
// by a corruption penalty driven by the share of single-character words in
// the original (a strong OCR garbage signal).
func CalculateConfidence(originalText string, extractedTests []string) float32 {
	if len(extractedTests) == 0 {
		return 0
	}

	original := strings.ToLower(originalText)

	var total, present int
	for _, test := range extractedTests {
		for _, tok := range strings.Fields(strings.ToLower(test)) {
			total++
			if strings.Contains(original, tok) {
				present++
			}
		}
	}
	if total == 0 {
		return 0
	}
	base := float32(present) / float32(total)

	countFactor := float32(len(extractedTests)) / 3.0
	if countFactor > 1 {
		countFactor = 1
	}

	penalty := corruptionPenalty(originalText)

	conf := base * countFactor * (1 - penalty)
	return clamp01(conf)
}

// corruptionPenalty measures single-character-word density in the original
// text, doubled and capped at 0.5.
func corruptionPenalty(text string) float32 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}
	single := 0
	for _, w := range words {
		if len([]rune(w)) == 1 {
			single++
		}
	}
	ratio := float32(single) / float32(len(words))
	penalty := 2 * ratio
	if penalty > 0.5 {
		penalty = 0.5
	}
	return penalty
}

func clamp01(f float32) float32 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
