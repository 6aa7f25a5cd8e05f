package guardrail

import (
	"fmt"
	"strings"

	"github.com/medtext/labguard/internal/normalize"
)

// bound is a hard physiologic interval; values outside it are impossible
// in a living patient regardless of pathology.
type bound struct {
	Low  float64
	High float64
}

// plausibilityBounds per canonical test, in the test's canonical unit.
// Deliberately far wider than the reference ranges: these catch decimal
// shifts, unit mixups and fabricated values, not abnormal results.
var plausibilityBounds = map[string]bound{
	normalize.TestHemoglobin:    {Low: 1, High: 25},
	normalize.TestHematocrit:    {Low: 5, High: 75},
	normalize.TestWBC:           {Low: 100, High: 100000},
	normalize.TestRBC:           {Low: 0.5, High: 10},
	normalize.TestPlatelets:     {Low: 1000, High: 2000000},
	normalize.TestGlucose:       {Low: 10, High: 1000},
	normalize.TestHbA1c:         {Low: 2, High: 25},
	normalize.TestCholesterol:   {Low: 50, High: 1000},
	normalize.TestLDL:           {Low: 10, High: 500},
	normalize.TestHDL:           {Low: 5, High: 200},
	normalize.TestTriglycerides: {Low: 10, High: 5000},
	normalize.TestCreatinine:    {Low: 0.1, High: 20},
	normalize.TestBUN:           {Low: 1, High: 200},
	normalize.TestSodium:        {Low: 100, High: 185},
	normalize.TestPotassium:     {Low: 1, High: 12},
	normalize.TestChloride:      {Low: 60, High: 140},
	normalize.TestCalcium:       {Low: 4, High: 20},
	normalize.TestALT:           {Low: 1, High: 5000},
	normalize.TestAST:           {Low: 1, High: 5000},
	normalize.TestTSH:           {Low: 0.01, High: 150},
}

// plainValue renders a value the way it would appear typed out: no
// trailing zeros, no exponent.
func plainValue(v float64) string {
	s := fmt.Sprintf("%g", v)
	if strings.ContainsAny(s, "eE") {
		s = fmt.Sprintf("%f", v)
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	return s
}

// groupedValue renders the integer part with comma thousands separators,
// the only locale format the report corpus produces ("7,500").
func groupedValue(v float64) string {
	s := plainValue(v)
	intPart, frac, _ := strings.Cut(s, ".")
	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	if len(intPart) > 3 {
		var b strings.Builder
		lead := len(intPart) % 3
		if lead > 0 {
			b.WriteString(intPart[:lead])
		}
		for i := lead; i < len(intPart); i += 3 {
			if b.Len() > 0 {
				b.WriteString(",")
			}
			b.WriteString(intPart[i : i+3])
		}
		intPart = b.String()
	}

	out := intPart
	if neg {
		out = "-" + out
	}
	if frac != "" {
		out += "." + frac
	}
	return out
}
