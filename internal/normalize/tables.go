package normalize

import "github.com/medtext/labguard/internal/report"

// Canonical test names. Every recognized synonym maps onto one of these;
// nothing outside this vocabulary leaves the normalizer.
const (
	TestHemoglobin    = "Hemoglobin"
	TestHematocrit    = "Hematocrit"
	TestWBC           = "WBC"
	TestRBC           = "RBC"
	TestPlatelets     = "Platelets"
	TestGlucose       = "Glucose"
	TestHbA1c         = "HbA1c"
	TestCholesterol   = "Total Cholesterol"
	TestLDL           = "LDL"
	TestHDL           = "HDL"
	TestTriglycerides = "Triglycerides"
	TestCreatinine    = "Creatinine"
	TestBUN           = "BUN"
	TestSodium        = "Sodium"
	TestPotassium     = "Potassium"
	TestChloride      = "Chloride"
	TestCalcium       = "Calcium"
	TestALT           = "ALT"
	TestAST           = "AST"
	TestTSH           = "TSH"
)

// synonyms maps lower-cased raw spellings to canonical names.
var synonyms = map[string]string{
	"hemoglobin": TestHemoglobin,
	"hgb":        TestHemoglobin,
	"hb":         TestHemoglobin,

	"hematocrit": TestHematocrit,
	"hct":        TestHematocrit,

	"wbc":                    TestWBC,
	"white blood cells":      TestWBC,
	"white blood cell count": TestWBC,
	"leukocytes":             TestWBC,

	"rbc":             TestRBC,
	"red blood cells": TestRBC,
	"erythrocytes":    TestRBC,

	"platelets":      TestPlatelets,
	"platelet count": TestPlatelets,
	"plt":            TestPlatelets,

	"glucose":         TestGlucose,
	"blood glucose":   TestGlucose,
	"fasting glucose": TestGlucose,
	"blood sugar":     TestGlucose,

	"hba1c":               TestHbA1c,
	"a1c":                 TestHbA1c,
	"glycated hemoglobin": TestHbA1c,

	"cholesterol":       TestCholesterol,
	"total cholesterol": TestCholesterol,

	"ldl":             TestLDL,
	"ldl cholesterol": TestLDL,
	"ldl-c":           TestLDL,

	"hdl":             TestHDL,
	"hdl cholesterol": TestHDL,
	"hdl-c":           TestHDL,

	"triglycerides": TestTriglycerides,
	"tg":            TestTriglycerides,
	"trig":          TestTriglycerides,

	"creatinine": TestCreatinine,
	"creat":      TestCreatinine,
	"cr":         TestCreatinine,

	"bun":                 TestBUN,
	"blood urea nitrogen": TestBUN,
	"urea":                TestBUN,

	"sodium": TestSodium,
	"na":     TestSodium,

	"potassium": TestPotassium,
	"k":         TestPotassium,

	"chloride": TestChloride,
	"cl":       TestChloride,

	"calcium": TestCalcium,
	"ca":      TestCalcium,

	"alt":                      TestALT,
	"sgpt":                     TestALT,
	"alanine aminotransferase": TestALT,

	"ast":                        TestAST,
	"sgot":                       TestAST,
	"aspartate aminotransferase": TestAST,

	"tsh":                         TestTSH,
	"thyroid stimulating hormone": TestTSH,
}

// unitCanonical maps lower-cased unit spellings to display casing.
// Unmapped units pass through unchanged.
var unitCanonical = map[string]string{
	"mg/dl":  "mg/dL",
	"g/dl":   "g/dL",
	"/ul":    "/uL",
	"ul":     "uL",
	"mmol/l": "mmol/L",
	"meq/l":  "mEq/L",
	"u/l":    "U/L",
	"iu/l":   "IU/L",
	"miu/l":  "mIU/L",
	"%":      "%",
}

// referenceRanges holds the population-default interval per canonical
// test in its canonical unit. Sex-specific variants are carried where the
// source tables define them but only the default pair is applied.
var referenceRanges = map[string]report.ReferenceRange{
	TestHemoglobin:    {Low: 12.0, High: 17.5, MaleLow: 13.5, MaleHigh: 17.5, FemaleLow: 12.0, FemaleHigh: 15.5},
	TestHematocrit:    {Low: 36, High: 53, MaleLow: 41, MaleHigh: 53, FemaleLow: 36, FemaleHigh: 46},
	TestWBC:           {Low: 4500, High: 11000},
	TestRBC:           {Low: 4.2, High: 6.1},
	TestPlatelets:     {Low: 150000, High: 450000},
	TestGlucose:       {Low: 70, High: 100},
	TestHbA1c:         {Low: 4.0, High: 5.6},
	TestCholesterol:   {Low: 125, High: 200},
	TestLDL:           {Low: 50, High: 129},
	TestHDL:           {Low: 40, High: 90},
	TestTriglycerides: {Low: 30, High: 150},
	TestCreatinine:    {Low: 0.6, High: 1.3, MaleLow: 0.7, MaleHigh: 1.3, FemaleLow: 0.6, FemaleHigh: 1.1},
	TestBUN:           {Low: 7, High: 20},
	TestSodium:        {Low: 135, High: 145},
	TestPotassium:     {Low: 3.5, High: 5.2},
	TestChloride:      {Low: 96, High: 106},
	TestCalcium:       {Low: 8.6, High: 10.3},
	TestALT:           {Low: 7, High: 56},
	TestAST:           {Low: 10, High: 40},
	TestTSH:           {Low: 0.4, High: 4.0},
}

// CanonicalName resolves a lower-cased, trimmed raw name; ok is false for
// anything outside the vocabulary.
func CanonicalName(raw string) (string, bool) {
	name, ok := synonyms[raw]
	return name, ok
}

// RangeFor returns the reference range for a canonical name.
func RangeFor(canonical string) (report.ReferenceRange, bool) {
	r, ok := referenceRanges[canonical]
	return r, ok
}

// SynonymsFor returns all raw spellings that map to the given canonical
// name, for provenance checks against the original input.
func SynonymsFor(canonical string) []string {
	var out []string
	for raw, c := range synonyms {
		if c == canonical {
			out = append(out, raw)
		}
	}
	return out
}
