// Package aggregate groups canonical records into per-date attendance
// buckets and per-student cumulative totals.
package aggregate

import (
	"practice-analytics/internal/models"
)

// staticStrength is the registered-student count per (branch, year)
var staticStrength = []models.StrengthEntry{
	{Branch: "CIVIL", Year: "II", RegisteredCount: 29},
	{Branch: "CSE", Year: "II", RegisteredCount: 1091},
	{Branch: "EEE", Year: "II", RegisteredCount: 65},
	{Branch: "ECE", Year: "II", RegisteredCount: 267},
	{Branch: "MECH", Year: "II", RegisteredCount: 128},
	{Branch: "MCT", Year: "II", RegisteredCount: 61},
	{Branch: "BIOMED", Year: "II", RegisteredCount: 62},
	{Branch: "IT", Year: "II", RegisteredCount: 193},
	{Branch: "AIDS", Year: "II", RegisteredCount: 335},
	{Branch: "CSBS", Year: "II", RegisteredCount: 67},
	{Branch: "AIML", Year: "II", RegisteredCount: 130},
	{Branch: "CS", Year: "II", RegisteredCount: 72},
	{Branch: "ACT", Year: "II", RegisteredCount: 63},
	{Branch: "VLSI", Year: "II", RegisteredCount: 64},

	{Branch: "CIVIL", Year: "III", RegisteredCount: 32},
	{Branch: "CSE", Year: "III", RegisteredCount: 258},
	{Branch: "EEE", Year: "III", RegisteredCount: 63},
	{Branch: "ECE", Year: "III", RegisteredCount: 193},
	{Branch: "MECH", Year: "III", RegisteredCount: 126},
	{Branch: "MCT", Year: "III", RegisteredCount: 61},
	{Branch: "BIOMED", Year: "III", RegisteredCount: 63},
	{Branch: "IT", Year: "III", RegisteredCount: 193},
	{Branch: "AIDS", Year: "III", RegisteredCount: 163},
	{Branch: "CSBS", Year: "III", RegisteredCount: 63},
	{Branch: "AIML", Year: "III", RegisteredCount: 128},
	{Branch: "CS", Year: "III", RegisteredCount: 63},
	{Branch: "ACT", Year: "III", RegisteredCount: 60},
	{Branch: "VLSI", Year: "III", RegisteredCount: 65},

	{Branch: "CSE", Year: models.CitarYear, RegisteredCount: 189},
	{Branch: "AIDS", Year: models.CitarYear, RegisteredCount: 63},
	{Branch: "EEE", Year: models.CitarYear, RegisteredCount: 59},
	{Branch: "ECE", Year: models.CitarYear, RegisteredCount: 64},
}

type strengthKey struct {
	branch, year string
}

// StrengthTable answers registered counts by (branch, year). It is read-only
// after construction and safe for concurrent use.
type StrengthTable struct {
	counts map[strengthKey]int
}

// NewStrengthTable indexes entries; a later duplicate key overrides an earlier one
func NewStrengthTable(entries []models.StrengthEntry) *StrengthTable {
	counts := make(map[strengthKey]int, len(entries))
	for _, e := range entries {
		counts[strengthKey{e.Branch, e.Year}] = e.RegisteredCount
	}
	return &StrengthTable{counts: counts}
}

var defaultStrength = NewStrengthTable(staticStrength)

// DefaultStrength returns the compiled-in strength table
func DefaultStrength() *StrengthTable {
	return defaultStrength
}

// Registered returns the registered count, or 0 when the pair is unknown
func (s *StrengthTable) Registered(branch, year string) int {
	if s == nil {
		return 0
	}
	return s.counts[strengthKey{branch, year}]
}

// Entries returns a copy of the compiled-in dataset
func Entries() []models.StrengthEntry {
	out := make([]models.StrengthEntry, len(staticStrength))
	copy(out, staticStrength)
	return out
}
