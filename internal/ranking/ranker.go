// Package ranking orders students into top-N leaderboards
package ranking

import (
	"sort"
	"strings"

	"practice-analytics/internal/models"
	"practice-analytics/internal/normalize"
)

// OverallScope ranks every branch together
const OverallScope = "OVERALL"

// Top sorts entries by solved count descending, active seconds ascending,
// then submissions ascending. Remaining ties keep their input order. Ranks
// are 1-based and the result is truncated to n; n <= 0 keeps every entry.
// The input slice is not modified.
func Top(entries []models.RankedEntry, n int) []models.RankedEntry {
	sorted := make([]models.RankedEntry, len(entries))
	copy(sorted, entries)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.SolvedCount != b.SolvedCount {
			return a.SolvedCount > b.SolvedCount
		}
		if a.ActiveSeconds != b.ActiveSeconds {
			return a.ActiveSeconds < b.ActiveSeconds
		}
		return a.TotalSubmissions < b.TotalSubmissions
	})

	if n > 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	for i := range sorted {
		sorted[i].Rank = i + 1
	}
	return sorted
}

// FromRecords builds ranking candidates from single-day records. A missing or
// unparseable active duration becomes models.MissingDuration so it ranks last
// among ties.
func FromRecords(records []models.CanonicalRecord) []models.RankedEntry {
	out := make([]models.RankedEntry, len(records))
	for i, r := range records {
		out[i] = models.RankedEntry{
			CanonicalRecord: r,
			ActiveSeconds:   normalize.DurationSeconds(r.ActiveDuration),
			DaysAppeared:    1,
		}
	}
	return out
}

// FromTotals builds ranking candidates from cumulative per-student totals
func FromTotals(totals []models.StudentTotal) []models.RankedEntry {
	out := make([]models.RankedEntry, len(totals))
	for i, t := range totals {
		out[i] = models.RankedEntry{
			CanonicalRecord: models.CanonicalRecord{
				RawRecord: models.RawRecord{
					RegNo:            t.RegNo,
					Name:             t.Name,
					SolvedCount:      t.TotalSolved,
					TotalSubmissions: t.TotalSubmissions,
				},
				Branch: t.Branch,
				Year:   t.Year,
			},
			ActiveSeconds: t.ActiveSeconds,
			DaysAppeared:  t.DaysAppeared,
		}
	}
	return out
}

// FilterBranch keeps the entries of one branch. An empty scope or
// OverallScope keeps everything.
func FilterBranch(entries []models.RankedEntry, branch string) []models.RankedEntry {
	scope := strings.ToUpper(strings.TrimSpace(branch))
	if scope == "" || scope == OverallScope {
		return entries
	}

	var out []models.RankedEntry
	for _, e := range entries {
		if e.Branch == scope {
			out = append(out, e)
		}
	}
	return out
}

// Branches returns the distinct branches of entries, sorted
func Branches(entries []models.RankedEntry) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range entries {
		if !seen[e.Branch] {
			seen[e.Branch] = true
			out = append(out, e.Branch)
		}
	}
	sort.Strings(out)
	return out
}
