package aggregate

import (
	"strings"

	"practice-analytics/internal/models"
)

// FromStored rebuilds raw per-date aggregates from persisted reports.
// Synthetic total rows are ignored and absent is recomputed. When several
// stored reports cover the same date and (branch, year), each numeric field
// takes the maximum seen. Reports without a usable analysis date are skipped.
func FromStored(reports []models.StoredReport) []DateGroup {
	var order []string
	byDate := make(map[string]map[bucketKey]*models.DailyAggregate)

	for _, rep := range reports {
		date := strings.TrimSpace(rep.AnalysisDate)
		if date == "" || date == "N/A" {
			continue
		}

		for _, row := range rep.Rows {
			if row.Kind == models.RowSubtotal || row.Kind == models.RowTotal || strings.Contains(row.Branch, "TOTAL") {
				continue
			}

			buckets, ok := byDate[date]
			if !ok {
				buckets = make(map[bucketKey]*models.DailyAggregate)
				byDate[date] = buckets
				order = append(order, date)
			}

			key := bucketKey{row.Branch, row.Year}
			agg, ok := buckets[key]
			if !ok {
				agg = &models.DailyAggregate{Date: date, Branch: row.Branch, Year: row.Year}
				buckets[key] = agg
			}
			agg.Registered = max(agg.Registered, row.Registered)
			agg.Appeared = max(agg.Appeared, row.Appeared)
			agg.Zero = max(agg.Zero, row.Zero)
			agg.One = max(agg.One, row.One)
			agg.Two = max(agg.Two, row.Two)
			agg.Three = max(agg.Three, row.Three)
			agg.RecomputeAbsent()
		}
	}

	groups := make([]DateGroup, 0, len(order))
	for _, date := range order {
		groups = append(groups, DateGroup{Date: date, Aggregates: sortedAggregates(byDate[date])})
	}
	return groups
}

// MergeHistory appends historical groups to the current batch. A historical
// date that the current batch also covers is discarded, so fresh uploads
// supersede stored history.
func MergeHistory(current, history []DateGroup) []DateGroup {
	present := make(map[string]bool, len(current))
	for _, g := range current {
		present[g.Date] = true
	}

	merged := make([]DateGroup, 0, len(current)+len(history))
	merged = append(merged, current...)
	for _, g := range history {
		if present[g.Date] {
			continue
		}
		g.Current = false
		merged = append(merged, g)
	}
	return merged
}
