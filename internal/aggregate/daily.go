package aggregate

import (
	"sort"

	"practice-analytics/internal/models"
)

// DateGroup is the set of (branch, year) aggregates for one derived date
type DateGroup struct {
	Date       string
	Aggregates []models.DailyAggregate
	Current    bool
}

// Years returns the distinct year codes present in the group, sorted
func (g DateGroup) Years() []string {
	seen := make(map[string]bool)
	var years []string
	for _, a := range g.Aggregates {
		if !seen[a.Year] {
			seen[a.Year] = true
			years = append(years, a.Year)
		}
	}
	sort.Strings(years)
	return years
}

type bucketKey struct {
	branch, year string
}

// Daily buckets canonical records per derived date and (branch, year).
// Dates keep the order in which they first appear in records; aggregates
// inside a date are sorted by branch then year. The "Not Detected" date is a
// bucket like any other.
func Daily(records []models.CanonicalRecord, strength *StrengthTable) []DateGroup {
	var order []string
	byDate := make(map[string]map[bucketKey]*models.DailyAggregate)

	for _, r := range records {
		buckets, ok := byDate[r.DerivedDate]
		if !ok {
			buckets = make(map[bucketKey]*models.DailyAggregate)
			byDate[r.DerivedDate] = buckets
			order = append(order, r.DerivedDate)
		}

		key := bucketKey{r.Branch, r.Year}
		agg, ok := buckets[key]
		if !ok {
			agg = &models.DailyAggregate{
				Date:       r.DerivedDate,
				Branch:     r.Branch,
				Year:       r.Year,
				Registered: strength.Registered(r.Branch, r.Year),
			}
			buckets[key] = agg
		}
		agg.Add(r.SolvedCount)
	}

	groups := make([]DateGroup, 0, len(order))
	for _, date := range order {
		groups = append(groups, DateGroup{
			Date:       date,
			Aggregates: sortedAggregates(byDate[date]),
			Current:    true,
		})
	}
	return groups
}

func sortedAggregates(buckets map[bucketKey]*models.DailyAggregate) []models.DailyAggregate {
	out := make([]models.DailyAggregate, 0, len(buckets))
	for _, a := range buckets {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Branch != out[j].Branch {
			return out[i].Branch < out[j].Branch
		}
		return out[i].Year < out[j].Year
	})
	return out
}
