package aggregate

import (
	"sort"

	"practice-analytics/internal/models"
	"practice-analytics/internal/normalize"
)

// CumulativeResult is the per-student rollup over every date in a batch
type CumulativeResult struct {
	Totals       []models.StudentTotal `json:"totals"`
	Unidentified int                   `json:"unidentified"`
}

type studentDay struct {
	id, date string
}

type dayBest struct {
	solved, submissions, active int
	timed                       bool
}

// Cumulative collapses records to one entry per (identifier, date) keeping the
// best solved, submissions and active time of that day, then sums those days
// per identifier. Branch, year and name come from the first record seen for
// the identifier. A student with no active time on any day gets
// models.MissingDuration. Records with no identifier are counted and skipped.
func Cumulative(records []models.CanonicalRecord) CumulativeResult {
	var (
		result  CumulativeResult
		order   []string
		first   = make(map[string]models.CanonicalRecord)
		days    = make(map[studentDay]*dayBest)
		dayKeys []studentDay
	)

	for _, r := range records {
		id := r.Identifier()
		if id == "" {
			result.Unidentified++
			continue
		}
		if _, ok := first[id]; !ok {
			first[id] = r
			order = append(order, id)
		}

		active := normalize.DurationSeconds(r.ActiveDuration)
		timed := active != models.MissingDuration
		if !timed {
			active = 0
		}

		key := studentDay{id, r.DerivedDate}
		best, ok := days[key]
		if !ok {
			days[key] = &dayBest{solved: r.SolvedCount, submissions: r.TotalSubmissions, active: active, timed: timed}
			dayKeys = append(dayKeys, key)
			continue
		}
		best.solved = max(best.solved, r.SolvedCount)
		best.submissions = max(best.submissions, r.TotalSubmissions)
		best.active = max(best.active, active)
		best.timed = best.timed || timed
	}

	totals := make(map[string]*models.StudentTotal, len(order))
	for _, id := range order {
		rec := first[id]
		totals[id] = &models.StudentTotal{
			Identifier: id,
			RegNo:      rec.RegNo,
			Name:       rec.Name,
			Branch:     rec.Branch,
			Year:       rec.Year,
		}
	}
	timed := make(map[string]bool, len(order))
	for _, key := range dayKeys {
		best := days[key]
		t := totals[key.id]
		t.DaysAppeared++
		t.TotalSolved += best.solved
		t.TotalSubmissions += best.submissions
		t.ActiveSeconds += best.active
		timed[key.id] = timed[key.id] || best.timed
	}
	// no active time on any day ranks last, like a single untimed record
	for id, t := range totals {
		if !timed[id] {
			t.ActiveSeconds = models.MissingDuration
		}
	}

	result.Totals = make([]models.StudentTotal, 0, len(order))
	for _, id := range order {
		result.Totals = append(result.Totals, *totals[id])
	}
	sort.SliceStable(result.Totals, func(i, j int) bool {
		a, b := result.Totals[i], result.Totals[j]
		if a.TotalSolved != b.TotalSolved {
			return a.TotalSolved > b.TotalSolved
		}
		return a.TotalSubmissions < b.TotalSubmissions
	})
	return result
}
