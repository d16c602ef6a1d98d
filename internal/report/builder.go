// Package report turns per-date aggregates into ordered report rows with
// branch subtotals and a grand total.
package report

import (
	"sort"
	"strings"
	"time"

	"practice-analytics/internal/aggregate"
	"practice-analytics/internal/models"
	"practice-analytics/internal/normalize"
)

var yearRank = map[string]int{
	"I":              1,
	"II":             2,
	"III":            3,
	models.CitarYear: 4,
	"IV":             5,
}

// YearRank orders year codes for display; unknown codes sort last
func YearRank(year string) int {
	if r, ok := yearRank[year]; ok {
		return r
	}
	return 99
}

// SubtotalLabel is the branch label of a subtotal row
func SubtotalLabel(branch string) string {
	return branch + " TOTAL"
}

// Build orders a date group into report rows. Branches are lexicographic and
// years follow YearRank inside a branch. A branch with more than one year row
// gets a "<BRANCH> TOTAL" row; the report always ends with OVERALL TOTAL,
// which sums data rows only.
func Build(group aggregate.DateGroup) models.DailyReport {
	rows := make([]models.ReportRow, 0, len(group.Aggregates))
	for _, a := range group.Aggregates {
		rows = append(rows, models.RowFromAggregate(a))
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Branch != rows[j].Branch {
			return rows[i].Branch < rows[j].Branch
		}
		ri, rj := YearRank(rows[i].Year), YearRank(rows[j].Year)
		if ri != rj {
			return ri < rj
		}
		return rows[i].Year < rows[j].Year
	})

	out := make([]models.ReportRow, 0, len(rows)*2+1)
	grand := models.ReportRow{Kind: models.RowTotal, Branch: models.OverallTotalLabel}

	for start := 0; start < len(rows); {
		end := start
		for end < len(rows) && rows[end].Branch == rows[start].Branch {
			end++
		}

		branchRows := rows[start:end]
		out = append(out, branchRows...)
		if len(branchRows) > 1 {
			sub := models.ReportRow{Kind: models.RowSubtotal, Branch: SubtotalLabel(branchRows[0].Branch)}
			for _, r := range branchRows {
				sub.Accumulate(r)
			}
			out = append(out, sub)
		}
		for _, r := range branchRows {
			grand.Accumulate(r)
		}
		start = end
	}
	out = append(out, grand)

	return models.DailyReport{
		Date:      group.Date,
		Rows:      out,
		YearsText: strings.Join(group.Years(), ", "),
		Current:   group.Current,
	}
}

// BuildAll builds one report per group, in chronological order
func BuildAll(groups []aggregate.DateGroup) []models.DailyReport {
	reports := make([]models.DailyReport, 0, len(groups))
	for _, g := range groups {
		reports = append(reports, Build(g))
	}
	Chronological(reports)
	return reports
}

// Chronological sorts reports by their DD-MM-YYYY date. Dates that do not
// parse, such as "Not Detected", sort first. The sort is stable.
func Chronological(reports []models.DailyReport) {
	keys := make(map[string]time.Time, len(reports))
	for _, r := range reports {
		if t, ok := normalize.ParseDerivedDate(r.Date); ok {
			keys[r.Date] = t
		}
	}
	sort.SliceStable(reports, func(i, j int) bool {
		return keys[reports[i].Date].Before(keys[reports[j].Date])
	})
}
