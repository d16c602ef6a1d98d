package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"practice-analytics/internal/export"
	"practice-analytics/internal/models"
)

func itoa(v int) string {
	return strconv.Itoa(v)
}

// renderDaily prints each report as a table under its date
func renderDaily(w io.Writer, reports []models.DailyReport) {
	for _, rep := range reports {
		label := rep.Date
		if !rep.Current {
			label += " (history)"
		}
		fmt.Fprintf(w, "\n%s YEAR SKILL RACK RESULT ANALYSIS  |  Date: %s\n", rep.YearsText, label)

		table := tablewriter.NewWriter(w)
		table.SetAutoFormatHeaders(false)
		table.SetHeader([]string{"Branch", "Year", "Registered", "Appeared", "Absent", "Zero", "One", "Two", "Three"})

		for _, row := range rep.Rows {
			branch, year := row.Branch, row.Year
			switch row.Kind {
			case models.RowSubtotal:
				branch, year = "TOTAL", ""
			case models.RowTotal:
				branch, year = models.OverallTotalLabel, ""
			}

			cells := []string{branch, year}
			for _, v := range row.Values() {
				cells = append(cells, itoa(v))
			}
			table.Append(cells)
		}

		table.Render()
	}
}

// renderCumulative prints the per-student rollup
func renderCumulative(w io.Writer, totals []models.StudentTotal, limit int) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Reg No", "Name", "Branch", "Year", "Days", "Solved", "Submissions", "Active Time"})

	for i, t := range totals {
		if limit > 0 && i >= limit {
			break
		}
		table.Append([]string{
			t.RegNo,
			t.Name,
			t.Branch,
			t.Year,
			itoa(t.DaysAppeared),
			itoa(t.TotalSolved),
			itoa(t.TotalSubmissions),
			export.FormatSeconds(t.ActiveSeconds),
		})
	}

	table.Render()
	if limit > 0 && len(totals) > limit {
		fmt.Fprintf(w, "... and %d more students\n", len(totals)-limit)
	}
}

// renderLeaderboard prints ranked entries
func renderLeaderboard(w io.Writer, entries []models.RankedEntry) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Rank", "Reg No", "Name", "Branch", "Year", "Solved", "Submissions", "Active Time"})

	for _, e := range entries {
		table.Append([]string{
			itoa(e.Rank),
			e.RegNo,
			e.Name,
			e.Branch,
			e.Year,
			itoa(e.SolvedCount),
			itoa(e.TotalSubmissions),
			export.FormatSeconds(e.ActiveSeconds),
		})
	}

	table.Render()
}

// renderStrength prints the registered-student table with a grand total
func renderStrength(w io.Writer, entries []models.StrengthEntry) {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Branch", "Year", "Registered"})

	total := 0
	for _, e := range entries {
		table.Append([]string{e.Branch, e.Year, itoa(e.RegisteredCount)})
		total += e.RegisteredCount
	}
	table.SetFooter([]string{"", models.OverallTotalLabel, itoa(total)})

	table.Render()
}
