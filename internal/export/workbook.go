// Package export renders reports and leaderboards as XLSX workbooks.
package export

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"practice-analytics/internal/models"
	"practice-analytics/internal/report"
)

// ContentType is the MIME type of every workbook produced here
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	titleText     = "OFFICE OF THE CONTROLLER OF EXAMINATIONS"
	historyPrefix = "Past_"
	maxSheetName  = 31
	firstDataRow  = 6
)

var valueHeaders = []string{"Registered", "Appeared", "Absent", "Zero", "One", "Two", "Three"}

// sheetWriter wraps an excelize file and keeps the first error, so a sheet
// can be laid out without checking every call
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (w *sheetWriter) set(cell string, value interface{}) {
	if w.err == nil {
		w.err = w.f.SetCellValue(w.sheet, cell, value)
	}
}

func (w *sheetWriter) merge(from, to string) {
	if w.err == nil {
		w.err = w.f.MergeCell(w.sheet, from, to)
	}
}

func (w *sheetWriter) style(from, to string, style int) {
	if w.err == nil {
		w.err = w.f.SetCellStyle(w.sheet, from, to, style)
	}
}

func (w *sheetWriter) width(from, to string, width float64) {
	if w.err == nil {
		w.err = w.f.SetColWidth(w.sheet, from, to, width)
	}
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// SheetName makes a valid worksheet name: forbidden characters are replaced
// and the result is cut to 31 characters
func SheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, name)
	if len([]rune(name)) > maxSheetName {
		name = string([]rune(name)[:maxSheetName])
	}
	return name
}

// newWorkbook creates a file whose default sheet is renamed to first
func newWorkbook(first string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), first); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	return f, nil
}

func addSheet(f *excelize.File, index int, name string) error {
	if index == 0 {
		return nil
	}
	_, err := f.NewSheet(name)
	return err
}

// DailyWorkbook lays out one formatted sheet per report, in chronological
// order. Reports that came from history get a "Past_" sheet prefix.
func DailyWorkbook(reports []models.DailyReport) (*excelize.File, error) {
	if len(reports) == 0 {
		return nil, fmt.Errorf("no reports to export")
	}

	ordered := make([]models.DailyReport, len(reports))
	copy(ordered, reports)
	report.Chronological(ordered)

	names := make([]string, len(ordered))
	for i, rep := range ordered {
		name := rep.Date
		if !rep.Current {
			name = historyPrefix + name
		}
		names[i] = SheetName(name)
	}

	f, err := newWorkbook(names[0])
	if err != nil {
		return nil, err
	}

	st, err := newDailyStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	for i, rep := range ordered {
		if err := addSheet(f, i, names[i]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to add sheet %s: %w", names[i], err)
		}
		if err := writeDailySheet(f, names[i], rep, st); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write sheet %s: %w", names[i], err)
		}
	}

	return f, nil
}

func writeDailySheet(f *excelize.File, sheet string, rep models.DailyReport, st dailyStyles) error {
	w := &sheetWriter{f: f, sheet: sheet}

	w.merge("A1", "I1")
	w.set("A1", titleText)
	w.style("A1", "I1", st.title)

	w.merge("A2", "I2")
	w.set("A2", "Date: "+rep.Date)
	w.style("A2", "I2", st.date)

	w.merge("A3", "I3")
	w.set("A3", rep.YearsText+" YEAR SKILL RACK RESULT ANALYSIS")
	w.style("A3", "I3", st.subtitle)

	w.merge("A4", "A5")
	w.set("A4", "Branch")
	w.merge("B4", "B5")
	w.set("B4", "Year")
	w.merge("C4", "E4")
	w.set("C4", "Student Strength Details")
	w.merge("F4", "I4")
	w.set("F4", "No of Problems Solved")
	for i, label := range valueHeaders {
		w.set(cell(string(rune('C'+i)), 5), label)
	}
	w.style("A4", "I5", st.header)

	row := firstDataRow
	blockStart, blockBranch := 0, ""
	closeBlock := func(last int) {
		if blockStart > 0 && last > blockStart {
			w.merge(cell("A", blockStart), cell("A", last))
		}
		blockStart, blockBranch = 0, ""
	}

	for _, r := range rep.Rows {
		switch r.Kind {
		case models.RowSubtotal, models.RowTotal:
			closeBlock(row - 1)
			label, style := "TOTAL", st.subtotal
			if r.Kind == models.RowTotal {
				label, style = models.OverallTotalLabel, st.grandTotal
			}
			w.merge(cell("A", row), cell("B", row))
			w.set(cell("A", row), label)
			writeValues(w, row, r)
			w.style(cell("A", row), cell("I", row), style)
		default:
			if r.Branch != blockBranch {
				closeBlock(row - 1)
				blockStart, blockBranch = row, r.Branch
			}
			w.set(cell("A", row), r.Branch)
			w.set(cell("B", row), r.Year)
			writeValues(w, row, r)
			w.style(cell("A", row), cell("I", row), st.center)
		}
		row++
	}
	closeBlock(row - 1)

	w.width("A", "A", 20)
	w.width("B", "I", 15)
	return w.err
}

func writeValues(w *sheetWriter, row int, r models.ReportRow) {
	for i, v := range r.Values() {
		w.set(cell(string(rune('C'+i)), row), v)
	}
}

// CumulativeWorkbook writes the per-student leaderboard on one sheet
func CumulativeWorkbook(totals []models.StudentTotal) (*excelize.File, error) {
	const sheet = "Cumulative Leaderboard"

	headers := []string{"Reg No", "Name", "Branch", "Year", "Days Appeared", "Total Solved", "Total Submissions", "Active Time"}
	rows := make([][]interface{}, len(totals))
	for i, t := range totals {
		rows[i] = []interface{}{t.RegNo, t.Name, t.Branch, t.Year, t.DaysAppeared, t.TotalSolved, t.TotalSubmissions, FormatSeconds(t.ActiveSeconds)}
	}

	return tableWorkbook(sheet, headers, rows)
}

// PerformanceWorkbook writes a top-N leaderboard with Reg No as the first column
func PerformanceWorkbook(entries []models.RankedEntry, branch string, topN int) (*excelize.File, error) {
	sheet := SheetName(fmt.Sprintf("Top %d %s", topN, branch))

	headers := []string{"Reg No", "Rank", "Name", "Branch", "Year", "Solved", "Submissions", "Active Time", "Days Appeared"}
	rows := make([][]interface{}, len(entries))
	for i, e := range entries {
		rows[i] = []interface{}{e.RegNo, e.Rank, e.Name, e.Branch, e.Year, e.SolvedCount, e.TotalSubmissions, FormatSeconds(e.ActiveSeconds), e.DaysAppeared}
	}

	return tableWorkbook(sheet, headers, rows)
}

// HistoryWorkbook writes the stored data rows of one historical report
func HistoryWorkbook(rep models.StoredReport) (*excelize.File, error) {
	headers := append([]string{"Branch", "Year"}, valueHeaders...)
	rows := make([][]interface{}, len(rep.Rows))
	for i, r := range rep.Rows {
		v := r.Values()
		rows[i] = []interface{}{r.Branch, r.Year, v[0], v[1], v[2], v[3], v[4], v[5], v[6]}
	}
	return tableWorkbook("Historical Report", headers, rows)
}

func tableWorkbook(sheet string, headers []string, rows [][]interface{}) (*excelize.File, error) {
	f, err := newWorkbook(sheet)
	if err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"#FFD966"}, Pattern: 1},
		Border: borders(),
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i := range rows {
		if err := f.SetSheetRow(sheet, cell("A", i+2), &rows[i]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		f.Close()
		return nil, err
	}

	w := &sheetWriter{f: f, sheet: sheet}
	w.style("A1", cell(lastCol, 1), headerStyle)
	w.width("A", lastCol, 15)
	if w.err != nil {
		f.Close()
		return nil, w.err
	}

	return f, nil
}

// Write serializes a workbook to w and closes it
func Write(w io.Writer, f *excelize.File) error {
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// FormatSeconds renders a duration as HH:MM:SS. The missing-duration
// sentinel renders as an empty string.
func FormatSeconds(secs int) string {
	if secs < 0 || secs >= models.MissingDuration {
		return ""
	}
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs/60%60, secs%60)
}

// DailyFileName names the daily workbook after the dates of the fresh uploads
func DailyFileName(reports []models.DailyReport) string {
	seen := make(map[string]bool)
	var dates []string
	for _, rep := range reports {
		if rep.Current && !seen[rep.Date] {
			seen[rep.Date] = true
			dates = append(dates, strings.ReplaceAll(rep.Date, "/", "-"))
		}
	}
	sort.Strings(dates)
	if len(dates) == 0 {
		return "Skill_Rack_Analysis.xlsx"
	}
	return "Skill_Rack_Analysis_" + strings.ReplaceAll(strings.Join(dates, "_"), " ", "_") + ".xlsx"
}
