// Package columns maps the headers of uploaded spreadsheets onto the fixed
// field set used by the analysis pipeline.
package columns

import (
	"strings"
)

// Canonical field names
const (
	RegNo            = "Reg No"
	Branch           = "Branch"
	Year             = "Year"
	SolvedCount      = "Solved count"
	TotalSubmissions = "Total submissions"
	ActiveDuration   = "Active utilisation"
	Name             = "Name"
	Timestamp        = "Timestamp"
)

// Required lists the fields without which a table cannot be aggregated
var Required = []string{Branch, Year, SolvedCount}

// Field is a canonical column and the lowercase header variants accepted for it
type Field struct {
	Canonical string
	Variants  []string
}

// Schema is an ordered list of fields. Order matters: a header claimed by an
// earlier field is renamed before later fields look for candidates.
type Schema []Field

// DefaultSchema covers the header spellings seen across practice-platform exports
var DefaultSchema = Schema{
	{RegNo, []string{"regn num", "regn no", "reg no", "registration number", "regn_no", "roll no", "reg_no", "student id", "roll number", "student registration id", "reg_id", "id", "student_id"}},
	{Branch, []string{"branch", "department", "dept", "branch name", "major", "discipline"}},
	{Year, []string{"year", "yr", "batch", "year of study", "study year", "academic year", "standard"}},
	{SolvedCount, []string{"solved count", "problems solved", "total solved", "problems count", "solved"}},
	{TotalSubmissions, []string{"total submissions", "total attempts", "submission count"}},
	{ActiveDuration, []string{"active utilisation", "active utilization", "active status", "duration", "active duration", "active time", "total active time", "usage duration", "time spent"}},
	{Name, []string{"name", "student name", "full name", "student_name", "fullname"}},
	{Timestamp, []string{"timestamp", "date", "uploaded at", "time", "usage date", "usage time", "last login", "completion date", "date/time", "login time", "submitted on", "test date", "created at", "start time"}},
}

// Table is one parsed upload: a header row and string cells.
// Rows may be shorter than Headers; missing cells read as empty.
type Table struct {
	Source  string
	Headers []string
	Rows    [][]string
}

// Cell returns the trimmed value at (row, col), or "" when absent
func (t Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[row][col])
}

// Index returns the position of the header named exactly name, or -1
func (t Table) Index(name string) int {
	for i, h := range t.Headers {
		if h == name {
			return i
		}
	}
	return -1
}

// NonMissing counts the cells of a column that carry a value
func (t Table) NonMissing(col int) int {
	count := 0
	for r := range t.Rows {
		if !IsMissing(t.Cell(r, col)) {
			count++
		}
	}
	return count
}

// IsMissing reports whether a cell value should be treated as empty
func IsMissing(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "nan", "n/a", "none", "null":
		return true
	}
	return false
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// Resolve renames the columns of t onto the canonical names of schema.
// When several headers match one field, the one with the most non-missing
// cells wins (first on ties) and the others are dropped. If no identifier
// column is found, the first header containing both "reg" and "no" is
// adopted as Reg No. The input table is not modified.
func Resolve(t Table, schema Schema) Table {
	headers := make([]string, len(t.Headers))
	for i, h := range t.Headers {
		headers[i] = strings.TrimSpace(h)
	}
	work := Table{Source: t.Source, Headers: headers, Rows: t.Rows}
	dropped := make(map[int]bool)

	for _, field := range schema {
		var candidates []int
		for i, h := range work.Headers {
			if dropped[i] {
				continue
			}
			if field.matches(h) {
				candidates = append(candidates, i)
			}
		}
		if len(candidates) == 0 {
			continue
		}

		best := candidates[0]
		if len(candidates) > 1 {
			bestCount := work.NonMissing(best)
			for _, c := range candidates[1:] {
				if n := work.NonMissing(c); n > bestCount {
					best, bestCount = c, n
				}
			}
		}

		work.Headers[best] = field.Canonical
		for _, c := range candidates {
			if c != best {
				dropped[c] = true
			}
		}
	}

	if work.Index(RegNo) < 0 {
		for i, h := range work.Headers {
			if dropped[i] {
				continue
			}
			norm := normalizeHeader(h)
			if strings.Contains(norm, "reg") && strings.Contains(norm, "no") {
				work.Headers[i] = RegNo
				break
			}
		}
	}

	return compact(work, dropped)
}

func (f Field) matches(header string) bool {
	norm := normalizeHeader(header)
	if norm == strings.ToLower(f.Canonical) {
		return true
	}
	for _, v := range f.Variants {
		if norm == v {
			return true
		}
	}
	return false
}

// compact removes dropped columns from headers and every row
func compact(t Table, dropped map[int]bool) Table {
	if len(dropped) == 0 {
		return t
	}

	keep := make([]int, 0, len(t.Headers)-len(dropped))
	for i := range t.Headers {
		if !dropped[i] {
			keep = append(keep, i)
		}
	}

	out := Table{Source: t.Source, Headers: make([]string, len(keep)), Rows: make([][]string, len(t.Rows))}
	for j, i := range keep {
		out.Headers[j] = t.Headers[i]
	}
	for r, row := range t.Rows {
		newRow := make([]string, len(keep))
		for j, i := range keep {
			if i < len(row) {
				newRow[j] = row[i]
			}
		}
		out.Rows[r] = newRow
	}
	return out
}
