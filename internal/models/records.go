package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateNotDetected is the bucket for records whose timestamp could not be parsed
	DateNotDetected = "Not Detected"

	// MissingDuration ranks an absent or unparseable active duration last
	MissingDuration = 99999999

	// DateLayout is the DD-MM-YYYY layout used for every derived date
	DateLayout = "02-01-2006"

	// CitarYear is the year code of the CITAR third-year cohort
	CitarYear = "CITAR-III"

	// OverallTotalLabel labels the grand total row of a report
	OverallTotalLabel = "OVERALL TOTAL"
)

// RawRecord is one uploaded row after column resolution.
// Absent optional text fields are empty strings.
type RawRecord struct {
	RegNo            string `json:"reg_no,omitempty"`
	Name             string `json:"name,omitempty"`
	BranchRaw        string `json:"branch_raw"`
	YearRaw          string `json:"year_raw"`
	SolvedCount      int    `json:"solved_count"`
	TotalSubmissions int    `json:"total_submissions"`
	ActiveDuration   string `json:"active_duration,omitempty"`
	TimestampRaw     string `json:"timestamp_raw,omitempty"`
	SourceFile       string `json:"source_file,omitempty"`
}

// Identifier returns the registration number, falling back to the name
func (r RawRecord) Identifier() string {
	if id := strings.TrimSpace(r.RegNo); id != "" {
		return id
	}
	return strings.TrimSpace(r.Name)
}

// CanonicalRecord is a RawRecord with branch, year and date normalized
type CanonicalRecord struct {
	RawRecord
	Branch      string `json:"branch"`
	Year        string `json:"year"`
	DerivedDate string `json:"derived_date"`
}

// StrengthEntry is one row of the static registered-student table
type StrengthEntry struct {
	Branch          string `json:"branch"`
	Year            string `json:"year"`
	RegisteredCount int    `json:"registered_count"`
}

// DailyAggregate holds attendance and solved-count buckets for one
// (date, branch, year). Zero+One+Two+Three always equals Appeared.
type DailyAggregate struct {
	Date       string `json:"date"`
	Branch     string `json:"branch"`
	Year       string `json:"year"`
	Registered int    `json:"registered"`
	Appeared   int    `json:"appeared"`
	Absent     int    `json:"absent"`
	Zero       int    `json:"zero"`
	One        int    `json:"one"`
	Two        int    `json:"two"`
	Three      int    `json:"three"`
}

// Add counts one appeared student with the given solved count
func (a *DailyAggregate) Add(solved int) {
	a.Appeared++
	switch {
	case solved <= 0:
		a.Zero++
	case solved == 1:
		a.One++
	case solved == 2:
		a.Two++
	default:
		a.Three++
	}
	a.RecomputeAbsent()
}

// RecomputeAbsent sets Absent to max(0, Registered-Appeared)
func (a *DailyAggregate) RecomputeAbsent() {
	a.Absent = Absent(a.Registered, a.Appeared)
}

// Absent returns max(0, registered-appeared)
func Absent(registered, appeared int) int {
	if registered > appeared {
		return registered - appeared
	}
	return 0
}

// RowKind distinguishes data rows from synthetic total rows
type RowKind string

const (
	RowData     RowKind = "data"
	RowSubtotal RowKind = "subtotal"
	RowTotal    RowKind = "total"
)

// ReportRow is one line of a daily report
type ReportRow struct {
	Kind       RowKind `json:"kind" db:"-"`
	Branch     string  `json:"branch" db:"branch"`
	Year       string  `json:"year" db:"year"`
	Registered int     `json:"registered" db:"registered"`
	Appeared   int     `json:"appeared" db:"appeared"`
	Absent     int     `json:"absent" db:"absent"`
	Zero       int     `json:"zero_solved" db:"zero_solved"`
	One        int     `json:"one_solved" db:"one_solved"`
	Two        int     `json:"two_solved" db:"two_solved"`
	Three      int     `json:"three_solved" db:"three_solved"`
}

// RowFromAggregate converts an aggregate into a data row
func RowFromAggregate(a DailyAggregate) ReportRow {
	return ReportRow{
		Kind:       RowData,
		Branch:     a.Branch,
		Year:       a.Year,
		Registered: a.Registered,
		Appeared:   a.Appeared,
		Absent:     a.Absent,
		Zero:       a.Zero,
		One:        a.One,
		Two:        a.Two,
		Three:      a.Three,
	}
}

// Accumulate adds the numeric fields of other into r
func (r *ReportRow) Accumulate(other ReportRow) {
	r.Registered += other.Registered
	r.Appeared += other.Appeared
	r.Absent += other.Absent
	r.Zero += other.Zero
	r.One += other.One
	r.Two += other.Two
	r.Three += other.Three
}

// Values returns the seven numeric fields in display order
func (r ReportRow) Values() [7]int {
	return [7]int{r.Registered, r.Appeared, r.Absent, r.Zero, r.One, r.Two, r.Three}
}

// DailyReport is the ordered report for one derived date
type DailyReport struct {
	Date      string      `json:"date"`
	Rows      []ReportRow `json:"rows"`
	YearsText string      `json:"years_text"`
	Current   bool        `json:"is_current"`
}

// Total returns the OVERALL TOTAL row, if present
func (d DailyReport) Total() (ReportRow, bool) {
	for i := len(d.Rows) - 1; i >= 0; i-- {
		if d.Rows[i].Kind == RowTotal {
			return d.Rows[i], true
		}
	}
	return ReportRow{}, false
}

// DataRows returns only the (branch, year) rows of the report
func (d DailyReport) DataRows() []ReportRow {
	rows := make([]ReportRow, 0, len(d.Rows))
	for _, r := range d.Rows {
		if r.Kind == RowData {
			rows = append(rows, r)
		}
	}
	return rows
}

// StudentTotal is a cumulative multi-date rollup for one student
type StudentTotal struct {
	Identifier       string `json:"identifier"`
	RegNo            string `json:"reg_no,omitempty"`
	Name             string `json:"name,omitempty"`
	Branch           string `json:"branch"`
	Year             string `json:"year"`
	DaysAppeared     int    `json:"days_appeared"`
	TotalSolved      int    `json:"total_solved"`
	TotalSubmissions int    `json:"total_submissions"`
	ActiveSeconds    int    `json:"active_seconds"`
}

// RankedEntry is a leaderboard position
type RankedEntry struct {
	CanonicalRecord
	Rank          int `json:"rank"`
	ActiveSeconds int `json:"active_seconds"`
	DaysAppeared  int `json:"days_appeared,omitempty"`
}

// StoredReport is report metadata persisted in the history store
type StoredReport struct {
	ID            int64       `json:"id" db:"id"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	RefLabel      string      `json:"ref_label" db:"ref_label"`
	SourceLabel   string      `json:"source_label" db:"source_label"`
	AnalysisDate  string      `json:"analysis_date" db:"analysis_date"`
	TotalStudents int         `json:"total_students" db:"total_students"`
	Rows          []ReportRow `json:"rows,omitempty" db:"-"`
}

// SchemaError reports canonical fields that no header resolved to.
// It is fatal for the whole batch.
type SchemaError struct {
	Source  string
	Missing []string
}

func (e *SchemaError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("missing columns: %s", strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("%s: missing columns: %s", e.Source, strings.Join(e.Missing, ", "))
}

// IsTransient returns false as a schema mismatch never fixes itself
func (e *SchemaError) IsTransient() bool {
	return false
}

// ValidationError represents a request or data validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}
