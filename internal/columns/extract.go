package columns

import (
	"math"
	"strconv"
	"strings"

	"practice-analytics/internal/models"
)

// UnknownValue replaces a branch or year that is blank even after forward fill
const UnknownValue = "UNKNOWN"

// Missing returns the required fields that a resolved table lacks
func Missing(t Table) []string {
	var missing []string
	for _, field := range Required {
		if t.Index(field) < 0 {
			missing = append(missing, field)
		}
	}
	return missing
}

// Extract converts resolved tables into typed records. Every table must carry
// the required fields; the first table that does not fails the whole batch
// with a *models.SchemaError. Branch and year cells are forward-filled across
// the concatenated batch because exports often merge those cells vertically.
func Extract(tables []Table) ([]models.RawRecord, error) {
	for _, t := range tables {
		if missing := Missing(t); len(missing) > 0 {
			return nil, &models.SchemaError{Source: t.Source, Missing: missing}
		}
	}

	total := 0
	for _, t := range tables {
		total += len(t.Rows)
	}
	records := make([]models.RawRecord, 0, total)

	var lastBranch, lastYear string
	for _, t := range tables {
		idx := indexes{
			regNo:       t.Index(RegNo),
			name:        t.Index(Name),
			branch:      t.Index(Branch),
			year:        t.Index(Year),
			solved:      t.Index(SolvedCount),
			submissions: t.Index(TotalSubmissions),
			duration:    t.Index(ActiveDuration),
			timestamp:   t.Index(Timestamp),
		}

		for r := range t.Rows {
			if rowEmpty(t.Rows[r]) {
				continue
			}

			branch := value(t, r, idx.branch)
			if branch == "" {
				branch = lastBranch
			} else {
				lastBranch = branch
			}
			year := value(t, r, idx.year)
			if year == "" {
				year = lastYear
			} else {
				lastYear = year
			}
			if branch == "" {
				branch = UnknownValue
			}
			if year == "" {
				year = UnknownValue
			}

			records = append(records, models.RawRecord{
				RegNo:            value(t, r, idx.regNo),
				Name:             value(t, r, idx.name),
				BranchRaw:        strings.ToUpper(branch),
				YearRaw:          strings.ToUpper(year),
				SolvedCount:      ParseCount(value(t, r, idx.solved)),
				TotalSubmissions: ParseCount(value(t, r, idx.submissions)),
				ActiveDuration:   value(t, r, idx.duration),
				TimestampRaw:     value(t, r, idx.timestamp),
				SourceFile:       t.Source,
			})
		}
	}

	return records, nil
}

type indexes struct {
	regNo, name, branch, year, solved, submissions, duration, timestamp int
}

func value(t Table, row, col int) string {
	v := t.Cell(row, col)
	if IsMissing(v) {
		return ""
	}
	return v
}

func rowEmpty(row []string) bool {
	for _, c := range row {
		if !IsMissing(c) {
			return false
		}
	}
	return true
}

// ParseCount coerces a numeric cell to a non-negative integer. Spreadsheet
// floats such as "3.0" truncate; anything unparseable becomes 0.
func ParseCount(v string) int {
	v = strings.TrimSpace(strings.ReplaceAll(v, ",", ""))
	if v == "" {
		return 0
	}
	if n, err := strconv.Atoi(v); err == nil {
		if n < 0 {
			return 0
		}
		return n
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}
