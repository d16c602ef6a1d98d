package normalize

import (
	"strconv"
	"strings"

	"practice-analytics/internal/models"
)

// DurationSeconds parses an active-time value. H:M:S gives H*3600+M*60+S and
// H:M gives H*60+M; anything else yields models.MissingDuration.
func DurationSeconds(text string) int {
	val := strings.TrimSpace(text)
	switch strings.ToLower(val) {
	case "", "nan", "n/a", "none":
		return models.MissingDuration
	}

	parts := strings.Split(val, ":")
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return models.MissingDuration
		}
		nums[i] = n
	}

	switch len(nums) {
	case 3:
		return nums[0]*3600 + nums[1]*60 + nums[2]
	case 2:
		return nums[0]*60 + nums[1]
	default:
		return models.MissingDuration
	}
}

// Canonicalize normalizes branch, year and date of a raw record. A "CITAR"
// marker in either the raw year or the identifier forces year CITAR-III.
func Canonicalize(r models.RawRecord) models.CanonicalRecord {
	year := Year(r.YearRaw)
	if IsCitar(r.YearRaw) || IsCitar(r.RegNo) {
		year = models.CitarYear
	}

	return models.CanonicalRecord{
		RawRecord:   r,
		Branch:      Branch(r.BranchRaw),
		Year:        year,
		DerivedDate: DeriveDate(r.TimestampRaw),
	}
}

// CanonicalizeAll applies Canonicalize to every record
func CanonicalizeAll(records []models.RawRecord) []models.CanonicalRecord {
	out := make([]models.CanonicalRecord, len(records))
	for i, r := range records {
		out[i] = Canonicalize(r)
	}
	return out
}
