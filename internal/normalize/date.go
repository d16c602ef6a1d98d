package normalize

import (
	"regexp"
	"strings"
	"time"

	"practice-analytics/internal/models"
)

var embeddedDate = regexp.MustCompile(`\d{1,4}[-/][a-zA-Z0-9]{2,10}[-/]\d{1,4}`)

// Layouts for the embedded D-M-Y style fragment. Numeric day/month pairs are
// tried month-first, then day-first, so 13/02/2025 still parses.
var fragmentLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"1-2-2006",
	"1/2/2006",
	"2-1-2006",
	"2/1/2006",
	"2-Jan-2006",
	"2/Jan/2006",
	"2-January-2006",
	"2/January/2006",
	"2006-Jan-2",
	"2006/Jan/2",
	"1-2-06",
	"1/2/06",
	"2-1-06",
	"2/1/06",
	"2-Jan-06",
	"2/Jan/06",
}

// Layouts for a whole timestamp value when no fragment could be used.
var wholeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/06 15:04",
	"1/2/06 15:04:05",
	"1/2/06",
	"1.2.2006 15:04:05",
	"1.2.2006 15:04",
	"1.2.2006",
	"2.1.2006 15:04:05",
	"2.1.2006 15:04",
	"2.1.2006",
	"2 Jan 2006",
	"2 Jan 2006 15:04",
	"2 January 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"January 2 2006",
	"Mon, 2 Jan 2006",
	"Mon Jan 2 15:04:05 2006",
	time.RFC1123,
	time.RFC1123Z,
	"20060102",
}

// ExtractDate finds a calendar date inside text and formats it DD-MM-YYYY.
// A date fragment embedded in a longer string ("Submitted: 12-Feb-2025
// 10:30") is preferred; otherwise the whole trimmed value is parsed.
func ExtractDate(text string) (string, bool) {
	val := strings.TrimSpace(text)
	if val == "" {
		return "", false
	}
	switch strings.ToLower(val) {
	case "nan", "n/a", "none", "null":
		return "", false
	}

	if fragment := embeddedDate.FindString(val); fragment != "" {
		if t, ok := parseWith(fragment, fragmentLayouts); ok {
			return t.Format(models.DateLayout), true
		}
	}
	if t, ok := parseWith(val, wholeLayouts); ok {
		return t.Format(models.DateLayout), true
	}
	if t, ok := parseWith(val, fragmentLayouts); ok {
		return t.Format(models.DateLayout), true
	}
	return "", false
}

// DeriveDate is ExtractDate with the "Not Detected" sentinel substituted
func DeriveDate(text string) string {
	if d, ok := ExtractDate(text); ok {
		return d
	}
	return models.DateNotDetected
}

// ParseDerivedDate parses a DD-MM-YYYY string produced by ExtractDate
func ParseDerivedDate(s string) (time.Time, bool) {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func parseWith(value string, layouts []string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			if t.Year() < 100 {
				t = t.AddDate(2000, 0, 0)
			}
			return t, true
		}
	}
	return time.Time{}, false
}
