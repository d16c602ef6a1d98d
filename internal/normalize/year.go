package normalize

import (
	"regexp"
	"strings"

	"practice-analytics/internal/models"
)

var yearAliases = map[string]string{
	"1": "I", "1ST": "I", "FIRST": "I", "I": "I", "YEAR 1": "I", "1 YEAR": "I",
	"2": "II", "2ND": "II", "SECOND": "II", "II": "II", "YEAR 2": "II", "2 YEAR": "II",
	"3": "III", "3RD": "III", "THIRD": "III", "III": "III", "YEAR 3": "III", "3 YEAR": "III",
	"4": "IV", "4TH": "IV", "FOURTH": "IV", "IV": "IV", "YEAR 4": "IV", "4 YEAR": "IV",
	models.CitarYear: models.CitarYear,
}

type yearRule struct {
	code  string
	match func(string) bool
}

func matchesRegexp(re *regexp.Regexp) func(string) bool {
	return re.MatchString
}

// II and III come before I so that "II" is not read as a stray "I".
var yearRules = []yearRule{
	{"II", contains("SECOND", "2ND")},
	{"III", contains("THIRD", "3RD")},
	{"I", contains("FIRST", "1ST")},
	{"IV", contains("FOURTH", "4TH")},
	// Graduating-batch years of the cohorts current in 2025. These go stale
	// once those cohorts move on and must be revisited every academic year.
	{"II", contains("2028")},
	{"III", contains("2027")},
	{models.CitarYear, contains("CITAR")},
	{"II", matchesRegexp(regexp.MustCompile(`\bII\b`))},
	{"III", matchesRegexp(regexp.MustCompile(`\bIII\b`))},
	{"I", matchesRegexp(regexp.MustCompile(`\bI\b`))},
	{"IV", matchesRegexp(regexp.MustCompile(`\bIV\b`))},
}

var (
	digitsPattern  = regexp.MustCompile(`\d+`)
	floatSuffix    = regexp.MustCompile(`\.0$`)
	digitYearCodes = map[string]string{"1": "I", "2": "II", "3": "III", "4": "IV"}
)

// Year maps a free-text year-of-study label onto I, II, III, IV or
// CITAR-III. Labels that match no rule are returned upper-cased and trimmed.
func Year(text string) string {
	val := strings.ToUpper(strings.TrimSpace(text))
	val = floatSuffix.ReplaceAllString(val, "")

	if code, ok := yearAliases[val]; ok {
		return code
	}
	for _, rule := range yearRules {
		if rule.match(val) {
			return rule.code
		}
	}
	for _, d := range digitsPattern.FindAllString(val, -1) {
		if code, ok := digitYearCodes[d]; ok {
			return code
		}
	}

	return val
}

// IsCitar reports whether a raw label marks the CITAR cohort
func IsCitar(text string) bool {
	return strings.Contains(strings.ToUpper(text), "CITAR")
}
