// Package normalize canonicalizes free-text branch and year labels and pulls
// calendar dates out of heterogeneous timestamp strings.
package normalize

import (
	"strings"
)

// tokenRule matches when any of its predicates hold for the token set
type tokenRule struct {
	code  string
	match func(tokens map[string]bool) bool
}

type substringRule struct {
	code  string
	match func(full string) bool
}

func anyToken(names ...string) func(map[string]bool) bool {
	return func(tokens map[string]bool) bool {
		for _, n := range names {
			if tokens[n] {
				return true
			}
		}
		return false
	}
}

func contains(parts ...string) func(string) bool {
	return func(full string) bool {
		for _, p := range parts {
			if strings.Contains(full, p) {
				return true
			}
		}
		return false
	}
}

// Evaluated top to bottom; the first match wins.
var branchTokenRules = []tokenRule{
	{"CIVIL", anyToken("CIVIL")},
	{"CSE", anyToken("CSE")},
	{"EEE", anyToken("EEE")},
	{"ECE", anyToken("ECE")},
	{"MECH", anyToken("MECH")},
	{"MCT", anyToken("MCT", "MECT")},
	{"BIOMED", anyToken("BIOMED", "BME")},
	{"IT", anyToken("IT")},
	// A bare AI token is read as AIDS, which may swallow a future AI-only programme.
	{"AIDS", func(tokens map[string]bool) bool {
		return tokens["AIDS"] || (tokens["AI"] && tokens["DS"]) || tokens["AD"] || tokens["AI"]
	}},
	{"CSBS", anyToken("CSBS")},
	{"AIML", anyToken("AIML")},
	{"ACT", anyToken("ACT")},
	{"VLSI", anyToken("VLSI")},
}

var branchSubstringRules = []substringRule{
	{"CIVIL", contains("CIVIL")},
	{"CSBS", func(full string) bool {
		return (strings.Contains(full, "COMPUTER SCIENCE") && strings.Contains(full, "BUSINESS")) ||
			strings.Contains(full, "BUSINESS SYSTEM")
	}},
	{"AIDS", contains("DATA SCIENCE", "AI AND DS", "AI & DS")},
	{"AIML", contains("MACHINE LEARNING")},
	{"IT", contains("INFORMATION TECH")},
	{"BIOMED", contains("BIOMEDICAL")},
	{"MCT", contains("MECHATRONICS")},
	{"ECE", contains("COMMUNICATION")},
	{"EEE", contains("ELECTRICAL")},
	{"MECH", contains("MECHANICAL")},
	// CS is a separate programme from CSE in the strength table.
	{"CSE", func(full string) bool {
		return strings.Contains(full, "COMPUTER SCIENCE") && strings.Contains(full, "ENGINEERING")
	}},
	{"CS", contains("COMPUTER SCIENCE")},
	{"ACT", contains("AGRICULT")},
}

// Branch maps a free-text department label onto a branch code. Labels that
// match no rule are returned upper-cased and trimmed.
func Branch(text string) string {
	name := strings.ToUpper(strings.TrimSpace(text))

	cleaned := strings.NewReplacer(".", " ", "&", " ", "-", " ").Replace(name)
	tokens := make(map[string]bool)
	for _, tok := range strings.Fields(cleaned) {
		tokens[tok] = true
	}
	for _, rule := range branchTokenRules {
		if rule.match(tokens) {
			return rule.code
		}
	}

	full := strings.NewReplacer(".", "", "&", " AND ").Replace(name)
	for _, rule := range branchSubstringRules {
		if rule.match(full) {
			return rule.code
		}
	}

	return name
}
