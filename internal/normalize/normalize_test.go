package normalize

import (
	"testing"

	"practice-analytics/internal/models"
)

func TestBranch(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"AI", "AIDS"},
		{"AIDS", "AIDS"},
		{"AD", "AIDS"},
		{"AI & DS", "AIDS"},
		{"AI&DS", "AIDS"},
		{"ai-ds", "AIDS"},
		{"ARTIFICIAL INTELLIGENCE AND DATA SCIENCE", "AIDS"},
		{"BME", "BIOMED"},
		{"BIOMEDICAL ENGINEERING", "BIOMED"},
		{"CS", "CS"},
		{"COMPUTER SCIENCE", "CS"},
		{"COMPUTER SCIENCE AND ENGINEERING", "CSE"},
		{"Computer Science & Business Systems", "CSBS"},
		{"CSE", "CSE"},
		{" b.e. cse ", "CSE"},
		{"ECE", "ECE"},
		{"ELECTRONICS AND COMMUNICATION", "ECE"},
		{"ELECTRICAL AND ELECTRONICS ENGINEERING", "EEE"},
		{"IT", "IT"},
		{"INFORMATION TECHNOLOGY", "IT"},
		{"MECT", "MCT"},
		{"MECHATRONICS", "MCT"},
		{"MECHANICAL ENGINEERING", "MECH"},
		{"Civil Engineering", "CIVIL"},
		{"AI & ML", "AIDS"},
		{"ARTIFICIAL INTELLIGENCE AND MACHINE LEARNING", "AIML"},
		{"AGRICULTURAL ENGINEERING", "ACT"},
		{"VLSI", "VLSI"},
		{"  physics ", "PHYSICS"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Branch(tt.in); got != tt.want {
			t.Errorf("Branch(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBranch_Idempotent(t *testing.T) {
	inputs := []string{
		"CIVIL", "CSE", "EEE", "ECE", "MECH", "MCT", "BIOMED", "IT", "AIDS", "CSBS", "AIML", "ACT", "VLSI", "CS",
		"computer science", "AI & DS", "physics", "FOO & BAR", "UNKNOWN",
	}

	for _, in := range inputs {
		once := Branch(in)
		if twice := Branch(once); twice != once {
			t.Errorf("Branch(Branch(%q)) = %q, want %q", in, twice, once)
		}
	}
}

func TestYear(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"3rd", "III"},
		{"THIRD", "III"},
		{"3", "III"},
		{"3.0", "III"},
		{"iii", "III"},
		{"Year 2", "II"},
		{"II YEAR", "II"},
		{"III B.E", "III"},
		{"I year", "I"},
		{"IV-A", "IV"},
		{"second year", "II"},
		{"1st", "I"},
		{"fourth", "IV"},
		{"2028 batch", "II"},
		{"Batch 2027", "III"},
		{"CITAR", models.CitarYear},
		{"citar-iii", models.CitarYear},
		{"Sem 4", "IV"},
		{"12 3", "III"},
		{"final", "FINAL"},
		{" ", ""},
	}

	for _, tt := range tests {
		if got := Year(tt.in); got != tt.want {
			t.Errorf("Year(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractDate(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"Submitted: 12-Feb-2025 10:30", "12-02-2025", true},
		{"2025-02-12 10:30:00", "12-02-2025", true},
		{"2025-02-12T10:30:00Z", "12-02-2025", true},
		{"13/02/2025", "13-02-2025", true},
		{"12/02/2025 09:00", "02-12-2025", true},
		{"12-FEB-25", "12-02-2025", true},
		{"Feb 12, 2025", "12-02-2025", true},
		{"2/1/25 10:30", "01-02-2025", true},
		{"12 February 2025", "12-02-2025", true},
		{"13.02.2025", "13-02-2025", true},
		{"12.02.2025", "02-12-2025", true},
		{"13.02.2025 10:30", "13-02-2025", true},
		{"garbage", "", false},
		{"", "", false},
		{"n/a", "", false},
	}

	for _, tt := range tests {
		got, ok := ExtractDate(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ExtractDate(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestDeriveDate(t *testing.T) {
	if got := DeriveDate("garbage"); got != models.DateNotDetected {
		t.Errorf("DeriveDate(garbage) = %q, want %q", got, models.DateNotDetected)
	}
	if got := DeriveDate("12-Feb-2025"); got != "12-02-2025" {
		t.Errorf("DeriveDate = %q", got)
	}
}

func TestDurationSeconds(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"01:00:00", 3600},
		{"00:30:00", 1800},
		{"1:02:03", 3723},
		{"10:05", 605},
		{"", models.MissingDuration},
		{"n/a", models.MissingDuration},
		{"NaN", models.MissingDuration},
		{"45", models.MissingDuration},
		{"1:2:3:4", models.MissingDuration},
		{"ab:cd", models.MissingDuration},
	}

	for _, tt := range tests {
		if got := DurationSeconds(tt.in); got != tt.want {
			t.Errorf("DurationSeconds(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name   string
		record models.RawRecord
		want   models.CanonicalRecord
	}{
		{
			name:   "plain record",
			record: models.RawRecord{RegNo: "21CS001", BranchRaw: "COMPUTER SCIENCE AND ENGINEERING", YearRaw: "2ND", TimestampRaw: "12-Feb-2025"},
			want:   models.CanonicalRecord{Branch: "CSE", Year: "II", DerivedDate: "12-02-2025"},
		},
		{
			name:   "citar in identifier overrides year",
			record: models.RawRecord{RegNo: "CITAR21CS05", BranchRaw: "CSE", YearRaw: "III"},
			want:   models.CanonicalRecord{Branch: "CSE", Year: models.CitarYear, DerivedDate: models.DateNotDetected},
		},
		{
			name:   "citar in year label",
			record: models.RawRecord{BranchRaw: "ECE", YearRaw: "III CITAR"},
			want:   models.CanonicalRecord{Branch: "ECE", Year: models.CitarYear, DerivedDate: models.DateNotDetected},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Canonicalize(tt.record)
			tt.want.RawRecord = tt.record

			if got != tt.want {
				t.Errorf("Canonicalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
