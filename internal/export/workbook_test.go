package export

import (
	"bytes"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/xuri/excelize/v2"

	"practice-analytics/internal/models"
)

func sampleReport(date string, current bool) models.DailyReport {
	return models.DailyReport{
		Date:      date,
		YearsText: "II, III",
		Current:   current,
		Rows: []models.ReportRow{
			{Kind: models.RowData, Branch: "CSE", Year: "II", Registered: 10, Appeared: 8, Absent: 2, Zero: 1, One: 2, Two: 3, Three: 2},
			{Kind: models.RowData, Branch: "CSE", Year: "III", Registered: 5, Appeared: 5, Zero: 5},
			{Kind: models.RowSubtotal, Branch: "CSE TOTAL", Registered: 15, Appeared: 13, Absent: 2, Zero: 6, One: 2, Two: 3, Three: 2},
			{Kind: models.RowData, Branch: "ECE", Year: "II", Registered: 4, Appeared: 1, Absent: 3, One: 1},
			{Kind: models.RowTotal, Branch: models.OverallTotalLabel, Registered: 19, Appeared: 14, Absent: 5, Zero: 6, One: 3, Two: 3, Three: 2},
		},
	}
}

// reopen round-trips a workbook through bytes the way a client receives it
func reopen(t *testing.T, f *excelize.File) *excelize.File {
	t.Helper()

	var buf bytes.Buffer
	if err := Write(&buf, f); err != nil {
		t.Fatal(err)
	}
	out, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { out.Close() })
	return out
}

func TestDailyWorkbook(t *testing.T) {
	convey.Convey("Given current and historical reports", t, func() {
		reports := []models.DailyReport{
			sampleReport("14-02-2025", true),
			sampleReport("12-02-2025", false),
		}

		f, err := DailyWorkbook(reports)
		convey.So(err, convey.ShouldBeNil)
		wb := reopen(t, f)

		convey.Convey("Sheets are chronological and history is prefixed", func() {
			convey.So(wb.GetSheetList(), convey.ShouldResemble, []string{"Past_12-02-2025", "14-02-2025"})
		})

		convey.Convey("The banner rows are written", func() {
			v, _ := wb.GetCellValue("14-02-2025", "A1")
			convey.So(v, convey.ShouldEqual, "OFFICE OF THE CONTROLLER OF EXAMINATIONS")
			v, _ = wb.GetCellValue("14-02-2025", "A2")
			convey.So(v, convey.ShouldEqual, "Date: 14-02-2025")
			v, _ = wb.GetCellValue("14-02-2025", "A3")
			convey.So(v, convey.ShouldEqual, "II, III YEAR SKILL RACK RESULT ANALYSIS")
			v, _ = wb.GetCellValue("14-02-2025", "F4")
			convey.So(v, convey.ShouldEqual, "No of Problems Solved")
			v, _ = wb.GetCellValue("14-02-2025", "I5")
			convey.So(v, convey.ShouldEqual, "Three")
		})

		convey.Convey("Rows follow the report order", func() {
			v, _ := wb.GetCellValue("14-02-2025", "B6")
			convey.So(v, convey.ShouldEqual, "II")
			v, _ = wb.GetCellValue("14-02-2025", "C6")
			convey.So(v, convey.ShouldEqual, "10")
			v, _ = wb.GetCellValue("14-02-2025", "A8")
			convey.So(v, convey.ShouldEqual, "TOTAL")
			v, _ = wb.GetCellValue("14-02-2025", "A10")
			convey.So(v, convey.ShouldEqual, "OVERALL TOTAL")
			v, _ = wb.GetCellValue("14-02-2025", "D10")
			convey.So(v, convey.ShouldEqual, "14")
		})

		convey.Convey("Branch and total cells are merged", func() {
			merged, err := wb.GetMergeCells("14-02-2025")
			convey.So(err, convey.ShouldBeNil)

			ranges := make(map[string]bool)
			for _, m := range merged {
				ranges[m.GetStartAxis()+":"+m.GetEndAxis()] = true
			}
			for _, want := range []string{"A1:I1", "A4:A5", "C4:E4", "F4:I4", "A6:A7", "A8:B8", "A10:B10"} {
				convey.So(ranges[want], convey.ShouldBeTrue)
			}
			convey.So(ranges["A9:A9"], convey.ShouldBeFalse)
		})
	})

	convey.Convey("Given no reports", t, func() {
		_, err := DailyWorkbook(nil)
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func TestPerformanceWorkbook(t *testing.T) {
	convey.Convey("Given ranked entries", t, func() {
		entries := []models.RankedEntry{
			{
				CanonicalRecord: models.CanonicalRecord{
					RawRecord: models.RawRecord{RegNo: "21CS001", Name: "Asha", SolvedCount: 9, TotalSubmissions: 11},
					Branch:    "ARTIFICIAL INTELLIGENCE AND DATA SCIENCE",
					Year:      "III",
				},
				Rank:          1,
				ActiveSeconds: 3725,
				DaysAppeared:  3,
			},
		}

		f, err := PerformanceWorkbook(entries, "ARTIFICIAL INTELLIGENCE AND DATA SCIENCE", 50)
		convey.So(err, convey.ShouldBeNil)
		wb := reopen(t, f)

		sheet := wb.GetSheetName(0)

		convey.Convey("The sheet name is truncated", func() {
			convey.So(len(sheet), convey.ShouldEqual, 31)
			convey.So(sheet, convey.ShouldStartWith, "Top 50 ARTIFICIAL")
		})

		convey.Convey("Reg No leads the header", func() {
			rows, err := wb.GetRows(sheet)
			convey.So(err, convey.ShouldBeNil)
			convey.So(rows, convey.ShouldHaveLength, 2)
			convey.So(rows[0][0], convey.ShouldEqual, "Reg No")
			convey.So(rows[1][0], convey.ShouldEqual, "21CS001")
			convey.So(rows[1][7], convey.ShouldEqual, "01:02:05")
		})
	})
}

func TestCumulativeWorkbook(t *testing.T) {
	f, err := CumulativeWorkbook([]models.StudentTotal{
		{Identifier: "21CS001", RegNo: "21CS001", Branch: "CSE", Year: "II", DaysAppeared: 2, TotalSolved: 4, TotalSubmissions: 12, ActiveSeconds: 1800},
	})
	if err != nil {
		t.Fatal(err)
	}
	wb := reopen(t, f)

	rows, err := wb.GetRows("Cumulative Leaderboard")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[1][5] != "4" || rows[1][7] != "00:30:00" {
		t.Errorf("unexpected row %v", rows[1])
	}
}

func TestSheetName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"12-02-2025", "12-02-2025"},
		{"Past_12/02/2025", "Past_12_02_2025"},
		{"a:b?c*[d]", "a_b_c__d_"},
		{"0123456789012345678901234567890123", "0123456789012345678901234567890"},
	}

	for _, tt := range tests {
		if got := SheetName(tt.in); got != tt.want {
			t.Errorf("SheetName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		secs int
		want string
	}{
		{0, "00:00:00"},
		{59, "00:00:59"},
		{3725, "01:02:05"},
		{models.MissingDuration, ""},
		{-1, ""},
	}

	for _, tt := range tests {
		if got := FormatSeconds(tt.secs); got != tt.want {
			t.Errorf("FormatSeconds(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}

func TestDailyFileName(t *testing.T) {
	reports := []models.DailyReport{
		{Date: "14-02-2025", Current: true},
		{Date: "12-02-2025", Current: true},
		{Date: "01-02-2025", Current: false},
	}

	if got, want := DailyFileName(reports), "Skill_Rack_Analysis_12-02-2025_14-02-2025.xlsx"; got != want {
		t.Errorf("DailyFileName() = %q, want %q", got, want)
	}
	if got, want := DailyFileName(nil), "Skill_Rack_Analysis.xlsx"; got != want {
		t.Errorf("DailyFileName(nil) = %q, want %q", got, want)
	}
}
