package ingest

import (
	"errors"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/xuri/excelize/v2"

	"practice-analytics/internal/models"
)

func workbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRead(t *testing.T) {
	convey.Convey("Given a batch of uploads", t, func() {
		csvData := []byte("\ufeffReg No,Branch,Year,Solved count\n21CS001,CSE,II,3\n\n21CS002,CSE,II,0\n")

		convey.Convey("When a CSV file is read", func() {
			res, err := Read([]Upload{{Name: "day1.csv", Data: csvData}})

			convey.Convey("Then headers and rows are parsed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.Tables, convey.ShouldHaveLength, 1)
				table := res.Tables[0]
				convey.So(table.Source, convey.ShouldEqual, "day1.csv")
				convey.So(table.Headers, convey.ShouldResemble, []string{"Reg No", "Branch", "Year", "Solved count"})
				convey.So(table.Rows, convey.ShouldHaveLength, 2)
				convey.So(table.Cell(1, 0), convey.ShouldEqual, "21CS002")
				convey.So(res.Rows, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the same filename is uploaded twice", func() {
			res, err := Read([]Upload{
				{Name: "day1.csv", Data: csvData},
				{Name: "day1.csv", Data: csvData},
			})

			convey.Convey("Then the duplicate is skipped", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.Tables, convey.ShouldHaveLength, 1)
				convey.So(res.Skipped, convey.ShouldResemble, []string{"day1.csv"})
				convey.So(res.Files, convey.ShouldResemble, []string{"day1.csv"})
			})
		})

		convey.Convey("When an XLSX workbook is read", func() {
			data := workbook(t, [][]interface{}{
				{},
				{"Regn No", "Department", "Year", "Problems Solved", "Timestamp"},
				{"21EC001", "ECE", "III", 2, "12-02-2025 10:30"},
				{"21EC002", "ECE", "III", 5, "12-02-2025 11:00"},
			})

			res, err := Read([]Upload{{Name: "day2.xlsx", Data: data}})

			convey.Convey("Then the first non-blank row is the header", func() {
				convey.So(err, convey.ShouldBeNil)
				table := res.Tables[0]
				convey.So(table.Headers[0], convey.ShouldEqual, "Regn No")
				convey.So(table.Rows, convey.ShouldHaveLength, 2)
				convey.So(table.Cell(0, 3), convey.ShouldEqual, "2")
				convey.So(table.Cell(1, 4), convey.ShouldEqual, "12-02-2025 11:00")
			})
		})

		convey.Convey("When a file has an unsupported extension", func() {
			_, err := Read([]Upload{{Name: "notes.txt", Data: []byte("x")}})

			convey.Convey("Then a validation error names the file", func() {
				var ve *models.ValidationError
				convey.So(errors.As(err, &ve), convey.ShouldBeTrue)
				convey.So(ve.Value, convey.ShouldEqual, "notes.txt")
			})
		})

		convey.Convey("When an XLSX upload is not a workbook", func() {
			_, err := Read([]Upload{{Name: "broken.xlsx", Data: []byte("not a zip")}})

			convey.Convey("Then the batch fails", func() {
				var ve *models.ValidationError
				convey.So(errors.As(err, &ve), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a CSV file is empty", func() {
			_, err := Read([]Upload{{Name: "empty.csv", Data: []byte("\n\n")}})

			convey.Convey("Then it has no header row", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "no header row")
			})
		})
	})
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"a.csv", FormatCSV},
		{"A.CSV", FormatCSV},
		{"b.xlsx", FormatXLSX},
		{"c.xlsm", FormatXLSX},
		{"d.xls", ""},
		{"noext", ""},
	}

	for _, tt := range tests {
		if got := Format(tt.name); got != tt.want {
			t.Errorf("Format(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
