// Package ingest parses uploaded CSV and XLSX files into header/row tables.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"practice-analytics/internal/columns"
	"practice-analytics/internal/models"
)

// Supported upload formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Upload is one file received from a client
type Upload struct {
	Name string
	Data []byte
}

// Result holds the parsed tables of a batch and the names of skipped duplicates
type Result struct {
	Tables  []columns.Table
	Files   []string
	Skipped []string
	Rows    int
}

// Format returns the upload format implied by the file extension
func Format(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return ""
	}
}

// Read parses every upload in order. A file whose name was already seen in
// the batch is skipped and reported in Result.Skipped. An unsupported or
// unreadable file fails the batch with a *models.ValidationError.
func Read(uploads []Upload) (Result, error) {
	var res Result
	seen := make(map[string]bool, len(uploads))

	for _, up := range uploads {
		if seen[up.Name] {
			res.Skipped = append(res.Skipped, up.Name)
			continue
		}
		seen[up.Name] = true

		table, err := ReadFile(up.Name, bytes.NewReader(up.Data))
		if err != nil {
			return Result{}, err
		}
		res.Tables = append(res.Tables, table)
		res.Files = append(res.Files, up.Name)
		res.Rows += len(table.Rows)
	}

	return res, nil
}

// ReadFile parses one file, dispatching on its extension
func ReadFile(name string, r io.Reader) (columns.Table, error) {
	var (
		table columns.Table
		err   error
	)

	switch Format(name) {
	case FormatCSV:
		table, err = ReadCSV(name, r)
	case FormatXLSX:
		table, err = ReadXLSX(name, r)
	default:
		return columns.Table{}, &models.ValidationError{
			Field:   "files",
			Value:   name,
			Message: fmt.Sprintf("%s: unsupported file type, expected .csv or .xlsx", name),
		}
	}

	if err != nil {
		return columns.Table{}, &models.ValidationError{
			Field:   "files",
			Value:   name,
			Message: fmt.Sprintf("%s: %v", name, err),
		}
	}
	return table, nil
}

// ReadCSV parses a CSV stream. Ragged rows are accepted.
func ReadCSV(name string, r io.Reader) (columns.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return columns.Table{}, fmt.Errorf("failed to parse csv: %w", err)
		}
		records = append(records, rec)
	}

	return tableFromRows(name, records)
}

// ReadXLSX parses the first worksheet of a workbook using displayed cell values
func ReadXLSX(name string, r io.Reader) (columns.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return columns.Table{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return columns.Table{}, errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return columns.Table{}, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}

	return tableFromRows(name, rows)
}

// tableFromRows takes the first non-blank row as the header
func tableFromRows(name string, rows [][]string) (columns.Table, error) {
	start := -1
	for i, row := range rows {
		if !blank(row) {
			start = i
			break
		}
	}
	if start < 0 {
		return columns.Table{}, errors.New("file has no header row")
	}

	headers := make([]string, len(rows[start]))
	for i, h := range rows[start] {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	data := make([][]string, 0, len(rows)-start-1)
	for _, row := range rows[start+1:] {
		if blank(row) {
			continue
		}
		data = append(data, row)
	}

	return columns.Table{Source: name, Headers: headers, Rows: data}, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
