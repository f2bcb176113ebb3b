// Package sheet converts between xlsx bytes and types.Dataset.
//
// Only the first worksheet is read. Its first row is the header; every
// column is addressed by its (trimmed, lower-cased) header name, so the
// column order in the file does not matter. Columns outside the fixed
// header survive a round trip through Record.Extra.
package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/aanand-mishra/students-form/internal/types"
)

var (
	ErrNoSheet       = errors.New("workbook has no worksheets")
	ErrNoHeader      = errors.New("worksheet has no header row")
	ErrMissingColumn = errors.New("header is missing a required column")
)

// Decode reads the first worksheet of an xlsx workbook.
//
// dob cells are parsed into dates (Excel serial numbers as well as text).
// A dob that cannot be parsed is left as the zero date and its text is kept
// in Record.RawDOB, so Encode writes it back unchanged. gender is
// capitalized so "male" and "MALE" both become "Male".
func Decode(data []byte) (types.Dataset, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return types.Dataset{}, fmt.Errorf("sheet.Decode: open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return types.Dataset{}, ErrNoSheet
	}

	// RawCellValue keeps date cells as serial numbers instead of whatever
	// display format the author picked.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return types.Dataset{}, fmt.Errorf("sheet.Decode: read rows: %w", err)
	}
	if len(rows) == 0 {
		return types.Dataset{}, ErrNoHeader
	}

	header := make([]string, len(rows[0]))
	for i, name := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(name))
	}
	for _, required := range []string{types.ColUID, types.ColDOB} {
		if !slices.Contains(header, required) {
			return types.Dataset{}, fmt.Errorf("%w: %q", ErrMissingColumn, required)
		}
	}

	ds := types.Dataset{Columns: header, Records: make([]types.Record, 0, len(rows)-1)}
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		var rec types.Record
		for i, col := range header {
			if col == "" {
				continue
			}
			var cell string
			if i < len(row) {
				cell = strings.TrimSpace(row[i])
			}
			switch col {
			case types.ColDOB:
				rec.DOB = parseDateCell(cell)
				if rec.DOB.IsZero() {
					rec.RawDOB = cell
				}
			case types.ColGender:
				rec.Gender = Capitalize(cell)
			default:
				rec.Set(col, cell)
			}
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}

// Encode writes ds as a single-sheet workbook. Every cell is written as
// text, so identifiers and phone numbers keep their leading zeros. dob is
// written as YYYY-MM-DD, or as the original cell text if it never parsed.
func Encode(ds types.Dataset) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	header := completeHeader(ds.Header())

	if err := setRow(f, sheet, 1, header); err != nil {
		return nil, fmt.Errorf("sheet.Encode: header: %w", err)
	}
	for i, rec := range ds.Records {
		cells := make([]string, len(header))
		for j, col := range header {
			cells[j] = rec.Get(col)
		}
		if err := setRow(f, sheet, i+2, cells); err != nil {
			return nil, fmt.Errorf("sheet.Encode: row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("sheet.Encode: write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Capitalize upper-cases the first letter of s and lower-cases the rest.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

func setRow(f *excelize.File, sheet string, row int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// completeHeader appends any canonical column the file did not have, so an
// edit to such a field is not silently dropped on save.
func completeHeader(header []string) []string {
	out := make([]string, 0, len(header)+len(types.Columns))
	for _, col := range header {
		if col != "" {
			out = append(out, col)
		}
	}
	for _, col := range types.Columns {
		if !slices.Contains(out, col) {
			out = append(out, col)
		}
	}
	return out
}

func parseDateCell(cell string) types.Date {
	if cell == "" {
		return types.Date{}
	}
	if d, err := types.ParseDate(cell); err == nil {
		return d
	}
	serial, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return types.Date{}
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return types.Date{}
	}
	return types.DateOf(t)
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
