package roster

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// Record is one parsed roster row.
type Record struct {
	IDNum   string
	Name    string
	Program string
}

// ErrUnsupported is returned for extensions other than csv, xlsx and xls.
var ErrUnsupported = errors.New("unsupported roster format")

// Supported reports whether the file name carries a roster extension.
func Supported(filename string) bool {
	switch ext(filename) {
	case ".csv", ".xlsx", ".xls":
		return true
	}
	return false
}

// Parse reads the first sheet (or the CSV body) of a roster file. The first
// row is the header; blank rows are skipped.
func Parse(filename string, data []byte) ([]Record, error) {
	var (
		rows [][]string
		err  error
	)
	switch ext(filename) {
	case ".csv":
		rows, err = csvRows(data)
	case ".xlsx":
		rows, err = xlsxRows(data)
	case ".xls":
		rows, err = xlsRows(data)
	default:
		return nil, ErrUnsupported
	}
	if err != nil {
		return nil, err
	}
	return records(rows), nil
}

func ext(filename string) string {
	return strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
}

// records maps rows onto header columns. Missing cells become "".
func records(rows [][]string) []Record {
	if len(rows) == 0 {
		return nil
	}
	col := map[string]int{}
	for i, h := range rows[0] {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, seen := col[h]; !seen {
			col[h] = i
		}
	}
	cell := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []Record
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		out = append(out, Record{
			IDNum:   cell(row, "id_num"),
			Name:    cell(row, "name"),
			Program: cell(row, "program"),
		})
	}
	return out
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func csvRows(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

func xlsxRows(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("xlsx has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx sheet: %w", err)
	}
	return rows, nil
}

// xlsRows recovers from the reader's panics on malformed BIFF streams.
func xlsRows(data []byte) (rows [][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("read xls: %v", r)
		}
	}()
	wb, err := xls.OpenReader(io.ReadSeeker(bytes.NewReader(data)), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, errors.New("xls has no sheets")
	}
	rows = make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := xlsRow(sheet, i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// xlsRow returns nil for row indexes the sheet never stored; the reader
// dereferences a nil row for those.
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}
