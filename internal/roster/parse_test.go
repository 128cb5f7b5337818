package roster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestSupported(t *testing.T) {
	tests := map[string]bool{
		"roster.csv":      true,
		"ROSTER.XLSX":     true,
		"legacy.Xls":      true,
		"roster.pdf":      false,
		"roster":          false,
		"roster.csv.exe":  false,
		"archive.xlsx.gz": false,
	}
	for name, want := range tests {
		if got := Supported(name); got != want {
			t.Errorf("Supported(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestParseCSV(t *testing.T) {
	data := []byte("\ufeffID_Num, Name ,program,extra\n" +
		" 2021-001 ,  Ada Lovelace ,BSCS,x\n" +
		",,,\n" +
		"2021-002,Alan Turing\n")
	recs, err := Parse("students.csv", data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []Record{
		{IDNum: "2021-001", Name: "Ada Lovelace", Program: "BSCS"},
		{IDNum: "2021-002", Name: "Alan Turing", Program: ""},
	}
	if len(recs) != len(want) {
		t.Fatalf("expected %d records, got %+v", len(want), recs)
	}
	for i := range want {
		if recs[i] != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, recs[i], want[i])
		}
	}
}

func TestParseCSVMissingColumns(t *testing.T) {
	recs, err := Parse("students.csv", []byte("name\nAda\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(recs) != 1 || recs[0].IDNum != "" || recs[0].Name != "Ada" {
		t.Fatalf("unexpected records: %+v", recs)
	}
}

func TestParseCSVMalformed(t *testing.T) {
	if _, err := Parse("students.csv", []byte("id_num,name\n\"unterminated,x\n")); err == nil {
		t.Fatal("expected error for malformed csv")
	}
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"id_num", "name", "program"},
		{"2021-010", "Grace Hopper", "BSIT"},
		{},
		{"2021-011", " Edsger Dijkstra ", "BSCS"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write xlsx: %v", err)
	}

	recs, err := Parse("students.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %+v", recs)
	}
	if recs[1].Name != "Edsger Dijkstra" || recs[1].Program != "BSCS" {
		t.Fatalf("unexpected record: %+v", recs[1])
	}
}

func TestParseXLS(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "roster.xls"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	recs, err := Parse("legacy.XLS", data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	// Row 2 is absent from the sheet and the first id is a numeric cell.
	want := []Record{
		{IDNum: "2021001", Name: "Ada Lovelace", Program: "BSCS"},
		{IDNum: "S-2", Name: "José Rizal", Program: "BSIT"},
	}
	if len(recs) != len(want) {
		t.Fatalf("expected %d records, got %+v", len(want), recs)
	}
	for i := range want {
		if recs[i] != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, recs[i], want[i])
		}
	}
}

func TestParseCorruptSpreadsheets(t *testing.T) {
	for _, name := range []string{"broken.xlsx", "broken.xls"} {
		if _, err := Parse(name, []byte("definitely not a spreadsheet")); err == nil {
			t.Errorf("%s: expected parse error", name)
		}
	}
}

func TestParseUnsupported(t *testing.T) {
	if _, err := Parse("notes.txt", []byte("id_num\n1\n")); err != ErrUnsupported {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
