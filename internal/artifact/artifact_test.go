package artifact

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"huntbook/internal/hunt"
)

func sampleTable() *hunt.Table {
	return &hunt.Table{
		Columns: []string{"Timestamp", "DeviceName", "CommandLine"},
		Rows: [][]string{
			{"2026-08-01T00:00:00Z", "ws01", `powershell -enc "x, y"`},
			{"2026-08-01T00:05:00Z", "ws02", "line1\nline2"},
		},
	}
}

func TestEcho(t *testing.T) {
	var buf bytes.Buffer
	Echo(&buf, sampleTable())

	out := buf.String()
	for _, want := range []string{"Timestamp", "DeviceName", "ws01", "ws02"} {
		if !strings.Contains(out, want) {
			t.Errorf("echo output missing %q:\n%s", want, out)
		}
	}
}

func TestEchoEmptyTablePrintsNothing(t *testing.T) {
	var buf bytes.Buffer
	Echo(&buf, &hunt.Table{Columns: []string{"A"}})
	if buf.Len() != 0 {
		t.Errorf("empty table produced output: %q", buf.String())
	}
}

func TestExportCSV(t *testing.T) {
	dir := t.TempDir()
	path, err := ExportCSV(sampleTable(), "Suspicious PowerShell", dir)
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	if path != filepath.Join(dir, "Suspicious PowerShell.csv") {
		t.Errorf("path = %q", path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("re-parse csv: %v", err)
	}
	want := [][]string{
		{"Timestamp", "DeviceName", "CommandLine"},
		{"2026-08-01T00:00:00Z", "ws01", `powershell -enc "x, y"`},
		{"2026-08-01T00:05:00Z", "ws02", "line1\nline2"},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("csv content (-want +got):\n%s", diff)
	}
}

func TestExportCSVSkipsEmptyTable(t *testing.T) {
	dir := t.TempDir()
	path, err := ExportCSV(&hunt.Table{Columns: []string{"A", "B"}}, "NoHits", dir)
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	if path != "" {
		t.Errorf("expected no file, got %q", path)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("empty table still created a file: %v", entries)
	}
}
