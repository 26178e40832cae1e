package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "device-queries.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeCatalog(t, `[
  {"Name": "Q1", "Query": "find {DeviceId}", "Source": "http://x", "ResultCount": 5},
  {"Name": "Q2", "Query": "other", "Source": "internal note"}
]`)

	cat, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cat.Defs) != 2 {
		t.Fatalf("got %d definitions", len(cat.Defs))
	}
	if cat.Defs[0].Name != "Q1" || cat.Defs[0].ResultCount != 5 {
		t.Errorf("first definition: %+v", cat.Defs[0])
	}
	// ResultCount defaults to zero when absent.
	if cat.Defs[1].ResultCount != 0 {
		t.Errorf("missing ResultCount should default to 0, got %d", cat.Defs[1].ResultCount)
	}
}

func TestLoadMalformed(t *testing.T) {
	path := writeCatalog(t, `{"not": "an array"`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected read error")
	}
}

func TestSaveRoundTripPreservesUnknownFields(t *testing.T) {
	path := writeCatalog(t, `[
  {"Name": "Q1", "Query": "q", "Source": "s", "ResultCount": 1,
   "Author": "secops", "Tags": ["persistence", "t1547"]}
]`)

	cat, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cat.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Re-load and compare logical content, including the fields this
	// engine does not recognize.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got []map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("saved catalog is not valid JSON: %v", err)
	}
	want := []map[string]any{{
		"Name":        "Q1",
		"Query":       "q",
		"Source":      "s",
		"ResultCount": float64(1),
		"Author":      "secops",
		"Tags":        []any{"persistence", "t1547"},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip changed content (-want +got):\n%s", diff)
	}
}

func TestSaveIdempotentWhenUnchanged(t *testing.T) {
	path := writeCatalog(t, `[{"Name":"Q1","Query":"q","Source":"s","ResultCount":3}]`)

	cat, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := cat.Save(); err != nil {
		t.Fatal(err)
	}
	first, _ := os.ReadFile(path)

	cat2, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := cat2.Save(); err != nil {
		t.Fatal(err)
	}
	second, _ := os.ReadFile(path)

	if diff := cmp.Diff(string(first), string(second)); diff != "" {
		t.Errorf("second save differs (-first +second):\n%s", diff)
	}
}

func TestSaveUpdatedHitCount(t *testing.T) {
	path := writeCatalog(t, `[{"Name":"Q1","Query":"q","Source":"s","ResultCount":5}]`)

	cat, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	cat.Defs[0].ResultCount = 3
	if err := cat.Save(); err != nil {
		t.Fatal(err)
	}

	again, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if again.Defs[0].ResultCount != 3 {
		t.Errorf("ResultCount = %d, want 3", again.Defs[0].ResultCount)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	path := writeCatalog(t, `[{"Name":"Q1","Query":"q","Source":"s"}]`)
	cat, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := cat.Save(); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("stray files after save: %v", names)
	}
}
