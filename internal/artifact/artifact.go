// Package artifact emits the per-query outputs of a catalog run:
// aligned terminal tables and CSV extracts.
package artifact

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"huntbook/internal/format"
	"huntbook/internal/hunt"
)

// Echo prints tbl to w as an aligned terminal table in union column
// order. Empty tables print nothing.
func Echo(w io.Writer, tbl *hunt.Table) {
	if tbl.Empty() {
		return
	}
	out := format.NewTable(format.ASCII)
	cols := make([]string, len(tbl.Columns))
	copy(cols, tbl.Columns)
	out.Header(cols...)
	for _, row := range tbl.Rows {
		vals := make([]any, len(row))
		for i, cell := range row {
			vals[i] = cell
		}
		out.Row(vals...)
	}
	fmt.Fprintln(w, out.String())
}

// ExportCSV writes tbl to <name>.csv under dir, header first, with
// standard CSV quoting for embedded commas, quotes and newlines. An
// empty table writes no file at all; the returned path is "" in that
// case.
func ExportCSV(tbl *hunt.Table, name, dir string) (string, error) {
	if tbl.Empty() {
		return "", nil
	}

	path := filepath.Join(dir, name+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(tbl.Columns); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}
	for _, row := range tbl.Rows {
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush %s: %w", path, err)
	}
	return path, nil
}
