package hunt

import "huntbook/internal/value"

// Table is a fully-populated tabular view over the union of field names
// seen across one query's raw rows. Missing fields render as empty
// strings so every row has exactly len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Empty reports whether the table has no data rows.
func (t *Table) Empty() bool { return t == nil || len(t.Rows) == 0 }

// Normalize computes the ordered union of field names across rows (each
// name added on first encounter, duplicates ignored) and flattens every
// row over that union. The result is deterministic for identical input:
// same row sequence in, same table out.
func Normalize(rows []*value.Row) *Table {
	tbl := &Table{}
	seen := make(map[string]bool)
	for _, row := range rows {
		for _, name := range row.Fields() {
			if seen[name] {
				continue
			}
			seen[name] = true
			tbl.Columns = append(tbl.Columns, name)
		}
	}

	for _, row := range rows {
		cells := make([]string, len(tbl.Columns))
		for i, name := range tbl.Columns {
			if v, ok := row.Get(name); ok {
				cells[i] = v.Text()
			}
		}
		tbl.Rows = append(tbl.Rows, cells)
	}
	return tbl
}
