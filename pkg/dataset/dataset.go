package dataset

import (
	"fmt"
	"strconv"
	"strings"
)

// Date is a calendar date kept in ISO form (YYYY-MM-DD). The engine stores it
// as TEXT.
type Date string

func (d Date) String() string { return string(d) }

// Row is one record aligned to Dataset.Columns. Cells are nil, string, int64,
// float64 or Date.
type Row []any

// Dataset is the normalized in-memory table produced by ingestion.
type Dataset struct {
	Name    string
	Columns []string
	Rows    []Row
}

// New builds a dataset and checks that every row matches the column count.
func New(name string, columns []string, rows []Row) (*Dataset, error) {
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("row %d has %d cells, expected %d", i+1, len(r), len(columns))
		}
	}
	return &Dataset{Name: name, Columns: columns, Rows: rows}, nil
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// ColumnIndex returns the position of column name or -1.
func (d *Dataset) ColumnIndex(name string) int {
	for i, c := range d.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Record renders row i as a column-name keyed mapping.
func (d *Dataset) Record(i int) map[string]any {
	rec := make(map[string]any, len(d.Columns))
	for j, c := range d.Columns {
		rec[c] = EngineValue(d.Rows[i][j])
	}
	return rec
}

// Records renders every row as a mapping. Only used at protocol boundaries.
func (d *Dataset) Records() []map[string]any {
	out := make([]map[string]any, len(d.Rows))
	for i := range d.Rows {
		out[i] = d.Record(i)
	}
	return out
}

// Head returns up to n rows as mappings, for prompts.
func (d *Dataset) Head(n int) []map[string]any {
	if n > len(d.Rows) {
		n = len(d.Rows)
	}
	out := make([]map[string]any, n)
	for i := 0; i < n; i++ {
		out[i] = d.Record(i)
	}
	return out
}

// EngineValue converts a cell to a value the SQL driver accepts.
func EngineValue(v any) any {
	switch t := v.(type) {
	case Date:
		return string(t)
	default:
		return v
	}
}

// IsNumber reports whether v is an int64 or float64 cell.
func IsNumber(v any) bool {
	switch v.(type) {
	case int64, float64:
		return true
	}
	return false
}

// ToFloat coerces a cell with numeric parsing. Text cells are parsed after
// trimming; anything non-numeric reports false.
func ToFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Label renders a cell as display text.
func Label(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case Date:
		return string(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
