package schema

import (
	"fmt"
	"math"
	"strings"

	"ai-data-analyst-be/pkg/dataset"
)

// TableName is the single table every dataset is loaded into.
const TableName = "data"

type ColumnType string

const (
	TypeText    ColumnType = "TEXT"
	TypeInteger ColumnType = "INTEGER"
	TypeReal    ColumnType = "REAL"
)

// Numeric reports whether the column can be summed.
func (t ColumnType) Numeric() bool {
	return t == TypeInteger || t == TypeReal
}

type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
	// Date marks TEXT columns whose first value was a calendar date.
	Date bool `json:"date,omitempty"`
}

// Descriptor is the declarative schema of the loaded dataset.
type Descriptor struct {
	Table   string   `json:"table"`
	Columns []Column `json:"columns"`
}

// Derive infers a descriptor from a dataset. The first non-null value of a
// column decides its type; all-null columns default to TEXT.
func Derive(ds *dataset.Dataset) *Descriptor {
	d := &Descriptor{Table: TableName, Columns: make([]Column, len(ds.Columns))}
	for i, name := range ds.Columns {
		col := Column{Name: name, Type: TypeText}
		for _, row := range ds.Rows {
			v := row[i]
			if v == nil {
				continue
			}
			col.Type, col.Date = inferType(v)
			break
		}
		d.Columns[i] = col
	}
	return d
}

func inferType(v any) (ColumnType, bool) {
	switch t := v.(type) {
	case int64, int:
		return TypeInteger, false
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) {
			return TypeInteger, false
		}
		return TypeReal, false
	case dataset.Date:
		return TypeText, true
	default:
		return TypeText, false
	}
}

func (d *Descriptor) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by exact name.
func (d *Descriptor) Column(name string) (Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func (d *Descriptor) Equal(o *Descriptor) bool {
	if d == nil || o == nil {
		return d == o
	}
	if d.Table != o.Table || len(d.Columns) != len(o.Columns) {
		return false
	}
	for i := range d.Columns {
		if d.Columns[i] != o.Columns[i] {
			return false
		}
	}
	return true
}

// QuoteIdent quotes an identifier for SQLite.
func QuoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// CreateTableSQL renders the DDL used by the engine.
func (d *Descriptor) CreateTableSQL() string {
	parts := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		parts[i] = fmt.Sprintf("%s %s", QuoteIdent(c.Name), c.Type)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s);", QuoteIdent(d.Table), strings.Join(parts, ", "))
}

// InsertSQL renders the parameterized insert reused for every row.
func (d *Descriptor) InsertSQL() string {
	cols := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		cols[i] = QuoteIdent(c.Name)
	}
	ph := strings.TrimRight(strings.Repeat("?,", len(d.Columns)), ",")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", QuoteIdent(d.Table), strings.Join(cols, ", "), ph)
}

// Describe renders the schema for language-model prompts: one column per
// line, dates annotated.
func (d *Descriptor) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", d.Table)
	for i, c := range d.Columns {
		fmt.Fprintf(&b, "  %s %s", c.Name, c.Type)
		if i < len(d.Columns)-1 {
			b.WriteString(",")
		}
		if c.Date {
			b.WriteString(" -- date as YYYY-MM-DD text")
		}
		b.WriteString("\n")
	}
	b.WriteString(");")
	return b.String()
}
