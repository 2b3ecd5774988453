package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-data-analyst-be/pkg/dataset"
)

func sample(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New("sales.csv",
		[]string{"category", "sales", "price", "ordered_on", "notes", "empty"},
		[]dataset.Row{
			{nil, nil, 2.5, dataset.Date("2024-03-01"), nil, nil},
			{"A", int64(10), 3.0, nil, "x", nil},
			{"B", 4.0, nil, dataset.Date("2024-03-02"), int64(1), nil},
		})
	require.NoError(t, err)
	return ds
}

func TestDeriveFirstNonNullRule(t *testing.T) {
	d := Derive(sample(t))

	assert.Equal(t, TableName, d.Table)
	assert.Equal(t, []Column{
		{Name: "category", Type: TypeText},
		{Name: "sales", Type: TypeInteger},
		{Name: "price", Type: TypeReal},
		{Name: "ordered_on", Type: TypeText, Date: true},
		{Name: "notes", Type: TypeText},
		{Name: "empty", Type: TypeText},
	}, d.Columns)
}

func TestDeriveWholeFloatIsInteger(t *testing.T) {
	ds, err := dataset.New("f", []string{"n"}, []dataset.Row{{4.0}, {4.5}})
	require.NoError(t, err)

	assert.Equal(t, TypeInteger, Derive(ds).Columns[0].Type)
}

func TestDeriveIsIdempotent(t *testing.T) {
	ds := sample(t)
	assert.True(t, Derive(ds).Equal(Derive(ds)))
}

func TestColumnCountAndNames(t *testing.T) {
	ds := sample(t)
	d := Derive(ds)

	require.Len(t, d.Columns, len(ds.Columns))
	for _, c := range d.Columns {
		assert.True(t, dataset.IsIdentifier(c.Name))
	}
}

func TestSQLRendering(t *testing.T) {
	d := &Descriptor{Table: TableName, Columns: []Column{{Name: "category", Type: TypeText}, {Name: "sales", Type: TypeInteger}}}

	assert.Equal(t, `CREATE TABLE "data" ("category" TEXT, "sales" INTEGER);`, d.CreateTableSQL())
	assert.Equal(t, `INSERT INTO "data" ("category", "sales") VALUES (?,?)`, d.InsertSQL())
	assert.Equal(t, "CREATE TABLE data (\n  category TEXT,\n  sales INTEGER\n);", d.Describe())
}

func TestColumnLookup(t *testing.T) {
	d := Derive(sample(t))

	c, ok := d.Column("sales")
	require.True(t, ok)
	assert.True(t, c.Type.Numeric())
	_, ok = d.Column("Sales")
	assert.False(t, ok)
	assert.Equal(t, []string{"category", "sales", "price", "ordered_on", "notes", "empty"}, d.ColumnNames())
}
