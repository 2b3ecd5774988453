package compiler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-data-analyst-be/pkg/apperr"
	"ai-data-analyst-be/pkg/dataset"
	"ai-data-analyst-be/pkg/llm/llmtest"
	"ai-data-analyst-be/pkg/schema"
)

func salesData(t *testing.T) (*dataset.Dataset, *schema.Descriptor) {
	t.Helper()
	ds, err := dataset.New("sales.csv", []string{"category", "sales", "Unit_Price"}, []dataset.Row{
		{"A", int64(10), 1.5},
		{"B", int64(3), 2.0},
		{"A", int64(5), 1.5},
		{nil, int64(7), 1.0},
		{"B", "n/a", 2.0},
	})
	require.NoError(t, err)
	return ds, schema.Derive(ds)
}

func TestAggregateSum(t *testing.T) {
	ds, _ := salesData(t)

	agg, err := Aggregate(ds, AggregateSpec{CategoryColumn: "category", ValueColumn: "sales", Func: FuncSum})
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"A": 15, "B": 3}, agg.AsMap())
	assert.Equal(t, 1, agg.Skipped)
	assert.Equal(t, "A", agg.Groups[0].Category)

	rs := agg.ResultSet()
	assert.Equal(t, []string{"category", "sales"}, rs.Columns)
	assert.Equal(t, [][]any{{"A", 15.0}, {"B", 3.0}}, rs.Values)
}

func TestAggregateCount(t *testing.T) {
	ds, _ := salesData(t)

	agg, err := Aggregate(ds, AggregateSpec{CategoryColumn: "category", ValueColumn: "category", Func: FuncCount})
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"A": 2, "B": 2}, agg.AsMap())
	assert.Equal(t, [][]any{{"A", int64(2)}, {"B", int64(2)}}, agg.ResultSet().Values)
	assert.Zero(t, agg.Skipped)
}

func TestAggregateUnknownColumn(t *testing.T) {
	ds, _ := salesData(t)
	_, err := Aggregate(ds, AggregateSpec{CategoryColumn: "region", ValueColumn: "sales", Func: FuncSum})
	assert.EqualError(t, err, "unknown column region")
}

func TestAggregateCompilerPlans(t *testing.T) {
	_, desc := salesData(t)
	cases := []struct {
		name   string
		answer string
		want   *Plan
	}{
		{
			name:   "sum",
			answer: `{"categoryColumn":"category","valueColumn":"sales","isChartable":true}`,
			want:   &Plan{Kind: PlanAggregate, Aggregate: &AggregateSpec{CategoryColumn: "category", ValueColumn: "sales", Func: FuncSum}},
		},
		{
			name:   "count",
			answer: `{"categoryColumn":"Category","valueColumn":"Category","isChartable":true}`,
			want:   &Plan{Kind: PlanAggregate, Aggregate: &AggregateSpec{CategoryColumn: "category", ValueColumn: "category", Func: FuncCount}},
		},
		{
			name:   "sanitized name",
			answer: `{"categoryColumn":"category","valueColumn":"Unit Price","isChartable":true}`,
			want:   &Plan{Kind: PlanAggregate, Aggregate: &AggregateSpec{CategoryColumn: "category", ValueColumn: "Unit_Price", Func: FuncSum}},
		},
		{
			name:   "not chartable",
			answer: `{"isChartable":false}`,
			want:   &Plan{Kind: PlanNone, Reason: "not chartable"},
		},
		{
			name:   "text value column",
			answer: `{"categoryColumn":"sales","valueColumn":"category","isChartable":true}`,
			want:   &Plan{Kind: PlanNone, Reason: "value column category is not numeric"},
		},
		{
			name:   "unknown column",
			answer: `{"categoryColumn":"region","valueColumn":"sales","isChartable":true}`,
			want:   &Plan{Kind: PlanNone, Reason: "unknown category column region"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := llmtest.New().Reply("isChartable", tc.answer)
			plan, err := NewAggregateCompiler(fake, nil).Compile(context.Background(), Request{Question: "q", Schema: desc})
			require.NoError(t, err)
			assert.Equal(t, tc.want, plan)
		})
	}
}

func TestSQLCompiler(t *testing.T) {
	_, desc := salesData(t)
	fake := llmtest.New().Reply("sqlQuery", "{\"sqlQuery\": \"```sql\\nSELECT category, SUM(sales) FROM data GROUP BY category;\\n```\"}")

	plan, err := NewSQLCompiler(fake, nil).Compile(context.Background(), Request{Question: "total sales by category", Schema: desc})
	require.NoError(t, err)

	assert.Equal(t, PlanSQL, plan.Kind)
	assert.Equal(t, "SELECT category, SUM(sales) FROM data GROUP BY category", plan.SQL)
	assert.Contains(t, fake.Prompts[0], "total sales by category")
	assert.Contains(t, fake.Prompts[0], "Unit_Price REAL")
}

func TestSQLCompilerRejectsEmptyQuery(t *testing.T) {
	fake := llmtest.New().Reply("sqlQuery", `{"sqlQuery": ""}`)
	_, err := NewSQLCompiler(fake, nil).Compile(context.Background(), Request{Question: "q"})

	require.Error(t, err)
	assert.Equal(t, apperr.KindInference, apperr.KindOf(err))
}

func TestCleanSQL(t *testing.T) {
	assert.Equal(t, "SELECT 1", CleanSQL(" ```sqlite\nSELECT 1;;\n``` "))
	assert.Equal(t, "SELECT 1", CleanSQL("SELECT 1"))
}

func TestNewStrategy(t *testing.T) {
	c, err := New(StrategyAggregate, llmtest.New(), nil)
	require.NoError(t, err)
	assert.IsType(t, &AggregateCompiler{}, c)

	_, err = New("graph", llmtest.New(), nil)
	assert.Error(t, err)
}

func TestAggregateSkipsNullValues(t *testing.T) {
	ds, err := dataset.New("t", []string{"cat", "val"}, []dataset.Row{
		{"A", int64(10)},
		{"A", int64(5)},
		{"B", nil},
		{"B", int64(3)},
	})
	require.NoError(t, err)

	sum, err := Aggregate(ds, AggregateSpec{CategoryColumn: "cat", ValueColumn: "val", Func: FuncSum})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"A": 15, "B": 3}, sum.AsMap())

	count, err := Aggregate(ds, AggregateSpec{CategoryColumn: "cat", ValueColumn: "cat", Func: FuncCount})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"A": 2, "B": 2}, count.AsMap())
}
