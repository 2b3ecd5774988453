package compiler

import (
	"context"
	"strings"

	"ai-data-analyst-be/internal/pkg/logger"
	"ai-data-analyst-be/pkg/dataset"
	"ai-data-analyst-be/pkg/engine"
	"ai-data-analyst-be/pkg/inference"
	"ai-data-analyst-be/pkg/llm"
	"ai-data-analyst-be/pkg/schema"
)

const ChartFlowName = "identifyChartingColumns"

type ChartInput struct {
	Query       string           `json:"query"`
	ColumnNames []string         `json:"columnNames"`
	SampleRows  []map[string]any `json:"sampleRows,omitempty"`
}

type ChartOutput struct {
	CategoryColumn string `json:"categoryColumn,omitempty"`
	ValueColumn    string `json:"valueColumn,omitempty"`
	IsChartable    *bool  `json:"isChartable" validate:"required"`
}

const chartPrompt = `You pick the columns for a two-dimensional chart that answers a question about a table.

Choose one category column (the groups or labels, for example product, region or date) and one value column that can be summed. If the question asks how many rows fall into each group, use the category column as the value column as well; its occurrences will be counted.

Available columns:
{{range .ColumnNames}}- {{.}}
{{end}}{{if .SampleRows}}
Sample rows:
{{json .SampleRows}}
{{end}}
Question: "{{.Query}}"

If a chart answers the question, set "isChartable" to true and fill in both columns. If the question is too complex, does not call for a chart, or no suitable columns exist, set "isChartable" to false.

Answer with a JSON object only:
{"categoryColumn": string, "valueColumn": string, "isChartable": boolean}
`

// AggregateCompiler asks the model for a category/value column pair and
// aggregates in memory instead of generating SQL.
type AggregateCompiler struct {
	flow *inference.Flow[ChartInput, ChartOutput]
}

var _ Compiler = &AggregateCompiler{}

func NewAggregateCompiler(provider llm.LLMProvider, log logger.ILogger) *AggregateCompiler {
	return &AggregateCompiler{flow: inference.NewFlow[ChartInput, ChartOutput](ChartFlowName, chartPrompt, provider, log)}
}

func (c *AggregateCompiler) Compile(ctx context.Context, req Request) (*Plan, error) {
	in := ChartInput{Query: req.Question, SampleRows: req.Sample}
	if req.Schema != nil {
		in.ColumnNames = req.Schema.ColumnNames()
	}

	out, err := c.flow.Run(ctx, in)
	if err != nil {
		return nil, err
	}
	return planFromChart(req.Schema, out), nil
}

func planFromChart(desc *schema.Descriptor, out *ChartOutput) *Plan {
	if !*out.IsChartable {
		return &Plan{Kind: PlanNone, Reason: "not chartable"}
	}

	category, ok := ResolveColumn(desc, out.CategoryColumn)
	if !ok {
		return &Plan{Kind: PlanNone, Reason: "unknown category column " + out.CategoryColumn}
	}

	valueName := out.ValueColumn
	if strings.TrimSpace(valueName) == "" {
		valueName = category.Name
	}
	value, ok := ResolveColumn(desc, valueName)
	if !ok {
		return &Plan{Kind: PlanNone, Reason: "unknown value column " + out.ValueColumn}
	}

	spec := &AggregateSpec{CategoryColumn: category.Name, ValueColumn: value.Name}
	switch {
	case category.Name == value.Name:
		spec.Func = FuncCount
	case value.Type.Numeric():
		spec.Func = FuncSum
	default:
		return &Plan{Kind: PlanNone, Reason: "value column " + value.Name + " is not numeric"}
	}
	return &Plan{Kind: PlanAggregate, Aggregate: spec}
}

// ResolveColumn matches a model-supplied column name against the schema:
// exact, then sanitized, then case-insensitive.
func ResolveColumn(desc *schema.Descriptor, name string) (schema.Column, bool) {
	name = strings.TrimSpace(name)
	if desc == nil || name == "" {
		return schema.Column{}, false
	}
	if c, ok := desc.Column(name); ok {
		return c, true
	}
	sanitized := dataset.SanitizeIdentifier(name)
	if c, ok := desc.Column(sanitized); ok {
		return c, true
	}
	for _, c := range desc.Columns {
		if strings.EqualFold(c.Name, name) || strings.EqualFold(c.Name, sanitized) {
			return c, true
		}
	}
	return schema.Column{}, false
}

// Group is one category bucket.
type Group struct {
	Category any
	Value    float64
}

type Aggregation struct {
	Spec   AggregateSpec
	Groups []Group
	// Skipped counts rows whose value could not be read as a number.
	Skipped int
}

// Aggregate groups ds by exact category equality in first-seen order. Null
// categories are skipped. SUM coerces values numerically and skips what it
// cannot coerce.
func Aggregate(ds *dataset.Dataset, spec AggregateSpec) (*Aggregation, error) {
	ci := ds.ColumnIndex(spec.CategoryColumn)
	if ci < 0 {
		return nil, &UnknownColumnError{Column: spec.CategoryColumn}
	}
	vi := ds.ColumnIndex(spec.ValueColumn)
	if vi < 0 {
		return nil, &UnknownColumnError{Column: spec.ValueColumn}
	}

	agg := &Aggregation{Spec: spec}
	index := make(map[any]int)
	for _, row := range ds.Rows {
		cat := row[ci]
		if cat == nil {
			continue
		}
		i, seen := index[cat]
		if !seen {
			i = len(agg.Groups)
			index[cat] = i
			agg.Groups = append(agg.Groups, Group{Category: cat})
		}

		if spec.Func == FuncCount {
			agg.Groups[i].Value++
			continue
		}
		v, ok := dataset.ToFloat(row[vi])
		if !ok {
			agg.Skipped++
			continue
		}
		agg.Groups[i].Value += v
	}
	return agg, nil
}

// ResultSet renders the aggregation as [category, count|value] rows.
func (a *Aggregation) ResultSet() engine.ResultSet {
	valueCol := a.Spec.ValueColumn
	if a.Spec.Func == FuncCount {
		valueCol = "count"
	}
	rs := engine.ResultSet{Columns: []string{a.Spec.CategoryColumn, valueCol}, Values: make([][]any, len(a.Groups))}
	for i, g := range a.Groups {
		var v any = g.Value
		if a.Spec.Func == FuncCount {
			v = int64(g.Value)
		}
		rs.Values[i] = []any{g.Category, v}
	}
	return rs
}

// AsMap keys the totals by category label.
func (a *Aggregation) AsMap() map[string]float64 {
	out := make(map[string]float64, len(a.Groups))
	for _, g := range a.Groups {
		out[dataset.Label(g.Category)] += g.Value
	}
	return out
}

type UnknownColumnError struct {
	Column string
}

func (e *UnknownColumnError) Error() string {
	return "unknown column " + e.Column
}
