package report

import (
	"context"
	"encoding/json"

	"ai-data-analyst-be/internal/pkg/logger"
	"ai-data-analyst-be/pkg/engine"
	"ai-data-analyst-be/pkg/inference"
	"ai-data-analyst-be/pkg/llm"
)

const (
	FlowName              = "generateDataInsightsReport"
	DefaultMaxSummaryRows = 200
	NoResultsText         = "I couldn't find a specific answer to your question in the data. Try rephrasing it or asking about a different column."
)

type Input struct {
	Query          string           `json:"query"`
	DataSummary    string           `json:"dataSummary"`
	Visualizations []*Visualization `json:"visualizations,omitempty"`
}

type Output struct {
	Report string `json:"report" validate:"required"`
}

const promptText = `You are a data analyst. A question about a table was answered by a query; its result is below as JSON rows.

Question: {{.Query}}

Result:
` + "```json" + `
{{.DataSummary}}
` + "```" + `
{{if .Visualizations}}
The result is shown to the user as{{range .Visualizations}} a {{.Type}}{{end}}; do not repeat the raw numbers line by line.
{{end}}
Write a short Markdown report that answers the question directly:
- A single value or a few rows: state the answer.
- A larger table: summarize the key findings and trends.
- Explain, do not just list the data.
- If the result does not answer the question, say you couldn't find a specific answer in the data.

Answer with a JSON object only:
{"report": string}
`

// Report is the narrative plus the optional chart for one turn.
type Report struct {
	Text          string         `json:"text"`
	Visualization *Visualization `json:"visualization,omitempty"`
	Empty         bool           `json:"empty"`
}

type Options struct {
	PieThreshold   int
	MaxSummaryRows int
}

type Reporter struct {
	flow *inference.Flow[Input, Output]
	opts Options
}

func NewReporter(provider llm.LLMProvider, opts Options, log logger.ILogger) *Reporter {
	if opts.PieThreshold <= 0 {
		opts.PieThreshold = DefaultPieThreshold
	}
	if opts.MaxSummaryRows <= 0 {
		opts.MaxSummaryRows = DefaultMaxSummaryRows
	}
	return &Reporter{
		flow: inference.NewFlow[Input, Output](FlowName, promptText, provider, log),
		opts: opts,
	}
}

// Report narrates the first non-empty result set. Without rows it answers
// with NoResultsText and does not call the model.
func (r *Reporter) Report(ctx context.Context, question string, results []engine.ResultSet) (*Report, error) {
	rs, ok := firstWithRows(results)
	if !ok {
		return &Report{Text: NoResultsText, Empty: true}, nil
	}

	viz := Describe(rs, r.opts.PieThreshold)
	var vizs []*Visualization
	if viz != nil {
		vizs = append(vizs, viz)
	}

	text, err := r.narrate(ctx, question, rs, vizs)
	if err != nil {
		return nil, err
	}
	return &Report{Text: text, Visualization: viz}, nil
}

// Summarize narrates rows without proposing a chart.
func (r *Reporter) Summarize(ctx context.Context, question string, rs engine.ResultSet) (*Report, error) {
	if rs.Empty() {
		return &Report{Text: NoResultsText, Empty: true}, nil
	}
	text, err := r.narrate(ctx, question, rs, nil)
	if err != nil {
		return nil, err
	}
	return &Report{Text: text}, nil
}

func (r *Reporter) narrate(ctx context.Context, question string, rs engine.ResultSet, vizs []*Visualization) (string, error) {
	summary, err := r.DataSummary(rs)
	if err != nil {
		return "", err
	}
	out, err := r.flow.Run(ctx, Input{Query: question, DataSummary: summary, Visualizations: vizs})
	if err != nil {
		return "", err
	}
	return out.Report, nil
}

// DataSummary renders at most MaxSummaryRows rows as a JSON array of objects.
func (r *Reporter) DataSummary(rs engine.ResultSet) (string, error) {
	if len(rs.Values) > r.opts.MaxSummaryRows {
		rs.Values = rs.Values[:r.opts.MaxSummaryRows]
	}
	b, err := json.MarshalIndent(rs.Records(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func firstWithRows(results []engine.ResultSet) (engine.ResultSet, bool) {
	for _, rs := range results {
		if !rs.Empty() {
			return rs, true
		}
	}
	return engine.ResultSet{}, false
}
