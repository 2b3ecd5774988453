package report

import (
	"ai-data-analyst-be/pkg/dataset"
	"ai-data-analyst-be/pkg/engine"
)

type VisualizationType string

const (
	VisualizationBar   VisualizationType = "barChart"
	VisualizationTable VisualizationType = "table"
	VisualizationPie   VisualizationType = "pie"
)

const DefaultPieThreshold = 5

// Visualization is handed to the renderer as is.
type Visualization struct {
	Type    VisualizationType `json:"type"`
	Data    []map[string]any  `json:"data"`
	Columns []string          `json:"columns,omitempty"`
}

// Describe picks a chart for a result set. Two columns with a numeric second
// column become a pie up to pieThreshold distinct categories and a bar chart beyond.
// Any other shape with more than one cell becomes a table; a lone scalar gets
// no visualization.
func Describe(rs engine.ResultSet, pieThreshold int) *Visualization {
	if pieThreshold <= 0 {
		pieThreshold = DefaultPieThreshold
	}
	if rs.Empty() {
		return nil
	}
	if len(rs.Columns) == 1 && len(rs.Values) == 1 {
		return nil
	}

	if len(rs.Columns) == 2 && numericSecondColumn(rs) {
		data := make([]map[string]any, len(rs.Values))
		categories := make(map[string]struct{}, len(rs.Values))
		for i, row := range rs.Values {
			v, _ := dataset.ToFloat(row[1])
			label := dataset.Label(row[0])
			categories[label] = struct{}{}
			data[i] = map[string]any{"name": label, "value": v}
		}
		kind := VisualizationBar
		if len(categories) <= pieThreshold {
			kind = VisualizationPie
		}
		return &Visualization{Type: kind, Data: data}
	}

	return &Visualization{Type: VisualizationTable, Data: rs.Records(), Columns: rs.Columns}
}

func numericSecondColumn(rs engine.ResultSet) bool {
	for _, row := range rs.Values {
		if len(row) < 2 || !dataset.IsNumber(row[1]) {
			return false
		}
	}
	return true
}
