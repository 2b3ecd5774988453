package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"ai-data-analyst-be/pkg/conversation"
	"ai-data-analyst-be/pkg/dataset"
	"ai-data-analyst-be/pkg/engine"
	"ai-data-analyst-be/pkg/report"
	"ai-data-analyst-be/pkg/schema"

	"github.com/fatih/color"
)

const barWidth = 40

func printVisualization(c conversation.VisualizationContent) {
	viz := c.Visualization
	if viz == nil {
		return
	}
	switch viz.Type {
	case report.VisualizationBar, report.VisualizationPie:
		printBars(viz)
	default:
		printTable(viz.Columns, viz.Data)
	}
}

// printBars draws name/value pairs as horizontal bars scaled to the largest value.
func printBars(viz *report.Visualization) {
	maxValue := 0.0
	nameWidth := 0
	for _, d := range viz.Data {
		if v, ok := dataset.ToFloat(d["value"]); ok && v > maxValue {
			maxValue = v
		}
		nameWidth = max(nameWidth, len(dataset.Label(d["name"])))
	}

	bar := color.New(color.FgCyan)
	for _, d := range viz.Data {
		v, _ := dataset.ToFloat(d["value"])
		n := 0
		if maxValue > 0 {
			n = int(v / maxValue * barWidth)
		}
		fmt.Printf("  %-*s ", nameWidth, dataset.Label(d["name"]))
		bar.Print(strings.Repeat("█", n))
		fmt.Printf(" %s\n", dataset.Label(d["value"]))
	}
}

func printTable(columns []string, rows []map[string]any) {
	w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(columns, "\t"))
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = dataset.Label(row[col])
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	w.Flush()
}

func printResultSets(sets []engine.ResultSet) {
	if len(sets) == 0 {
		color.Yellow("(no rows)")
		return
	}
	for i, rs := range sets {
		if i > 0 {
			fmt.Println()
		}
		printTable(rs.Columns, rs.Records())
		color.HiBlack("(%d rows)", len(rs.Values))
	}
}

func printSchema(desc *schema.Descriptor) {
	if desc == nil {
		color.Yellow("No dataset loaded.")
		return
	}
	color.Cyan("table %s", desc.Table)
	for _, c := range desc.Columns {
		typ := string(c.Type)
		if c.Date {
			typ += " (date)"
		}
		fmt.Printf("  %-24s %s\n", c.Name, typ)
	}
}
