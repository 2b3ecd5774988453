package compiler

import (
	"context"
	"strings"

	"ai-data-analyst-be/internal/pkg/logger"
	"ai-data-analyst-be/pkg/apperr"
	"ai-data-analyst-be/pkg/inference"
	"ai-data-analyst-be/pkg/llm"
)

const SQLFlowName = "naturalLanguageQueryToSQL"

type SQLInput struct {
	Query       string `json:"query"`
	TableSchema string `json:"tableSchema"`
}

type SQLOutput struct {
	SQLQuery string `json:"sqlQuery" validate:"required"`
}

const sqlPrompt = `You write SQLite queries. Given the table schema and a question in natural language, write one SELECT statement over the table that answers the question.

Table schema:
` + "```sql" + `
{{.TableSchema}}
` + "```" + `

Question:
{{.Query}}

Use only the columns in the schema. Date columns hold YYYY-MM-DD text. When the answer is a breakdown, return the label column first and the numeric column second.

Answer with a JSON object only:
{"sqlQuery": string}
`

// SQLCompiler asks the model for a SQL query. The query is not checked for
// semantic correctness; the engine reports what it cannot run.
type SQLCompiler struct {
	flow *inference.Flow[SQLInput, SQLOutput]
}

var _ Compiler = &SQLCompiler{}

func NewSQLCompiler(provider llm.LLMProvider, log logger.ILogger) *SQLCompiler {
	return &SQLCompiler{flow: inference.NewFlow[SQLInput, SQLOutput](SQLFlowName, sqlPrompt, provider, log)}
}

func (c *SQLCompiler) Compile(ctx context.Context, req Request) (*Plan, error) {
	in := SQLInput{Query: req.Question}
	if req.Schema != nil {
		in.TableSchema = req.Schema.Describe()
	}

	out, err := c.flow.Run(ctx, in)
	if err != nil {
		return nil, err
	}

	query := CleanSQL(out.SQLQuery)
	if query == "" {
		return nil, apperr.New(apperr.KindInference, inference.GenericFailureMessage, nil)
	}
	return &Plan{Kind: PlanSQL, SQL: query}, nil
}

// CleanSQL strips markdown fences, surrounding whitespace and trailing
// semicolons.
func CleanSQL(raw string) string {
	s := strings.TrimSpace(raw)
	for _, prefix := range []string{"```sqlite", "```sql", "```SQL", "```"} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimPrefix(s, prefix)
			break
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	s = strings.TrimSpace(s)
	for strings.HasSuffix(s, ";") {
		s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	}
	return s
}
