package ollama

import (
	"context"
	"os"
	"testing"
	"time"

	"ai-data-analyst-be/pkg/clarify"
	"ai-data-analyst-be/pkg/compiler"
	"ai-data-analyst-be/pkg/dataset"
	"ai-data-analyst-be/pkg/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs the structured flows against a local Ollama server:
//
//	OLLAMA_INTEGRATION=1 OLLAMA_MODEL=qwen2.5 go test ./pkg/llm/ollama -run Live
func liveProvider(t *testing.T) *OllamaProvider {
	t.Helper()
	if os.Getenv("OLLAMA_INTEGRATION") == "" {
		t.Skip("set OLLAMA_INTEGRATION=1 to run against a local Ollama server")
	}
	model := os.Getenv("OLLAMA_MODEL")
	if model == "" {
		model = "qwen2.5"
	}
	return NewOllamaProvider(os.Getenv("OLLAMA_BASE_URL"), model)
}

func salesSchema(t *testing.T) *schema.Descriptor {
	ds, err := dataset.New("sales.csv", []string{"category", "sales"}, []dataset.Row{
		{"A", int64(10)}, {"B", int64(3)}, {"A", int64(5)},
	})
	require.NoError(t, err)
	return schema.Derive(ds)
}

func TestLiveClarifyAndCompile(t *testing.T) {
	provider := liveProvider(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	desc := salesSchema(t)

	outcome, err := clarify.NewResolver(provider, 0, nil).Resolve(ctx, clarify.Request{
		Question: "What are the total sales for each category?",
		Schema:   desc,
	})
	require.NoError(t, err)
	require.True(t, outcome.Resolved, "model asked: %s", outcome.NextQuestion)

	comp, err := compiler.New(compiler.StrategySQL, provider, nil)
	require.NoError(t, err)
	plan, err := comp.Compile(ctx, compiler.Request{Question: outcome.ClarifiedQuestion, Schema: desc})
	require.NoError(t, err)

	assert.Equal(t, compiler.PlanSQL, plan.Kind)
	assert.Contains(t, plan.SQL, "data")
	t.Logf("generated SQL: %s", plan.SQL)
}
