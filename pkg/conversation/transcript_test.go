package conversation

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-data-analyst-be/pkg/report"
)

func TestTranscriptIDsSurviveClear(t *testing.T) {
	tr := NewTranscript()
	a := tr.Append(RoleAssistant, TextContent{Body: "welcome"})
	tr.Append(RoleUser, TextContent{Body: "q"})
	tr.Clear()
	b := tr.Append(RoleAssistant, TextContent{Body: "welcome again"})

	assert.Equal(t, 1, tr.Len())
	assert.Greater(t, b.ID, a.ID)
}

func TestEntryJSONIsTagged(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	e := Entry{ID: 7, Role: RoleAssistant, CreatedAt: at, Content: VisualizationContent{
		Report:        "A leads.",
		Visualization: &report.Visualization{Type: report.VisualizationPie, Data: []map[string]any{{"name": "A", "value": 15.0}}},
	}}

	raw, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": 7,
		"role": "assistant",
		"created_at": "2024-03-01T12:00:00Z",
		"content": {
			"kind": "visualization",
			"report": "A leads.",
			"visualization": {"type": "pie", "data": [{"name": "A", "value": 15}]}
		}
	}`, string(raw))

	var back Entry
	require.NoError(t, json.Unmarshal(raw, &back))
	viz, ok := back.Content.(VisualizationContent)
	require.True(t, ok)
	assert.Equal(t, report.VisualizationPie, viz.Visualization.Type)

	text, err := json.Marshal(Entry{ID: 1, Role: RoleUser, CreatedAt: at, Content: TextContent{Body: "hi"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"role":"user","created_at":"2024-03-01T12:00:00Z","content":{"kind":"text","text":"hi"}}`, string(text))
}

func TestEntryJSONRejectsUnknownKind(t *testing.T) {
	var e Entry
	err := json.Unmarshal([]byte(`{"id":1,"role":"user","content":{"kind":"audio"}}`), &e)
	assert.Error(t, err)
}
