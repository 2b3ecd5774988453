package nats

import (
	"encoding/json"
	"testing"
	"time"

	"ai-data-analyst-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope(t *testing.T) {
	ev := events.TurnCompleted("s1", "answered", "", 1500*time.Millisecond)
	data, err := json.Marshal(events.ToEnvelope(ev))
	require.NoError(t, err)

	got, err := Decode(Subject(ev.EventType()), data)
	require.NoError(t, err)

	assert.Equal(t, events.TypeTurnCompleted, got.EventType())
	assert.Equal(t, "s1", got.Payload()["session_id"])
	assert.EqualValues(t, 1500, got.Payload()["elapsed_ms"])
	assert.WithinDuration(t, ev.Timestamp(), got.Timestamp(), time.Millisecond)
}

func TestDecodeFallsBackToSubject(t *testing.T) {
	got, err := Decode("events.analysis.session_closed", []byte(`{"data":{"session_id":"x"}}`))
	require.NoError(t, err)
	assert.Equal(t, events.TypeSessionClosed, got.EventType())

	_, err = Decode("events.analysis.session_closed", []byte(`not json`))
	assert.Error(t, err)
}
