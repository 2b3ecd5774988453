package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"ai-data-analyst-be/pkg/apperr"
	"ai-data-analyst-be/pkg/conversation"
	"ai-data-analyst-be/pkg/engine"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserverCounters(t *testing.T) {
	m := New()

	m.DatasetLoaded("s1", "sales.csv", 4, 2)
	m.UploadFailed(apperr.KindEmptyDataset)
	m.TurnCompleted("s1", conversation.TurnAnswered, apperr.KindUnknown, 300*time.Millisecond)
	m.TurnCompleted("s1", conversation.TurnFailed, apperr.KindQuery, time.Second)
	m.AggregationSkew("s1", 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("EmptyDataset")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.turns.WithLabelValues("failed", "QueryError")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.skippedRows))
}

func TestEngineObserver(t *testing.T) {
	m := New()
	observe := m.EngineObserver()

	observe(engine.ActionExec, 5*time.Millisecond, nil)
	observe(engine.ActionExec, time.Millisecond, engine.ErrBusy)
	observe(engine.ActionCreateTable, time.Millisecond, errors.New("load failed"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.engineRequests.WithLabelValues("exec", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.engineRequests.WithLabelValues("exec", "busy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.engineRequests.WithLabelValues("create_table", "error")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.SessionOpened()

	app := fiber.New()
	app.Get("/metrics", m.Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "analyst_active_sessions 1")
}
