package conversation

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-data-analyst-be/pkg/apperr"
	"ai-data-analyst-be/pkg/clarify"
	"ai-data-analyst-be/pkg/compiler"
	"ai-data-analyst-be/pkg/engine"
	"ai-data-analyst-be/pkg/inference"
	"ai-data-analyst-be/pkg/llm"
	"ai-data-analyst-be/pkg/llm/llmtest"
	"ai-data-analyst-be/pkg/report"
)

const (
	clarifyMarker = "Latest user question"
	sqlMarker     = "sqlQuery"
	chartMarker   = "isChartable"
	reportMarker  = `{"report": string}`

	salesCSV = "category,sales\nA,10\nB,3\nA,5\n"
)

type countingEngine struct {
	Engine
	execs atomic.Int32
}

func (c *countingEngine) Execute(ctx context.Context, sql string) ([]engine.ResultSet, error) {
	c.execs.Add(1)
	return c.Engine.Execute(ctx, sql)
}

type recorder struct {
	mu      sync.Mutex
	entries []Entry
	clears  int
	skewed  int
	turns   []TurnStatus
}

func (r *recorder) EntryAppended(_ string, e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

func (r *recorder) TranscriptCleared(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clears++
}

func (r *recorder) DatasetLoaded(string, string, int, int) {}

func (r *recorder) TurnCompleted(_ string, status TurnStatus, _ apperr.Kind, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.turns = append(r.turns, status)
}

func (r *recorder) AggregationSkew(_ string, skipped int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skewed += skipped
}

type harness struct {
	session *Session
	engine  *countingEngine
	fake    *llmtest.Scripted
	rec     *recorder
}

func newHarness(t *testing.T, fake *llmtest.Scripted, strategy compiler.Strategy) *harness {
	t.Helper()
	return newHarnessWithEngine(t, fake, strategy, engine.New(engine.Options{}))
}

func newHarnessWithEngine(t *testing.T, fake *llmtest.Scripted, strategy compiler.Strategy, bridge Engine) *harness {
	t.Helper()
	eng := &countingEngine{Engine: bridge}
	comp, err := compiler.New(strategy, fake, nil)
	require.NoError(t, err)

	rec := &recorder{}
	s := NewSession("s-1", Dependencies{
		Engine:   eng,
		Resolver: clarify.NewResolver(fake, 0, nil),
		Compiler: comp,
		Reporter: report.NewReporter(fake, report.Options{}, nil),
		Notifier: rec,
		Observer: rec,
	}, Options{})
	t.Cleanup(func() { s.Close() })
	return &harness{session: s, engine: eng, fake: fake, rec: rec}
}

func (h *harness) upload(t *testing.T) {
	t.Helper()
	_, err := h.session.Upload(context.Background(), "sales.csv", []byte(salesCSV))
	require.NoError(t, err)
}

func resolved(question string) string {
	return `{"clarifiedQuestion":"` + question + `","requiresClarification":false}`
}

func TestUploadWelcomesAndDescribesSchema(t *testing.T) {
	h := newHarness(t, llmtest.New(), compiler.StrategySQL)
	assert.Equal(t, StateAwaitingUpload, h.session.State())

	res, err := h.session.Upload(context.Background(), "sales.csv", []byte(salesCSV))
	require.NoError(t, err)

	assert.Equal(t, 3, res.RowCount)
	assert.Equal(t, []string{"category", "sales"}, res.Schema.ColumnNames())
	assert.Equal(t, StateChatting, h.session.State())

	transcript := h.session.Transcript()
	require.Len(t, transcript, 1)
	assert.Equal(t, RoleAssistant, transcript[0].Role)
	assert.Equal(t, `Your data from "sales.csv" has been successfully processed. What would you like to know?`, transcript[0].Content.Text())
}

func TestTotalSalesByCategory(t *testing.T) {
	fake := llmtest.New().
		Reply(clarifyMarker, resolved("total sales by category")).
		Reply(sqlMarker, `{"sqlQuery":"SELECT category, SUM(sales) AS total FROM data GROUP BY category ORDER BY category"}`).
		Reply(reportMarker, `{"report":"Category **A** leads with 15 in sales, B follows with 3."}`)
	h := newHarness(t, fake, compiler.StrategySQL)
	h.upload(t)

	res, err := h.session.Ask(context.Background(), "total sales by category")
	require.NoError(t, err)

	assert.Equal(t, TurnAnswered, res.Status)
	assert.True(t, res.Clarification.Resolved)
	assert.Equal(t, compiler.PlanSQL, res.Plan.Kind)
	require.Len(t, res.Results, 1)
	assert.Len(t, res.Results[0].Columns, 2)
	assert.LessOrEqual(t, len(res.Results[0].Values), 3)

	viz, ok := res.Entry.Content.(VisualizationContent)
	require.True(t, ok, "expected visualization content, got %T", res.Entry.Content)
	assert.Equal(t, report.VisualizationPie, viz.Visualization.Type)
	assert.Contains(t, viz.Report, "leads with 15")

	transcript := h.session.Transcript()
	require.Len(t, transcript, 3)
	assert.Equal(t, RoleUser, transcript[1].Role)
	assert.Equal(t, res.Entry.ID, transcript[2].ID)
	assert.Equal(t, []TurnStatus{TurnAnswered}, h.rec.turns)
}

func TestAmbiguousQuestionStopsBeforeCompilation(t *testing.T) {
	fake := llmtest.New().
		Reply(clarifyMarker, `{"clarifiedQuestion":"","requiresClarification":true,"nextQuestion":"Good in terms of which metric, total sales?"}`)
	h := newHarness(t, fake, compiler.StrategySQL)
	h.upload(t)

	res, err := h.session.Ask(context.Background(), "is it good?")
	require.NoError(t, err)

	assert.Equal(t, TurnClarification, res.Status)
	assert.NotEmpty(t, res.Clarification.NextQuestion)
	assert.Nil(t, res.Plan)
	assert.Equal(t, "Good in terms of which metric, total sales?", res.Entry.Content.Text())
	assert.Zero(t, fake.Calls(sqlMarker))
	assert.Zero(t, h.engine.execs.Load())
}

func TestFollowUpAnswerCarriesHistory(t *testing.T) {
	fake := llmtest.New().
		On(clarifyMarker, func(prompt string) (string, error) {
			if strings.Contains(prompt, "system: Which metric?") {
				return resolved("total sales by category"), nil
			}
			return `{"requiresClarification":true,"nextQuestion":"Which metric?"}`, nil
		}).
		Reply(sqlMarker, `{"sqlQuery":"SELECT SUM(sales) FROM data"}`).
		Reply(reportMarker, `{"report":"Total sales are 18."}`)
	h := newHarness(t, fake, compiler.StrategySQL)
	h.upload(t)

	first, err := h.session.Ask(context.Background(), "is it good?")
	require.NoError(t, err)
	require.Equal(t, TurnClarification, first.Status)

	second, err := h.session.Ask(context.Background(), "sales")
	require.NoError(t, err)
	assert.Equal(t, TurnAnswered, second.Status)
	assert.IsType(t, TextContent{}, second.Entry.Content)
	assert.Equal(t, "Total sales are 18.", second.Entry.Content.Text())
}

func TestLateResponseAfterResetIsDiscarded(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	fake := llmtest.New().
		Reply(clarifyMarker, resolved("total sales by category")).
		On(sqlMarker, func(string) (string, error) {
			close(entered)
			<-release
			return `{"sqlQuery":"SELECT category, SUM(sales) FROM data GROUP BY category"}`, nil
		}).
		Reply(reportMarker, `{"report":"late"}`)
	h := newHarness(t, fake, compiler.StrategySQL)
	h.upload(t)

	done := make(chan error, 1)
	go func() {
		_, err := h.session.Ask(context.Background(), "total sales by category")
		done <- err
	}()
	<-entered

	_, err := h.session.Ask(context.Background(), "another question")
	assert.ErrorIs(t, err, ErrTurnInFlight)

	require.NoError(t, h.session.Reset(context.Background()))
	close(release)

	assert.ErrorIs(t, <-done, ErrStaleTurn)
	assert.Empty(t, h.session.Transcript())
	assert.Equal(t, StateAwaitingUpload, h.session.State())
	assert.Nil(t, h.session.Schema())
	assert.Zero(t, fake.Calls(reportMarker))

	tables, err := h.engine.Engine.Execute(context.Background(), "SELECT name FROM sqlite_master WHERE type = 'table'")
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Empty(t, tables[0].Values)

	_, err = h.session.Ask(context.Background(), "total sales by category")
	assert.ErrorIs(t, err, ErrNoDataset)
}

func TestQueryErrorBecomesAssistantEntry(t *testing.T) {
	sql := `{"sqlQuery":"SELECT nonexistent FROM data"}`
	fake := llmtest.New().
		Reply(clarifyMarker, resolved("q")).
		On(sqlMarker, func(string) (string, error) { return sql, nil }).
		Reply(reportMarker, `{"report":"There are 3 rows."}`)
	h := newHarness(t, fake, compiler.StrategySQL)
	h.upload(t)

	res, err := h.session.Ask(context.Background(), "show nonexistent")
	require.NoError(t, err)
	assert.Equal(t, TurnFailed, res.Status)
	assert.Equal(t, apperr.KindQuery, res.ErrorKind)
	assert.Contains(t, res.Entry.Content.Text(), "nonexistent")
	assert.Equal(t, engine.StateReady, h.engine.State())

	sql = `{"sqlQuery":"SELECT COUNT(*) FROM data"}`
	res, err = h.session.Ask(context.Background(), "how many rows?")
	require.NoError(t, err)
	assert.Equal(t, TurnAnswered, res.Status)
	assert.Len(t, h.session.Transcript(), 5)
}

func TestUnavailableModelMessage(t *testing.T) {
	fake := llmtest.New().On(clarifyMarker, func(string) (string, error) {
		return "", &llm.StatusError{Provider: "gemini", StatusCode: 503, Body: "Service Unavailable"}
	})
	h := newHarness(t, fake, compiler.StrategySQL)
	h.upload(t)

	res, err := h.session.Ask(context.Background(), "total sales")
	require.NoError(t, err)
	assert.Equal(t, TurnFailed, res.Status)
	assert.Equal(t, inference.UnavailableMessage, res.Entry.Content.Text())
}

func TestMalformedModelOutputGetsGenericMessage(t *testing.T) {
	fake := llmtest.New().Reply(clarifyMarker, "not json at all")
	h := newHarness(t, fake, compiler.StrategySQL)
	h.upload(t)

	res, err := h.session.Ask(context.Background(), "total sales")
	require.NoError(t, err)
	assert.Equal(t, apperr.KindInference, res.ErrorKind)
	assert.Equal(t, inference.GenericFailureMessage, res.Entry.Content.Text())
}

func TestAggregateStrategy(t *testing.T) {
	fake := llmtest.New().
		Reply(clarifyMarker, resolved("sales per category")).
		Reply(chartMarker, `{"categoryColumn":"category","valueColumn":"sales","isChartable":true}`).
		Reply(reportMarker, `{"report":"A has 15, B has 3."}`)
	h := newHarness(t, fake, compiler.StrategyAggregate)
	_, err := h.session.Upload(context.Background(), "sales.csv", []byte("category,sales\nA,10\nA,5\nB,\nB,3\nC,oops\n"))
	require.NoError(t, err)

	res, err := h.session.Ask(context.Background(), "sales per category")
	require.NoError(t, err)

	assert.Equal(t, compiler.PlanAggregate, res.Plan.Kind)
	assert.Equal(t, [][]any{{"A", 15.0}, {"B", 3.0}, {"C", 0.0}}, res.Results[0].Values)
	assert.Zero(t, h.engine.execs.Load())
	assert.Equal(t, 2, h.rec.skewed)
}

func TestNotChartableSummarizesRows(t *testing.T) {
	fake := llmtest.New().
		Reply(clarifyMarker, resolved("describe the data")).
		Reply(chartMarker, `{"isChartable":false}`).
		Reply(reportMarker, `{"report":"Three sales across two categories."}`)
	h := newHarness(t, fake, compiler.StrategyAggregate)
	h.upload(t)

	res, err := h.session.Ask(context.Background(), "describe the data")
	require.NoError(t, err)
	assert.Equal(t, compiler.PlanNone, res.Plan.Kind)
	assert.IsType(t, TextContent{}, res.Entry.Content)
	assert.Contains(t, fake.Prompts[len(fake.Prompts)-1], `"category": "B"`)
}

func TestFailedUploadKeepsPreviousState(t *testing.T) {
	h := newHarness(t, llmtest.New(), compiler.StrategySQL)
	h.upload(t)
	before := h.session.Transcript()

	_, err := h.session.Upload(context.Background(), "notes.txt", []byte("hello"))
	assert.Equal(t, apperr.KindUnsupportedFormat, apperr.KindOf(err))

	_, err = h.session.Upload(context.Background(), "empty.csv", []byte("a,b\n"))
	assert.Equal(t, apperr.KindEmptyDataset, apperr.KindOf(err))

	assert.Equal(t, StateChatting, h.session.State())
	assert.Equal(t, before, h.session.Transcript())
	assert.Equal(t, []string{"category", "sales"}, h.session.Schema().ColumnNames())
}

func TestUploadOutlivesCancelledContext(t *testing.T) {
	var opens atomic.Int32
	release := make(chan struct{})
	bridge := engine.New(engine.Options{Opener: func() (*sql.DB, error) {
		// init, first load, second load
		if opens.Add(1) == 3 {
			<-release
		}
		return engine.OpenMemory()
	}})
	h := newHarnessWithEngine(t, llmtest.New(), compiler.StrategySQL, bridge)
	h.upload(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	time.AfterFunc(150*time.Millisecond, func() { close(release) })

	_, err := h.session.Upload(ctx, "stock.csv", []byte("region,units,price\nN,4,2.5\n"))
	require.NoError(t, err)

	results, err := h.engine.Execute(context.Background(), "SELECT * FROM data")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"region", "units", "price"}, h.session.Schema().ColumnNames())
	assert.Equal(t, h.session.Schema().ColumnNames(), results[0].Columns)
	assert.Equal(t, StateChatting, h.session.State())
}

func TestNewUploadReplacesTranscript(t *testing.T) {
	h := newHarness(t, llmtest.New(), compiler.StrategySQL)
	h.upload(t)
	first := h.session.Transcript()[0]

	_, err := h.session.Upload(context.Background(), "regions.csv", []byte("region,units\nN,1\n"))
	require.NoError(t, err)

	transcript := h.session.Transcript()
	require.Len(t, transcript, 1)
	assert.Greater(t, transcript[0].ID, first.ID)
	assert.Contains(t, transcript[0].Content.Text(), "regions.csv")
	assert.Equal(t, 2, h.rec.clears)
}

func TestAskValidation(t *testing.T) {
	h := newHarness(t, llmtest.New(), compiler.StrategySQL)

	_, err := h.session.Ask(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrNoDataset)

	h.upload(t)
	_, err = h.session.Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrBlankQuestion)

	require.NoError(t, h.session.Close())
	_, err = h.session.Ask(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrSessionClosed)
}
