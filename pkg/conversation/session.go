package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ai-data-analyst-be/internal/pkg/logger"
	"ai-data-analyst-be/pkg/apperr"
	"ai-data-analyst-be/pkg/clarify"
	"ai-data-analyst-be/pkg/compiler"
	"ai-data-analyst-be/pkg/dataset"
	"ai-data-analyst-be/pkg/engine"
	"ai-data-analyst-be/pkg/inference"
	"ai-data-analyst-be/pkg/ingest"
	"ai-data-analyst-be/pkg/report"
	"ai-data-analyst-be/pkg/schema"
)

type State string

const (
	StateAwaitingUpload State = "awaiting_upload"
	StateChatting       State = "chatting"
)

var (
	ErrNoDataset     = errors.New("no dataset loaded: upload a file first")
	ErrTurnInFlight  = errors.New("a question is already being analyzed")
	ErrBlankQuestion = errors.New("question is empty")
	ErrStaleTurn     = errors.New("turn was superseded by a reset or a new upload")
	ErrSessionClosed = errors.New("session is closed")
)

type TurnStatus string

const (
	TurnAnswered      TurnStatus = "answered"
	TurnClarification TurnStatus = "clarification"
	TurnFailed        TurnStatus = "failed"
)

const (
	DefaultSampleRows  = 5
	DefaultSummaryRows = 200
)

// TurnResult describes one finished turn. Pipeline failures are reported
// here as a failed turn with an assistant entry, not as an error.
type TurnResult struct {
	Status        TurnStatus         `json:"status"`
	Question      Entry              `json:"question"`
	Entry         Entry              `json:"entry"`
	Clarification *clarify.Outcome   `json:"clarification,omitempty"`
	Plan          *compiler.Plan     `json:"plan,omitempty"`
	Results       []engine.ResultSet `json:"results,omitempty"`
	ErrorKind     apperr.Kind        `json:"error_kind,omitempty"`
	Report        *report.Report     `json:"-"`
}

type UploadResult struct {
	FileName string             `json:"file_name"`
	Schema   *schema.Descriptor `json:"schema"`
	RowCount int                `json:"row_count"`
	Welcome  Entry              `json:"welcome"`
}

type Options struct {
	SampleRows  int
	SummaryRows int
}

type Dependencies struct {
	Engine   Engine
	Resolver Resolver
	Compiler compiler.Compiler
	Reporter Reporter
	Notifier Notifier
	Observer Observer
	Logger   logger.ILogger
}

// Session is one conversation over one uploaded dataset.
type Session struct {
	id   string
	deps Dependencies
	opts Options

	tracer trace.Tracer

	// ops serializes Upload, Reset and Close against each other.
	ops sync.Mutex

	mu         sync.Mutex
	state      State
	closed     bool
	epoch      uint64
	turnSeq    uint64
	inFlight   uint64
	fileName   string
	data       *dataset.Dataset
	desc       *schema.Descriptor
	transcript *Transcript
}

func NewSession(id string, deps Dependencies, opts Options) *Session {
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}
	if opts.SampleRows <= 0 {
		opts.SampleRows = DefaultSampleRows
	}
	if opts.SummaryRows <= 0 {
		opts.SummaryRows = DefaultSummaryRows
	}
	return &Session{
		id:         id,
		deps:       deps,
		opts:       opts,
		tracer:     otel.Tracer("ai-data-analyst-be/conversation"),
		state:      StateAwaitingUpload,
		transcript: NewTranscript(),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Transcript() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.Entries()
}

// Schema returns the current schema, or nil while awaiting an upload.
func (s *Session) Schema() *schema.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.desc
}

func (s *Session) FileName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fileName
}

func (s *Session) EngineState() engine.State {
	return s.deps.Engine.State()
}

// Upload ingests a file and loads it into the engine. On success the
// dataset, schema and transcript are replaced and any in-flight turn is
// invalidated; on failure nothing changes.
func (s *Session) Upload(ctx context.Context, filename string, data []byte) (*UploadResult, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.Upload", trace.WithAttributes(
		attribute.String("session.id", s.id),
		attribute.String("file.name", filename),
	))
	defer span.End()

	s.ops.Lock()
	defer s.ops.Unlock()
	if s.isClosed() {
		return nil, ErrSessionClosed
	}

	ds, err := ingest.Ingest(filename, data)
	if err != nil {
		s.uploadFailed(span, filename, err)
		return nil, err
	}
	desc := schema.Derive(ds)

	if err := s.deps.Engine.Initialize(ctx); err != nil {
		s.uploadFailed(span, filename, err)
		return nil, err
	}
	if err := s.deps.Engine.LoadTable(ctx, desc, ds); err != nil {
		s.uploadFailed(span, filename, err)
		return nil, err
	}

	s.mu.Lock()
	s.epoch++
	s.inFlight = 0
	s.fileName = ds.Name
	s.data = ds
	s.desc = desc
	s.state = StateChatting
	s.transcript.Clear()
	welcome := s.transcript.Append(RoleAssistant, TextContent{
		Body: fmt.Sprintf("Your data from %q has been successfully processed. What would you like to know?", ds.Name),
	})
	s.mu.Unlock()

	s.deps.Notifier.TranscriptCleared(s.id)
	s.deps.Notifier.EntryAppended(s.id, welcome)
	s.deps.Observer.DatasetLoaded(s.id, ds.Name, ds.Len(), len(ds.Columns))
	s.deps.Logger.Info("Conversation", "Dataset loaded", map[string]interface{}{
		"session_id": s.id,
		"file":       ds.Name,
		"rows":       ds.Len(),
		"columns":    len(ds.Columns),
	})

	return &UploadResult{FileName: ds.Name, Schema: desc, RowCount: ds.Len(), Welcome: welcome}, nil
}

func (s *Session) uploadFailed(span trace.Span, filename string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(apperr.KindOf(err)))
	s.deps.Logger.Warn("Conversation", "Upload rejected", map[string]interface{}{
		"session_id": s.id,
		"file":       filename,
		"kind":       string(apperr.KindOf(err)),
		"error":      err.Error(),
	})
}

// turn is the state snapshot a running turn works from. It is never shared
// with the session after Ask releases the lock.
type turn struct {
	id       uint64
	epoch    uint64
	question string
	data     *dataset.Dataset
	desc     *schema.Descriptor
	history  []clarify.Turn
	entry    Entry
}

// Ask runs one question through clarification, compilation, execution and
// reporting. Only one turn runs at a time; a turn that is overtaken by a
// reset or a new upload returns ErrStaleTurn and leaves no trace.
func (s *Session) Ask(ctx context.Context, question string) (*TurnResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrBlankQuestion
	}

	t, err := s.beginTurn(question)
	if err != nil {
		return nil, err
	}
	defer s.endTurn(t)
	s.deps.Notifier.EntryAppended(s.id, t.entry)

	ctx, span := s.tracer.Start(ctx, "conversation.Ask", trace.WithAttributes(attribute.String("session.id", s.id)))
	defer span.End()

	start := time.Now()
	res := s.run(ctx, t)
	res.Question = t.entry

	if res.Status == TurnFailed {
		span.SetStatus(codes.Error, string(res.ErrorKind))
	}

	s.mu.Lock()
	if s.closed || s.epoch != t.epoch {
		s.mu.Unlock()
		s.deps.Logger.Info("Conversation", "Discarded stale turn", map[string]interface{}{
			"session_id": s.id,
			"turn":       t.id,
		})
		return nil, ErrStaleTurn
	}
	res.Entry = s.transcript.Append(RoleAssistant, res.content)
	s.mu.Unlock()

	s.deps.Notifier.EntryAppended(s.id, res.Entry)
	s.deps.Observer.TurnCompleted(s.id, res.Status, res.ErrorKind, time.Since(start))
	return &res.TurnResult, nil
}

func (s *Session) beginTurn(question string) (*turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		return nil, ErrSessionClosed
	case s.state != StateChatting:
		return nil, ErrNoDataset
	case s.inFlight != 0:
		return nil, ErrTurnInFlight
	}

	s.turnSeq++
	s.inFlight = s.turnSeq

	var history []clarify.Turn
	for _, e := range s.transcript.Entries() {
		history = append(history, clarify.Turn{Role: string(e.Role), Content: e.Content.Text()})
	}

	return &turn{
		id:       s.turnSeq,
		epoch:    s.epoch,
		question: question,
		data:     s.data,
		desc:     s.desc,
		history:  history,
		entry:    s.transcript.Append(RoleUser, TextContent{Body: question}),
	}, nil
}

func (s *Session) endTurn(t *turn) {
	s.mu.Lock()
	if s.inFlight == t.id {
		s.inFlight = 0
	}
	s.mu.Unlock()
}

type turnOutcome struct {
	TurnResult
	content Content
}

func (s *Session) run(ctx context.Context, t *turn) turnOutcome {
	var out turnOutcome

	outcome, err := s.clarify(ctx, t)
	if err != nil {
		return s.fail(t, out, err)
	}
	out.Clarification = outcome
	if !outcome.Resolved {
		out.Status = TurnClarification
		out.content = TextContent{Body: outcome.NextQuestion}
		return out
	}

	plan, err := s.compile(ctx, t, outcome.ClarifiedQuestion)
	if err != nil {
		return s.fail(t, out, err)
	}
	out.Plan = plan

	rep, err := s.execute(ctx, t, outcome.ClarifiedQuestion, &out)
	if err != nil {
		return s.fail(t, out, err)
	}

	out.Status = TurnAnswered
	out.Report = rep
	if rep.Visualization != nil {
		out.content = VisualizationContent{Report: rep.Text, Visualization: rep.Visualization}
	} else {
		out.content = TextContent{Body: rep.Text}
	}
	return out
}

func (s *Session) clarify(ctx context.Context, t *turn) (*clarify.Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.clarify")
	defer span.End()
	return s.deps.Resolver.Resolve(ctx, clarify.Request{Question: t.question, Schema: t.desc, History: t.history})
}

func (s *Session) compile(ctx context.Context, t *turn, question string) (*compiler.Plan, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.compile")
	defer span.End()
	plan, err := s.deps.Compiler.Compile(ctx, compiler.Request{
		Question: question,
		Schema:   t.desc,
		Sample:   t.data.Head(s.opts.SampleRows),
	})
	if err == nil {
		span.SetAttributes(attribute.String("plan.kind", string(plan.Kind)))
	}
	return plan, err
}

func (s *Session) execute(ctx context.Context, t *turn, question string, out *turnOutcome) (*report.Report, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.execute")
	defer span.End()

	switch out.Plan.Kind {
	case compiler.PlanSQL:
		results, err := s.deps.Engine.Execute(ctx, out.Plan.SQL)
		if err != nil {
			return nil, err
		}
		if !s.current(t) {
			return nil, ErrStaleTurn
		}
		out.Results = results
		return s.deps.Reporter.Report(ctx, question, results)

	case compiler.PlanAggregate:
		agg, err := compiler.Aggregate(t.data, *out.Plan.Aggregate)
		if err != nil {
			return nil, apperr.New(apperr.KindQuery, err.Error(), err)
		}
		if agg.Skipped > 0 {
			s.deps.Observer.AggregationSkew(s.id, agg.Skipped)
			s.deps.Logger.Warn("Conversation", "Aggregation skipped non-numeric values", map[string]interface{}{
				"session_id": s.id,
				"kind":       string(apperr.KindAggregationSkew),
				"column":     out.Plan.Aggregate.ValueColumn,
				"skipped":    agg.Skipped,
			})
		}
		rs := agg.ResultSet()
		out.Results = []engine.ResultSet{rs}
		return s.deps.Reporter.Report(ctx, question, out.Results)

	default:
		rs := engine.ResultSet{Columns: t.data.Columns, Values: make([][]any, 0, s.opts.SummaryRows)}
		for i, row := range t.data.Rows {
			if i == s.opts.SummaryRows {
				break
			}
			vals := make([]any, len(row))
			for j, v := range row {
				vals[j] = dataset.EngineValue(v)
			}
			rs.Values = append(rs.Values, vals)
		}
		return s.deps.Reporter.Summarize(ctx, question, rs)
	}
}

func (s *Session) current(t *turn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.epoch == t.epoch
}

func (s *Session) fail(t *turn, out turnOutcome, err error) turnOutcome {
	out.Status = TurnFailed
	out.ErrorKind = apperr.KindOf(err)
	out.content = TextContent{Body: FailureMessage(err)}
	if !errors.Is(err, ErrStaleTurn) {
		s.deps.Logger.Error("Conversation", "Turn failed", map[string]interface{}{
			"session_id": s.id,
			"turn":       t.id,
			"kind":       string(out.ErrorKind),
			"error":      err.Error(),
		})
	}
	return out
}

// FailureMessage is the assistant text shown for a failed turn.
func FailureMessage(err error) string {
	switch {
	case apperr.IsUnavailable(err):
		return inference.UnavailableMessage
	case apperr.Is(err, apperr.KindQuery):
		return fmt.Sprintf("I couldn't run the query for that question (%s). Please try asking in a different way.", apperr.MessageOf(err))
	case apperr.Is(err, apperr.KindEngineInit):
		return "The query engine could not be started. Please reset the session and upload your file again."
	case errors.Is(err, engine.ErrBusy):
		return "The query engine is busy. Please try again in a moment."
	default:
		return inference.GenericFailureMessage
	}
}

// Reset discards dataset, schema, transcript and the engine table, and
// invalidates any in-flight turn.
func (s *Session) Reset(ctx context.Context) error {
	s.ops.Lock()
	defer s.ops.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.epoch++
	s.inFlight = 0
	s.state = StateAwaitingUpload
	s.fileName = ""
	s.data = nil
	s.desc = nil
	s.transcript.Clear()
	s.mu.Unlock()

	s.deps.Notifier.TranscriptCleared(s.id)
	s.deps.Logger.Info("Conversation", "Session reset", map[string]interface{}{"session_id": s.id})

	switch s.deps.Engine.State() {
	case engine.StateReady, engine.StateExecuting:
		return s.deps.Engine.Reset(ctx)
	}
	return nil
}

// Close releases the engine. Further calls fail with ErrSessionClosed.
func (s *Session) Close() error {
	s.ops.Lock()
	defer s.ops.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.epoch++
	s.mu.Unlock()

	return s.deps.Engine.Close()
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
