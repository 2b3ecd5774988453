package conversation

import (
	"context"
	"time"

	"ai-data-analyst-be/pkg/apperr"
	"ai-data-analyst-be/pkg/clarify"
	"ai-data-analyst-be/pkg/dataset"
	"ai-data-analyst-be/pkg/engine"
	"ai-data-analyst-be/pkg/report"
	"ai-data-analyst-be/pkg/schema"
)

// Engine is the session's handle on its query engine.
type Engine interface {
	Initialize(ctx context.Context) error
	LoadTable(ctx context.Context, desc *schema.Descriptor, ds *dataset.Dataset) error
	Execute(ctx context.Context, sql string) ([]engine.ResultSet, error)
	Reset(ctx context.Context) error
	State() engine.State
	Close() error
}

var _ Engine = (*engine.Bridge)(nil)

type Resolver interface {
	Resolve(ctx context.Context, req clarify.Request) (*clarify.Outcome, error)
}

type Reporter interface {
	Report(ctx context.Context, question string, results []engine.ResultSet) (*report.Report, error)
	Summarize(ctx context.Context, question string, rs engine.ResultSet) (*report.Report, error)
}

// Notifier receives transcript changes for rendering.
type Notifier interface {
	EntryAppended(sessionID string, entry Entry)
	TranscriptCleared(sessionID string)
}

// Observer receives pipeline outcomes for metrics and activity events.
type Observer interface {
	DatasetLoaded(sessionID, fileName string, rows, columns int)
	TurnCompleted(sessionID string, status TurnStatus, kind apperr.Kind, elapsed time.Duration)
	AggregationSkew(sessionID string, skipped int)
}

type nopNotifier struct{}

func (nopNotifier) EntryAppended(string, Entry) {}
func (nopNotifier) TranscriptCleared(string)    {}

type nopObserver struct{}

func (nopObserver) DatasetLoaded(string, string, int, int)                        {}
func (nopObserver) TurnCompleted(string, TurnStatus, apperr.Kind, time.Duration) {}
func (nopObserver) AggregationSkew(string, int)                                  {}
