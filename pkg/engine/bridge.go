package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"ai-data-analyst-be/internal/pkg/logger"
	"ai-data-analyst-be/pkg/apperr"
	"ai-data-analyst-be/pkg/dataset"
	"ai-data-analyst-be/pkg/schema"
)

var (
	ErrNotReady = errors.New("engine is not ready")
	ErrBusy     = errors.New("engine request queue is full")
	ErrClosed   = errors.New("engine is closed")
)

const DefaultQueueDepth = 8

type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateExecuting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateExecuting:
		return "executing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Observer receives the latency and outcome of every completed request.
type Observer func(action Action, elapsed time.Duration, err error)

type Options struct {
	QueueDepth int
	Opener     Opener
	Logger     logger.ILogger
	Observer   Observer
}

// Bridge is the caller side of an engine worker. It talks to the worker only
// through correlated request/response messages.
type Bridge struct {
	mu      sync.Mutex
	state   State
	busy    int
	pending map[string]chan Response

	requests  chan Request
	responses chan Response
	stopped   chan struct{}

	logger   logger.ILogger
	observer Observer
}

// New starts a worker goroutine and its response dispatcher. The database
// itself is opened lazily by Initialize.
func New(opts Options) *Bridge {
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = DefaultQueueDepth
	}
	if opts.Opener == nil {
		opts.Opener = OpenMemory
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}

	b := &Bridge{
		state:     StateUninitialized,
		pending:   make(map[string]chan Response),
		requests:  make(chan Request, opts.QueueDepth),
		responses: make(chan Response),
		stopped:   make(chan struct{}),
		logger:    opts.Logger,
		observer:  opts.Observer,
	}

	w := &worker{open: opts.Opener, logger: opts.Logger}
	go w.run(b.requests, b.responses)
	go b.dispatch()
	return b
}

func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateReady && b.busy > 0 {
		return StateExecuting
	}
	return b.state
}

// Initialize opens the engine database. A failed attempt leaves the bridge
// uninitialized so it can be retried.
func (b *Bridge) Initialize(ctx context.Context) error {
	b.mu.Lock()
	switch b.state {
	case StateClosed:
		b.mu.Unlock()
		return ErrClosed
	case StateReady:
		b.mu.Unlock()
		return nil
	}
	b.state = StateInitializing
	b.mu.Unlock()

	_, err := b.call(ctx, Request{Action: ActionInit})

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateClosed {
		return ErrClosed
	}
	if err != nil {
		b.state = StateUninitialized
		return err
	}
	b.state = StateReady
	return nil
}

// LoadTable replaces the table with the dataset's rows. On failure the
// previously loaded table stays live. Once queued the load is always awaited,
// so a cancelled ctx cannot leave the caller unaware of a swapped table.
func (b *Bridge) LoadTable(ctx context.Context, desc *schema.Descriptor, ds *dataset.Dataset) error {
	release, err := b.acquire()
	if err != nil {
		return err
	}
	defer release()

	_, err = b.call(context.WithoutCancel(ctx), Request{
		Action: ActionCreateTable,
		Payload: &Payload{
			Schema:  desc.CreateTableSQL(),
			Columns: desc.ColumnNames(),
			Data:    ds.Records(),
		},
	})
	return err
}

// Execute runs a SQL script and returns one result set per row-returning
// statement. Query failures leave the engine usable.
func (b *Bridge) Execute(ctx context.Context, sql string) ([]ResultSet, error) {
	release, err := b.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	resp, err := b.call(ctx, Request{Action: ActionExec, Payload: &Payload{SQL: sql}})
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Reset discards the table and starts over with an empty database. Like
// LoadTable it is awaited regardless of ctx.
func (b *Bridge) Reset(ctx context.Context) error {
	release, err := b.acquire()
	if err != nil {
		return err
	}
	_, err = b.call(context.WithoutCancel(ctx), Request{Action: ActionReset})
	release()

	if apperr.Is(err, apperr.KindEngineInit) {
		b.mu.Lock()
		if b.state == StateReady {
			b.state = StateUninitialized
		}
		b.mu.Unlock()
	}
	return err
}

// Close stops the worker. Requests still waiting fail with ErrClosed.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.state == StateClosed {
		b.mu.Unlock()
		return nil
	}
	b.state = StateClosed
	close(b.requests)
	b.mu.Unlock()

	<-b.stopped
	return nil
}

func (b *Bridge) acquire() (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateClosed:
		return nil, ErrClosed
	case StateReady:
	default:
		return nil, ErrNotReady
	}
	b.busy++
	return func() {
		b.mu.Lock()
		b.busy--
		b.mu.Unlock()
	}, nil
}

func (b *Bridge) call(ctx context.Context, req Request) (Response, error) {
	req.CorrelationID = uuid.NewString()
	ch := make(chan Response, 1)
	start := time.Now()

	b.mu.Lock()
	if b.state == StateClosed {
		b.mu.Unlock()
		return Response{}, ErrClosed
	}
	select {
	case b.requests <- req:
		b.pending[req.CorrelationID] = ch
	default:
		b.mu.Unlock()
		return Response{}, ErrBusy
	}
	b.mu.Unlock()

	var (
		resp Response
		err  error
	)
	select {
	case resp = <-ch:
		err = responseError(req.Action, resp)
	case <-ctx.Done():
		b.forget(req.CorrelationID)
		err = ctx.Err()
	case <-b.stopped:
		select {
		case resp = <-ch:
			err = responseError(req.Action, resp)
		default:
			err = ErrClosed
		}
	}

	if b.observer != nil {
		b.observer(req.Action, time.Since(start), err)
	}
	return resp, err
}

func (b *Bridge) forget(id string) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

// dispatch routes worker responses to their callers by correlation id.
// Responses nobody waits for any more are dropped.
func (b *Bridge) dispatch() {
	defer close(b.stopped)
	for resp := range b.responses {
		b.mu.Lock()
		ch, ok := b.pending[resp.CorrelationID]
		delete(b.pending, resp.CorrelationID)
		b.mu.Unlock()

		if !ok {
			b.logger.Debug("Engine", "Dropped response for abandoned request", map[string]interface{}{
				"correlation_id": resp.CorrelationID,
				"type":           string(resp.Type),
			})
			continue
		}
		ch <- resp
	}
}

func responseError(action Action, resp Response) error {
	if resp.Type != TypeError {
		return nil
	}
	msg := "unknown engine error"
	if resp.Error != nil && resp.Error.Message != "" {
		msg = resp.Error.Message
	}
	switch action {
	case ActionInit, ActionReset:
		return apperr.New(apperr.KindEngineInit, "failed to initialize the database engine: "+msg, nil)
	case ActionCreateTable:
		return apperr.New(apperr.KindLoad, "failed to load the data into the database engine: "+msg, nil)
	default:
		return apperr.New(apperr.KindQuery, msg, nil)
	}
}
