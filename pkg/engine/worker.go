package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"ai-data-analyst-be/internal/pkg/logger"
	"ai-data-analyst-be/pkg/dataset"
	"ai-data-analyst-be/pkg/schema"
)

// Opener creates an empty database for the worker.
type Opener func() (*sql.DB, error)

// OpenMemory opens a private in-memory SQLite database. The pool is pinned to
// one connection because every connection to ":memory:" is a separate database.
func OpenMemory() (*sql.DB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// worker owns the database handle. Nothing outside the worker goroutine
// touches db.
type worker struct {
	open   Opener
	db     *sql.DB
	logger logger.ILogger
}

func (w *worker) run(requests <-chan Request, responses chan<- Response) {
	defer close(responses)
	defer w.closeDB()

	for req := range requests {
		responses <- w.handle(req)
	}
}

func (w *worker) handle(req Request) Response {
	switch req.Action {
	case ActionInit:
		return w.init(req)
	case ActionCreateTable:
		return w.createTable(req)
	case ActionExec:
		return w.exec(req)
	case ActionReset:
		return w.reset(req)
	default:
		return errorResponse(req, fmt.Sprintf("unknown action %q", req.Action))
	}
}

func (w *worker) init(req Request) Response {
	if w.db == nil {
		db, err := w.open()
		if err != nil {
			return errorResponse(req, err.Error())
		}
		w.db = db
	}
	return Response{Type: TypeInitSuccess, CorrelationID: req.CorrelationID}
}

func (w *worker) reset(req Request) Response {
	db, err := w.open()
	if err != nil {
		w.closeDB()
		return errorResponse(req, err.Error())
	}
	w.closeDB()
	w.db = db
	return Response{Type: TypeResetSuccess, CorrelationID: req.CorrelationID}
}

// createTable loads the payload into a fresh database and swaps it in only
// once every row has been inserted.
func (w *worker) createTable(req Request) Response {
	if w.db == nil {
		return errorResponse(req, "database not initialized")
	}
	p := req.Payload
	if p == nil || p.Schema == "" || len(p.Columns) == 0 {
		return errorResponse(req, "create_table requires schema and columns")
	}

	db, err := w.open()
	if err != nil {
		return errorResponse(req, err.Error())
	}
	if err := load(db, p); err != nil {
		db.Close()
		return errorResponse(req, err.Error())
	}

	w.closeDB()
	w.db = db
	w.logger.Debug("Engine", "Table loaded", map[string]interface{}{
		"columns": len(p.Columns),
		"rows":    len(p.Data),
	})
	return Response{Type: TypeTableCreated, CorrelationID: req.CorrelationID}
}

func load(db *sql.DB, p *Payload) error {
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, p.Schema); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertSQL(p.Columns))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(p.Columns))
	for i, rec := range p.Data {
		if len(rec) != len(p.Columns) {
			return fmt.Errorf("row %d has %d fields, table has %d columns", i+1, len(rec), len(p.Columns))
		}
		for j, c := range p.Columns {
			v, ok := rec[c]
			if !ok {
				return fmt.Errorf("row %d is missing column %q", i+1, c)
			}
			args[j] = dataset.EngineValue(v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}
	return tx.Commit()
}

func insertSQL(columns []string) string {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = schema.QuoteIdent(c)
	}
	ph := strings.TrimRight(strings.Repeat("?,", len(columns)), ",")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", schema.QuoteIdent(schema.TableName), strings.Join(cols, ", "), ph)
}

func (w *worker) exec(req Request) Response {
	if w.db == nil {
		return errorResponse(req, "database not initialized")
	}
	if req.Payload == nil || strings.TrimSpace(req.Payload.SQL) == "" {
		return errorResponse(req, "exec requires sql")
	}

	var results []ResultSet
	for _, stmt := range SplitStatements(req.Payload.SQL) {
		rs, err := query(w.db, stmt)
		if err != nil {
			return errorResponse(req, err.Error())
		}
		if rs != nil {
			results = append(results, *rs)
		}
	}
	return Response{Type: TypeExecResult, CorrelationID: req.CorrelationID, Results: results}
}

// query runs one statement. Statements without result columns yield nil.
func query(db *sql.DB, stmt string) (*ResultSet, error) {
	rows, err := db.QueryContext(context.Background(), stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, rows.Err()
	}

	rs := &ResultSet{Columns: cols, Values: [][]any{}}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		rs.Values = append(rs.Values, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}

func (w *worker) closeDB() {
	if w.db != nil {
		w.db.Close()
		w.db = nil
	}
}
