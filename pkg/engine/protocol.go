package engine

// Action names an outbound request to the engine worker.
type Action string

const (
	ActionInit        Action = "init"
	ActionCreateTable Action = "create_table"
	ActionExec        Action = "exec"
	ActionReset       Action = "reset"
)

// ResponseType names an inbound message from the engine worker.
type ResponseType string

const (
	TypeInitSuccess  ResponseType = "init_success"
	TypeTableCreated ResponseType = "table_created"
	TypeExecResult   ResponseType = "exec_result"
	TypeResetSuccess ResponseType = "reset_success"
	TypeError        ResponseType = "error"
)

type Payload struct {
	Schema  string           `json:"schema,omitempty"`
	Columns []string         `json:"columns,omitempty"`
	Data    []map[string]any `json:"data,omitempty"`
	SQL     string           `json:"sql,omitempty"`
}

type Request struct {
	Action        Action   `json:"action"`
	Payload       *Payload `json:"payload,omitempty"`
	CorrelationID string   `json:"correlationId"`
}

type ErrorBody struct {
	Message string `json:"message"`
}

type Response struct {
	Type          ResponseType `json:"type"`
	CorrelationID string       `json:"correlationId"`
	Results       []ResultSet  `json:"results,omitempty"`
	Error         *ErrorBody   `json:"error,omitempty"`
}

// ResultSet is the tabular output of one row-returning statement.
type ResultSet struct {
	Columns []string `json:"columns"`
	Values  [][]any  `json:"values"`
}

// Empty reports whether the set carries no rows.
func (r ResultSet) Empty() bool {
	return len(r.Values) == 0
}

// Records renders the set as one map per row.
func (r ResultSet) Records() []map[string]any {
	out := make([]map[string]any, len(r.Values))
	for i, row := range r.Values {
		rec := make(map[string]any, len(r.Columns))
		for j, c := range r.Columns {
			if j < len(row) {
				rec[c] = row[j]
			}
		}
		out[i] = rec
	}
	return out
}

func errorResponse(req Request, msg string) Response {
	return Response{Type: TypeError, CorrelationID: req.CorrelationID, Error: &ErrorBody{Message: msg}}
}
