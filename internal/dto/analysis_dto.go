package dto

import (
	"time"

	"ai-data-analyst-be/pkg/clarify"
	"ai-data-analyst-be/pkg/compiler"
	"ai-data-analyst-be/pkg/conversation"
	"ai-data-analyst-be/pkg/schema"
)

type CreateSessionResponse struct {
	Id        string    `json:"id"`
	State     string    `json:"state"`
	ExpiresAt time.Time `json:"expires_at"`
}

type UploadDatasetResponse struct {
	FileName string             `json:"file_name"`
	Table    string             `json:"table"`
	Columns  []schema.Column    `json:"columns"`
	RowCount int                `json:"row_count"`
	Welcome  conversation.Entry `json:"welcome"`
}

type AskRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
}

type AskResponse struct {
	Status        string             `json:"status"`
	Question      conversation.Entry `json:"question"`
	Entry         conversation.Entry `json:"entry"`
	Clarification *clarify.Outcome   `json:"clarification,omitempty"`
	Plan          *compiler.Plan     `json:"plan,omitempty"`
	ErrorKind     string             `json:"error_kind,omitempty"`
}

type TranscriptResponse struct {
	SessionId string               `json:"session_id"`
	Entries   []conversation.Entry `json:"entries"`
}

type SchemaResponse struct {
	FileName string          `json:"file_name"`
	Table    string          `json:"table"`
	Columns  []schema.Column `json:"columns"`
}

type SessionStateResponse struct {
	Id          string `json:"id"`
	State       string `json:"state"`
	FileName    string `json:"file_name,omitempty"`
	EngineState string `json:"engine_state"`
	EntryCount  int    `json:"entry_count"`
}

// TranscriptEvent is what the websocket stream pushes for every transcript change.
type TranscriptEvent struct {
	Type      string              `json:"type"` // "entry" or "cleared"
	SessionId string              `json:"session_id"`
	Entry     *conversation.Entry `json:"entry,omitempty"`
}

const (
	TranscriptEventEntry   = "entry"
	TranscriptEventCleared = "cleared"
)
