package conversation

import (
	"encoding/json"
	"fmt"
	"time"

	"ai-data-analyst-be/pkg/report"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type ContentKind string

const (
	ContentText          ContentKind = "text"
	ContentVisualization ContentKind = "visualization"
)

// Content is either TextContent or VisualizationContent.
type Content interface {
	Kind() ContentKind
	// Text is the narrative part, used when the entry is fed back to the
	// model as history.
	Text() string
	isContent()
}

type TextContent struct {
	Body string `json:"text"`
}

func (TextContent) Kind() ContentKind { return ContentText }
func (c TextContent) Text() string    { return c.Body }
func (TextContent) isContent()        {}

type VisualizationContent struct {
	Report        string                `json:"report"`
	Visualization *report.Visualization `json:"visualization"`
}

func (VisualizationContent) Kind() ContentKind { return ContentVisualization }
func (c VisualizationContent) Text() string    { return c.Report }
func (VisualizationContent) isContent()        {}

type Entry struct {
	ID        int64
	Role      Role
	Content   Content
	CreatedAt time.Time
}

type entryJSON struct {
	ID        int64           `json:"id"`
	Role      Role            `json:"role"`
	Content   json.RawMessage `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
}

type contentHeader struct {
	Kind ContentKind `json:"kind"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	var body any
	switch c := e.Content.(type) {
	case TextContent:
		body = struct {
			Kind ContentKind `json:"kind"`
			TextContent
		}{ContentText, c}
	case VisualizationContent:
		body = struct {
			Kind ContentKind `json:"kind"`
			VisualizationContent
		}{ContentVisualization, c}
	default:
		return nil, fmt.Errorf("entry %d: unsupported content %T", e.ID, e.Content)
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(entryJSON{ID: e.ID, Role: e.Role, Content: raw, CreatedAt: e.CreatedAt})
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var wire entryJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	var head contentHeader
	if err := json.Unmarshal(wire.Content, &head); err != nil {
		return err
	}

	switch head.Kind {
	case ContentText:
		var c TextContent
		if err := json.Unmarshal(wire.Content, &c); err != nil {
			return err
		}
		e.Content = c
	case ContentVisualization:
		var c VisualizationContent
		if err := json.Unmarshal(wire.Content, &c); err != nil {
			return err
		}
		e.Content = c
	default:
		return fmt.Errorf("unknown content kind %q", head.Kind)
	}
	e.ID, e.Role, e.CreatedAt = wire.ID, wire.Role, wire.CreatedAt
	return nil
}

// Transcript is append-only between resets. IDs keep increasing across
// Clear so a renderer never sees an id reused.
type Transcript struct {
	entries []Entry
	lastID  int64
	now     func() time.Time
}

func NewTranscript() *Transcript {
	return &Transcript{now: time.Now}
}

func (t *Transcript) Append(role Role, content Content) Entry {
	t.lastID++
	e := Entry{ID: t.lastID, Role: role, Content: content, CreatedAt: t.now().UTC()}
	t.entries = append(t.entries, e)
	return e
}

func (t *Transcript) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Transcript) Len() int {
	return len(t.entries)
}

func (t *Transcript) Clear() {
	t.entries = nil
}
