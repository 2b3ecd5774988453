package clarify

import (
	"context"
	"fmt"
	"strings"

	"ai-data-analyst-be/internal/pkg/logger"
	"ai-data-analyst-be/pkg/inference"
	"ai-data-analyst-be/pkg/llm"
	"ai-data-analyst-be/pkg/schema"
)

const (
	FlowName             = "clarifyAmbiguousQuestion"
	DefaultHistoryWindow = 10
)

type HistoryMessage struct {
	Role    string `json:"role" validate:"oneof=user system"`
	Content string `json:"content"`
}

type Input struct {
	Question            string           `json:"question"`
	DataDescription     string           `json:"dataDescription"`
	ConversationHistory []HistoryMessage `json:"conversationHistory,omitempty"`
}

type Output struct {
	ClarifiedQuestion     string `json:"clarifiedQuestion"`
	RequiresClarification *bool  `json:"requiresClarification" validate:"required"`
	NextQuestion          string `json:"nextQuestion,omitempty"`
}

// Turn is one prior transcript exchange as seen by the resolver. Assistant
// turns are presented to the model with the "system" role.
type Turn struct {
	Role    string
	Content string
}

type Request struct {
	Question string
	Schema   *schema.Descriptor
	History  []Turn
}

// Outcome is either a resolved question or a pending follow-up.
type Outcome struct {
	Resolved          bool   `json:"resolved"`
	ClarifiedQuestion string `json:"clarified_question,omitempty"`
	NextQuestion      string `json:"next_question,omitempty"`
}

type Resolver struct {
	flow          *inference.Flow[Input, Output]
	historyWindow int
}

func NewResolver(provider llm.LLMProvider, historyWindow int, log logger.ILogger) *Resolver {
	if historyWindow <= 0 {
		historyWindow = DefaultHistoryWindow
	}
	return &Resolver{
		flow:          inference.NewFlow[Input, Output](FlowName, promptText, provider, log),
		historyWindow: historyWindow,
	}
}

// Resolve decides whether the question can go to the compiler as is.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Outcome, error) {
	out, err := r.flow.Run(ctx, r.Input(req))
	if err != nil {
		return nil, err
	}

	if !*out.RequiresClarification {
		q := strings.TrimSpace(out.ClarifiedQuestion)
		if q == "" {
			q = req.Question
		}
		return &Outcome{Resolved: true, ClarifiedQuestion: q}, nil
	}

	next := strings.TrimSpace(out.NextQuestion)
	if next == "" {
		next = fallbackFollowUp(req.Schema)
	}
	return &Outcome{Resolved: false, NextQuestion: next}, nil
}

// Input folds the request into the flow input, keeping only the most recent
// history window.
func (r *Resolver) Input(req Request) Input {
	in := Input{Question: req.Question}
	if req.Schema != nil {
		in.DataDescription = req.Schema.Describe()
	}

	history := req.History
	if len(history) > r.historyWindow {
		history = history[len(history)-r.historyWindow:]
	}
	for _, t := range history {
		role := "system"
		if t.Role == "user" {
			role = "user"
		}
		in.ConversationHistory = append(in.ConversationHistory, HistoryMessage{Role: role, Content: t.Content})
	}
	return in
}

func fallbackFollowUp(desc *schema.Descriptor) string {
	if desc == nil || len(desc.Columns) == 0 {
		return "Could you be more specific about what you would like to know?"
	}
	return fmt.Sprintf("Could you be more specific? The data has these columns: %s. Which of them should I look at?",
		strings.Join(desc.ColumnNames(), ", "))
}
