// Package llmtest provides a scripted model backend for tests.
package llmtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"ai-data-analyst-be/pkg/llm"
)

// Handler answers one prompt.
type Handler func(prompt string) (string, error)

// Scripted routes each prompt to the first handler whose marker appears in
// the prompt text and records every call.
type Scripted struct {
	mu      sync.Mutex
	routes  []route
	Prompts []string
	Options []llm.Options
}

type route struct {
	marker  string
	handler Handler
}

var _ llm.LLMProvider = &Scripted{}

func New() *Scripted {
	return &Scripted{}
}

// On registers a handler for prompts containing marker.
func (s *Scripted) On(marker string, h Handler) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes = append(s.routes, route{marker: marker, handler: h})
	return s
}

// Reply registers a fixed answer for prompts containing marker.
func (s *Scripted) Reply(marker, answer string) *Scripted {
	return s.On(marker, func(string) (string, error) { return answer, nil })
}

// Calls counts recorded prompts containing marker.
func (s *Scripted) Calls(marker string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.Prompts {
		if strings.Contains(p, marker) {
			n++
		}
	}
	return n
}

func (s *Scripted) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	parts := make([]string, len(history))
	for i, m := range history {
		parts[i] = m.Content
	}
	prompt := strings.Join(parts, "\n")

	s.mu.Lock()
	s.Prompts = append(s.Prompts, prompt)
	s.Options = append(s.Options, llm.Apply(llm.Options{}, options...))
	routes := append([]route(nil), s.routes...)
	s.mu.Unlock()

	for _, r := range routes {
		if strings.Contains(prompt, r.marker) {
			return r.handler(prompt)
		}
	}
	return "", fmt.Errorf("llmtest: no scripted answer for prompt %.60q", prompt)
}

func (s *Scripted) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return s.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}
