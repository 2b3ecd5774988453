// Package inference runs structured prompts against a language model: render
// a prompt from typed input, ask for JSON, decode and validate typed output.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/go-playground/validator/v10"

	"ai-data-analyst-be/internal/pkg/logger"
	"ai-data-analyst-be/pkg/apperr"
	"ai-data-analyst-be/pkg/llm"
)

const (
	GenericFailureMessage = "I'm sorry, I wasn't able to process that request. Please try asking in a different way."
	UnavailableMessage    = "The analysis service is temporarily unavailable. Please try again in a few moments."
)

var validate = validator.New()

// Flow is one named prompt with typed input and output.
type Flow[In any, Out any] struct {
	name     string
	prompt   *template.Template
	provider llm.LLMProvider
	logger   logger.ILogger
}

// NewFlow parses the prompt template. It panics on a malformed template, as
// prompts are compiled in.
func NewFlow[In any, Out any](name, prompt string, provider llm.LLMProvider, log logger.ILogger) *Flow[In, Out] {
	if log == nil {
		log = logger.NewNopLogger()
	}
	tmpl := template.Must(template.New(name).Funcs(template.FuncMap{
		"json": toJSON,
	}).Parse(prompt))
	return &Flow[In, Out]{name: name, prompt: tmpl, provider: provider, logger: log}
}

func (f *Flow[In, Out]) Name() string {
	return f.name
}

// Render produces the prompt text for in.
func (f *Flow[In, Out]) Render(in In) (string, error) {
	var buf bytes.Buffer
	if err := f.prompt.Execute(&buf, in); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", f.name, err)
	}
	return buf.String(), nil
}

// Run calls the model at temperature 0 and decodes its answer. Outages map to
// an unavailable InferenceError, everything else to a plain InferenceError.
func (f *Flow[In, Out]) Run(ctx context.Context, in In) (*Out, error) {
	prompt, err := f.Render(in)
	if err != nil {
		return nil, apperr.New(apperr.KindInference, GenericFailureMessage, err)
	}

	raw, err := f.provider.Generate(ctx, prompt, llm.WithTemperature(0), llm.WithJSON())
	if err != nil {
		f.logger.Error("Inference", "Model call failed", map[string]interface{}{
			"flow":  f.name,
			"error": err.Error(),
		})
		if llm.IsUnavailable(err) {
			return nil, apperr.Unavailable(UnavailableMessage, err)
		}
		return nil, apperr.New(apperr.KindInference, GenericFailureMessage, err)
	}

	out, err := Decode[Out](raw)
	if err != nil {
		f.logger.Warn("Inference", "Malformed model output", map[string]interface{}{
			"flow":  f.name,
			"raw":   raw,
			"error": err.Error(),
		})
		return nil, apperr.New(apperr.KindInference, GenericFailureMessage, fmt.Errorf("%s: %w", f.name, err))
	}
	return out, nil
}

// Decode extracts the JSON object from a model answer and validates it.
func Decode[Out any](raw string) (*Out, error) {
	body := ExtractJSON(raw)
	if body == "" {
		return nil, fmt.Errorf("no JSON object in model output")
	}

	var out Out
	dec := json.NewDecoder(strings.NewReader(body))
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode model output: %w", err)
	}
	if err := validate.Struct(&out); err != nil {
		return nil, fmt.Errorf("invalid model output: %w", err)
	}
	return &out, nil
}

// ExtractJSON strips markdown fences and surrounding prose, returning the
// outermost {...} span.
func ExtractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}

func toJSON(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
