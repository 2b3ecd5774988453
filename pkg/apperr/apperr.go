package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure so callers can pick a user-facing message
// without inspecting error strings.
type Kind string

const (
	KindUnknown           Kind = ""
	KindUnsupportedFormat Kind = "UnsupportedFormat"
	KindEmptyDataset      Kind = "EmptyDataset"
	KindParse             Kind = "ParseError"
	KindEngineInit        Kind = "EngineInitError"
	KindLoad              Kind = "LoadError"
	KindQuery             Kind = "QueryError"
	KindInference         Kind = "InferenceError"
	KindAggregationSkew   Kind = "AggregationSkew"
)

// Error is the typed error carried through the analysis pipeline.
type Error struct {
	Kind    Kind
	Message string
	Err     error

	// Unavailable marks an inference failure caused by a transient outage
	// of the model service (HTTP 503 and friends).
	Unavailable bool
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error of the given kind.
func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Newf builds an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Unavailable builds an inference error flagged as a transient outage.
func Unavailable(message string, err error) *Error {
	return &Error{Kind: KindInference, Message: message, Err: err, Unavailable: true}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsUnavailable reports whether err is an inference outage.
func IsUnavailable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Unavailable
	}
	return false
}

// MessageOf returns the Message of the first *Error in the chain, or err.Error().
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
