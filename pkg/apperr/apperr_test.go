package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrapped(t *testing.T) {
	base := New(KindQuery, "no such column: foo", errors.New("SQL logic error"))
	wrapped := fmt.Errorf("execute: %w", base)

	assert.Equal(t, KindQuery, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindQuery))
	assert.False(t, Is(wrapped, KindLoad))
	assert.Equal(t, "no such column: foo", MessageOf(wrapped))
	assert.Contains(t, wrapped.Error(), "SQL logic error")
}

func TestUnavailable(t *testing.T) {
	err := fmt.Errorf("clarify: %w", Unavailable("model service unavailable", nil))

	assert.True(t, IsUnavailable(err))
	assert.Equal(t, KindInference, KindOf(err))
	assert.False(t, IsUnavailable(New(KindInference, "bad json", nil)))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(errors.New("boom")))
	assert.False(t, Is(nil, KindUnknown))
	assert.Equal(t, "", MessageOf(nil))
}
