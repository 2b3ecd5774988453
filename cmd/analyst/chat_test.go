package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-data-analyst-be/pkg/conversation"
	"ai-data-analyst-be/pkg/engine"
)

func captureColor(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	out, noColor := color.Output, color.NoColor
	color.Output, color.NoColor = &buf, true
	t.Cleanup(func() { color.Output, color.NoColor = out, noColor })
	return &buf
}

func TestReplReset(t *testing.T) {
	buf := captureColor(t)
	session := conversation.NewSession("cli", conversation.Dependencies{Engine: engine.New(engine.Options{})}, conversation.Options{})
	defer session.Close()

	require.NoError(t, repl(context.Background(), session, strings.NewReader("/reset\n/quit\n")))
	assert.Contains(t, buf.String(), "Session cleared")
}

func TestReplResetFailureIsNotReportedAsCleared(t *testing.T) {
	buf := captureColor(t)
	session := conversation.NewSession("cli", conversation.Dependencies{Engine: engine.New(engine.Options{})}, conversation.Options{})
	require.NoError(t, session.Close())

	require.NoError(t, repl(context.Background(), session, strings.NewReader("/reset\n/quit\n")))
	assert.Contains(t, buf.String(), "reset failed")
	assert.NotContains(t, buf.String(), "Session cleared")
}
