package serverutils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"ai-data-analyst-be/pkg/apperr"
	"ai-data-analyst-be/pkg/conversation"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"unsupported", apperr.Newf(apperr.KindUnsupportedFormat, "bad type"), 415, "UnsupportedFormat"},
		{"empty", apperr.Newf(apperr.KindEmptyDataset, "no data"), 422, "EmptyDataset"},
		{"parse", fmt.Errorf("upload: %w", apperr.Newf(apperr.KindParse, "broken")), 422, "ParseError"},
		{"query", apperr.Newf(apperr.KindQuery, "no such column"), 400, "QueryError"},
		{"inference", apperr.Newf(apperr.KindInference, "bad json"), 502, "InferenceError"},
		{"unavailable", apperr.Unavailable("down", nil), 503, "InferenceError"},
		{"in flight", conversation.ErrTurnInFlight, 409, "Conflict"},
		{"no dataset", conversation.ErrNoDataset, 400, "BadRequest"},
		{"not found", fmt.Errorf("session abc: %w", ErrNotFound), 404, "NotFound"},
		{"fiber", fiber.NewError(fiber.StatusRequestEntityTooLarge, "too big"), 413, "HttpError"},
		{"unknown", fmt.Errorf("boom"), 500, "InternalError"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, kind, _ := Classify(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.kind, kind)
		})
	}
}

func TestErrorHandlerMiddlewareRendersEnvelope(t *testing.T) {
	app := fiber.New()
	app.Use(ErrorHandlerMiddleware())
	app.Get("/fail", func(ctx *fiber.Ctx) error {
		return apperr.Newf(apperr.KindEmptyDataset, "the uploaded file contains no data")
	})
	app.Get("/ok", func(ctx *fiber.Ctx) error {
		return ctx.JSON(SuccessResponse("fine", map[string]int{"n": 1}))
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/fail", nil))
	require.NoError(t, err)
	assert.Equal(t, 422, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var envelope Response[any]
	require.NoError(t, json.Unmarshal(body, &envelope))
	assert.False(t, envelope.Success)
	assert.Equal(t, "EmptyDataset", envelope.ErrorType)
	assert.Equal(t, "the uploaded file contains no data", envelope.Message)

	resp, err = app.Test(httptest.NewRequest("GET", "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestValidateRequest(t *testing.T) {
	type req struct {
		Question string `json:"question" validate:"required"`
	}

	err := ValidateRequest(req{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "is required", verr.Fields["Question"])

	assert.NoError(t, ValidateRequest(req{Question: "total sales?"}))
}
