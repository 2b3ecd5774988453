package serverutils

import (
	"errors"
	"log"

	"ai-data-analyst-be/pkg/apperr"
	"ai-data-analyst-be/pkg/conversation"
	"ai-data-analyst-be/pkg/engine"

	"github.com/gofiber/fiber/v2"
)

// ErrNotFound is returned by services when a session id is unknown.
var ErrNotFound = errors.New("resource not found")

// ErrorHandlerMiddleware turns errors returned by handlers into JSON envelopes.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		status, errorType, message := Classify(err)
		if status >= fiber.StatusInternalServerError {
			log.Printf("[ERROR] %s %s: %v", ctx.Method(), ctx.Path(), err)
		}
		return ctx.Status(status).JSON(TypedErrorResponse(status, errorType, message))
	}
}

// Classify maps an error to an HTTP status, an error type and a client-safe message.
func Classify(err error) (int, string, string) {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, "HttpError", fiberErr.Message
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return fiber.StatusBadRequest, "ValidationError", validationErr.Error()
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound, "NotFound", err.Error()
	case errors.Is(err, conversation.ErrTurnInFlight), errors.Is(err, engine.ErrBusy):
		return fiber.StatusConflict, "Conflict", err.Error()
	case errors.Is(err, conversation.ErrNoDataset), errors.Is(err, conversation.ErrBlankQuestion):
		return fiber.StatusBadRequest, "BadRequest", err.Error()
	case errors.Is(err, conversation.ErrStaleTurn):
		return fiber.StatusConflict, "StaleTurn", err.Error()
	case errors.Is(err, conversation.ErrSessionClosed):
		return fiber.StatusGone, "SessionClosed", err.Error()
	}

	if apperr.IsUnavailable(err) {
		return fiber.StatusServiceUnavailable, string(apperr.KindInference), apperr.MessageOf(err)
	}

	kind := apperr.KindOf(err)
	switch kind {
	case apperr.KindUnsupportedFormat:
		return fiber.StatusUnsupportedMediaType, string(kind), apperr.MessageOf(err)
	case apperr.KindEmptyDataset, apperr.KindParse:
		return fiber.StatusUnprocessableEntity, string(kind), apperr.MessageOf(err)
	case apperr.KindQuery:
		return fiber.StatusBadRequest, string(kind), apperr.MessageOf(err)
	case apperr.KindInference:
		return fiber.StatusBadGateway, string(kind), apperr.MessageOf(err)
	case apperr.KindEngineInit, apperr.KindLoad:
		return fiber.StatusInternalServerError, string(kind), apperr.MessageOf(err)
	}

	return fiber.StatusInternalServerError, "InternalError", "internal server error"
}
