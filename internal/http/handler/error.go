package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"podtracker/internal/http/middleware"
	"podtracker/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "VALIDATION_FAILED", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: middleware.GetRequestID(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// serviceError translates a service error to a response. Only validation
// messages are passed through verbatim; anything unexpected is logged.
func serviceError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	if ve, ok := service.IsValidation(err); ok {
		return writeError(c, fiber.StatusBadRequest, "VALIDATION_FAILED", ve.Message)
	}
	switch {
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "resource not found")
	case errors.Is(err, service.ErrChatUnavailable):
		return writeError(c, fiber.StatusServiceUnavailable, "CHAT_UNAVAILABLE", "chat is unavailable: no LLM API key configured")
	case errors.Is(err, service.ErrUpstream):
		log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Str("event", "upstream_failed").Send()
		return writeError(c, fiber.StatusBadGateway, "UPSTREAM_ERROR", "language model request failed")
	}
	log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Str("path", c.Path()).Str("event", "request_failed").Send()
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if _, ok := service.IsValidation(err); ok {
			return serviceError(c, zerolog.Nop(), err)
		}

		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusUnauthorized, fiber.StatusForbidden:
			return writeError(c, status, "FORBIDDEN", fe.Message)
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
