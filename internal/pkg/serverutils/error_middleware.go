package serverutils

import (
	"errors"

	"ai-proposalgen-be/pkg/workflow/wferrors"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware converts service errors into the response envelope.
// Workflow errors carry their class as a sentinel, which decides the status.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var vErr *ValidationError
		if errors.As(err, &vErr) {
			return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse("Validation failed", vErr.Fields))
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Message, nil))
		}

		status := statusForError(err)
		if status >= fiber.StatusInternalServerError {
			// Do not leak internals to the client.
			return ctx.Status(status).JSON(ErrorResponse("Internal server error", nil))
		}
		return ctx.Status(status).JSON(ErrorResponse(err.Error(), nil))
	}
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, wferrors.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, wferrors.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, wferrors.ErrInvalidState),
		errors.Is(err, wferrors.ErrInterruptedState),
		errors.Is(err, wferrors.ErrDependencyViolation):
		return fiber.StatusConflict
	case errors.Is(err, wferrors.ErrUpstreamService):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
