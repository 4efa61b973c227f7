package api

import (
	"errors"

	"go-automation/internal/lock"
	"go-automation/pkg/action"
	"go-automation/pkg/graph"
	"go-automation/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

// ErrNotFound is returned by services when a definition or execution does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when the request clashes with stored state.
var ErrConflict = errors.New("conflict")

// StatusFor maps service and engine errors to HTTP status codes.
func StatusFor(err error) int {
	var ve *validation.ValidationError
	switch {
	case errors.As(err, &ve):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, lock.ErrLockNotAcquired), errors.Is(err, ErrConflict):
		return fiber.StatusConflict
	case graph.IsRunaway(err), errors.Is(err, action.ErrTerminalState), errors.Is(err, graph.ErrInactive):
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusInternalServerError
}

// Error writes err as {"error": msg} with the mapped status.
func Error(c *fiber.Ctx, err error) error {
	return c.Status(StatusFor(err)).JSON(fiber.Map{"error": err.Error()})
}
