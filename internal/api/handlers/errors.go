package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/docintel/backend/internal/orchestrator"
	"github.com/docintel/backend/internal/tasks"
)

// errorResponse maps domain errors to HTTP statuses. Validation problems
// and an empty index are the caller's to fix; anything else is a server
// fault reported without internal detail.
func errorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, orchestrator.ErrUnsupportedFormat),
		errors.Is(err, orchestrator.ErrEmptyQuery),
		errors.Is(err, orchestrator.ErrAsyncDisabled),
		errors.Is(err, orchestrator.ErrEmptyIndex):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, orchestrator.ErrDocumentNotFound),
		errors.Is(err, tasks.ErrTaskNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal server error",
		})
	}
}
