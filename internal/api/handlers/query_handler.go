package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/docintel/backend/internal/metrics"
	"github.com/docintel/backend/internal/orchestrator"
	"github.com/docintel/backend/pkg/logger"
)

type QueryHandler struct {
	orch *orchestrator.Orchestrator
}

func NewQueryHandler(orch *orchestrator.Orchestrator) *QueryHandler {
	return &QueryHandler{
		orch: orch,
	}
}

func (h *QueryHandler) Ask(c *fiber.Ctx) error {
	var req struct {
		Query string `json:"query"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	answer, err := h.orch.Ask(c.Context(), req.Query)
	if err != nil {
		metrics.QueryTotal.WithLabelValues("error").Inc()
		logger.Error("Question failed", zap.Error(err))
		return errorResponse(c, err)
	}

	metrics.QueryTotal.WithLabelValues("success").Inc()
	return c.JSON(answer)
}

func (h *QueryHandler) ClearCache(c *fiber.Ctx) error {
	if err := h.orch.ClearCache(c.Context()); err != nil {
		logger.Error("Failed to clear cache", zap.Error(err))
		return errorResponse(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
