package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/docintel/backend/internal/orchestrator"
	"github.com/docintel/backend/pkg/logger"
)

type TaskHandler struct {
	orch *orchestrator.Orchestrator
}

func NewTaskHandler(orch *orchestrator.Orchestrator) *TaskHandler {
	return &TaskHandler{
		orch: orch,
	}
}

func (h *TaskHandler) GetTask(c *fiber.Ctx) error {
	task, err := h.orch.GetTask(c.Context(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(task)
}

// WatchTask streams status updates for one task until it reaches a
// terminal state, then closes the connection.
func (h *TaskHandler) WatchTask(c *websocket.Conn) {
	taskID := c.Params("id")

	defer func() {
		c.Close()
		logger.Debug("Task watch closed", zap.String("task_id", taskID))
	}()

	ctx := context.Background()

	var lastStatus string
	for {
		task, err := h.orch.GetTask(ctx, taskID)
		if err != nil {
			c.WriteJSON(map[string]any{
				"type":  "error",
				"error": err.Error(),
			})
			return
		}

		if string(task.Status) != lastStatus {
			lastStatus = string(task.Status)
			if err := c.WriteJSON(task); err != nil {
				return
			}
		}

		if task.Status.Terminal() {
			return
		}

		time.Sleep(500 * time.Millisecond)
	}
}
