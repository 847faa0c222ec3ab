package handlers

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/docintel/backend/internal/orchestrator"
	"github.com/docintel/backend/pkg/logger"
)

type DocumentHandler struct {
	orch *orchestrator.Orchestrator
}

func NewDocumentHandler(orch *orchestrator.Orchestrator) *DocumentHandler {
	return &DocumentHandler{
		orch: orch,
	}
}

func (h *DocumentHandler) readUpload(c *fiber.Ctx) (string, []byte, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return "", nil, fiber.NewError(fiber.StatusBadRequest, "A file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, err
	}

	return fileHeader.Filename, data, nil
}

func (h *DocumentHandler) Upload(c *fiber.Ctx) error {
	filename, data, err := h.readUpload(c)
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
		}
		logger.Error("Failed to read upload", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read uploaded file",
		})
	}

	result, err := h.orch.Ingest(c.Context(), filename, data)
	if err != nil {
		logger.Error("Upload failed",
			zap.String("filename", filename),
			zap.Error(err),
		)
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"doc_id":         result.DocID,
		"filename":       result.Filename,
		"file_type":      result.FileType,
		"pages":          result.Pages,
		"chunks_indexed": result.ChunksIndexed,
		"message":        "Document processed successfully",
	})
}

func (h *DocumentHandler) UploadAsync(c *fiber.Ctx) error {
	filename, data, err := h.readUpload(c)
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
		}
		logger.Error("Failed to read upload", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read uploaded file",
		})
	}

	taskID, err := h.orch.IngestAsync(c.Context(), filename, data)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"task_id":  taskID,
		"filename": filename,
		"status":   "pending",
		"message":  "Processing started, poll /api/tasks/" + taskID,
	})
}

func (h *DocumentHandler) ListDocuments(c *fiber.Ctx) error {
	docs, err := h.orch.ListDocuments(c.Context())
	if err != nil {
		logger.Error("Failed to list documents", zap.Error(err))
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"documents": docs,
		"total":     len(docs),
	})
}

func (h *DocumentHandler) DeleteDocument(c *fiber.Ctx) error {
	filename := c.Params("name")

	if err := h.orch.DeleteDocument(c.Context(), filename); err != nil {
		return errorResponse(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
