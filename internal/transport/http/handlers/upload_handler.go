package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/shoutzor/backend/internal/core/services"
	"github.com/shoutzor/backend/internal/infrastructure/logger"
	"github.com/shoutzor/backend/internal/transport/http/dto"
)

type UploadHandler struct {
	provide AppProvider
	logger  *logger.Logger
}

func NewUploadHandler(provide AppProvider, logger *logger.Logger) *UploadHandler {
	return &UploadHandler{provide: provide, logger: logger}
}

func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("media")
	if err != nil {
		h.logger.Warnw("upload_missing_file", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "No file with name media uploaded",
		})
	}

	svc, err := h.provide(c.UserContext())
	if err != nil {
		return unavailable(c, h.logger, err)
	}

	src, err := file.Open()
	if err != nil {
		h.logger.Errorw("upload_open_failed", "filename", file.Filename, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: "failed to read uploaded file",
		})
	}
	defer src.Close()

	h.logger.Infow("upload_request", "filename", file.Filename, "size", file.Size)
	upload, task, err := svc.Uploads.Upload(c.UserContext(), file.Filename, src, 0)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUploadInvalidInput):
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
		case errors.Is(err, services.ErrUploadQueueFull), errors.Is(err, services.ErrUploadQueueClosed):
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Error: err.Error()})
		}
		h.logger.Errorw("upload_failed", "filename", file.Filename, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.Status(fiber.StatusAccepted).JSON(dto.UploadResponse{
		Message: "Upload queued for processing",
		TaskID:  task.ID,
		Upload:  upload,
	})
}

func (h *UploadHandler) GetUpload(c *fiber.Ctx) error {
	svc, err := h.provide(c.UserContext())
	if err != nil {
		return unavailable(c, h.logger, err)
	}

	upload, err := svc.Uploads.GetUpload(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, services.ErrUploadNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "upload not found"})
		}
		h.logger.Errorw("upload_get_failed", "id", c.Params("id"), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(upload)
}
