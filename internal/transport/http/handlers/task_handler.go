package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shoutzor/backend/internal/infrastructure/logger"
	"github.com/shoutzor/backend/internal/transport/http/dto"
)

type TaskHandler struct {
	provide AppProvider
	logger  *logger.Logger
}

func NewTaskHandler(provide AppProvider, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{provide: provide, logger: logger}
}

func (h *TaskHandler) GetTaskStatus(c *fiber.Ctx) error {
	svc, err := h.provide(c.UserContext())
	if err != nil {
		return unavailable(c, h.logger, err)
	}

	task, err := svc.Tasks.GetTask(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: "task not found",
		})
	}
	return c.JSON(task)
}
