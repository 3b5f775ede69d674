package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/shoutzor/backend/internal/core/services"
	"github.com/shoutzor/backend/internal/infrastructure/logger"
	"github.com/shoutzor/backend/internal/transport/http/dto"
)

// AppServices are the services that need a database, which only exists once
// shoutzor is installed.
type AppServices struct {
	Uploads  *services.UploadService
	Requests *services.RequestService
	Tasks    *services.TaskService
}

type AppProvider func(ctx context.Context) (*AppServices, error)

func unavailable(c *fiber.Ctx, log *logger.Logger, err error) error {
	log.Errorw("app_services_unavailable", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
		Error: "service unavailable",
	})
}
