package handlers

import (
	"errors"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/shoutzor/backend/internal/core/services"
	"github.com/shoutzor/backend/internal/domain"
	"github.com/shoutzor/backend/internal/infrastructure/logger"
	"github.com/shoutzor/backend/internal/transport/http/dto"
)

type InstallHandler struct {
	workflow *services.InstallWorkflow
	logger   *logger.Logger
}

func NewInstallHandler(workflow *services.InstallWorkflow, logger *logger.Logger) *InstallHandler {
	return &InstallHandler{workflow: workflow, logger: logger}
}

func (h *InstallHandler) GetSteps(c *fiber.Ctx) error {
	return c.JSON(dto.StepsResponse{
		Installed: h.workflow.Installed(),
		Steps:     h.workflow.Steps(),
	})
}

func (h *InstallHandler) GetDBFields(c *fiber.Ctx) error {
	return c.JSON(dto.DBFieldsResponse{Fields: h.workflow.DBFields()})
}

func (h *InstallHandler) ConfigureSQL(c *fiber.Ctx) error {
	var req dto.ConfigureSQLRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("install_sql_body_parse_failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
		})
	}

	h.logger.Infow("install_sql_request", "dbtype", req.DBType, "host", req.Host)
	result := h.workflow.ConfigureSQL(c.UserContext(), req.ToSettings())
	return c.Status(resultStatus(result)).JSON(result)
}

func (h *InstallHandler) RunStep(c *fiber.Ctx) error {
	slug := c.Params("slug")
	h.logger.Infow("install_step_request", "slug", slug)

	result, err := h.workflow.RunStep(c.UserContext(), slug)
	if err != nil {
		status := fiber.StatusInternalServerError
		switch {
		case errors.Is(err, services.ErrStepNotFound):
			status = fiber.StatusNotFound
		case errors.Is(err, services.ErrInstallBusy):
			status = fiber.StatusConflict
		case errors.Is(err, services.ErrAlreadyInstalled):
			status = fiber.StatusForbidden
		}
		h.logger.Warnw("install_step_rejected", "slug", slug, "error", err)
		return c.Status(status).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.Status(resultStatus(result)).JSON(result)
}

// Stream pushes the step list to the client after every transition until the
// client goes away.
func (h *InstallHandler) Stream(c *websocket.Conn) {
	updates, cancel := h.workflow.Subscribe()
	defer cancel()

	if err := c.WriteJSON(h.workflow.Steps()); err != nil {
		return
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			h.logger.Debugw("install_stream_closed")
			return
		case steps, ok := <-updates:
			if !ok {
				return
			}
			if err := c.WriteJSON(steps); err != nil {
				h.logger.Warnw("install_stream_write_failed", "error", err)
				return
			}
		}
	}
}

// resultStatus maps a step result onto an HTTP status. Operational failures
// are still 200; the body carries success=false.
func resultStatus(result domain.InstallStepResult) int {
	if result.Success || result.Error == nil {
		return fiber.StatusOK
	}
	var verr *domain.FormValidationError
	switch {
	case errors.As(result.Error, &verr):
		return fiber.StatusUnprocessableEntity
	case errors.Is(result.Error, services.ErrInstallBusy):
		return fiber.StatusConflict
	case errors.Is(result.Error, services.ErrAlreadyInstalled):
		return fiber.StatusForbidden
	}
	return fiber.StatusOK
}
