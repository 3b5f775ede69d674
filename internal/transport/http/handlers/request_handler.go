package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/shoutzor/backend/internal/core/services"
	"github.com/shoutzor/backend/internal/infrastructure/logger"
	"github.com/shoutzor/backend/internal/transport/http/dto"
)

type RequestHandler struct {
	provide AppProvider
	logger  *logger.Logger
}

func NewRequestHandler(provide AppProvider, logger *logger.Logger) *RequestHandler {
	return &RequestHandler{provide: provide, logger: logger}
}

func (h *RequestHandler) CreateRequest(c *fiber.Ctx) error {
	var req dto.CreateRequestRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("request_create_body_parse_failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
		})
	}
	if errs := req.Validate(); len(errs) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: errs,
		})
	}

	svc, err := h.provide(c.UserContext())
	if err != nil {
		return unavailable(c, h.logger, err)
	}

	request, err := svc.Requests.Request(c.UserContext(), req.MediaID, 0)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMediaNotFound):
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: err.Error()})
		case errors.Is(err, services.ErrRequestDuplicate):
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error()})
		}
		h.logger.Errorw("request_create_failed", "media_id", req.MediaID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(request)
}

func (h *RequestHandler) GetRequests(c *fiber.Ctx) error {
	svc, err := h.provide(c.UserContext())
	if err != nil {
		return unavailable(c, h.logger, err)
	}

	requests, err := svc.Requests.Queue(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		h.logger.Errorw("request_list_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.RequestListResponse{Requests: requests, Count: len(requests)})
}

// NextRequest pops the oldest pending request off the queue.
func (h *RequestHandler) NextRequest(c *fiber.Ctx) error {
	svc, err := h.provide(c.UserContext())
	if err != nil {
		return unavailable(c, h.logger, err)
	}

	request, err := svc.Requests.Next(c.UserContext())
	if err != nil {
		if errors.Is(err, services.ErrRequestQueueEmpty) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: err.Error()})
		}
		h.logger.Errorw("request_next_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(request)
}

func (h *RequestHandler) MarkPlayed(c *fiber.Ctx) error {
	svc, err := h.provide(c.UserContext())
	if err != nil {
		return unavailable(c, h.logger, err)
	}

	id := c.Params("id")
	if err := svc.Requests.MarkPlayed(c.UserContext(), id); err != nil {
		if errors.Is(err, services.ErrRequestNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: err.Error()})
		}
		h.logger.Errorw("request_mark_played_failed", "id", id, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
