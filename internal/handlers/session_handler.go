package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/AbhigyanRaj/TruCare/internal/models"
	"github.com/AbhigyanRaj/TruCare/internal/services"
)

type sessionApplicationService interface {
	ScheduleSession(ctx context.Context, patientID int64, role string, input services.ScheduleSessionInput) (*models.ScheduledSession, error)
	ListSessions(ctx context.Context, actorID int64, role string) ([]models.ScheduledSession, error)
	GetSession(ctx context.Context, actorID int64, role string, sessionID string) (*models.ScheduledSession, error)
	UpdateStatus(ctx context.Context, actorID int64, role string, sessionID string, requestedStatus string) (*models.ScheduledSession, error)
}

type SessionHandler struct {
	service sessionApplicationService
}

func NewSessionHandler(service sessionApplicationService) *SessionHandler {
	return &SessionHandler{service: service}
}

type scheduleSessionRequest struct {
	DoctorID    int64  `json:"doctor_id"`
	ScheduledAt string `json:"scheduled_at"`
}

type updateSessionRequest struct {
	Status string `json:"status"`
}

func (h *SessionHandler) ScheduleSession(c *fiber.Ctx) error {
	userID, role, ok := requireChatActor(c)
	if !ok {
		return nil
	}

	var req scheduleSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "scheduled_at must be an RFC 3339 timestamp"})
	}

	session, err := h.service.ScheduleSession(c.Context(), userID, role, services.ScheduleSessionInput{
		DoctorID:    req.DoctorID,
		ScheduledAt: scheduledAt,
	})
	if err != nil {
		return mapSessionError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) ListSessions(c *fiber.Ctx) error {
	userID, role, ok := requireChatActor(c)
	if !ok {
		return nil
	}

	sessions, err := h.service.ListSessions(c.Context(), userID, role)
	if err != nil {
		return mapSessionError(c, err)
	}
	return c.JSON(fiber.Map{"sessions": sessions})
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	userID, role, ok := requireChatActor(c)
	if !ok {
		return nil
	}

	session, err := h.service.GetSession(c.Context(), userID, role, c.Params("id"))
	if err != nil {
		return mapSessionError(c, err)
	}
	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) UpdateSession(c *fiber.Ctx) error {
	userID, role, ok := requireChatActor(c)
	if !ok {
		return nil
	}

	var req updateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	session, err := h.service.UpdateStatus(c.Context(), userID, role, c.Params("id"), req.Status)
	if err != nil {
		return mapSessionError(c, err)
	}
	return c.JSON(fiber.Map{"session": session})
}

func mapSessionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrInvalidStatus):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Session is no longer scheduled"})
	case errors.Is(err, services.ErrDoctorNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Doctor not found"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process session request"})
	}
}
