package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/AbhigyanRaj/TruCare/internal/models"
	"github.com/AbhigyanRaj/TruCare/internal/services"
)

type wellnessApplicationService interface {
	LogMood(ctx context.Context, userID int64, mood string) (*models.MoodEntry, error)
	MoodHistory(ctx context.Context, userID int64) ([]models.MoodEntry, error)
	SubmitAssessment(ctx context.Context, userID int64, scores map[string]int) (*models.AssessmentResult, error)
	ListAssessments(ctx context.Context, actorID int64, role string, userID int64) ([]models.AssessmentResult, error)
}

type WellnessHandler struct {
	service wellnessApplicationService
}

func NewWellnessHandler(service wellnessApplicationService) *WellnessHandler {
	return &WellnessHandler{service: service}
}

type logMoodRequest struct {
	Mood string `json:"mood"`
}

type submitAssessmentRequest struct {
	Scores map[string]int `json:"scores"`
}

func (h *WellnessHandler) LogMood(c *fiber.Ctx) error {
	userID, _, ok := requireChatActor(c)
	if !ok {
		return nil
	}

	var req logMoodRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	entry, err := h.service.LogMood(c.Context(), userID, req.Mood)
	if err != nil {
		return mapWellnessError(c, err)
	}
	return c.JSON(fiber.Map{"mood": entry})
}

func (h *WellnessHandler) MoodHistory(c *fiber.Ctx) error {
	userID, _, ok := requireChatActor(c)
	if !ok {
		return nil
	}

	entries, err := h.service.MoodHistory(c.Context(), userID)
	if err != nil {
		return mapWellnessError(c, err)
	}
	return c.JSON(fiber.Map{"moods": entries})
}

func (h *WellnessHandler) SubmitAssessment(c *fiber.Ctx) error {
	userID, _, ok := requireChatActor(c)
	if !ok {
		return nil
	}

	var req submitAssessmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	result, err := h.service.SubmitAssessment(c.Context(), userID, req.Scores)
	if err != nil {
		return mapWellnessError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"assessment": result})
}

func (h *WellnessHandler) ListAssessments(c *fiber.Ctx) error {
	actorID, role, ok := requireChatActor(c)
	if !ok {
		return nil
	}

	userID, err := strconv.ParseInt(c.Params("userId"), 10, 64)
	if err != nil || userID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user id"})
	}

	results, err := h.service.ListAssessments(c.Context(), actorID, role, userID)
	if err != nil {
		return mapWellnessError(c, err)
	}
	return c.JSON(fiber.Map{"assessments": results})
}

func mapWellnessError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process wellness request"})
	}
}
