package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/AbhigyanRaj/TruCare/internal/models"
	"github.com/AbhigyanRaj/TruCare/internal/services"
)

type reportApplicationService interface {
	GetReport(ctx context.Context, actorID int64, role string, reportID string) (*models.ChatReport, error)
	ListReportsForPatient(ctx context.Context, actorID int64, role string, patientID int64) ([]models.ChatReport, error)
}

type ReportHandler struct {
	service reportApplicationService
}

func NewReportHandler(service reportApplicationService) *ReportHandler {
	return &ReportHandler{service: service}
}

func (h *ReportHandler) GetReport(c *fiber.Ctx) error {
	userID, role, ok := requireChatActor(c)
	if !ok {
		return nil
	}

	report, err := h.service.GetReport(c.Context(), userID, role, c.Params("id"))
	if err != nil {
		return mapReportError(c, err)
	}
	return c.JSON(fiber.Map{"report": report})
}

// ListPatientReports serves the archived-session history for one patient,
// newest first. Patients may only request their own.
func (h *ReportHandler) ListPatientReports(c *fiber.Ctx) error {
	userID, role, ok := requireChatActor(c)
	if !ok {
		return nil
	}

	patientID, err := strconv.ParseInt(c.Params("patientId"), 10, 64)
	if err != nil || patientID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid patient id"})
	}

	reports, err := h.service.ListReportsForPatient(c.Context(), userID, role, patientID)
	if err != nil {
		return mapReportError(c, err)
	}
	return c.JSON(fiber.Map{"reports": reports})
}

func mapReportError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Report not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process report request"})
	}
}
