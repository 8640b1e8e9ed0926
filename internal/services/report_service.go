package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/AbhigyanRaj/TruCare/internal/models"
)

// ReportStore persists archived transcripts. Reports are written once and
// never updated.
type ReportStore interface {
	Create(ctx context.Context, report *models.ChatReport) (*models.ChatReport, error)
	GetByID(ctx context.Context, id string) (*models.ChatReport, error)
	ListForPatient(ctx context.Context, patientID int64) ([]models.ChatReport, error)
}

type ReportService struct {
	reports       ReportStore
	conversations ConversationStore
	messages      MessageStore
	users         userReader
}

func NewReportService(
	reports ReportStore,
	conversations ConversationStore,
	messages MessageStore,
	users userReader,
) *ReportService {
	return &ReportService{
		reports:       reports,
		conversations: conversations,
		messages:      messages,
		users:         users,
	}
}

// Archive snapshots the conversation's full ordered message list into one
// immutable report row. The live log is copied, not moved; appends after
// archival never reach the stored report.
func (s *ReportService) Archive(ctx context.Context, conversationID string) (*models.ChatReport, error) {
	conversation, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	messages, err := s.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	report := &models.ChatReport{
		ID:        uuid.NewString(),
		DoctorID:  conversation.DoctorID,
		PatientID: conversation.PatientID,
		Messages:  messages,
	}

	patient, err := s.users.GetByID(ctx, conversation.PatientID)
	if err == nil {
		report.PatientName = senderDisplayName(patient)
		report.PatientImage = patient.PhotoURL
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	return s.reports.Create(ctx, report)
}

func (s *ReportService) GetReport(
	ctx context.Context,
	actorID int64,
	role string,
	reportID string,
) (*models.ChatReport, error) {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !canReadReport(actorID, role, report) {
		return nil, ErrForbidden
	}
	return report, nil
}

// ListReportsForPatient returns the patient's archived sessions newest
// first. Doctors browse any patient's history; a patient only their own.
func (s *ReportService) ListReportsForPatient(
	ctx context.Context,
	actorID int64,
	role string,
	patientID int64,
) ([]models.ChatReport, error) {
	switch role {
	case models.RoleDoctor:
	case models.RolePatient:
		if actorID != patientID {
			return nil, ErrForbidden
		}
	default:
		return nil, ErrForbidden
	}
	return s.reports.ListForPatient(ctx, patientID)
}

func canReadReport(actorID int64, role string, report *models.ChatReport) bool {
	if role == models.RoleDoctor {
		return report.DoctorID == actorID
	}
	if role == models.RolePatient {
		return report.PatientID == actorID
	}
	return false
}
