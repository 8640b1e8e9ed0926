package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/AbhigyanRaj/TruCare/internal/models"
	"github.com/AbhigyanRaj/TruCare/internal/repository"
)

var (
	ErrInvalidStatus          = errors.New("invalid status")
	ErrInvalidStateTransition = errors.New("invalid state transition")
)

type scheduledSessionStore interface {
	Create(ctx context.Context, input repository.CreateScheduledSessionInput) (*models.ScheduledSession, error)
	GetByID(ctx context.Context, id string) (*models.ScheduledSession, error)
	ListForParticipant(ctx context.Context, participantID int64, role string) ([]models.ScheduledSession, error)
	UpdateStatus(ctx context.Context, id string, status string) (*models.ScheduledSession, error)
}

type SessionService struct {
	sessions scheduledSessionStore
	users    userReader
}

func NewSessionService(sessions scheduledSessionStore, users userReader) *SessionService {
	return &SessionService{sessions: sessions, users: users}
}

type ScheduleSessionInput struct {
	DoctorID    int64
	ScheduledAt time.Time
}

// ScheduleSession books a future session with a doctor. Patient-initiated
// only; the doctor discovers it through their scheduled list.
func (s *SessionService) ScheduleSession(
	ctx context.Context,
	patientID int64,
	role string,
	input ScheduleSessionInput,
) (*models.ScheduledSession, error) {
	if role != models.RolePatient {
		return nil, ErrForbidden
	}
	if input.DoctorID <= 0 || input.DoctorID == patientID {
		return nil, ErrInvalidInput
	}
	if input.ScheduledAt.Before(time.Now().Add(-1 * time.Minute)) {
		return nil, ErrInvalidInput
	}

	doctor, err := s.users.GetByID(ctx, input.DoctorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}
	if doctor.Role != models.RoleDoctor {
		return nil, ErrInvalidInput
	}

	patient, err := s.users.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}

	return s.sessions.Create(ctx, repository.CreateScheduledSessionInput{
		ID:           uuid.NewString(),
		DoctorID:     doctor.ID,
		PatientID:    patient.ID,
		DoctorName:   senderDisplayName(doctor),
		PatientName:  senderDisplayName(patient),
		PatientEmail: patient.Email,
		PatientImage: patient.PhotoURL,
		ScheduledAt:  input.ScheduledAt.UTC(),
	})
}

func (s *SessionService) ListSessions(
	ctx context.Context,
	actorID int64,
	role string,
) ([]models.ScheduledSession, error) {
	if role != models.RolePatient && role != models.RoleDoctor {
		return nil, ErrForbidden
	}
	return s.sessions.ListForParticipant(ctx, actorID, role)
}

func (s *SessionService) GetSession(
	ctx context.Context,
	actorID int64,
	role string,
	sessionID string,
) (*models.ScheduledSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !canAccessSession(role, actorID, session) {
		return nil, ErrForbidden
	}
	return session, nil
}

// UpdateStatus moves a session to a terminal state. Either participant may
// cancel; only the doctor marks a session completed.
func (s *SessionService) UpdateStatus(
	ctx context.Context,
	actorID int64,
	role string,
	sessionID string,
	requestedStatus string,
) (*models.ScheduledSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !canAccessSession(role, actorID, session) {
		return nil, ErrForbidden
	}

	nextStatus, err := normalizeSessionStatus(requestedStatus)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionStatusScheduled {
		return nil, ErrInvalidStateTransition
	}
	if nextStatus == models.SessionStatusCompleted && role != models.RoleDoctor {
		return nil, ErrForbidden
	}

	return s.sessions.UpdateStatus(ctx, sessionID, nextStatus)
}

func canAccessSession(role string, actorID int64, session *models.ScheduledSession) bool {
	if role == models.RolePatient {
		return session.PatientID == actorID
	}
	if role == models.RoleDoctor {
		return session.DoctorID == actorID
	}
	return false
}

func normalizeSessionStatus(status string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "complete", "completed":
		return models.SessionStatusCompleted, nil
	case "cancel", "cancelled", "canceled":
		return models.SessionStatusCancelled, nil
	default:
		return "", ErrInvalidStatus
	}
}
