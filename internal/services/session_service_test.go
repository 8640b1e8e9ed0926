package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/AbhigyanRaj/TruCare/internal/models"
	"github.com/AbhigyanRaj/TruCare/internal/repository"
)

type memorySessions struct {
	sessions map[string]*models.ScheduledSession
	clock    time.Time
}

func newMemorySessions() *memorySessions {
	return &memorySessions{
		sessions: make(map[string]*models.ScheduledSession),
		clock:    time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (m *memorySessions) Create(
	_ context.Context,
	input repository.CreateScheduledSessionInput,
) (*models.ScheduledSession, error) {
	m.clock = m.clock.Add(time.Second)
	session := &models.ScheduledSession{
		ID:           input.ID,
		DoctorID:     input.DoctorID,
		PatientID:    input.PatientID,
		DoctorName:   input.DoctorName,
		PatientName:  input.PatientName,
		PatientEmail: input.PatientEmail,
		PatientImage: input.PatientImage,
		ScheduledAt:  input.ScheduledAt,
		Status:       models.SessionStatusScheduled,
		CreatedAt:    m.clock,
	}
	m.sessions[session.ID] = session
	copied := *session
	return &copied, nil
}

func (m *memorySessions) GetByID(_ context.Context, id string) (*models.ScheduledSession, error) {
	session, ok := m.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *session
	return &copied, nil
}

func (m *memorySessions) ListForParticipant(
	_ context.Context,
	participantID int64,
	role string,
) ([]models.ScheduledSession, error) {
	listed := make([]models.ScheduledSession, 0)
	for _, session := range m.sessions {
		if role == models.RoleDoctor && session.DoctorID == participantID {
			listed = append(listed, *session)
		}
		if role == models.RolePatient && session.PatientID == participantID {
			listed = append(listed, *session)
		}
	}
	return listed, nil
}

func (m *memorySessions) UpdateStatus(
	_ context.Context,
	id string,
	status string,
) (*models.ScheduledSession, error) {
	session, ok := m.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	session.Status = status
	copied := *session
	return &copied, nil
}

func futureTime() time.Time {
	return time.Now().Add(48 * time.Hour)
}

func TestScheduleSessionDenormalizesParticipants(t *testing.T) {
	store := newMemorySessions()
	service := NewSessionService(store, testUsers())

	session, err := service.ScheduleSession(context.Background(), 2, models.RolePatient, ScheduleSessionInput{
		DoctorID:    1,
		ScheduledAt: futureTime(),
	})
	if err != nil {
		t.Fatalf("ScheduleSession: %v", err)
	}
	if session.ID == "" {
		t.Fatal("expected a generated session id")
	}
	if session.DoctorName != "Dr. Mehta" || session.PatientName != "Riya" {
		t.Fatalf("names not denormalized: %+v", session)
	}
	if session.PatientEmail != "riya@example.com" {
		t.Fatalf("patient email not denormalized: %q", session.PatientEmail)
	}
	if session.Status != models.SessionStatusScheduled {
		t.Fatalf("expected scheduled, got %s", session.Status)
	}
}

func TestScheduleSessionIsPatientOnly(t *testing.T) {
	service := NewSessionService(newMemorySessions(), testUsers())

	_, err := service.ScheduleSession(context.Background(), 1, models.RoleDoctor, ScheduleSessionInput{
		DoctorID:    1,
		ScheduledAt: futureTime(),
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestScheduleSessionValidation(t *testing.T) {
	service := NewSessionService(newMemorySessions(), testUsers())
	ctx := context.Background()

	if _, err := service.ScheduleSession(ctx, 2, models.RolePatient, ScheduleSessionInput{
		DoctorID:    1,
		ScheduledAt: time.Now().Add(-2 * time.Hour),
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("past time: expected ErrInvalidInput, got %v", err)
	}

	if _, err := service.ScheduleSession(ctx, 2, models.RolePatient, ScheduleSessionInput{
		DoctorID:    99,
		ScheduledAt: futureTime(),
	}); !errors.Is(err, ErrDoctorNotFound) {
		t.Fatalf("unknown doctor: expected ErrDoctorNotFound, got %v", err)
	}

	// Booking with another patient's id as the "doctor" must fail.
	if _, err := service.ScheduleSession(ctx, 2, models.RolePatient, ScheduleSessionInput{
		DoctorID:    3,
		ScheduledAt: futureTime(),
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("patient as doctor: expected ErrInvalidInput, got %v", err)
	}
}

func TestGetSessionAccessControl(t *testing.T) {
	store := newMemorySessions()
	service := NewSessionService(store, testUsers())
	ctx := context.Background()

	session, err := service.ScheduleSession(ctx, 2, models.RolePatient, ScheduleSessionInput{
		DoctorID:    1,
		ScheduledAt: futureTime(),
	})
	if err != nil {
		t.Fatalf("ScheduleSession: %v", err)
	}

	if _, err := service.GetSession(ctx, 1, models.RoleDoctor, session.ID); err != nil {
		t.Fatalf("doctor read: %v", err)
	}
	if _, err := service.GetSession(ctx, 3, models.RolePatient, session.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	store := newMemorySessions()
	service := NewSessionService(store, testUsers())
	ctx := context.Background()

	session, err := service.ScheduleSession(ctx, 2, models.RolePatient, ScheduleSessionInput{
		DoctorID:    1,
		ScheduledAt: futureTime(),
	})
	if err != nil {
		t.Fatalf("ScheduleSession: %v", err)
	}

	// Completion is the doctor's call.
	if _, err := service.UpdateStatus(ctx, 2, models.RolePatient, session.ID, "completed"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("patient completing: expected ErrForbidden, got %v", err)
	}
	if _, err := service.UpdateStatus(ctx, 1, models.RoleDoctor, session.ID, "banana"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("unknown status: expected ErrInvalidStatus, got %v", err)
	}

	updated, err := service.UpdateStatus(ctx, 1, models.RoleDoctor, session.ID, "completed")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if updated.Status != models.SessionStatusCompleted {
		t.Fatalf("expected completed, got %s", updated.Status)
	}

	// Terminal states do not transition again.
	if _, err := service.UpdateStatus(ctx, 1, models.RoleDoctor, session.ID, "cancelled"); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
	}
}

func TestPatientMayCancel(t *testing.T) {
	store := newMemorySessions()
	service := NewSessionService(store, testUsers())
	ctx := context.Background()

	session, err := service.ScheduleSession(ctx, 2, models.RolePatient, ScheduleSessionInput{
		DoctorID:    1,
		ScheduledAt: futureTime(),
	})
	if err != nil {
		t.Fatalf("ScheduleSession: %v", err)
	}

	updated, err := service.UpdateStatus(ctx, 2, models.RolePatient, session.ID, "cancel")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if updated.Status != models.SessionStatusCancelled {
		t.Fatalf("expected cancelled, got %s", updated.Status)
	}
}
