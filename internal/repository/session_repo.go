package repository

import (
	"context"
	"time"

	"github.com/AbhigyanRaj/TruCare/internal/models"
)

type CreateScheduledSessionInput struct {
	ID           string
	DoctorID     int64
	PatientID    int64
	DoctorName   string
	PatientName  string
	PatientEmail string
	PatientImage string
	ScheduledAt  time.Time
}

type ScheduledSessionRepository struct {
	db DBTX
}

func NewScheduledSessionRepository(db DBTX) *ScheduledSessionRepository {
	return &ScheduledSessionRepository{db: db}
}

func (r *ScheduledSessionRepository) Create(
	ctx context.Context,
	input CreateScheduledSessionInput,
) (*models.ScheduledSession, error) {
	query := `
		INSERT INTO scheduled_sessions
			(id, doctor_id, patient_id, doctor_name, patient_name, patient_email, patient_image, scheduled_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'scheduled')
		RETURNING id, doctor_id, patient_id, doctor_name, patient_name, patient_email, patient_image,
		          scheduled_at, status, created_at
	`
	var session models.ScheduledSession
	err := r.db.QueryRow(
		ctx,
		query,
		input.ID,
		input.DoctorID,
		input.PatientID,
		input.DoctorName,
		input.PatientName,
		input.PatientEmail,
		input.PatientImage,
		input.ScheduledAt,
	).Scan(
		&session.ID,
		&session.DoctorID,
		&session.PatientID,
		&session.DoctorName,
		&session.PatientName,
		&session.PatientEmail,
		&session.PatientImage,
		&session.ScheduledAt,
		&session.Status,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *ScheduledSessionRepository) GetByID(ctx context.Context, id string) (*models.ScheduledSession, error) {
	query := `
		SELECT id, doctor_id, patient_id, doctor_name, patient_name, patient_email, patient_image,
		       scheduled_at, status, created_at
		FROM scheduled_sessions
		WHERE id = $1
	`
	var session models.ScheduledSession
	err := r.db.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.DoctorID,
		&session.PatientID,
		&session.DoctorName,
		&session.PatientName,
		&session.PatientEmail,
		&session.PatientImage,
		&session.ScheduledAt,
		&session.Status,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *ScheduledSessionRepository) ListForParticipant(
	ctx context.Context,
	participantID int64,
	role string,
) ([]models.ScheduledSession, error) {
	column := "patient_id"
	if role == models.RoleDoctor {
		column = "doctor_id"
	}
	query := `
		SELECT id, doctor_id, patient_id, doctor_name, patient_name, patient_email, patient_image,
		       scheduled_at, status, created_at
		FROM scheduled_sessions
		WHERE ` + column + ` = $1
		ORDER BY scheduled_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.ScheduledSession, 0)
	for rows.Next() {
		var session models.ScheduledSession
		if err := rows.Scan(
			&session.ID,
			&session.DoctorID,
			&session.PatientID,
			&session.DoctorName,
			&session.PatientName,
			&session.PatientEmail,
			&session.PatientImage,
			&session.ScheduledAt,
			&session.Status,
			&session.CreatedAt,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// LatestForPair returns the most recently created non-cancelled session for
// a doctor/patient pair. Chat identity resolution prefers this session's id
// over the composite pair key.
func (r *ScheduledSessionRepository) LatestForPair(
	ctx context.Context,
	doctorID int64,
	patientID int64,
) (*models.ScheduledSession, error) {
	query := `
		SELECT id, doctor_id, patient_id, doctor_name, patient_name, patient_email, patient_image,
		       scheduled_at, status, created_at
		FROM scheduled_sessions
		WHERE doctor_id = $1 AND patient_id = $2 AND status <> 'cancelled'
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	var session models.ScheduledSession
	err := r.db.QueryRow(ctx, query, doctorID, patientID).Scan(
		&session.ID,
		&session.DoctorID,
		&session.PatientID,
		&session.DoctorName,
		&session.PatientName,
		&session.PatientEmail,
		&session.PatientImage,
		&session.ScheduledAt,
		&session.Status,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *ScheduledSessionRepository) UpdateStatus(
	ctx context.Context,
	id string,
	status string,
) (*models.ScheduledSession, error) {
	query := `
		UPDATE scheduled_sessions
		SET status = $2
		WHERE id = $1
		RETURNING id, doctor_id, patient_id, doctor_name, patient_name, patient_email, patient_image,
		          scheduled_at, status, created_at
	`
	var session models.ScheduledSession
	err := r.db.QueryRow(ctx, query, id, status).Scan(
		&session.ID,
		&session.DoctorID,
		&session.PatientID,
		&session.DoctorName,
		&session.PatientName,
		&session.PatientEmail,
		&session.PatientImage,
		&session.ScheduledAt,
		&session.Status,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}
