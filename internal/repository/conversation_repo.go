package repository

import (
	"context"
	"time"

	"github.com/AbhigyanRaj/TruCare/internal/models"
)

type ConversationRepository struct {
	db DBTX
}

func NewConversationRepository(db DBTX) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Ensure creates the conversation record if it does not exist yet. The
// insert is a no-op on conflict so repeated opens never disturb an existing
// conversation's metadata or created_at.
func (r *ConversationRepository) Ensure(
	ctx context.Context,
	id string,
	doctorID int64,
	patientID int64,
) error {
	query := `
		INSERT INTO conversations (id, doctor_id, patient_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, id, doctorID, patientID)
	return err
}

func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	query := `
		SELECT id, doctor_id, patient_id, last_message, last_timestamp,
		       unread_count_doctor, unread_count_patient, created_at
		FROM conversations
		WHERE id = $1
	`
	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, id).Scan(
		&conversation.ID,
		&conversation.DoctorID,
		&conversation.PatientID,
		&conversation.LastMessage,
		&conversation.LastTimestamp,
		&conversation.UnreadCountDoctor,
		&conversation.UnreadCountPatient,
		&conversation.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *ConversationRepository) GetByIDForParticipant(
	ctx context.Context,
	id string,
	participantID int64,
) (*models.Conversation, error) {
	query := `
		SELECT id, doctor_id, patient_id, last_message, last_timestamp,
		       unread_count_doctor, unread_count_patient, created_at
		FROM conversations
		WHERE id = $1 AND (doctor_id = $2 OR patient_id = $2)
	`
	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, id, participantID).Scan(
		&conversation.ID,
		&conversation.DoctorID,
		&conversation.PatientID,
		&conversation.LastMessage,
		&conversation.LastTimestamp,
		&conversation.UnreadCountDoctor,
		&conversation.UnreadCountPatient,
		&conversation.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *ConversationRepository) ListForParticipant(
	ctx context.Context,
	participantID int64,
) ([]models.Conversation, error) {
	query := `
		SELECT id, doctor_id, patient_id, last_message, last_timestamp,
		       unread_count_doctor, unread_count_patient, created_at
		FROM conversations
		WHERE doctor_id = $1 OR patient_id = $1
		ORDER BY COALESCE(last_timestamp, created_at) DESC, id ASC
	`
	rows, err := r.db.Query(ctx, query, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conversations := make([]models.Conversation, 0)
	for rows.Next() {
		var conversation models.Conversation
		if err := rows.Scan(
			&conversation.ID,
			&conversation.DoctorID,
			&conversation.PatientID,
			&conversation.LastMessage,
			&conversation.LastTimestamp,
			&conversation.UnreadCountDoctor,
			&conversation.UnreadCountPatient,
			&conversation.CreatedAt,
		); err != nil {
			return nil, err
		}
		conversations = append(conversations, conversation)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return conversations, nil
}

// UpdateLastMessage refreshes the denormalized list-preview fields. Callers
// treat a failure here as non-fatal; the message row is the source of truth.
func (r *ConversationRepository) UpdateLastMessage(
	ctx context.Context,
	id string,
	body string,
	timestamp time.Time,
) error {
	_, err := r.db.Exec(ctx, `
		UPDATE conversations
		SET last_message = $2, last_timestamp = $3
		WHERE id = $1
	`, id, body, timestamp)
	return err
}

// IncrementUnread bumps the counterpart's counter by one. The update is a
// server-side delta, never a read-modify-write, so concurrent sends from
// either device cannot lose increments.
func (r *ConversationRepository) IncrementUnread(
	ctx context.Context,
	id string,
	viewerRole string,
) error {
	column := "unread_count_patient"
	if viewerRole == models.RoleDoctor {
		column = "unread_count_doctor"
	}
	_, err := r.db.Exec(ctx, `
		UPDATE conversations
		SET `+column+` = `+column+` + 1
		WHERE id = $1
	`, id)
	return err
}

// ResetUnread zeroes the viewer's own counter and leaves the counterpart's
// untouched.
func (r *ConversationRepository) ResetUnread(
	ctx context.Context,
	id string,
	viewerRole string,
) error {
	column := "unread_count_patient"
	if viewerRole == models.RoleDoctor {
		column = "unread_count_doctor"
	}
	_, err := r.db.Exec(ctx, `
		UPDATE conversations
		SET `+column+` = 0
		WHERE id = $1
	`, id)
	return err
}
