package repository

import (
	"context"
	"encoding/json"

	"github.com/AbhigyanRaj/TruCare/internal/models"
)

type ChatReportRepository struct {
	db DBTX
}

func NewChatReportRepository(db DBTX) *ChatReportRepository {
	return &ChatReportRepository{db: db}
}

// Create persists the report as a single row; the message snapshot travels
// as one JSONB value so the write is all-or-nothing.
func (r *ChatReportRepository) Create(
	ctx context.Context,
	report *models.ChatReport,
) (*models.ChatReport, error) {
	encoded, err := json.Marshal(report.Messages)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO chat_reports (id, doctor_id, patient_id, patient_name, patient_image, messages)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	stored := *report
	err = r.db.QueryRow(
		ctx,
		query,
		report.ID,
		report.DoctorID,
		report.PatientID,
		report.PatientName,
		report.PatientImage,
		encoded,
	).Scan(&stored.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *ChatReportRepository) GetByID(ctx context.Context, id string) (*models.ChatReport, error) {
	query := `
		SELECT id, doctor_id, patient_id, patient_name, patient_image, messages, created_at
		FROM chat_reports
		WHERE id = $1
	`
	return r.scanReport(r.db.QueryRow(ctx, query, id))
}

// ListForPatient returns every archived session for a patient, newest first.
func (r *ChatReportRepository) ListForPatient(
	ctx context.Context,
	patientID int64,
) ([]models.ChatReport, error) {
	query := `
		SELECT id, doctor_id, patient_id, patient_name, patient_image, messages, created_at
		FROM chat_reports
		WHERE patient_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := make([]models.ChatReport, 0)
	for rows.Next() {
		report, err := r.scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reports, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *ChatReportRepository) scanReport(row rowScanner) (*models.ChatReport, error) {
	var report models.ChatReport
	var encoded []byte
	if err := row.Scan(
		&report.ID,
		&report.DoctorID,
		&report.PatientID,
		&report.PatientName,
		&report.PatientImage,
		&encoded,
		&report.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(encoded, &report.Messages); err != nil {
		return nil, err
	}
	return &report, nil
}
