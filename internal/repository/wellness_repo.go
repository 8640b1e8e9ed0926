package repository

import (
	"context"
	"encoding/json"

	"github.com/AbhigyanRaj/TruCare/internal/models"
)

type MoodRepository struct {
	db DBTX
}

func NewMoodRepository(db DBTX) *MoodRepository {
	return &MoodRepository{db: db}
}

// Upsert records the mood for one day; logging twice on the same day
// replaces the earlier label.
func (r *MoodRepository) Upsert(
	ctx context.Context,
	userID int64,
	moodDate string,
	mood string,
) (*models.MoodEntry, error) {
	query := `
		INSERT INTO moods (user_id, mood_date, mood)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, mood_date)
		DO UPDATE SET mood = EXCLUDED.mood, updated_at = NOW()
		RETURNING user_id, mood_date, mood, updated_at
	`
	var entry models.MoodEntry
	err := r.db.QueryRow(ctx, query, userID, moodDate, mood).Scan(
		&entry.UserID,
		&entry.MoodDate,
		&entry.Mood,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *MoodRepository) ListForUser(ctx context.Context, userID int64) ([]models.MoodEntry, error) {
	query := `
		SELECT user_id, mood_date, mood, updated_at
		FROM moods
		WHERE user_id = $1
		ORDER BY mood_date DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.MoodEntry, 0)
	for rows.Next() {
		var entry models.MoodEntry
		if err := rows.Scan(&entry.UserID, &entry.MoodDate, &entry.Mood, &entry.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

type AssessmentRepository struct {
	db DBTX
}

func NewAssessmentRepository(db DBTX) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

func (r *AssessmentRepository) Create(
	ctx context.Context,
	result *models.AssessmentResult,
) (*models.AssessmentResult, error) {
	encoded, err := json.Marshal(result.CategoryScores)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO assessments (user_id, category_scores, total_score, severity)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	stored := *result
	err = r.db.QueryRow(
		ctx,
		query,
		result.UserID,
		encoded,
		result.TotalScore,
		result.Severity,
	).Scan(&stored.ID, &stored.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *AssessmentRepository) ListForUser(
	ctx context.Context,
	userID int64,
) ([]models.AssessmentResult, error) {
	query := `
		SELECT id, user_id, category_scores, total_score, severity, created_at
		FROM assessments
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]models.AssessmentResult, 0)
	for rows.Next() {
		var result models.AssessmentResult
		var encoded []byte
		if err := rows.Scan(
			&result.ID,
			&result.UserID,
			&encoded,
			&result.TotalScore,
			&result.Severity,
			&result.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(encoded, &result.CategoryScores); err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}
