package models

import "time"

// MoodEntry records one mood label per user per day.
type MoodEntry struct {
	UserID    int64     `json:"user_id"`
	MoodDate  string    `json:"mood_date"`
	Mood      string    `json:"mood"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AssessmentResult stores a submitted self-assessment: per-category scores
// plus the severity band derived from the configured thresholds.
type AssessmentResult struct {
	ID             int64          `json:"id"`
	UserID         int64          `json:"user_id"`
	CategoryScores map[string]int `json:"category_scores"`
	TotalScore     int            `json:"total_score"`
	Severity       string         `json:"severity"`
	CreatedAt      time.Time      `json:"created_at"`
}
