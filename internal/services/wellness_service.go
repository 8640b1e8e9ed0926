package services

import (
	"context"
	"time"

	"github.com/AbhigyanRaj/TruCare/internal/models"
)

// Mood labels offered by the dashboard tracker. Anything else is rejected.
var allowedMoods = map[string]struct{}{
	"Happy":   {},
	"Okay":    {},
	"Neutral": {},
	"Sad":     {},
	"Angry":   {},
}

// Self-assessment categories and the per-category scores that push the
// overall severity band up. The scoring is a plain threshold lookup so a
// clinician can audit it.
const (
	CategoryEmotionalSymptoms = "emotional_symptoms"
	CategoryFunctionalImpact  = "functional_impact"
	CategorySelfInsight       = "self_insight"
)

const (
	SeverityNone     = "none"
	SeverityLow      = "low"
	SeverityModerate = "moderate"
	SeverityHigh     = "high"
)

type severityRule struct {
	severity   string
	thresholds map[string]int
}

// Ordered most severe first; the first rule with any category at or above
// its threshold wins.
var severityRules = []severityRule{
	{
		severity: SeverityHigh,
		thresholds: map[string]int{
			CategoryEmotionalSymptoms: 31,
			CategoryFunctionalImpact:  16,
			CategorySelfInsight:       16,
		},
	},
	{
		severity: SeverityModerate,
		thresholds: map[string]int{
			CategoryEmotionalSymptoms: 25,
			CategoryFunctionalImpact:  12,
			CategorySelfInsight:       12,
		},
	},
	{
		severity: SeverityLow,
		thresholds: map[string]int{
			CategoryEmotionalSymptoms: 15,
			CategoryFunctionalImpact:  8,
			CategorySelfInsight:       8,
		},
	},
}

type moodStore interface {
	Upsert(ctx context.Context, userID int64, moodDate string, mood string) (*models.MoodEntry, error)
	ListForUser(ctx context.Context, userID int64) ([]models.MoodEntry, error)
}

type assessmentStore interface {
	Create(ctx context.Context, result *models.AssessmentResult) (*models.AssessmentResult, error)
	ListForUser(ctx context.Context, userID int64) ([]models.AssessmentResult, error)
}

type WellnessService struct {
	moods       moodStore
	assessments assessmentStore
	now         func() time.Time
}

func NewWellnessService(moods moodStore, assessments assessmentStore) *WellnessService {
	return &WellnessService{
		moods:       moods,
		assessments: assessments,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// LogMood records today's mood for the caller, replacing an earlier entry
// for the same day.
func (s *WellnessService) LogMood(ctx context.Context, userID int64, mood string) (*models.MoodEntry, error) {
	if _, ok := allowedMoods[mood]; !ok {
		return nil, ErrInvalidInput
	}
	moodDate := s.now().Format("2006-01-02")
	return s.moods.Upsert(ctx, userID, moodDate, mood)
}

func (s *WellnessService) MoodHistory(ctx context.Context, userID int64) ([]models.MoodEntry, error) {
	return s.moods.ListForUser(ctx, userID)
}

// SubmitAssessment stores the caller's per-category scores together with
// the derived severity band.
func (s *WellnessService) SubmitAssessment(
	ctx context.Context,
	userID int64,
	scores map[string]int,
) (*models.AssessmentResult, error) {
	if len(scores) == 0 {
		return nil, ErrInvalidInput
	}
	for category, score := range scores {
		if score < 0 {
			return nil, ErrInvalidInput
		}
		switch category {
		case CategoryEmotionalSymptoms, CategoryFunctionalImpact, CategorySelfInsight:
		default:
			return nil, ErrInvalidInput
		}
	}

	total := 0
	for _, score := range scores {
		total += score
	}

	return s.assessments.Create(ctx, &models.AssessmentResult{
		UserID:         userID,
		CategoryScores: scores,
		TotalScore:     total,
		Severity:       ClassifySeverity(scores),
	})
}

// ListAssessments returns a user's assessments newest first. Doctors may
// review any patient's history; patients only their own.
func (s *WellnessService) ListAssessments(
	ctx context.Context,
	actorID int64,
	role string,
	userID int64,
) ([]models.AssessmentResult, error) {
	switch role {
	case models.RoleDoctor:
	case models.RolePatient:
		if actorID != userID {
			return nil, ErrForbidden
		}
	default:
		return nil, ErrForbidden
	}
	return s.assessments.ListForUser(ctx, userID)
}

// ClassifySeverity maps category scores to a severity band.
func ClassifySeverity(scores map[string]int) string {
	for _, rule := range severityRules {
		for category, threshold := range rule.thresholds {
			if scores[category] >= threshold {
				return rule.severity
			}
		}
	}
	return SeverityNone
}
