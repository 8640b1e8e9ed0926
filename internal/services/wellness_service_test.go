package services

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/AbhigyanRaj/TruCare/internal/models"
)

type moodKey struct {
	userID   int64
	moodDate string
}

type memoryMoods struct {
	moods map[moodKey]*models.MoodEntry
}

func newMemoryMoods() *memoryMoods {
	return &memoryMoods{moods: make(map[moodKey]*models.MoodEntry)}
}

func (m *memoryMoods) Upsert(
	_ context.Context,
	userID int64,
	moodDate string,
	mood string,
) (*models.MoodEntry, error) {
	entry := &models.MoodEntry{UserID: userID, MoodDate: moodDate, Mood: mood, UpdatedAt: time.Now().UTC()}
	m.moods[moodKey{userID: userID, moodDate: moodDate}] = entry
	copied := *entry
	return &copied, nil
}

func (m *memoryMoods) ListForUser(_ context.Context, userID int64) ([]models.MoodEntry, error) {
	listed := make([]models.MoodEntry, 0)
	for _, entry := range m.moods {
		if entry.UserID == userID {
			listed = append(listed, *entry)
		}
	}
	sort.Slice(listed, func(i, j int) bool { return listed[i].MoodDate > listed[j].MoodDate })
	return listed, nil
}

type memoryAssessments struct {
	assessments []models.AssessmentResult
	nextID      int64
}

func (m *memoryAssessments) Create(
	_ context.Context,
	result *models.AssessmentResult,
) (*models.AssessmentResult, error) {
	m.nextID++
	stored := *result
	stored.ID = m.nextID
	stored.CreatedAt = time.Now().UTC()
	m.assessments = append(m.assessments, stored)
	copied := stored
	return &copied, nil
}

func (m *memoryAssessments) ListForUser(_ context.Context, userID int64) ([]models.AssessmentResult, error) {
	listed := make([]models.AssessmentResult, 0)
	for _, result := range m.assessments {
		if result.UserID == userID {
			listed = append(listed, result)
		}
	}
	return listed, nil
}

func newTestWellnessService() *WellnessService {
	return NewWellnessService(newMemoryMoods(), &memoryAssessments{})
}

func TestLogMoodUpsertsSameDay(t *testing.T) {
	service := newTestWellnessService()
	ctx := context.Background()

	if _, err := service.LogMood(ctx, 2, "Sad"); err != nil {
		t.Fatalf("first log: %v", err)
	}
	entry, err := service.LogMood(ctx, 2, "Happy")
	if err != nil {
		t.Fatalf("second log: %v", err)
	}
	if entry.Mood != "Happy" {
		t.Fatalf("expected Happy, got %s", entry.Mood)
	}

	history, err := service.MoodHistory(ctx, 2)
	if err != nil {
		t.Fatalf("MoodHistory: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("same-day log must replace, got %d entries", len(history))
	}
}

func TestLogMoodRejectsUnknownLabel(t *testing.T) {
	service := newTestWellnessService()

	if _, err := service.LogMood(context.Background(), 2, "Ecstatic"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestClassifySeverityBands(t *testing.T) {
	cases := []struct {
		name   string
		scores map[string]int
		want   string
	}{
		{"all low", map[string]int{CategoryEmotionalSymptoms: 10, CategoryFunctionalImpact: 5, CategorySelfInsight: 5}, SeverityNone},
		{"low band", map[string]int{CategoryEmotionalSymptoms: 16, CategoryFunctionalImpact: 4, CategorySelfInsight: 4}, SeverityLow},
		{"moderate via functional", map[string]int{CategoryEmotionalSymptoms: 10, CategoryFunctionalImpact: 13, CategorySelfInsight: 4}, SeverityModerate},
		{"high via insight", map[string]int{CategoryEmotionalSymptoms: 10, CategoryFunctionalImpact: 5, CategorySelfInsight: 17}, SeverityHigh},
		{"high trumps moderate", map[string]int{CategoryEmotionalSymptoms: 32, CategoryFunctionalImpact: 13, CategorySelfInsight: 4}, SeverityHigh},
	}
	for _, tc := range cases {
		if got := ClassifySeverity(tc.scores); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestSubmitAssessmentStoresSeverityAndTotal(t *testing.T) {
	service := newTestWellnessService()

	result, err := service.SubmitAssessment(context.Background(), 2, map[string]int{
		CategoryEmotionalSymptoms: 26,
		CategoryFunctionalImpact:  6,
		CategorySelfInsight:       7,
	})
	if err != nil {
		t.Fatalf("SubmitAssessment: %v", err)
	}
	if result.TotalScore != 39 {
		t.Fatalf("expected total 39, got %d", result.TotalScore)
	}
	if result.Severity != SeverityModerate {
		t.Fatalf("expected moderate, got %s", result.Severity)
	}
}

func TestSubmitAssessmentValidation(t *testing.T) {
	service := newTestWellnessService()
	ctx := context.Background()

	if _, err := service.SubmitAssessment(ctx, 2, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty scores: expected ErrInvalidInput, got %v", err)
	}
	if _, err := service.SubmitAssessment(ctx, 2, map[string]int{"vibes": 3}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown category: expected ErrInvalidInput, got %v", err)
	}
	if _, err := service.SubmitAssessment(ctx, 2, map[string]int{CategorySelfInsight: -1}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("negative score: expected ErrInvalidInput, got %v", err)
	}
}

func TestListAssessmentsScope(t *testing.T) {
	service := newTestWellnessService()
	ctx := context.Background()

	if _, err := service.SubmitAssessment(ctx, 2, map[string]int{CategorySelfInsight: 5}); err != nil {
		t.Fatalf("SubmitAssessment: %v", err)
	}

	if _, err := service.ListAssessments(ctx, 3, models.RolePatient, 2); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for foreign patient, got %v", err)
	}
	listed, err := service.ListAssessments(ctx, 1, models.RoleDoctor, 2)
	if err != nil {
		t.Fatalf("doctor list: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 assessment, got %d", len(listed))
	}
}
