package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/AbhigyanRaj/TruCare/internal/chat"
	"github.com/AbhigyanRaj/TruCare/internal/models"
)

// memoryStore backs ConversationStore and MessageStore together so tests
// exercise the same data the way the database would hold it.
type memoryStore struct {
	mu            sync.Mutex
	conversations map[string]*models.Conversation
	messages      map[string][]models.ChatMessage
	nextMessageID int64
	clock         time.Time
	frozen        bool

	failIncrement  bool
	failUpdateLast bool
	failReset      bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		conversations: make(map[string]*models.Conversation),
		messages:      make(map[string][]models.ChatMessage),
		clock:         time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (s *memoryStore) tick() time.Time {
	if !s.frozen {
		s.clock = s.clock.Add(time.Second)
	}
	return s.clock
}

func (s *memoryStore) Ensure(_ context.Context, id string, doctorID, patientID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[id]; ok {
		return nil
	}
	s.conversations[id] = &models.Conversation{
		ID:        id,
		DoctorID:  doctorID,
		PatientID: patientID,
		CreatedAt: s.tick(),
	}
	return nil
}

func (s *memoryStore) GetByID(_ context.Context, id string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conversation, ok := s.conversations[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *conversation
	return &copied, nil
}

func (s *memoryStore) GetByIDForParticipant(
	_ context.Context,
	id string,
	participantID int64,
) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conversation, ok := s.conversations[id]
	if !ok || (conversation.DoctorID != participantID && conversation.PatientID != participantID) {
		return nil, pgx.ErrNoRows
	}
	copied := *conversation
	return &copied, nil
}

func (s *memoryStore) ListForParticipant(
	_ context.Context,
	participantID int64,
) ([]models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	listed := make([]models.Conversation, 0)
	for _, conversation := range s.conversations {
		if conversation.DoctorID == participantID || conversation.PatientID == participantID {
			listed = append(listed, *conversation)
		}
	}
	sort.Slice(listed, func(i, j int) bool {
		return activityTime(listed[i]).After(activityTime(listed[j]))
	})
	return listed, nil
}

func activityTime(c models.Conversation) time.Time {
	if c.LastTimestamp != nil {
		return *c.LastTimestamp
	}
	return c.CreatedAt
}

func (s *memoryStore) UpdateLastMessage(
	_ context.Context,
	id string,
	body string,
	timestamp time.Time,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdateLast {
		return pgx.ErrTxClosed
	}
	conversation, ok := s.conversations[id]
	if !ok {
		return pgx.ErrNoRows
	}
	conversation.LastMessage = body
	ts := timestamp
	conversation.LastTimestamp = &ts
	return nil
}

func (s *memoryStore) IncrementUnread(_ context.Context, id string, viewerRole string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failIncrement {
		return pgx.ErrTxClosed
	}
	conversation, ok := s.conversations[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if viewerRole == models.RoleDoctor {
		conversation.UnreadCountDoctor++
	} else {
		conversation.UnreadCountPatient++
	}
	return nil
}

func (s *memoryStore) ResetUnread(_ context.Context, id string, viewerRole string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReset {
		return pgx.ErrTxClosed
	}
	conversation, ok := s.conversations[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if viewerRole == models.RoleDoctor {
		conversation.UnreadCountDoctor = 0
	} else {
		conversation.UnreadCountPatient = 0
	}
	return nil
}

func (s *memoryStore) Append(
	_ context.Context,
	message *models.ChatMessage,
) (*models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMessageID++
	stored := *message
	stored.ID = s.nextMessageID
	stored.CreatedAt = s.tick()
	s.messages[message.ConversationID] = append(s.messages[message.ConversationID], stored)
	copied := stored
	return &copied, nil
}

func (s *memoryStore) ListByConversation(
	_ context.Context,
	conversationID string,
) ([]models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.messages[conversationID]
	listed := make([]models.ChatMessage, len(stored))
	copy(listed, stored)
	sort.SliceStable(listed, func(i, j int) bool {
		if listed[i].CreatedAt.Equal(listed[j].CreatedAt) {
			return listed[i].ID < listed[j].ID
		}
		return listed[i].CreatedAt.Before(listed[j].CreatedAt)
	})
	return listed, nil
}

type fakeUsers struct {
	users map[int64]*models.User
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

type fakeSessions struct {
	latest *models.ScheduledSession
}

func (f *fakeSessions) LatestForPair(
	_ context.Context,
	doctorID, patientID int64,
) (*models.ScheduledSession, error) {
	if f.latest == nil || f.latest.DoctorID != doctorID || f.latest.PatientID != patientID {
		return nil, pgx.ErrNoRows
	}
	copied := *f.latest
	return &copied, nil
}

func testUsers() *fakeUsers {
	return &fakeUsers{users: map[int64]*models.User{
		1: {ID: 1, Email: "dr.mehta@trucare.app", Role: models.RoleDoctor, DisplayName: "Dr. Mehta", PhotoURL: "https://cdn.trucare.app/dr-mehta.png"},
		2: {ID: 2, Email: "riya@example.com", Role: models.RolePatient, DisplayName: "Riya", PhotoURL: ""},
		3: {ID: 3, Email: "arjun@example.com", Role: models.RolePatient, DisplayName: "Arjun"},
	}}
}

func newTestChatService(store *memoryStore, sessions *fakeSessions) *ChatService {
	if sessions == nil {
		sessions = &fakeSessions{}
	}
	return NewChatService(store, store, sessions, testUsers(), chat.NewBroker())
}
