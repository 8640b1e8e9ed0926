package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/AbhigyanRaj/TruCare/internal/chat"
	"github.com/AbhigyanRaj/TruCare/internal/models"
)

var (
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidInput     = errors.New("invalid input")
	ErrDoctorNotFound   = errors.New("doctor not found")
	ErrPatientNotFound  = errors.New("patient not found")
	ErrSessionNotActive = errors.New("no active session for conversation")
)

// ConversationStore is the adapter the chat core runs against. The pgx
// repository implements it in production; tests use an in-memory fake.
type ConversationStore interface {
	Ensure(ctx context.Context, id string, doctorID, patientID int64) error
	GetByID(ctx context.Context, id string) (*models.Conversation, error)
	GetByIDForParticipant(ctx context.Context, id string, participantID int64) (*models.Conversation, error)
	ListForParticipant(ctx context.Context, participantID int64) ([]models.Conversation, error)
	UpdateLastMessage(ctx context.Context, id string, body string, timestamp time.Time) error
	IncrementUnread(ctx context.Context, id string, viewerRole string) error
	ResetUnread(ctx context.Context, id string, viewerRole string) error
}

type MessageStore interface {
	Append(ctx context.Context, message *models.ChatMessage) (*models.ChatMessage, error)
	ListByConversation(ctx context.Context, conversationID string) ([]models.ChatMessage, error)
}

type sessionFinder interface {
	LatestForPair(ctx context.Context, doctorID, patientID int64) (*models.ScheduledSession, error)
}

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type ChatService struct {
	conversations ConversationStore
	messages      MessageStore
	sessions      sessionFinder
	users         userReader
	broker        *chat.Broker
}

func NewChatService(
	conversations ConversationStore,
	messages MessageStore,
	sessions sessionFinder,
	users userReader,
	broker *chat.Broker,
) *ChatService {
	return &ChatService{
		conversations: conversations,
		messages:      messages,
		sessions:      sessions,
		users:         users,
		broker:        broker,
	}
}

// ResolveConversationID computes the canonical id for a doctor/patient
// pair: the most recent non-cancelled scheduled session's id when one
// exists, otherwise the composite pair key with the doctor always first.
func (s *ChatService) ResolveConversationID(
	ctx context.Context,
	doctorID int64,
	patientID int64,
) (string, error) {
	if doctorID <= 0 || patientID <= 0 || doctorID == patientID {
		return "", ErrInvalidInput
	}

	session, err := s.sessions.LatestForPair(ctx, doctorID, patientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PairConversationID(doctorID, patientID), nil
		}
		return "", err
	}
	return session.ID, nil
}

// PairConversationID is the deterministic fallback id both parties compute
// independently.
func PairConversationID(doctorID, patientID int64) string {
	return fmt.Sprintf("%d_%d", doctorID, patientID)
}

// OpenConversation resolves the id, creates the conversation if it does not
// exist, zeroes the viewer's unread counter, and returns the ordered
// message log. Opening is idempotent for both parties.
func (s *ChatService) OpenConversation(
	ctx context.Context,
	actorID int64,
	role string,
	doctorID int64,
	patientID int64,
) (*models.Conversation, []models.ChatMessage, error) {
	if err := validateParticipant(actorID, role, doctorID, patientID); err != nil {
		return nil, nil, err
	}

	counterpartID := doctorID
	counterpartRole := models.RoleDoctor
	if role == models.RoleDoctor {
		counterpartID = patientID
		counterpartRole = models.RolePatient
	}
	counterpart, err := s.users.GetByID(ctx, counterpartID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, counterpartNotFound(role)
		}
		return nil, nil, err
	}
	if counterpart.Role != counterpartRole {
		return nil, nil, ErrInvalidInput
	}

	id, err := s.ResolveConversationID(ctx, doctorID, patientID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.conversations.Ensure(ctx, id, doctorID, patientID); err != nil {
		return nil, nil, err
	}
	// A failed reset only leaves a stale badge until the next read; the
	// open itself still succeeds with the message log.
	if err := s.MarkConversationRead(ctx, actorID, role, id); err != nil {
		log.Printf("chat: reset unread on open %s: %v", id, err)
	}

	conversation, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	messages, err := s.messages.ListByConversation(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return conversation, messages, nil
}

// SendMessage appends one immutable message and then updates the
// conversation's denormalized preview and the counterpart's unread counter.
// The metadata updates are best-effort: once the message row is written the
// send has succeeded, and a failed counter bump only means a stale badge
// until the next successful read.
func (s *ChatService) SendMessage(
	ctx context.Context,
	actorID int64,
	role string,
	conversationID string,
	body string,
) (*models.ChatMessage, error) {
	if role != models.RolePatient && role != models.RoleDoctor {
		return nil, ErrForbidden
	}
	trimmed := strings.TrimSpace(body)
	if conversationID == "" || trimmed == "" {
		return nil, ErrInvalidInput
	}

	conversation, err := s.conversations.GetByIDForParticipant(ctx, conversationID, actorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrForbidden
		}
		return nil, err
	}
	if !actorMatchesRole(actorID, role, conversation) {
		return nil, ErrForbidden
	}

	sender, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	message, err := s.messages.Append(ctx, &models.ChatMessage{
		ConversationID: conversationID,
		SenderID:       actorID,
		SenderRole:     role,
		SenderName:     senderDisplayName(sender),
		SenderImage:    sender.PhotoURL,
		Body:           trimmed,
	})
	if err != nil {
		return nil, err
	}

	s.finishDelivery(ctx, conversation, message, counterpartRole(role))
	return message, nil
}

// AppendSystemMessage records a lifecycle event ("Session started", ...) in
// the log. System messages belong to neither side, so no unread counter
// is bumped.
func (s *ChatService) AppendSystemMessage(
	ctx context.Context,
	conversationID string,
	body string,
) (*models.ChatMessage, error) {
	message, err := s.messages.Append(ctx, &models.ChatMessage{
		ConversationID: conversationID,
		SenderRole:     models.RoleSystem,
		Body:           body,
		System:         true,
	})
	if err != nil {
		return nil, err
	}

	if err := s.conversations.UpdateLastMessage(ctx, conversationID, message.Body, message.CreatedAt); err != nil {
		log.Printf("chat: update last message for %s: %v", conversationID, err)
	}
	s.publishMessages(ctx, conversationID)
	return message, nil
}

func (s *ChatService) ListMessages(
	ctx context.Context,
	actorID int64,
	role string,
	conversationID string,
) ([]models.ChatMessage, error) {
	if role != models.RolePatient && role != models.RoleDoctor {
		return nil, ErrForbidden
	}
	if _, err := s.conversations.GetByIDForParticipant(ctx, conversationID, actorID); err != nil {
		return nil, err
	}
	return s.messages.ListByConversation(ctx, conversationID)
}

func (s *ChatService) ListConversations(
	ctx context.Context,
	actorID int64,
	role string,
) ([]models.Conversation, error) {
	if role != models.RolePatient && role != models.RoleDoctor {
		return nil, ErrForbidden
	}
	return s.conversations.ListForParticipant(ctx, actorID)
}

// MarkConversationRead zeroes the caller's unread counter. Only the reader
// ever resets its own counter; the sender has no path to it.
func (s *ChatService) MarkConversationRead(
	ctx context.Context,
	actorID int64,
	role string,
	conversationID string,
) error {
	if role != models.RolePatient && role != models.RoleDoctor {
		return ErrForbidden
	}
	if err := s.conversations.ResetUnread(ctx, conversationID, role); err != nil {
		return err
	}
	s.publishCounts(ctx, conversationID)
	return nil
}

func (s *ChatService) Broker() *chat.Broker {
	return s.broker
}

func (s *ChatService) finishDelivery(
	ctx context.Context,
	conversation *models.Conversation,
	message *models.ChatMessage,
	recipientRole string,
) {
	if err := s.conversations.UpdateLastMessage(ctx, conversation.ID, message.Body, message.CreatedAt); err != nil {
		log.Printf("chat: update last message for %s: %v", conversation.ID, err)
	}
	if err := s.conversations.IncrementUnread(ctx, conversation.ID, recipientRole); err != nil {
		log.Printf("chat: increment unread for %s: %v", conversation.ID, err)
	}
	s.publishMessages(ctx, conversation.ID)
	s.publishCounts(ctx, conversation.ID)
}

func (s *ChatService) publishMessages(ctx context.Context, conversationID string) {
	if s.broker == nil {
		return
	}
	messages, err := s.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		log.Printf("chat: snapshot messages for %s: %v", conversationID, err)
		return
	}
	s.broker.PublishMessages(conversationID, messages)
}

func (s *ChatService) publishCounts(ctx context.Context, conversationID string) {
	if s.broker == nil {
		return
	}
	conversation, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		log.Printf("chat: load counts for %s: %v", conversationID, err)
		return
	}
	s.broker.PublishCounts(conversation.Counts())
}

func validateParticipant(actorID int64, role string, doctorID, patientID int64) error {
	if doctorID <= 0 || patientID <= 0 || doctorID == patientID {
		return ErrInvalidInput
	}
	switch role {
	case models.RoleDoctor:
		if actorID != doctorID {
			return ErrForbidden
		}
	case models.RolePatient:
		if actorID != patientID {
			return ErrForbidden
		}
	default:
		return ErrForbidden
	}
	return nil
}

func actorMatchesRole(actorID int64, role string, conversation *models.Conversation) bool {
	if role == models.RoleDoctor {
		return conversation.DoctorID == actorID
	}
	return conversation.PatientID == actorID
}

func counterpartRole(role string) string {
	if role == models.RoleDoctor {
		return models.RolePatient
	}
	return models.RoleDoctor
}

func counterpartNotFound(role string) error {
	if role == models.RoleDoctor {
		return ErrPatientNotFound
	}
	return ErrDoctorNotFound
}

func senderDisplayName(user *models.User) string {
	if user.DisplayName != "" {
		return user.DisplayName
	}
	return user.Email
}

// FormatChatTimestamp renders message timestamps for the wire.
func FormatChatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}
