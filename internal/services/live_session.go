package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/AbhigyanRaj/TruCare/internal/chat"
	"github.com/AbhigyanRaj/TruCare/internal/models"
)

// DefaultSessionDuration bounds a live chat session when no override is
// configured.
const DefaultSessionDuration = 45 * time.Minute

type SessionState string

const (
	SessionIdle   SessionState = "idle"
	SessionActive SessionState = "active"
	SessionEnding SessionState = "ending"
)

var ErrSessionAlreadyActive = errors.New("session already active for conversation")

type archiver interface {
	Archive(ctx context.Context, conversationID string) (*models.ChatReport, error)
}

type liveSession struct {
	conversationID string
	state          SessionState
	timer          *time.Timer
	sub            *chat.MessageSubscription
	startedAt      time.Time
}

// LiveSessionManager time-boxes open chat sessions. A session moves
// Idle -> Active on start, and back to Idle through one of three exits:
//   - timeout: the countdown fires, the window closes, nothing is archived;
//   - close: the participant dismisses the window, same outcome as timeout;
//   - end: an explicit "save and end" archives the transcript first.
//
// Every exit stops the countdown and releases the live message
// subscription, so no timer or listener outlives its window.
type LiveSessionManager struct {
	chatService *ChatService
	reports     archiver
	duration    time.Duration

	mu       sync.Mutex
	sessions map[string]*liveSession
}

func NewLiveSessionManager(
	chatService *ChatService,
	reports archiver,
	duration time.Duration,
) *LiveSessionManager {
	if duration <= 0 {
		duration = DefaultSessionDuration
	}
	return &LiveSessionManager{
		chatService: chatService,
		reports:     reports,
		duration:    duration,
		sessions:    make(map[string]*liveSession),
	}
}

// Start opens a live session for the conversation and begins the countdown.
func (m *LiveSessionManager) Start(ctx context.Context, actorID int64, role string, conversationID string) error {
	if role != models.RolePatient && role != models.RoleDoctor {
		return ErrForbidden
	}
	if _, err := m.chatService.conversations.GetByIDForParticipant(ctx, conversationID, actorID); err != nil {
		return err
	}

	m.mu.Lock()
	if existing, ok := m.sessions[conversationID]; ok && existing.state != SessionIdle {
		m.mu.Unlock()
		return ErrSessionAlreadyActive
	}

	session := &liveSession{
		conversationID: conversationID,
		state:          SessionActive,
		sub:            m.chatService.Broker().SubscribeMessages(conversationID),
		startedAt:      time.Now().UTC(),
	}
	session.timer = time.AfterFunc(m.duration, func() {
		m.expire(conversationID)
	})
	m.sessions[conversationID] = session
	m.mu.Unlock()

	if _, err := m.chatService.AppendSystemMessage(ctx, conversationID, "Session started"); err != nil {
		log.Printf("session: record start for %s: %v", conversationID, err)
	}
	return nil
}

// End is the explicit "save and end" path: archive the transcript, reset
// both unread counters, publish a cleared view, and return to Idle. Only
// the doctor ends a session.
func (m *LiveSessionManager) End(ctx context.Context, actorID int64, role string, conversationID string) (*models.ChatReport, error) {
	if role != models.RoleDoctor {
		return nil, ErrForbidden
	}
	if _, err := m.chatService.conversations.GetByIDForParticipant(ctx, conversationID, actorID); err != nil {
		return nil, err
	}

	m.mu.Lock()
	session, ok := m.sessions[conversationID]
	if !ok || session.state != SessionActive {
		m.mu.Unlock()
		return nil, ErrSessionNotActive
	}
	session.state = SessionEnding
	session.timer.Stop()
	m.mu.Unlock()

	report, err := m.reports.Archive(ctx, conversationID)
	if err != nil {
		// archival failed; the session stays live so the transcript is
		// not silently lost
		m.mu.Lock()
		if current, ok := m.sessions[conversationID]; ok && current == session {
			current.state = SessionActive
			current.timer = time.AfterFunc(m.remaining(current), func() {
				m.expire(conversationID)
			})
		}
		m.mu.Unlock()
		return nil, err
	}

	if err := m.chatService.conversations.ResetUnread(ctx, conversationID, models.RoleDoctor); err != nil {
		log.Printf("session: reset doctor unread for %s: %v", conversationID, err)
	}
	if err := m.chatService.conversations.ResetUnread(ctx, conversationID, models.RolePatient); err != nil {
		log.Printf("session: reset patient unread for %s: %v", conversationID, err)
	}
	m.chatService.publishCounts(ctx, conversationID)
	m.chatService.Broker().PublishMessages(conversationID, []models.ChatMessage{})

	m.mu.Lock()
	if current, ok := m.sessions[conversationID]; ok && current == session {
		session.sub.Unsubscribe()
		delete(m.sessions, conversationID)
	}
	m.mu.Unlock()

	return report, nil
}

// Close is the dismissal path: stop the countdown and release the
// subscription without archiving. Messages stay in the persistent log.
func (m *LiveSessionManager) Close(conversationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[conversationID]
	if !ok {
		return
	}
	session.timer.Stop()
	session.sub.Unsubscribe()
	delete(m.sessions, conversationID)
}

// State reports the lifecycle state for a conversation's session.
func (m *LiveSessionManager) State(conversationID string) SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[conversationID]
	if !ok {
		return SessionIdle
	}
	return session.state
}

func (m *LiveSessionManager) expire(conversationID string) {
	m.mu.Lock()
	session, ok := m.sessions[conversationID]
	if !ok || session.state != SessionActive {
		m.mu.Unlock()
		return
	}
	session.sub.Unsubscribe()
	delete(m.sessions, conversationID)
	m.mu.Unlock()
	log.Printf("session: conversation %s timed out after %s", conversationID, m.duration)
}

func (m *LiveSessionManager) remaining(session *liveSession) time.Duration {
	elapsed := time.Since(session.startedAt)
	if elapsed >= m.duration {
		return time.Millisecond
	}
	return m.duration - elapsed
}
