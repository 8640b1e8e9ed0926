package chat

import (
	"sync"

	"github.com/AbhigyanRaj/TruCare/internal/models"
)

// Broker fans conversation updates out to live subscribers: full ordered
// message snapshots on every append, and unread counter pairs for roster
// badges. Subscriptions are independent; one open chat window or roster
// entry maps to one subscription, and each must be released through its
// Unsubscribe handle.
type Broker struct {
	mu          sync.Mutex
	messageSubs map[string]map[*MessageSubscription]struct{}
	countSubs   map[string]map[*CountSubscription]struct{}
}

// MessageSubscription delivers the conversation's full message list,
// ascending by timestamp, on every change. When a slow consumer falls
// behind, the stale snapshot is replaced by the newest one; snapshots are
// never delivered out of order.
type MessageSubscription struct {
	C chan []models.ChatMessage

	broker         *Broker
	conversationID string
	once           sync.Once
}

// CountSubscription delivers the unread counter pair whenever either side's
// counter changes.
type CountSubscription struct {
	C chan models.UnreadCounts

	broker         *Broker
	conversationID string
	once           sync.Once
}

func NewBroker() *Broker {
	return &Broker{
		messageSubs: make(map[string]map[*MessageSubscription]struct{}),
		countSubs:   make(map[string]map[*CountSubscription]struct{}),
	}
}

func (b *Broker) SubscribeMessages(conversationID string) *MessageSubscription {
	sub := &MessageSubscription{
		C:              make(chan []models.ChatMessage, 1),
		broker:         b,
		conversationID: conversationID,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.messageSubs[conversationID]
	if !ok {
		set = make(map[*MessageSubscription]struct{})
		b.messageSubs[conversationID] = set
	}
	set[sub] = struct{}{}
	return sub
}

func (b *Broker) SubscribeCounts(conversationID string) *CountSubscription {
	sub := &CountSubscription{
		C:              make(chan models.UnreadCounts, 1),
		broker:         b,
		conversationID: conversationID,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.countSubs[conversationID]
	if !ok {
		set = make(map[*CountSubscription]struct{})
		b.countSubs[conversationID] = set
	}
	set[sub] = struct{}{}
	return sub
}

// PublishMessages pushes a fresh ordered snapshot to every subscriber of
// the conversation.
func (b *Broker) PublishMessages(conversationID string, messages []models.ChatMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.messageSubs[conversationID] {
		replaceLatest(sub.C, messages)
	}
}

// PublishCounts pushes the current counter pair to every badge subscriber.
func (b *Broker) PublishCounts(counts models.UnreadCounts) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.countSubs[counts.ConversationID] {
		replaceLatest(sub.C, counts)
	}
}

// Unsubscribe detaches the subscription and closes its channel. Safe to
// call more than once.
func (s *MessageSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.broker.mu.Lock()
		defer s.broker.mu.Unlock()
		set := s.broker.messageSubs[s.conversationID]
		delete(set, s)
		if len(set) == 0 {
			delete(s.broker.messageSubs, s.conversationID)
		}
		close(s.C)
	})
}

func (s *CountSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.broker.mu.Lock()
		defer s.broker.mu.Unlock()
		set := s.broker.countSubs[s.conversationID]
		delete(set, s)
		if len(set) == 0 {
			delete(s.broker.countSubs, s.conversationID)
		}
		close(s.C)
	})
}

// replaceLatest delivers v without blocking: if the subscriber has not
// drained the previous value, it is superseded by the new one.
func replaceLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
