package chat

import (
	"testing"
	"time"

	"github.com/AbhigyanRaj/TruCare/internal/models"
)

func receiveMessages(t *testing.T, sub *MessageSubscription) []models.ChatMessage {
	t.Helper()
	select {
	case snapshot := <-sub.C:
		return snapshot
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
		return nil
	}
}

func TestPublishMessagesReachesAllSubscribers(t *testing.T) {
	broker := NewBroker()
	first := broker.SubscribeMessages("1_2")
	defer first.Unsubscribe()
	second := broker.SubscribeMessages("1_2")
	defer second.Unsubscribe()
	other := broker.SubscribeCounts("1_2")
	defer other.Unsubscribe()

	broker.PublishMessages("1_2", []models.ChatMessage{{ID: 1, Body: "hi"}})

	for _, sub := range []*MessageSubscription{first, second} {
		snapshot := receiveMessages(t, sub)
		if len(snapshot) != 1 || snapshot[0].Body != "hi" {
			t.Fatalf("unexpected snapshot: %+v", snapshot)
		}
	}
}

func TestPublishMessagesIsScopedByConversation(t *testing.T) {
	broker := NewBroker()
	sub := broker.SubscribeMessages("1_2")
	defer sub.Unsubscribe()

	broker.PublishMessages("3_4", []models.ChatMessage{{ID: 9}})

	select {
	case snapshot := <-sub.C:
		t.Fatalf("received another conversation's snapshot: %+v", snapshot)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSlowSubscriberKeepsOnlyLatestSnapshot(t *testing.T) {
	broker := NewBroker()
	sub := broker.SubscribeMessages("1_2")
	defer sub.Unsubscribe()

	broker.PublishMessages("1_2", []models.ChatMessage{{ID: 1}})
	broker.PublishMessages("1_2", []models.ChatMessage{{ID: 1}, {ID: 2}})
	broker.PublishMessages("1_2", []models.ChatMessage{{ID: 1}, {ID: 2}, {ID: 3}})

	snapshot := receiveMessages(t, sub)
	if len(snapshot) != 3 {
		t.Fatalf("expected the latest snapshot, got %d messages", len(snapshot))
	}
}

func TestUnsubscribeClosesChannelAndIsIdempotent(t *testing.T) {
	broker := NewBroker()
	sub := broker.SubscribeMessages("1_2")

	sub.Unsubscribe()
	sub.Unsubscribe()

	if _, open := <-sub.C; open {
		t.Fatal("channel must be closed after unsubscribe")
	}

	// Publishing after unsubscribe must not panic on the closed channel.
	broker.PublishMessages("1_2", []models.ChatMessage{{ID: 1}})
}

func TestPublishCounts(t *testing.T) {
	broker := NewBroker()
	sub := broker.SubscribeCounts("1_2")
	defer sub.Unsubscribe()

	broker.PublishCounts(models.UnreadCounts{ConversationID: "1_2", Doctor: 2, Patient: 0})

	select {
	case counts := <-sub.C:
		if counts.Doctor != 2 || counts.ConversationID != "1_2" {
			t.Fatalf("unexpected counts: %+v", counts)
		}
	case <-time.After(time.Second):
		t.Fatal("no counts delivered")
	}
}
