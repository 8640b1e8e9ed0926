package chat

import (
	"sort"
	"sync"

	"github.com/AbhigyanRaj/TruCare/internal/models"
)

// CountWatcher maintains one unread-count subscription per conversation in
// a dashboard roster. SetRoster diffs the requested ids against the current
// set: new ids are subscribed, dropped ids are unsubscribed, unchanged ids
// keep their existing listener. Close tears everything down.
type CountWatcher struct {
	broker *Broker
	out    chan models.UnreadCounts

	mu     sync.Mutex
	subs   map[string]*CountSubscription
	wg     sync.WaitGroup
	closed bool
}

func NewCountWatcher(broker *Broker) *CountWatcher {
	return &CountWatcher{
		broker: broker,
		out:    make(chan models.UnreadCounts, 16),
		subs:   make(map[string]*CountSubscription),
	}
}

// Updates is the merged stream of counter changes across the whole roster.
func (w *CountWatcher) Updates() <-chan models.UnreadCounts {
	return w.out
}

func (w *CountWatcher) SetRoster(conversationIDs []string) {
	wanted := make(map[string]struct{}, len(conversationIDs))
	for _, id := range conversationIDs {
		wanted[id] = struct{}{}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	for id, sub := range w.subs {
		if _, keep := wanted[id]; !keep {
			sub.Unsubscribe()
			delete(w.subs, id)
		}
	}

	for id := range wanted {
		if _, exists := w.subs[id]; exists {
			continue
		}
		sub := w.broker.SubscribeCounts(id)
		w.subs[id] = sub
		w.wg.Add(1)
		go w.forward(sub)
	}
}

// WatchedIDs reports the currently subscribed conversation ids, sorted.
func (w *CountWatcher) WatchedIDs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]string, 0, len(w.subs))
	for id := range w.subs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (w *CountWatcher) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	for id, sub := range w.subs {
		sub.Unsubscribe()
		delete(w.subs, id)
	}
	w.mu.Unlock()

	w.wg.Wait()
	close(w.out)
}

func (w *CountWatcher) forward(sub *CountSubscription) {
	defer w.wg.Done()
	for counts := range sub.C {
		select {
		case w.out <- counts:
		default:
			// roster badge updates tolerate staleness; drop when the
			// consumer is behind rather than block the broker
		}
	}
}
