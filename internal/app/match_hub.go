package app

import (
	"sync"

	"quizmatch-service/internal/domain"
)

// Event types pushed over subscriptions.
const (
	EventPaired    = "paired"
	EventState     = "state"
	EventCompleted = "completed"
)

// MatchEvent is one push notification about a match.
type MatchEvent struct {
	Type  string       `json:"type"`
	Match domain.Match `json:"match"`
}

// MatchTopic is the topic carrying state changes for one match.
func MatchTopic(matchID string) string {
	return "match:" + matchID
}

// UserTopic is the topic carrying pairing notifications for one user.
func UserTopic(userID string) string {
	return "user:" + userID
}

// MatchHub fans MatchEvents out to per-topic subscribers. It is the in-process
// push channel behind the websocket transport; queued players subscribe to
// their user topic, match participants to the match topic.
type MatchHub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan MatchEvent]struct{}
}

func NewMatchHub() *MatchHub {
	return &MatchHub{
		subscribers: make(map[string]map[chan MatchEvent]struct{}),
	}
}

// Subscribe returns a channel receiving events for the topic. The caller must
// invoke the returned cancel function to avoid leaks.
func (h *MatchHub) Subscribe(topic string) (<-chan MatchEvent, func()) {
	ch := make(chan MatchEvent, 8)

	h.mu.Lock()
	subs, ok := h.subscribers[topic]
	if !ok {
		subs = make(map[chan MatchEvent]struct{})
		h.subscribers[topic] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if subs, ok := h.subscribers[topic]; ok {
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(h.subscribers, topic)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber of the topic. Slow
// subscribers have their oldest pending event dropped rather than blocking
// the publisher; only the latest state matters to a renderer.
func (h *MatchHub) Publish(topic string, event MatchEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers[topic] {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}
