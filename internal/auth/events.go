package auth

import (
	"time"

	"offerdesk/internal/models"
)

// EventType names a session transition
type EventType string

const (
	EventSignedIn  EventType = "signed_in"
	EventSignedOut EventType = "signed_out"
	EventRefreshed EventType = "refreshed"
	EventExpired   EventType = "expired"
)

// Event is published to subscribers whenever the session slot changes
type Event struct {
	Type EventType         `json:"type"`
	User models.GoogleUser `json:"user"`
	At   time.Time         `json:"at"`
}

const subscriberBuffer = 16

// Subscribe returns a channel of session events and a function that
// unregisters it. Slow subscribers drop events rather than block writers.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subscribers[id] = ch
	m.subMu.Unlock()

	cancel := func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		if sub, ok := m.subscribers[id]; ok {
			delete(m.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}

func (m *Manager) publish(eventType EventType, user models.GoogleUser) {
	event := Event{Type: eventType, User: user, At: m.now()}

	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
