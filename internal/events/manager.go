package events

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// EventType represents different event types
type EventType string

const (
	InvestmentCreated  EventType = "INVESTMENT_CREATED"
	InvestmentUpdated  EventType = "INVESTMENT_UPDATED"
	InvestmentDeleted  EventType = "INVESTMENT_DELETED"
	TransactionAdded   EventType = "TRANSACTION_ADDED"
	TransactionDeleted EventType = "TRANSACTION_DELETED"
	PriceUpdated       EventType = "PRICE_UPDATED"
	InterestAccrued    EventType = "INTEREST_ACCRUED"
)

// Event is one notification addressed to a single owner
type Event struct {
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// Notifier is the change-notification port the mutation path calls after a
// successful persist. Emission is fire-and-forget: implementations never
// return an error and must not block the write path on delivery.
type Notifier interface {
	Emit(userID string, eventType EventType, payload interface{})
}

// Sink receives serialized events for delivery to one owner's channel.
// Delivery is best-effort.
type Sink interface {
	Send(userID string, data []byte)
}

// Manager fans events out to an optional sink and logs every emission
type Manager struct {
	sink Sink
	log  zerolog.Logger
}

// NewManager creates a new event manager. sink may be nil, in which case
// events are only logged.
func NewManager(sink Sink, log zerolog.Logger) *Manager {
	return &Manager{
		sink: sink,
		log:  log.With().Str("service", "events").Logger(),
	}
}

// Emit pushes an event to the owner's channel. Failures are logged and
// swallowed; a notification problem never unwinds the mutation that
// triggered it.
func (m *Manager) Emit(userID string, eventType EventType, payload interface{}) {
	event := Event{
		Type:      eventType,
		UserID:    userID,
		Timestamp: time.Now(),
		Payload:   payload,
	}

	data, err := json.Marshal(event)
	if err != nil {
		m.log.Error().Err(err).Str("event_type", string(eventType)).Msg("Failed to encode event")
		return
	}

	if m.sink != nil {
		m.sink.Send(userID, data)
	}

	m.log.Info().
		Str("event_type", string(eventType)).
		Str("user_id", userID).
		Msg("Event emitted")
}
