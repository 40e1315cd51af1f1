package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"gastos/internal/core"
)

// ProcessRecurringMessage asks the recurring worker to run the scheduler,
// either for one user or for everyone.
type ProcessRecurringMessage struct {
	UserID         string    `json:"user_id,omitempty"`
	AllUsers       bool      `json:"all_users,omitempty"`
	Today          core.Date `json:"today"` // zero means the consumer's current date
	LookbackMonths int       `json:"lookback_months"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewProcessUserMessage(userID string, lookback int) *ProcessRecurringMessage {
	return &ProcessRecurringMessage{UserID: userID, LookbackMonths: lookback, Timestamp: time.Now()}
}

func NewProcessAllMessage(lookback int) *ProcessRecurringMessage {
	return &ProcessRecurringMessage{AllUsers: true, LookbackMonths: lookback, Timestamp: time.Now()}
}

func (m *ProcessRecurringMessage) Validate() error {
	if (m.UserID == "") == !m.AllUsers {
		return errors.New("exactly one of user_id or all_users must be set")
	}
	if m.LookbackMonths < 0 {
		return errors.New("lookback_months cannot be negative")
	}
	return nil
}

func (m *ProcessRecurringMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ProcessRecurringMessageFromJSON(data []byte) (*ProcessRecurringMessage, error) {
	var msg ProcessRecurringMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Ledger event types.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// LedgerEventMessage notifies listeners that a ledger entry or payment
// changed. It carries identifiers only; consumers read the current state
// from the database.
type LedgerEventMessage struct {
	Type      string    `json:"type"`
	Entity    string    `json:"entity"` // expense, income or payment
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEventMessage(eventType, entity, id, userID string) *LedgerEventMessage {
	return &LedgerEventMessage{
		Type:      eventType,
		Entity:    entity,
		ID:        id,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
