package outbox

import (
	"encoding/json"
	"time"

	"github.com/reseller-settlement/internal/domain/shared"
)

// Message is a settlement event written in the same transaction as the balances
// it describes, published later by the outbox poller
type Message struct {
	ID            int64               `json:"id"`
	EventType     shared.EventType    `json:"event_type"`
	AggregateID   string              `json:"aggregate_id"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

func NewMessage(eventType shared.EventType, aggregateID string, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Message{
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     raw,
		Status:      shared.OutboxStatusPending,
		Attempts:    0,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now().UTC()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	now := time.Now().UTC()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = shared.OutboxStatusFailedToPublish
	now := time.Now().UTC()
	m.LastAttemptAt = &now
}

// DecodePayload unmarshals the payload into v
func (m *Message) DecodePayload(v any) error {
	return json.Unmarshal(m.Payload, v)
}
