/*
Package events publishes notifications about committed ledger changes.

PURPOSE:
  Downstream consumers (dashboards, budget alerts, exports) want to know
  when a user's ledger changed without polling it. After a ledger write is
  durable, the ledger service publishes one Event describing it.

DELIVERY:
  Publishing happens after the write commits. A failed publish is logged
  by the caller and never rolls back or fails the request, so consumers
  must treat events as hints and re-read the ledger (the Version field
  tells them which document version the event describes).

IMPLEMENTATIONS:
  - AMQPPublisher: RabbitMQ topic exchange, routing key = event type
  - Nop:           Discards everything (events disabled)
  - Recorder:      Keeps events in memory (tests)

SEE ALSO:
  - ledger/service.go: Publishes after each committed mutation
  - amqp.go: RabbitMQ publisher
*/
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Type is the kind of change. It doubles as the AMQP routing key.
type Type string

const (
	LedgerProvisioned  Type = "ledger.provisioned"
	TransactionCreated Type = "transaction.created"
	TransactionUpdated Type = "transaction.updated"
	TransactionDeleted Type = "transaction.deleted"
)

// Event describes one committed ledger change.
type Event struct {
	Type          Type      `json:"type"`
	UserID        string    `json:"userId"`
	TransactionID string    `json:"transactionId,omitempty"`
	Year          string    `json:"year,omitempty"`
	Month         string    `json:"month,omitempty"`
	Moved         bool      `json:"moved,omitempty"`
	Version       int64     `json:"version"`
	Timestamp     time.Time `json:"timestamp"`
}

// ToJSON encodes the event as a message body.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON decodes a message body.
func FromJSON(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// =============================================================================
// NOP
// =============================================================================

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// =============================================================================
// RECORDER
// =============================================================================

// Recorder keeps published events in memory. Err, when set, is returned
// from every Publish after recording.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.Err
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
