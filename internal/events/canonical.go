package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is anything the relay fans out to observers.
type Event interface {
	EventType() string
	Aggregate() string
}

// Envelope is the wire form observers receive: the live feed streams it and
// the SQS publisher sends it as the message body.
type Envelope struct {
	EventID   uuid.UUID `json:"event_id"`
	EventType string    `json:"event_type"`
	// Account is the account half of Aggregate, used for subscriber filtering.
	Account          string          `json:"account"`
	Aggregate        string          `json:"aggregate"`
	ReceivedAtMicros int64           `json:"received_at_us"`
	CorrelationID    string          `json:"correlation_id,omitempty"`
	Payload          json.RawMessage `json:"payload"`
}

// Option adjusts an envelope after it is built.
type Option func(*Envelope)

// WithEventID pins the event id; uuid.Nil is ignored.
func WithEventID(id uuid.UUID) Option {
	return func(e *Envelope) {
		if id != uuid.Nil {
			e.EventID = id
		}
	}
}

// ReceivedAt stamps the envelope with t instead of the current time.
func ReceivedAt(t time.Time) Option {
	return func(e *Envelope) {
		if !t.IsZero() {
			e.ReceivedAtMicros = t.UTC().UnixMicro()
		}
	}
}

// CorrelatedWith links the envelope to a provider message or queue id.
func CorrelatedWith(id string) Option {
	return func(e *Envelope) {
		e.CorrelationID = strings.TrimSpace(id)
	}
}

var (
	ErrNoAggregate = errors.New("events: aggregate is required")
	ErrNilEvent    = errors.New("events: event required")
	nowFunc        = time.Now
)

// Wrap builds the envelope for evt.
func Wrap(evt Event, opts ...Option) (Envelope, error) {
	if evt == nil {
		return Envelope{}, ErrNilEvent
	}
	aggregate := strings.TrimSpace(evt.Aggregate())
	if aggregate == "" || strings.HasPrefix(aggregate, ":") {
		return Envelope{}, ErrNoAggregate
	}
	eventType := strings.TrimSpace(evt.EventType())
	if eventType == "" {
		return Envelope{}, errors.New("events: event type missing")
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: marshal payload: %w", err)
	}
	account, _, _ := strings.Cut(aggregate, ":")
	env := Envelope{
		EventID:          uuid.New(),
		EventType:        eventType,
		Account:          account,
		Aggregate:        aggregate,
		ReceivedAtMicros: nowFunc().UTC().UnixMicro(),
		Payload:          payload,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&env)
		}
	}
	return env, nil
}

// Inbound decodes the payload of an envelope produced from an Inbound event.
func (e Envelope) Inbound() (Inbound, error) {
	if !strings.HasPrefix(e.EventType, inboundTypePrefix) {
		return Inbound{}, fmt.Errorf("events: %q is not an inbound event", e.EventType)
	}
	var evt Inbound
	if err := json.Unmarshal(e.Payload, &evt); err != nil {
		return Inbound{}, fmt.Errorf("events: decode inbound payload: %w", err)
	}
	return evt, nil
}
