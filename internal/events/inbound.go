package events

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Kind classifies an inbound webhook item.
type Kind string

const (
	KindMessage     Kind = "message"
	KindStatus      Kind = "status"
	KindInteractive Kind = "interactive"
)

// Reply kinds carried by interactive items.
const (
	ReplyButton = "button_reply"
	ReplyList   = "list_reply"
)

// Reply is the selection a user made on an interactive prompt.
type Reply struct {
	Kind  string `json:"kind"`
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Coordinates is a shared location.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address,omitempty"`
}

// Inbound is one normalized webhook item, independent of the wire shape it arrived in.
type Inbound struct {
	// ID is the provider message id (the queue id for status items).
	ID          string `json:"id"`
	Account     string `json:"account"`
	From        string `json:"from"`
	To          string `json:"to"`
	Kind        Kind   `json:"kind"`
	Type        string `json:"type"`
	Timestamp   int64  `json:"timestamp"`
	ContactName string `json:"contact_name,omitempty"`

	Text         string       `json:"text,omitempty"`
	Reply        *Reply       `json:"reply,omitempty"`
	Location     *Coordinates `json:"location,omitempty"`
	Status       string       `json:"status,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`

	// Payload is the raw item as delivered.
	Payload json.RawMessage `json:"payload,omitempty"`
}

const inboundTypePrefix = "botpe.inbound."

// EventType is versioned per kind, e.g. botpe.inbound.message.v1.
func (e Inbound) EventType() string {
	kind := string(e.Kind)
	if kind == "" {
		kind = "unknown"
	}
	return inboundTypePrefix + kind + ".v1"
}

// Aggregate is the envelope aggregate for this event.
func (e Inbound) Aggregate() string {
	identity := e.From
	if e.Kind == KindStatus {
		identity = e.ID
	}
	return e.Account + ":" + identity
}

// secondsCutoff separates second precision from millisecond precision in numeric timestamps.
const secondsCutoff = 1_000_000_000_000

// NormalizeTimestamp converts a provider timestamp to epoch milliseconds.
// Strings are seconds, numbers below 1e12 are seconds, larger numbers are
// already milliseconds. Missing or unparseable values fall back to now.
func NormalizeTimestamp(raw json.RawMessage, now time.Time) int64 {
	fallback := now.UnixMilli()
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return fallback
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fallback
		}
		return parseTimestampString(s, fallback)
	}
	n, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	if n < secondsCutoff {
		return int64(n * 1000)
	}
	return int64(n)
}

func parseTimestampString(s string, fallback int64) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		if n <= 0 {
			return fallback
		}
		return int64(n * 1000)
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UnixMilli()
	}
	return fallback
}
