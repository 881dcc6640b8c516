// Package messaging persists inbound webhook items: messages, status
// transitions and interactive responses. Every call inserts a new row.
package messaging

import (
	"context"
	"encoding/json"
	"time"
)

// IncomingMessage is a message received from a user.
type IncomingMessage struct {
	QueueID   string
	From      string
	To        string
	Type      string
	Content   json.RawMessage
	Timestamp int64
	AccountID string
}

// StatusUpdate is one delivery status transition for an outbound message.
type StatusUpdate struct {
	QueueID      string
	Status       string
	Timestamp    int64
	ErrorMessage string
}

// InteractiveResponse is a button or list selection.
type InteractiveResponse struct {
	QueueID       string
	UserNumber    string
	ResponseType  string
	ResponseID    string
	ResponseTitle string
	ResponseData  json.RawMessage
	Timestamp     int64
}

type StoredMessage struct {
	ID        int64           `json:"id"`
	QueueID   string          `json:"queue_id,omitempty"`
	From      string          `json:"from_number"`
	To        string          `json:"to_number"`
	Type      string          `json:"message_type"`
	Content   json.RawMessage `json:"content"`
	Timestamp int64           `json:"timestamp"`
	AccountID string          `json:"account_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type StoredStatus struct {
	ID           int64     `json:"id"`
	QueueID      string    `json:"queue_id"`
	Status       string    `json:"status"`
	Timestamp    int64     `json:"timestamp"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type StoredInteraction struct {
	ID            int64           `json:"id"`
	QueueID       string          `json:"queue_id,omitempty"`
	UserNumber    string          `json:"user_number"`
	ResponseType  string          `json:"response_type"`
	ResponseID    string          `json:"response_id,omitempty"`
	ResponseTitle string          `json:"response_title,omitempty"`
	ResponseData  json.RawMessage `json:"response_data"`
	Timestamp     int64           `json:"timestamp"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Stats counts rows per table.
type Stats struct {
	TotalMessages     int64 `json:"totalMessages"`
	TotalStatuses     int64 `json:"totalStatuses"`
	TotalInteractions int64 `json:"totalInteractions"`
}

// Sink is the write side used by the webhook router.
type Sink interface {
	SaveIncomingMessage(ctx context.Context, msg IncomingMessage) (int64, error)
	UpdateMessageStatus(ctx context.Context, status StatusUpdate) (int64, error)
	SaveInteractiveResponse(ctx context.Context, resp InteractiveResponse) (int64, error)
}

// Reader is the query side used by the introspection endpoints.
type Reader interface {
	GetAllMessages(ctx context.Context, limit int) ([]StoredMessage, error)
	GetMessageHistory(ctx context.Context, phone string, limit int) ([]StoredMessage, error)
	GetMessageStatusHistory(ctx context.Context, queueID string) ([]StoredStatus, error)
	GetUserInteractions(ctx context.Context, userNumber string, limit int) ([]StoredInteraction, error)
	GetStats(ctx context.Context) (Stats, error)
}

// Repository is both sides.
type Repository interface {
	Sink
	Reader
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// ClampLimit applies the default and upper bound to a requested page size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

func jsonOrNull(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}
