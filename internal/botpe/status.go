package botpe

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

type readReceipt struct {
	MessagingProduct string           `json:"messaging_product"`
	Status           string           `json:"status"`
	MessageID        string           `json:"message_id"`
	TypingIndicator  *typingIndicator `json:"typing_indicator,omitempty"`
}

type typingIndicator struct {
	Type string `json:"type"`
}

type typingState struct {
	MessagingProduct string `json:"messaging_product"`
	RecipientType    string `json:"recipient_type"`
	To               string `json:"to"`
	Typing           string `json:"typing"`
}

// MarkRead marks an inbound message as read.
func (c *Client) MarkRead(ctx context.Context, messageID string) (json.RawMessage, error) {
	if strings.TrimSpace(messageID) == "" {
		return nil, errors.New("botpe: message id is required")
	}
	return c.post(ctx, readReceipt{
		MessagingProduct: messagingProduct,
		Status:           "read",
		MessageID:        messageID,
	})
}

// SetTyping turns the typing indicator on or off for a recipient.
func (c *Client) SetTyping(ctx context.Context, to string, typing bool) (json.RawMessage, error) {
	if strings.TrimSpace(to) == "" {
		return nil, errors.New("botpe: recipient is required")
	}
	state := "off"
	if typing {
		state = "on"
	}
	return c.post(ctx, typingState{
		MessagingProduct: messagingProduct,
		RecipientType:    recipientType,
		To:               to,
		Typing:           state,
	})
}

// MarkReadAndType marks a message read and starts the typing indicator in one call.
func (c *Client) MarkReadAndType(ctx context.Context, messageID string) (json.RawMessage, error) {
	if strings.TrimSpace(messageID) == "" {
		return nil, errors.New("botpe: message id is required")
	}
	return c.post(ctx, readReceipt{
		MessagingProduct: messagingProduct,
		Status:           "read",
		MessageID:        messageID,
		TypingIndicator:  &typingIndicator{Type: "text"},
	})
}
