// Package botpe is a client for the BotPe WhatsApp Business messaging API.
package botpe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/botpe-relay/pkg/logging"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "botpe-relay/0.1"
	messagingProduct = "whatsapp"
	recipientType    = "individual"
)

// Config controls how the client reaches one BotPe account.
type Config struct {
	BaseURL       string
	Version       string
	PhoneNumberID string
	Token         string
	Timeout       time.Duration
	HTTPClient    *http.Client
	Logger        *logging.Logger
	UserAgent     string
}

// Client sends messages on behalf of a single business phone number.
type Client struct {
	baseURL       string
	phoneNumberID string
	token         string
	httpClient    *http.Client
	logger        *logging.Logger
	userAgent     string
}

// APIError is returned when BotPe answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API Error: %d - %s", e.StatusCode, e.Body)
}

// New creates a configured Client. Requests are never retried.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("botpe: token is required")
	}
	if strings.TrimSpace(cfg.PhoneNumberID) == "" {
		return nil, errors.New("botpe: phone number id is required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("botpe: base url is required")
	}
	if v := strings.Trim(strings.TrimSpace(cfg.Version), "/"); v != "" {
		base = base + "/" + v
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		baseURL:       base + "/" + cfg.PhoneNumberID,
		phoneNumberID: cfg.PhoneNumberID,
		token:         cfg.Token,
		httpClient:    httpClient,
		logger:        logger,
		userAgent:     userAgent,
	}, nil
}

// PhoneNumberID returns the business number this client sends from.
func (c *Client) PhoneNumberID() string {
	return c.phoneNumberID
}

// Endpoint returns the full messages URL, mostly for diagnostics.
func (c *Client) Endpoint() string {
	return c.baseURL + "/messages"
}

// SendMessage posts a fully shaped message request.
func (c *Client) SendMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	if strings.TrimSpace(req.To) == "" {
		return nil, errors.New("botpe: recipient is required")
	}
	if req.Type == "" {
		return nil, errors.New("botpe: message type is required")
	}
	req.MessagingProduct = messagingProduct
	if req.RecipientType == "" {
		req.RecipientType = recipientType
	}
	data, err := c.post(ctx, req)
	if err != nil {
		return nil, err
	}
	var resp MessageResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("botpe: decode message response: %w", err)
	}
	c.logger.Debug("botpe message sent",
		"to", req.To,
		"type", req.Type,
		"queue_id", resp.Message.QueueID,
		"status", resp.Message.MessageStatus,
	)
	return &resp, nil
}

func (c *Client) post(ctx context.Context, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("botpe: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("botpe: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("botpe: send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("botpe: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
		c.logger.Warn("botpe api error", "status", resp.StatusCode, "phone_number_id", c.phoneNumberID)
		return nil, apiErr
	}
	return data, nil
}
