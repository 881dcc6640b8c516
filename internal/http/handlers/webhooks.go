package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/wolfman30/botpe-relay/pkg/logging"
)

const defaultMaxWebhookBody = 1 << 20

// Submitter takes an acknowledged webhook body for asynchronous processing.
type Submitter interface {
	Submit(account string, body []byte)
}

// WebhookHandler serves the provider verification and delivery endpoints.
type WebhookHandler struct {
	submitter Submitter
	logger    *logging.Logger
	maxBody   int64
}

func NewWebhookHandler(submitter Submitter, logger *logging.Logger) *WebhookHandler {
	if submitter == nil {
		panic("handlers: webhook submitter required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{submitter: submitter, logger: logger, maxBody: defaultMaxWebhookBody}
}

// Verify echoes the provider's challenge. The parameter really is spelled "challange".
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	challenge := r.URL.Query().Get("challange")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if challenge == "" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, "No challange parameter")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, challenge)
}

// Receive acknowledges a delivery for account with 200 and hands it off.
func (h *WebhookHandler) Receive(account string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "OK")

		if !json.Valid(body) {
			h.logger.Warn("webhook body is not json", "account", account, "bytes", len(body))
			return
		}
		h.submitter.Submit(account, body)
	}
}
