package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type submission struct {
	account string
	body    string
}

type recordingSubmitter struct {
	mu   sync.Mutex
	subs []submission
}

func (s *recordingSubmitter) Submit(account string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, submission{account: account, body: string(body)})
}

func TestWebhookVerify(t *testing.T) {
	h := NewWebhookHandler(&recordingSubmitter{}, nil)

	t.Run("echoes challenge", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Verify(rec, httptest.NewRequest(http.MethodGet, "/webhook?challange=abc123", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "abc123", rec.Body.String())
	})

	t.Run("standard spelling is not accepted", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Verify(rec, httptest.NewRequest(http.MethodGet, "/webhook?challenge=abc123", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "No challange parameter", rec.Body.String())
	})
}

func TestWebhookReceiveAcksAndSubmits(t *testing.T) {
	sub := &recordingSubmitter{}
	h := NewWebhookHandler(sub, nil)

	body := `{"event_type":"message","from":"919876543210","type":"text","text":{"body":"dr1"}}`
	rec := httptest.NewRecorder()
	h.Receive("secondary")(rec, httptest.NewRequest(http.MethodPost, "/webhook2", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	require.Len(t, sub.subs, 1)
	assert.Equal(t, submission{account: "secondary", body: body}, sub.subs[0])
}

func TestWebhookReceiveDropsNonJSON(t *testing.T) {
	sub := &recordingSubmitter{}
	h := NewWebhookHandler(sub, nil)

	rec := httptest.NewRecorder()
	h.Receive("primary")(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("hello")))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, sub.subs)
}

func TestWebhookReceiveRejectsOversizedBody(t *testing.T) {
	sub := &recordingSubmitter{}
	h := NewWebhookHandler(sub, nil)
	h.maxBody = 8

	rec := httptest.NewRecorder()
	h.Receive("primary")(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"entry":[1,2,3]}`)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, sub.subs)
}
