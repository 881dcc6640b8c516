package botpe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/botpe-relay/pkg/logging"
)

type capturedRequest struct {
	path  string
	auth  string
	ctype string
	body  map[string]any
}

func newTestServer(t *testing.T, status int, reply string, got *capturedRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		data, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		if got != nil {
			got.path = r.URL.Path
			got.auth = r.Header.Get("Authorization")
			got.ctype = r.Header.Get("Content-Type")
			got.body = nil
			_ = json.Unmarshal(data, &got.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client, err := New(Config{
		BaseURL:       server.URL + "/",
		Version:       "v1",
		PhoneNumberID: "1001",
		Token:         "secret",
		HTTPClient:    server.Client(),
	})
	require.NoError(t, err)
	return client
}

const queuedReply = `{"messaging_channel":"whatsapp","message":{"queue_id":"q-1","message_status":"queued"}}`

func TestNewValidation(t *testing.T) {
	_, err := New(Config{PhoneNumberID: "1", BaseURL: "http://x"})
	assert.Error(t, err)
	_, err = New(Config{Token: "t", BaseURL: "http://x"})
	assert.Error(t, err)
	_, err = New(Config{Token: "t", PhoneNumberID: "1"})
	assert.Error(t, err)

	client, err := New(Config{Token: "t", PhoneNumberID: "1", BaseURL: "http://x/", Version: "v2"})
	require.NoError(t, err)
	assert.Equal(t, "http://x/v2/1/messages", client.Endpoint())
	assert.Equal(t, defaultTimeout, client.httpClient.Timeout)
	assert.Equal(t, "1", client.PhoneNumberID())
}

func TestSendTextShapesRequest(t *testing.T) {
	var got capturedRequest
	server := newTestServer(t, http.StatusOK, queuedReply, &got)
	client := newTestClient(t, server)

	resp, err := client.SendText(context.Background(), "919999", "hello", true)
	require.NoError(t, err)
	assert.Equal(t, "q-1", resp.Message.QueueID)
	assert.Equal(t, "queued", resp.Message.MessageStatus)

	assert.Equal(t, "/v1/1001/messages", got.path)
	assert.Equal(t, "Bearer secret", got.auth)
	assert.Equal(t, "application/json", got.ctype)
	assert.Equal(t, "whatsapp", got.body["messaging_product"])
	assert.Equal(t, "individual", got.body["recipient_type"])
	assert.Equal(t, "919999", got.body["to"])
	assert.Equal(t, "text", got.body["type"])
	text := got.body["text"].(map[string]any)
	assert.Equal(t, "hello", text["body"])
	assert.Equal(t, true, text["preview_url"])
}

func TestSendMessageAPIError(t *testing.T) {
	server := newTestServer(t, http.StatusBadRequest, `{"error":"bad recipient"}`, nil)
	client := newTestClient(t, server)

	_, err := client.SendText(context.Background(), "919999", "hello", false)
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, `API Error: 400 - {"error":"bad recipient"}`, err.Error())
}

func TestSendMessageLogsAPIErrorsThroughComponentLogger(t *testing.T) {
	server := newTestServer(t, http.StatusBadRequest, `{"error":"bad recipient"}`, nil)
	var buf bytes.Buffer
	base := &logging.Logger{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}
	client, err := New(Config{
		BaseURL:       server.URL,
		PhoneNumberID: "1001",
		Token:         "secret",
		HTTPClient:    server.Client(),
		Logger:        base.Component("botpe.primary"),
	})
	require.NoError(t, err)

	_, err = client.SendText(context.Background(), "919999", "hello", false)
	require.Error(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "botpe api error", entry["msg"])
	assert.Equal(t, "botpe.primary", entry["component"])
	assert.Equal(t, float64(http.StatusBadRequest), entry["status"])
}

func TestSendMessageRequiresRecipient(t *testing.T) {
	server := newTestServer(t, http.StatusOK, queuedReply, nil)
	client := newTestClient(t, server)

	_, err := client.SendText(context.Background(), " ", "hello", false)
	assert.Error(t, err)
}

func TestSendMessageDecodeError(t *testing.T) {
	server := newTestServer(t, http.StatusOK, `not json`, nil)
	client := newTestClient(t, server)

	_, err := client.SendText(context.Background(), "1", "hello", false)
	assert.ErrorContains(t, err, "decode message response")
}

func TestMarkReadAndTyping(t *testing.T) {
	var got capturedRequest
	server := newTestServer(t, http.StatusOK, `{"success":true}`, &got)
	client := newTestClient(t, server)
	ctx := context.Background()

	raw, err := client.MarkRead(ctx, "wamid.1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true}`, string(raw))
	assert.Equal(t, map[string]any{
		"messaging_product": "whatsapp",
		"status":            "read",
		"message_id":        "wamid.1",
	}, got.body)

	_, err = client.SetTyping(ctx, "919999", true)
	require.NoError(t, err)
	assert.Equal(t, "on", got.body["typing"])
	assert.Equal(t, "individual", got.body["recipient_type"])

	_, err = client.SetTyping(ctx, "919999", false)
	require.NoError(t, err)
	assert.Equal(t, "off", got.body["typing"])

	_, err = client.MarkReadAndType(ctx, "wamid.2")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"type": "text"}, got.body["typing_indicator"])
	assert.Equal(t, "read", got.body["status"])

	_, err = client.MarkRead(ctx, "")
	assert.Error(t, err)
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", Clip("short", 10))
	assert.Equal(t, "abc…", Clip("abcdefgh", 4))
	assert.Equal(t, "नमस्…", Clip("नमस्ते दुनिया", 5))
	assert.Equal(t, "", Clip("abc", 0))
	assert.Equal(t, "a", Clip("abc", 1))
}
