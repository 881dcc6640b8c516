// Package relay fans canonical inbound events out to live websocket
// subscribers and to an SQS queue.
package relay

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/wolfman30/botpe-relay/internal/events"
	"github.com/wolfman30/botpe-relay/internal/observability/metrics"
	"github.com/wolfman30/botpe-relay/pkg/logging"
	"golang.org/x/net/websocket"
)

const defaultClientBuffer = 32

// Hub streams events to connected websocket clients. A client may filter by
// account with ?account=<id>. Slow clients miss events rather than block delivery.
type Hub struct {
	logger  *logging.Logger
	metrics *metrics.RelayMetrics
	buffer  int

	mu      sync.RWMutex
	clients map[*subscriber]struct{}
}

type subscriber struct {
	account string
	send    chan events.Envelope
}

// control is what clients may send; only ping is understood.
type control struct {
	Type string `json:"type"`
}

func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{
		logger:  logger,
		buffer:  defaultClientBuffer,
		clients: make(map[*subscriber]struct{}),
	}
}

func (h *Hub) WithMetrics(m *metrics.RelayMetrics) *Hub {
	h.metrics = m
	return h
}

// HandleWebSocket upgrades the request and streams events until the client disconnects.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Hub) serveWS(conn *websocket.Conn, r *http.Request) {
	sub := &subscriber{
		account: strings.TrimSpace(r.URL.Query().Get("account")),
		send:    make(chan events.Envelope, h.buffer),
	}
	h.mu.Lock()
	h.clients[sub] = struct{}{}
	h.mu.Unlock()

	done := make(chan struct{})
	defer func() {
		h.mu.Lock()
		delete(h.clients, sub)
		h.mu.Unlock()
		close(done)
	}()
	h.logger.Info("relay: subscriber connected", "account", sub.account)

	go func() {
		for {
			select {
			case <-done:
				return
			case env := <-sub.send:
				if err := websocket.JSON.Send(conn, env); err != nil {
					h.logger.Debug("relay: send failed", "error", err)
					return
				}
			}
		}
	}()

	for {
		var msg control
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("relay: subscriber disconnected", "account", sub.account, "error", err)
			return
		}
		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, control{Type: "pong"})
		}
	}
}

// Observe delivers env to every matching subscriber without blocking.
func (h *Hub) Observe(_ context.Context, env events.Envelope) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.clients {
		if sub.account != "" && sub.account != env.Account {
			continue
		}
		select {
		case sub.send <- env:
		default:
			h.metrics.ObserveDropped("slow_subscriber")
		}
	}
	return nil
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
