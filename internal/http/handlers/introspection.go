package handlers

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/botpe-relay/internal/archive"
	"github.com/wolfman30/botpe-relay/internal/bookings"
	"github.com/wolfman30/botpe-relay/internal/messaging"
	"github.com/wolfman30/botpe-relay/pkg/logging"
)

// CheckFunc reports whether a dependency is reachable.
type CheckFunc func(ctx context.Context) error

type appointmentLister interface {
	ListForPatient(ctx context.Context, identity string, limit int) ([]bookings.Appointment, error)
}

type archiveFetcher interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

type IntrospectionConfig struct {
	Reader       messaging.Reader
	Appointments appointmentLister
	Archive      archiveFetcher
	Submitter    Submitter
	Checks       map[string]CheckFunc
	Logger       *logging.Logger
	StartedAt    time.Time
	CheckTimeout time.Duration
}

// IntrospectionHandler serves health, stats and the read-only history endpoints.
type IntrospectionHandler struct {
	reader       messaging.Reader
	appointments appointmentLister
	archive      archiveFetcher
	submitter    Submitter
	checks       map[string]CheckFunc
	logger       *logging.Logger
	startedAt    time.Time
	checkTimeout time.Duration
	now          func() time.Time
}

func NewIntrospectionHandler(cfg IntrospectionConfig) *IntrospectionHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.StartedAt.IsZero() {
		cfg.StartedAt = time.Now()
	}
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = 2 * time.Second
	}
	return &IntrospectionHandler{
		reader:       cfg.Reader,
		appointments: cfg.Appointments,
		archive:      cfg.Archive,
		submitter:    cfg.Submitter,
		checks:       cfg.Checks,
		logger:       cfg.Logger,
		startedAt:    cfg.StartedAt,
		checkTimeout: cfg.CheckTimeout,
		now:          time.Now,
	}
}

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Uptime    float64           `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Health always answers 200; a failing dependency marks the status degraded.
func (h *IntrospectionHandler) Health(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	resp := healthResponse{
		Status:    "ok",
		Timestamp: now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Uptime:    now.Sub(h.startedAt).Seconds(),
	}
	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
		names := make([]string, 0, len(h.checks))
		for name := range h.checks {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			ctx, cancel := context.WithTimeout(r.Context(), h.checkTimeout)
			err := h.checks[name](ctx)
			cancel()
			if err != nil {
				h.logger.Warn("health check failed", "check", name, "error", err)
				resp.Checks[name] = "error"
				resp.Status = "degraded"
				continue
			}
			resp.Checks[name] = "ok"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *IntrospectionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if !h.requireReader(w) {
		return
	}
	stats, err := h.reader.GetStats(r.Context())
	if err != nil {
		h.logger.Error("get stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *IntrospectionHandler) Messages(w http.ResponseWriter, r *http.Request) {
	if !h.requireReader(w) {
		return
	}
	msgs, err := h.reader.GetAllMessages(r.Context(), parseLimit(r))
	if err != nil {
		h.logger.Error("get messages failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get messages")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(msgs))
}

func (h *IntrospectionHandler) MessageHistory(w http.ResponseWriter, r *http.Request) {
	if !h.requireReader(w) {
		return
	}
	phone := strings.TrimSpace(chi.URLParam(r, "phone"))
	msgs, err := h.reader.GetMessageHistory(r.Context(), phone, parseLimit(r))
	if err != nil {
		h.logger.Error("get message history failed", "error", err, "phone", phone)
		writeError(w, http.StatusInternalServerError, "Failed to get messages")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(msgs))
}

func (h *IntrospectionHandler) StatusHistory(w http.ResponseWriter, r *http.Request) {
	if !h.requireReader(w) {
		return
	}
	queueID := strings.TrimSpace(chi.URLParam(r, "queueID"))
	statuses, err := h.reader.GetMessageStatusHistory(r.Context(), queueID)
	if err != nil {
		h.logger.Error("get status history failed", "error", err, "queue_id", queueID)
		writeError(w, http.StatusInternalServerError, "Failed to get statuses")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(statuses))
}

func (h *IntrospectionHandler) Interactions(w http.ResponseWriter, r *http.Request) {
	if !h.requireReader(w) {
		return
	}
	phone := strings.TrimSpace(chi.URLParam(r, "phone"))
	items, err := h.reader.GetUserInteractions(r.Context(), phone, parseLimit(r))
	if err != nil {
		h.logger.Error("get interactions failed", "error", err, "phone", phone)
		writeError(w, http.StatusInternalServerError, "Failed to get interactions")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

func (h *IntrospectionHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	if h.appointments == nil {
		writeError(w, http.StatusServiceUnavailable, "appointment ledger not configured")
		return
	}
	phone := strings.TrimSpace(r.URL.Query().Get("phone"))
	if phone == "" {
		writeError(w, http.StatusBadRequest, "phone is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.appointments.ListForPatient(r.Context(), phone, limit)
	if err != nil {
		h.logger.Error("list appointments failed", "error", err, "phone", phone)
		writeError(w, http.StatusInternalServerError, "Failed to get appointments")
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

// Replay resubmits an archived webhook body as if it had just been delivered.
func (h *IntrospectionHandler) Replay(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil || h.submitter == nil {
		writeError(w, http.StatusServiceUnavailable, "webhook archive not configured")
		return
	}
	key := strings.TrimSpace(r.URL.Query().Get("key"))
	account := archive.AccountFromKey(key)
	if account == "" {
		writeError(w, http.StatusBadRequest, "archive key is required")
		return
	}
	body, err := h.archive.Fetch(r.Context(), key)
	if err != nil {
		if errors.Is(err, archive.ErrDisabled) {
			writeError(w, http.StatusServiceUnavailable, "webhook archive not configured")
			return
		}
		h.logger.Error("fetch archived webhook failed", "error", err, "key", key)
		writeError(w, http.StatusNotFound, "archived webhook not found")
		return
	}
	h.submitter.Submit(account, body)
	writeJSON(w, http.StatusAccepted, map[string]string{"key": key, "account": account})
}

func (h *IntrospectionHandler) requireReader(w http.ResponseWriter) bool {
	if h.reader == nil {
		writeError(w, http.StatusServiceUnavailable, "message store not configured")
		return false
	}
	return true
}

// parseLimit reads ?limit=, falling back to the store default when missing or invalid.
func parseLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return messaging.DefaultListLimit
	}
	return messaging.ClampLimit(limit)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
