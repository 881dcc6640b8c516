package messaging

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is a process-local Repository for runs without a database.
type MemoryStore struct {
	mu           sync.RWMutex
	nextID       int64
	messages     []StoredMessage
	statuses     []StoredStatus
	interactions []StoredInteraction
	now          func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (m *MemoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemoryStore) SaveIncomingMessage(_ context.Context, msg IncomingMessage) (int64, error) {
	if strings.TrimSpace(msg.From) == "" {
		return 0, errors.New("messaging: from number required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := StoredMessage{
		ID:        m.id(),
		QueueID:   msg.QueueID,
		From:      msg.From,
		To:        msg.To,
		Type:      msg.Type,
		Content:   append([]byte(nil), jsonOrNull(msg.Content)...),
		Timestamp: msg.Timestamp,
		AccountID: msg.AccountID,
		CreatedAt: m.now().UTC(),
	}
	m.messages = append(m.messages, rec)
	return rec.ID, nil
}

func (m *MemoryStore) UpdateMessageStatus(_ context.Context, status StatusUpdate) (int64, error) {
	if strings.TrimSpace(status.QueueID) == "" {
		return 0, errors.New("messaging: queue id required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := StoredStatus{
		ID:           m.id(),
		QueueID:      status.QueueID,
		Status:       status.Status,
		Timestamp:    status.Timestamp,
		ErrorMessage: status.ErrorMessage,
		CreatedAt:    m.now().UTC(),
	}
	m.statuses = append(m.statuses, rec)
	return rec.ID, nil
}

func (m *MemoryStore) SaveInteractiveResponse(_ context.Context, resp InteractiveResponse) (int64, error) {
	if strings.TrimSpace(resp.UserNumber) == "" {
		return 0, errors.New("messaging: user number required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := StoredInteraction{
		ID:            m.id(),
		QueueID:       resp.QueueID,
		UserNumber:    resp.UserNumber,
		ResponseType:  resp.ResponseType,
		ResponseID:    resp.ResponseID,
		ResponseTitle: resp.ResponseTitle,
		ResponseData:  append([]byte(nil), jsonOrNull(resp.ResponseData)...),
		Timestamp:     resp.Timestamp,
		CreatedAt:     m.now().UTC(),
	}
	m.interactions = append(m.interactions, rec)
	return rec.ID, nil
}

func (m *MemoryStore) GetAllMessages(_ context.Context, limit int) ([]StoredMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return newestMessages(m.messages, nil, ClampLimit(limit)), nil
}

func (m *MemoryStore) GetMessageHistory(_ context.Context, phone string, limit int) ([]StoredMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	match := func(msg StoredMessage) bool { return msg.From == phone || msg.To == phone }
	return newestMessages(m.messages, match, ClampLimit(limit)), nil
}

func newestMessages(all []StoredMessage, keep func(StoredMessage) bool, limit int) []StoredMessage {
	out := make([]StoredMessage, 0, len(all))
	for _, msg := range all {
		if keep == nil || keep(msg) {
			out = append(out, msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *MemoryStore) GetMessageStatusHistory(_ context.Context, queueID string) ([]StoredStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []StoredStatus
	for _, st := range m.statuses {
		if st.QueueID == queueID {
			out = append(out, st)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

func (m *MemoryStore) GetUserInteractions(_ context.Context, userNumber string, limit int) ([]StoredInteraction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []StoredInteraction
	for _, it := range m.interactions {
		if it.UserNumber == userNumber {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	if limit = ClampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) GetStats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		TotalMessages:     int64(len(m.messages)),
		TotalStatuses:     int64(len(m.statuses)),
		TotalInteractions: int64(len(m.interactions)),
	}, nil
}
