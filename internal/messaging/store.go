package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of *pgxpool.Pool the store uses.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists webhook items in Postgres.
type Store struct {
	pool PgxPool
}

func NewStore(pool PgxPool) *Store {
	if pool == nil {
		return nil
	}
	return &Store{pool: pool}
}

func (s *Store) SaveIncomingMessage(ctx context.Context, msg IncomingMessage) (int64, error) {
	if strings.TrimSpace(msg.From) == "" {
		return 0, errors.New("messaging: from number required")
	}
	query := `
		INSERT INTO messages (queue_id, from_number, to_number, message_type, content, timestamp, account_id)
		VALUES (NULLIF($1, ''), $2, $3, $4, $5, $6, NULLIF($7, ''))
		RETURNING id
	`
	var id int64
	err := s.pool.QueryRow(ctx, query,
		msg.QueueID, msg.From, msg.To, msg.Type, jsonOrNull(msg.Content), msg.Timestamp, msg.AccountID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("messaging: save incoming message: %w", err)
	}
	return id, nil
}

func (s *Store) UpdateMessageStatus(ctx context.Context, status StatusUpdate) (int64, error) {
	if strings.TrimSpace(status.QueueID) == "" {
		return 0, errors.New("messaging: queue id required")
	}
	query := `
		INSERT INTO message_status (queue_id, status, timestamp, error_message)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		RETURNING id
	`
	var id int64
	if err := s.pool.QueryRow(ctx, query, status.QueueID, status.Status, status.Timestamp, status.ErrorMessage).Scan(&id); err != nil {
		return 0, fmt.Errorf("messaging: update message status: %w", err)
	}
	return id, nil
}

func (s *Store) SaveInteractiveResponse(ctx context.Context, resp InteractiveResponse) (int64, error) {
	if strings.TrimSpace(resp.UserNumber) == "" {
		return 0, errors.New("messaging: user number required")
	}
	query := `
		INSERT INTO interactive_responses (queue_id, user_number, response_type, response_id, response_title, response_data, timestamp)
		VALUES (NULLIF($1, ''), $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7)
		RETURNING id
	`
	var id int64
	err := s.pool.QueryRow(ctx, query,
		resp.QueueID, resp.UserNumber, resp.ResponseType, resp.ResponseID, resp.ResponseTitle, jsonOrNull(resp.ResponseData), resp.Timestamp,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("messaging: save interactive response: %w", err)
	}
	return id, nil
}

const messageColumns = `id, COALESCE(queue_id, ''), from_number, to_number, message_type, content, timestamp, COALESCE(account_id, ''), created_at`

func (s *Store) GetAllMessages(ctx context.Context, limit int) ([]StoredMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM messages ORDER BY timestamp DESC LIMIT $1`
	rows, err := s.pool.Query(ctx, query, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("messaging: list messages: %w", err)
	}
	return scanMessages(rows)
}

func (s *Store) GetMessageHistory(ctx context.Context, phone string, limit int) ([]StoredMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE from_number = $1 OR to_number = $1 ORDER BY timestamp DESC LIMIT $2`
	rows, err := s.pool.Query(ctx, query, phone, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("messaging: message history: %w", err)
	}
	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]StoredMessage, error) {
	defer rows.Close()
	var out []StoredMessage
	for rows.Next() {
		var m StoredMessage
		var content []byte
		if err := rows.Scan(&m.ID, &m.QueueID, &m.From, &m.To, &m.Type, &content, &m.Timestamp, &m.AccountID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("messaging: scan message: %w", err)
		}
		m.Content = append([]byte(nil), content...)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("messaging: iterate messages: %w", err)
	}
	return out, nil
}

func (s *Store) GetMessageStatusHistory(ctx context.Context, queueID string) ([]StoredStatus, error) {
	query := `
		SELECT id, queue_id, status, timestamp, COALESCE(error_message, ''), created_at
		FROM message_status
		WHERE queue_id = $1
		ORDER BY timestamp ASC
	`
	rows, err := s.pool.Query(ctx, query, queueID)
	if err != nil {
		return nil, fmt.Errorf("messaging: status history: %w", err)
	}
	defer rows.Close()
	var out []StoredStatus
	for rows.Next() {
		var st StoredStatus
		if err := rows.Scan(&st.ID, &st.QueueID, &st.Status, &st.Timestamp, &st.ErrorMessage, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("messaging: scan status: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func (s *Store) GetUserInteractions(ctx context.Context, userNumber string, limit int) ([]StoredInteraction, error) {
	query := `
		SELECT id, COALESCE(queue_id, ''), user_number, response_type, COALESCE(response_id, ''),
			COALESCE(response_title, ''), response_data, timestamp, created_at
		FROM interactive_responses
		WHERE user_number = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, userNumber, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("messaging: user interactions: %w", err)
	}
	defer rows.Close()
	var out []StoredInteraction
	for rows.Next() {
		var it StoredInteraction
		var data []byte
		if err := rows.Scan(&it.ID, &it.QueueID, &it.UserNumber, &it.ResponseType, &it.ResponseID,
			&it.ResponseTitle, &data, &it.Timestamp, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("messaging: scan interaction: %w", err)
		}
		it.ResponseData = append([]byte(nil), data...)
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) GetStats(ctx context.Context) (Stats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM messages),
			(SELECT COUNT(*) FROM message_status),
			(SELECT COUNT(*) FROM interactive_responses)
	`
	var st Stats
	if err := s.pool.QueryRow(ctx, query).Scan(&st.TotalMessages, &st.TotalStatuses, &st.TotalInteractions); err != nil {
		return Stats{}, fmt.Errorf("messaging: stats: %w", err)
	}
	return st, nil
}

// Ping checks connectivity for readiness reporting.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	var one int
	if err := s.pool.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("messaging: ping: %w", err)
	}
	return nil
}
