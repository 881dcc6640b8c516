package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "botpe:session:"

// RedisStore keeps sessions as JSON values whose TTL is refreshed on every Put.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("booking: redis client cannot be nil")
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, identity string) (*Session, bool, error) {
	data, err := s.client.Get(ctx, sessionKey(identity)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("booking: load session: %w", err)
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, false, fmt.Errorf("booking: decode session: %w", err)
	}
	return &session, true, nil
}

func (s *RedisStore) Put(ctx context.Context, identity string, session *Session) error {
	if session == nil {
		return errors.New("booking: session is required")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("booking: encode session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(identity), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("booking: persist session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, identity string) error {
	if err := s.client.Del(ctx, sessionKey(identity)).Err(); err != nil {
		return fmt.Errorf("booking: delete session: %w", err)
	}
	return nil
}

func (s *RedisStore) Has(ctx context.Context, identity string) (bool, error) {
	n, err := s.client.Exists(ctx, sessionKey(identity)).Result()
	if err != nil {
		return false, fmt.Errorf("booking: check session: %w", err)
	}
	return n > 0, nil
}

func sessionKey(identity string) string {
	return sessionKeyPrefix + identity
}
