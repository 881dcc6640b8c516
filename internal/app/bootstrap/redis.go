package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/botpe-relay/internal/config"
	"github.com/wolfman30/botpe-relay/pkg/logging"
)

const redisPingTimeout = 3 * time.Second

// BuildRedisClient returns the client backing booking sessions, or nil when
// REDIS_ADDR is unset. With verify, an unreachable server also yields nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	opts := &redis.Options{
		Addr:         strings.TrimSpace(cfg.RedisAddr),
		Password:     cfg.RedisPassword,
		DialTimeout:  redisPingTimeout,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	if !verify {
		return client
	}

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := RedisCheck(client)(pingCtx); err != nil {
		logger.Warn("redis not available", "error", err, "addr", opts.Addr)
		_ = client.Close()
		return nil
	}
	logger.Info("redis connected", "addr", opts.Addr, "tls", cfg.RedisTLS)
	return client
}

// RedisCheck adapts client into a readiness check for /health.
func RedisCheck(client redis.UniversalClient) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
