package bootstrap

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/botpe-relay/internal/booking"
	appconfig "github.com/wolfman30/botpe-relay/internal/config"
	"github.com/wolfman30/botpe-relay/pkg/logging"
)

// BuildSessionStore selects the booking session backend. The memory store is
// also returned so the caller can run its janitor; it is nil for Redis.
func BuildSessionStore(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) (booking.SessionStore, *booking.MemoryStore, error) {
	if cfg == nil {
		return nil, nil, errors.New("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	switch cfg.SessionBackend {
	case "redis":
		if redisClient == nil {
			return nil, nil, errors.New("bootstrap: redis session backend requested but redis is unavailable")
		}
		logger.Info("booking sessions stored in redis", "ttl", cfg.SessionTTL)
		return booking.NewRedisStore(redisClient, cfg.SessionTTL), nil, nil
	case "", "memory":
		mem := booking.NewMemoryStore(cfg.SessionTTL)
		logger.Info("booking sessions stored in memory", "ttl", cfg.SessionTTL)
		return mem, mem, nil
	default:
		return nil, nil, fmt.Errorf("bootstrap: unknown session backend %q", cfg.SessionBackend)
	}
}

// BuildBookingEngine loads the catalog and assembles the booking engine.
func BuildBookingEngine(cfg *appconfig.Config, store booking.SessionStore, logger *logging.Logger) (*booking.Engine, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	catalog, err := booking.LoadCatalog(cfg.BotCatalogPath)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load catalog: %w", err)
	}
	machine := booking.NewMachine(catalog, booking.MachineOptions{
		Trigger:         cfg.BotTrigger,
		TriggerResets:   cfg.BotTriggerResets,
		ConfirmationURL: cfg.BotConfirmationURL,
	})
	engine := booking.NewEngine(machine, store, logger)
	if !cfg.BotTypingDelay {
		engine = engine.WithDelay(nil)
	}
	return engine, nil
}
