package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingCredentials is returned by Validate when an account cannot be built.
var ErrMissingCredentials = errors.New("config: missing required BotPe credentials")

// Account ids used for the two webhook routes.
const (
	PrimaryAccountID   = "primary"
	SecondaryAccountID = "secondary"
)

// Config holds application configuration
type Config struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	// BotPe API
	BaseURL        string
	APIVersion     string
	PhoneNumberID  string
	Token          string
	PhoneNumberID2 string
	Token2         string
	APITimeout     time.Duration

	// Booking bot
	BotAccount         string
	BotTrigger         string
	BotTriggerResets   bool
	BotTypingDelay     bool
	BotConfirmationURL string
	BotCatalogPath     string
	SessionBackend     string
	SessionTTL         time.Duration

	// Webhook intake
	WebhookWorkers   int
	WebhookQueueSize int

	// AdminRateLimit caps introspection requests per client in requests per second.
	// Webhook POSTs are never limited so providers always get their 200.
	AdminRateLimit float64

	// Storage
	DatabaseURL   string
	AutoMigrate   bool
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Introspection + observability
	AdminJWTSecret     string
	MetricsEnabled     bool
	CORSAllowedOrigins []string

	// AWS relays
	AWSRegion            string
	AWSAccessKeyID       string
	AWSSecretAccessKey   string
	AWSEndpointOverride  string
	EventQueueURL        string
	WebhookArchiveBucket string
}

// Load reads configuration from the environment, after applying a local .env file if present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:      getEnv("PORT", "3000"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		BaseURL:        strings.TrimRight(getEnv("BASE_URL", ""), "/"),
		APIVersion:     getEnv("VERSION", ""),
		PhoneNumberID:  getEnv("BUSINESS_PHONE_NUMBER_ID", ""),
		Token:          getEnv("TOKEN", ""),
		PhoneNumberID2: getEnv("BUSINESS_PHONE_NUMBER_ID2", ""),
		Token2:         getEnv("TOKEN2", ""),
		APITimeout:     getEnvAsDuration("API_TIMEOUT", 30*time.Second),

		BotAccount:         strings.ToLower(strings.TrimSpace(getEnv("BOT_ACCOUNT", SecondaryAccountID))),
		BotTrigger:         getEnv("BOT_TRIGGER", "dr1"),
		BotTriggerResets:   getEnvAsBool("BOT_TRIGGER_RESETS", true),
		BotTypingDelay:     getEnvAsBool("BOT_TYPING_DELAY", true),
		BotConfirmationURL: getEnv("BOT_CONFIRMATION_URL", "https://botpe.in/"),
		BotCatalogPath:     getEnv("BOT_CATALOG_PATH", ""),
		SessionBackend:     strings.ToLower(strings.TrimSpace(getEnv("SESSION_BACKEND", "memory"))),
		SessionTTL:         getEnvAsDuration("SESSION_TTL", 30*time.Minute),

		WebhookWorkers:   getEnvAsInt("WEBHOOK_WORKERS", 4),
		WebhookQueueSize: getEnvAsInt("WEBHOOK_QUEUE_SIZE", 256),
		AdminRateLimit:   getEnvAsFloat("ADMIN_RATE_LIMIT", 0),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		AutoMigrate:   getEnvAsBool("AUTO_MIGRATE", false),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		MetricsEnabled:     getEnvAsBool("METRICS_ENABLED", true),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),

		AWSRegion:            getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:       getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride:  getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		EventQueueURL:        getEnv("EVENT_QUEUE_URL", ""),
		WebhookArchiveBucket: getEnv("WEBHOOK_ARCHIVE_BUCKET", ""),
	}
}

// Validate checks the settings required to start the relay.
func (c *Config) Validate() error {
	var missing []string
	if c.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}
	if c.APIVersion == "" {
		missing = append(missing, "VERSION")
	}
	if c.PhoneNumberID == "" {
		missing = append(missing, "BUSINESS_PHONE_NUMBER_ID")
	}
	if c.Token == "" {
		missing = append(missing, "TOKEN")
	}
	if c.PhoneNumberID2 == "" {
		missing = append(missing, "BUSINESS_PHONE_NUMBER_ID2")
	}
	if c.Token2 == "" {
		missing = append(missing, "TOKEN2")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	switch c.BotAccount {
	case PrimaryAccountID, SecondaryAccountID, "none":
	default:
		return fmt.Errorf("config: BOT_ACCOUNT must be %q, %q or \"none\", got %q", PrimaryAccountID, SecondaryAccountID, c.BotAccount)
	}
	switch c.SessionBackend {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.RedisAddr) == "" {
			return errors.New("config: SESSION_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("config: unknown SESSION_BACKEND %q", c.SessionBackend)
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
