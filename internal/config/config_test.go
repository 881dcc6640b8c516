package config

import (
	"errors"
	"testing"
	"time"
)

func setCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("BASE_URL", "https://api.botpe.test/")
	t.Setenv("VERSION", "v1")
	t.Setenv("BUSINESS_PHONE_NUMBER_ID", "111")
	t.Setenv("TOKEN", "token-1")
	t.Setenv("BUSINESS_PHONE_NUMBER_ID2", "222")
	t.Setenv("TOKEN2", "token-2")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("BOT_ACCOUNT", "")
	t.Setenv("BOT_TRIGGER", "")
	t.Setenv("SESSION_BACKEND", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("API_TIMEOUT", "")
	t.Setenv("WEBHOOK_WORKERS", "")
	cfg := Load()
	if cfg.Port != "3000" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected default log level, got %s", cfg.LogLevel)
	}
	if cfg.BotAccount != SecondaryAccountID {
		t.Fatalf("expected bot on secondary account, got %s", cfg.BotAccount)
	}
	if cfg.BotTrigger != "dr1" {
		t.Fatalf("expected dr1 trigger, got %s", cfg.BotTrigger)
	}
	if !cfg.BotTriggerResets {
		t.Fatalf("expected trigger resets enabled by default")
	}
	if cfg.SessionBackend != "memory" {
		t.Fatalf("expected memory sessions, got %s", cfg.SessionBackend)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("expected 30m session ttl, got %s", cfg.SessionTTL)
	}
	if cfg.APITimeout != 30*time.Second {
		t.Fatalf("expected 30s api timeout, got %s", cfg.APITimeout)
	}
	if cfg.WebhookWorkers != 4 {
		t.Fatalf("expected 4 workers, got %d", cfg.WebhookWorkers)
	}
}

func TestLoadOverrides(t *testing.T) {
	setCredentials(t)
	t.Setenv("PORT", "9090")
	t.Setenv("BOT_ACCOUNT", "Primary")
	t.Setenv("BOT_TRIGGER_RESETS", "false")
	t.Setenv("SESSION_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("SESSION_TTL", "45m")
	t.Setenv("ADMIN_RATE_LIMIT", "2.5")
	t.Setenv("EVENT_QUEUE_URL", "https://sqs.local/queue")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://ops.botpe.in, ,http://localhost:5173")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.BaseURL != "https://api.botpe.test" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.BaseURL)
	}
	if cfg.BotAccount != PrimaryAccountID {
		t.Fatalf("expected primary bot account, got %s", cfg.BotAccount)
	}
	if cfg.BotTriggerResets {
		t.Fatalf("expected trigger resets disabled")
	}
	if cfg.SessionTTL != 45*time.Minute {
		t.Fatalf("expected session ttl override, got %s", cfg.SessionTTL)
	}
	if cfg.AdminRateLimit != 2.5 {
		t.Fatalf("expected rate limit override, got %v", cfg.AdminRateLimit)
	}
	if cfg.EventQueueURL != "https://sqs.local/queue" {
		t.Fatalf("expected queue url override, got %s", cfg.EventQueueURL)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "http://localhost:5173" {
		t.Fatalf("expected two cors origins, got %v", cfg.CORSAllowedOrigins)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"complete", func(*Config) {}, nil},
		{"missing first token", func(c *Config) { c.Token = "" }, ErrMissingCredentials},
		{"missing second token", func(c *Config) { c.Token2 = "" }, ErrMissingCredentials},
		{"missing second number", func(c *Config) { c.PhoneNumberID2 = "" }, ErrMissingCredentials},
		{"missing base url", func(c *Config) { c.BaseURL = "" }, ErrMissingCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				BaseURL:        "https://api.botpe.test",
				APIVersion:     "v1",
				PhoneNumberID:  "111",
				Token:          "a",
				PhoneNumberID2: "222",
				Token2:         "b",
				BotAccount:     SecondaryAccountID,
				SessionBackend: "memory",
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateRejectsBadChoices(t *testing.T) {
	base := Config{
		BaseURL: "x", APIVersion: "v1", PhoneNumberID: "1", Token: "t",
		PhoneNumberID2: "2", Token2: "t2", BotAccount: "third", SessionBackend: "memory",
	}
	if err := base.Validate(); err == nil {
		t.Fatal("expected error for unknown bot account")
	}
	base.BotAccount = SecondaryAccountID
	base.SessionBackend = "redis"
	if err := base.Validate(); err == nil {
		t.Fatal("expected error for redis backend without address")
	}
	base.SessionBackend = "dynamo"
	if err := base.Validate(); err == nil {
		t.Fatal("expected error for unknown session backend")
	}
}
