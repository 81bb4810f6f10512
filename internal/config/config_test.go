package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Env != "dev" {
		t.Errorf("Env = %q, want dev", cfg.Env)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Search.DepartureWindow != 0 || cfg.Search.MinConnection != 0 || cfg.Search.MaxConnection != 0 {
		t.Errorf("search windows should default to zero (engine defaults): %+v", cfg.Search)
	}
	if cfg.AMQP.URL == "" {
		t.Error("AMQP URL should have a default")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("SEARCH_MIN_CONNECTION", "600")
	t.Setenv("SEARCH_MAX_CONNECTION", "3600")
	t.Setenv("RABBITMQ_URL", "amqp://broker:5672/")

	cfg := Load()

	if cfg.Env != "prod" || cfg.Port != "9090" {
		t.Errorf("unexpected app config: %+v", cfg)
	}
	if cfg.Search.MinConnection != 600 || cfg.Search.MaxConnection != 3600 {
		t.Errorf("unexpected search config: %+v", cfg.Search)
	}
	if cfg.AMQP.URL != "amqp://broker:5672/" {
		t.Errorf("unexpected AMQP config: %+v", cfg.AMQP)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_STR", "value")
	t.Setenv("X_INT", "42")
	t.Setenv("X_INT_BAD", "forty-two")
	t.Setenv("X_BOOL", "yes")
	t.Setenv("X_DUR", "90s")

	if got := envStr("X_STR", "d"); got != "value" {
		t.Errorf("envStr = %q", got)
	}
	if got := envStr("X_UNSET", "d"); got != "d" {
		t.Errorf("envStr default = %q", got)
	}
	if got := envInt("X_INT", 1); got != 42 {
		t.Errorf("envInt = %d", got)
	}
	if got := envInt("X_INT_BAD", 7); got != 7 {
		t.Errorf("envInt fallback = %d", got)
	}
	if got := envInt64("X_INT", 1); got != 42 {
		t.Errorf("envInt64 = %d", got)
	}
	if got := envBool("X_BOOL", false); !got {
		t.Error("envBool should accept yes")
	}
	if got := envDur("X_DUR", time.Second); got != 90*time.Second {
		t.Errorf("envDur = %v", got)
	}
	if got := envDur("X_UNSET", 5*time.Second); got != 5*time.Second {
		t.Errorf("envDur default = %v", got)
	}
}

func TestLoadRateLimitConfigNormalization(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_TOKENS", "-2")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")

	cfg := LoadRateLimitConfig()

	if cfg.Capacity < 1 {
		t.Errorf("capacity not normalized: %d", cfg.Capacity)
	}
	if cfg.RefillTokens < 1 {
		t.Errorf("refill tokens not normalized: %d", cfg.RefillTokens)
	}
	if cfg.TTL < 5*cfg.RefillInterval {
		t.Errorf("TTL %v below the 5x refill interval floor", cfg.TTL)
	}
}

func TestLoadRateLimitConfigBurstOverride(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "120")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "500ms")

	cfg := LoadRateLimitConfig()

	if cfg.Capacity != 120 {
		t.Errorf("burst override ignored: capacity %d", cfg.Capacity)
	}
	if cfg.RefillTokens != 1 || cfg.RefillInterval != 500*time.Millisecond {
		t.Errorf("refill-every override ignored: %+v", cfg)
	}
}
