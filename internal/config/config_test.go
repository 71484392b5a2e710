package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("SESSION_BACKEND", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("REMOTE_TIMEOUT_SECONDS", "")

	cfg := FromEnv()
	if cfg.SessionBackend != SessionBackendPostgres {
		t.Fatalf("expected postgres backend, got %q", cfg.SessionBackend)
	}
	if cfg.RemoteTimeout != 15*time.Second {
		t.Fatalf("unexpected remote timeout %s", cfg.RemoteTimeout)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:5173" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("SESSION_BACKEND", "Redis")
	t.Setenv("ORDERCLOUD_API_URL", "https://api.example.com/")
	t.Setenv("SESSION_TTL_SECONDS", "60")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")

	cfg := FromEnv()
	if cfg.SessionBackend != SessionBackendRedis {
		t.Fatalf("expected redis backend, got %q", cfg.SessionBackend)
	}
	if cfg.OrderCloudURL != "https://api.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.OrderCloudURL)
	}
	if cfg.SessionTTL != time.Minute {
		t.Fatalf("unexpected ttl %s", cfg.SessionTTL)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example.com" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}
}

func TestEnvDuration_IgnoresGarbage(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "soon")
	if got := envDuration("SHUTDOWN_TIMEOUT_SECONDS", 3*time.Second); got != 3*time.Second {
		t.Fatalf("expected default, got %s", got)
	}
}
