package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
source:
  base_url: https://api.example.com
  user_agent: catalog-bot
  timeout_seconds: 30
  requests_per_second: 2.5
  burst: 2
  retry_max_attempts: 5
database:
  dsn: postgres://catalog@localhost/catalog
redis:
  addr: localhost:6379
  prefix: "crawl:"
  ttl_seconds: 600
ops:
  listen_addr: ":9100"
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Source.BaseURL != "https://api.example.com" {
		t.Fatalf("expected base_url override, got %q", cfg.Source.BaseURL)
	}
	if cfg.Source.UserAgent != "catalog-bot" || cfg.Source.RetryMaxAttempts != 5 {
		t.Fatalf("expected source overrides to apply: %+v", cfg.Source)
	}
	if cfg.Source.RequestsPerSecond != 2.5 || cfg.Source.Burst != 2 {
		t.Fatalf("expected rate limit overrides to apply: %+v", cfg.Source)
	}
	if cfg.Database.DSN != "postgres://catalog@localhost/catalog" {
		t.Fatalf("expected dsn override, got %q", cfg.Database.DSN)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.Prefix != "crawl:" {
		t.Fatalf("expected redis overrides to apply: %+v", cfg.Redis)
	}
	if cfg.Ops.ListenAddr != ":9100" {
		t.Fatalf("expected ops listen_addr override, got %q", cfg.Ops.ListenAddr)
	}
	if cfg.Logging.Development {
		t.Fatalf("expected development logging to be disabled")
	}
	if got := cfg.RequestTimeout(); got != 30*time.Second {
		t.Fatalf("expected request timeout 30s, got %v", got)
	}
	if got := cfg.RedisTTL(); got != 10*time.Minute {
		t.Fatalf("expected redis ttl 10m, got %v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Source.BaseURL == "" {
		t.Fatalf("expected a default base_url")
	}
	if cfg.Source.TimeoutSeconds != 15 || cfg.Source.RetryMaxAttempts != 3 {
		t.Fatalf("expected source defaults: %+v", cfg.Source)
	}
	if cfg.Redis.Prefix != "catalog:session:" {
		t.Fatalf("expected default redis prefix, got %q", cfg.Redis.Prefix)
	}
	if !cfg.Logging.Development {
		t.Fatalf("expected development logging by default")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing base_url", func(c *Config) { c.Source.BaseURL = "" }},
		{"zero timeout", func(c *Config) { c.Source.TimeoutSeconds = 0 }},
		{"zero rate", func(c *Config) { c.Source.RequestsPerSecond = 0 }},
		{"zero retries", func(c *Config) { c.Source.RetryMaxAttempts = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := Load("")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
