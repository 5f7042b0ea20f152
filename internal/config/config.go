// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all crawler configuration knobs loaded via Viper.
type Config struct {
	Source   SourceConfig   `mapstructure:"source"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Ops      OpsConfig      `mapstructure:"ops"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// SourceConfig configures the upstream catalog API client.
type SourceConfig struct {
	BaseURL           string  `mapstructure:"base_url"`
	UserAgent         string  `mapstructure:"user_agent"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
	RetryMaxAttempts  int     `mapstructure:"retry_max_attempts"`
}

// DatabaseConfig controls access to the relational database. An empty DSN
// selects the in-memory entity store.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig controls the session checkpoint store. An empty Addr keeps
// checkpoints in the primary database instead.
type RedisConfig struct {
	Addr       string `mapstructure:"addr"`
	Prefix     string `mapstructure:"prefix"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

// OpsConfig controls the operational HTTP endpoint (health, metrics,
// session status). An empty ListenAddr disables it.
type OpsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.base_url", "http://localhost:8080")
	v.SetDefault("source.user_agent", "catalog-crawler/0.1")
	v.SetDefault("source.timeout_seconds", 15)
	v.SetDefault("source.requests_per_second", 4.0)
	v.SetDefault("source.burst", 4)
	v.SetDefault("source.retry_max_attempts", 3)
	v.SetDefault("redis.prefix", "catalog:session:")
	v.SetDefault("redis.ttl_seconds", 0)
	v.SetDefault("ops.listen_addr", "")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Source.BaseURL == "" {
		return fmt.Errorf("source.base_url must be set")
	}
	if c.Source.TimeoutSeconds <= 0 {
		return fmt.Errorf("source.timeout_seconds must be > 0")
	}
	if c.Source.RequestsPerSecond <= 0 {
		return fmt.Errorf("source.requests_per_second must be > 0")
	}
	if c.Source.RetryMaxAttempts < 1 {
		return fmt.Errorf("source.retry_max_attempts must be >= 1")
	}
	return nil
}

// RequestTimeout converts the source timeout config into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Source.TimeoutSeconds) * time.Second
}

// RedisTTL converts the checkpoint TTL config into a duration. Zero means
// checkpoints never expire.
func (c Config) RedisTTL() time.Duration {
	return time.Duration(c.Redis.TTLSeconds) * time.Second
}
