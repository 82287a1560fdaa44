package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type GatewayConfig struct {
	BaseURL       string `yaml:"base_url"`
	SecretKey     string `yaml:"secret_key"`
	WebhookSecret string `yaml:"webhook_secret"`
	Currency      string `yaml:"currency"`
}

type NotifierConfig struct {
	URL     string        `yaml:"url"` // notification service endpoint; empty = noop
	Timeout time.Duration `yaml:"timeout"`
}

type BillingConfig struct {
	SweepCron string `yaml:"sweep_cron"` // cron spec for the daily invoice sweep
	Workers   int    `yaml:"workers"`    // queue consumer pool size
	// Fallbacks when the system_settings rows are absent.
	MaxRetries        int `yaml:"max_retries"`
	RetryDelayMinutes int `yaml:"retry_delay_minutes"`
	// ResetRetryOnSuccess controls whether a confirmed payment zeroes the
	// retry counter. Defaults to true.
	ResetRetryOnSuccess *bool `yaml:"reset_retry_on_success"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Notifier NotifierConfig `yaml:"notifier"`
	Billing  BillingConfig  `yaml:"billing"`
	Server   ServerConfig   `yaml:"server"`

	Runtime RuntimeConfig `yaml:"-"`
}

// ResetRetryOnSuccess resolves the tri-state yaml flag with its default.
func (b BillingConfig) ResetRetryOnSuccessOrDefault() bool {
	if b.ResetRetryOnSuccess == nil {
		return true
	}
	return *b.ResetRetryOnSuccess
}

// LoadConfig reads and validates the YAML config. It is constructed once at
// startup and injected everywhere; nothing else re-reads the file.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Billing.SweepCron == "" {
		cfg.Billing.SweepCron = "0 0 * * *" // midnight
	}
	if cfg.Billing.Workers <= 0 {
		cfg.Billing.Workers = 8
	}
	if cfg.Billing.MaxRetries <= 0 {
		cfg.Billing.MaxRetries = 3
	}
	if cfg.Billing.RetryDelayMinutes <= 0 {
		cfg.Billing.RetryDelayMinutes = 60
	}
	if cfg.Gateway.Currency == "" {
		cfg.Gateway.Currency = "USD"
	}
	if cfg.Notifier.Timeout <= 0 {
		cfg.Notifier.Timeout = 5 * time.Second
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.Addr == "" {
		return nil, errors.New("redis.addr is required")
	}
	if cfg.Gateway.WebhookSecret == "" && !dev {
		return nil, errors.New("gateway.webhook_secret is required outside dev mode")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
