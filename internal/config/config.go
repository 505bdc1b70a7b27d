// Package config loads configuration from a YAML file and environment
// variables. YAML values may reference environment variables with ${VAR};
// environment variables override file values for the common settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ProviderConfig holds the signing provider's API credentials. The outbound
// client authenticates with OAuth2 client credentials.
type ProviderConfig struct {
	BaseURL      string        `yaml:"base_url"`
	TokenURL     string        `yaml:"token_url"`
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	Timeout      time.Duration `yaml:"timeout"`
}

// Config holds all configuration for the service.
type Config struct {
	Port        int
	DatabaseDSN string
	RedisURL    string
	Provider    ProviderConfig

	// WebhookSecret authenticates inbound provider callbacks. Loaded once at
	// startup and never logged.
	WebhookSecret string
}

type rawConfig struct {
	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	Redis struct {
		URL string `yaml:"url"`
	} `yaml:"redis"`
	Provider ProviderConfig `yaml:"provider"`
	Webhook  struct {
		Secret string `yaml:"secret"`
	} `yaml:"webhook"`
}

// Load reads configuration. The file path comes from CONFIG_PATH and defaults
// to config.yaml in the working directory; a missing file is not an error so
// the service can run on environment variables alone.
func Load() (*Config, error) {
	var raw rawConfig

	configPath := envOrDefault("CONFIG_PATH", "config.yaml")
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
			return nil, fmt.Errorf("parse config YAML: %w", err)
		}
	case os.IsNotExist(err):
		// env-only mode
	default:
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}

	cfg := &Config{
		Port:        envOrDefaultInt("PORT", 8080),
		DatabaseDSN: firstNonEmpty(raw.Database.DSN, os.Getenv("DATABASE_DSN")),
		RedisURL:    firstNonEmpty(raw.Redis.URL, os.Getenv("REDIS_URL")),
		Provider: ProviderConfig{
			BaseURL:      firstNonEmpty(raw.Provider.BaseURL, os.Getenv("PROVIDER_BASE_URL")),
			TokenURL:     firstNonEmpty(raw.Provider.TokenURL, os.Getenv("PROVIDER_TOKEN_URL")),
			ClientID:     firstNonEmpty(raw.Provider.ClientID, os.Getenv("PROVIDER_CLIENT_ID")),
			ClientSecret: firstNonEmpty(raw.Provider.ClientSecret, os.Getenv("PROVIDER_CLIENT_SECRET")),
			Timeout:      raw.Provider.Timeout,
		},
		WebhookSecret: firstNonEmpty(raw.Webhook.Secret, os.Getenv("WEBHOOK_SECRET")),
	}
	if cfg.Provider.Timeout <= 0 {
		cfg.Provider.Timeout = envOrDefaultDuration("PROVIDER_TIMEOUT", 15*time.Second)
	}

	if cfg.DatabaseDSN == "" {
		return nil, fmt.Errorf("database DSN is not configured")
	}
	if cfg.Provider.BaseURL == "" {
		return nil, fmt.Errorf("provider base URL is not configured")
	}
	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("webhook secret is not configured")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
