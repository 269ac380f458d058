package config

import (
	"fmt"
	"os"
)

// Config holds all application configuration.
type Config struct {
	Tables TableConfig
	Queue  QueueConfig
	HTTP   HTTPConfig
	Auth   AuthConfig

	// MetricsNamespace enables CloudWatch counters when non-empty.
	MetricsNamespace string
}

// TableConfig names the DynamoDB tables the service owns.
type TableConfig struct {
	Orders      string
	Tasks       string
	Offers      string
	OfferUsage  string
	Counters    string
	Customers   string
	Idempotency string
}

// QueueConfig contains SQS settings.
type QueueConfig struct {
	ProfileUpsertURL string
}

// HTTPConfig contains local HTTP server settings.
type HTTPConfig struct {
	Address string
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	JWTSecret string
}

// Load reads configuration from environment variables with sensible defaults.
// JWT_SECRET is required; everything else has a development default.
func Load() (*Config, error) {
	cfg := load()
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set; required for production")
	}
	return cfg, nil
}

// LoadWithDefaults is like Load but uses a safe default for JWT_SECRET in development.
// WARNING: Only use in development! Use Load() in production.
func LoadWithDefaults() *Config {
	cfg := load()
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "dev-secret-change-me"
	}
	return cfg
}

func load() *Config {
	return &Config{
		Tables: TableConfig{
			Orders:      getEnv("ORDERS_TABLE", "orders"),
			Tasks:       getEnv("TASKS_TABLE", "tasks"),
			Offers:      getEnv("OFFERS_TABLE", "offers"),
			OfferUsage:  getEnv("OFFER_USAGE_TABLE", "offer_usage"),
			Counters:    getEnv("COUNTERS_TABLE", "counters"),
			Customers:   getEnv("CUSTOMERS_TABLE", "customers"),
			Idempotency: getEnv("IDEMPOTENCY_TABLE", "idempotency"),
		},
		Queue: QueueConfig{
			ProfileUpsertURL: getEnv("PROFILE_UPSERT_QUEUE_URL", ""),
		},
		HTTP: HTTPConfig{
			Address: getEnv("HTTP_ADDRESS", ":8080"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		MetricsNamespace: getEnv("METRICS_NAMESPACE", ""),
	}
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
