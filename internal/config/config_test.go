package config

import "testing"

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Error("Load() accepted empty JWT_SECRET")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.JWTSecret != "s3cret" {
		t.Errorf("JWTSecret = %q", cfg.Auth.JWTSecret)
	}
	if cfg.Tables.Orders != "orders" || cfg.Tables.OfferUsage != "offer_usage" {
		t.Errorf("table defaults = %+v", cfg.Tables)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Errorf("HTTP address = %q, want :8080", cfg.HTTP.Address)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ORDERS_TABLE", "orders-prod")
	t.Setenv("PROFILE_UPSERT_QUEUE_URL", "https://sqs.example/queue")
	t.Setenv("METRICS_NAMESPACE", "Fulfillment")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tables.Orders != "orders-prod" {
		t.Errorf("Orders table = %q", cfg.Tables.Orders)
	}
	if cfg.Queue.ProfileUpsertURL != "https://sqs.example/queue" {
		t.Errorf("queue url = %q", cfg.Queue.ProfileUpsertURL)
	}
	if cfg.MetricsNamespace != "Fulfillment" {
		t.Errorf("metrics namespace = %q", cfg.MetricsNamespace)
	}
}

func TestLoadWithDefaultsFallsBackOnSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	cfg := LoadWithDefaults()
	if cfg.Auth.JWTSecret == "" {
		t.Error("LoadWithDefaults left JWTSecret empty")
	}
}
