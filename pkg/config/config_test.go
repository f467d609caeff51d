package config

import (
	"strings"
	"testing"
	"time"

	"nestbook/pkg/logger"
)

func validConfig() *Config {
	return &Config{
		StoreDriver:        StoreMemory,
		Port:               "8080",
		RateLimitRequests:  DefaultRateLimitRequests,
		RateLimitWindow:    DefaultRateLimitWindow,
		RequestTimeout:     DefaultRequestTimeout,
		IdempotencyTTL:     DefaultIdempotencyTTL,
		MaxRequestSize:     DefaultMaxRequestSize,
		ReadTimeout:        DefaultReadTimeout,
		WriteTimeout:       DefaultWriteTimeout,
		IdleTimeout:        DefaultIdleTimeout,
		ShutdownTimeout:    DefaultShutdownTimeout,
		DefaultTimezone:    "Europe/Lisbon",
		MaxGuests:          DefaultMaxGuests,
		DefaultPageSize:    DefaultPageSize,
		MaxPageSize:        DefaultMaxPageSize,
		ListingsServiceURL: DefaultListingsServiceURL,
		ListingsTimeout:    DefaultListingsTimeout,
		Log:                logger.Nop(),
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
	if cfg.Location == nil || cfg.Location.String() != "Europe/Lisbon" {
		t.Errorf("expected Location to be resolved, got %v", cfg.Location)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"bad port", func(c *Config) { c.Port = "0" }, "Port must be between"},
		{"unknown driver", func(c *Config) { c.StoreDriver = "sqlite" }, "StoreDriver must be one of"},
		{"mongo uri", func(c *Config) { c.StoreDriver = StoreMongo; c.MongoURI = "http://x"; c.MongoDatabaseName = "db"; c.MongoConnTimeout = time.Second }, "MongoURI must start"},
		{"postgres dsn", func(c *Config) { c.StoreDriver = StorePostgres; c.PostgresDSN = "mysql://x"; c.PostgresMaxConns = 1; c.PostgresConnTimeout = time.Second }, "PostgresDSN must start"},
		{"time zone", func(c *Config) { c.DefaultTimezone = "Nowhere/Land" }, "DefaultTimezone must be"},
		{"max guests", func(c *Config) { c.MaxGuests = 0 }, "MaxGuests must be positive"},
		{"page sizes", func(c *Config) { c.MaxPageSize = 5; c.DefaultPageSize = 10 }, "MaxPageSize (5)"},
		{"short secret", func(c *Config) { c.JWTSecret = "short" }, "JWTSecret must be at least"},
		{"listings url", func(c *Config) { c.ListingsServiceURL = "listings" }, "ListingsServiceURL must be"},
		{"kafka topics", func(c *Config) { c.KafkaEnabled = true; c.BookingEventsTopic = "" }, "BookingEventsTopic cannot be empty"},
		{"otel endpoint", func(c *Config) { c.OtelEnabled = true; c.OtelEndpoint = "" }, "OtelEndpoint cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected error to contain %q, got: %v", tt.wantMsg, err)
			}
		})
	}
}

func TestNormalizePageSize(t *testing.T) {
	cfg := validConfig()

	tests := []struct {
		in   int
		want int
	}{
		{0, DefaultPageSize},
		{-3, DefaultPageSize},
		{25, 25},
		{1000, DefaultMaxPageSize},
	}
	for _, tt := range tests {
		if got := cfg.NormalizePageSize(tt.in); got != tt.want {
			t.Errorf("NormalizePageSize(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRedaction(t *testing.T) {
	if got := redactMongoURI("mongodb://admin:secret@db:27017"); got != "mongodb://***:***@db:27017" {
		t.Errorf("unexpected mongo redaction: %s", got)
	}
	if got := redactPostgresDSN("postgres://app:secret@db:5432/nestbook"); strings.Contains(got, "secret") {
		t.Errorf("postgres password leaked: %s", got)
	}
}
