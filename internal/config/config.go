package config

import (
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Persistence
	DatabaseURL string // empty: in-memory store (local development)

	// Resilience (store writes)
	MaxRetries     int
	InitialBackoff time.Duration

	// Accrual policy
	DailyOverdueRate decimal.Decimal // simple daily rate, 0.001 = 0.1%/day
	AccrualHourUTC   int             // daily run hour, 0-23

	// Observability
	OTLPEndpoint string
	EnableTraces bool
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	cfg := &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),

		DailyOverdueRate: getEnvDecimal("DAILY_OVERDUE_RATE", decimal.NewFromFloat(0.001)),
		AccrualHourUTC:   getEnvInt("ACCRUAL_HOUR_UTC", 6),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		EnableTraces: getEnv("ENABLE_TRACES", "false") == "true",
	}

	// An out-of-range hour would silently shift the run to another day
	// through date normalization.
	if cfg.AccrualHourUTC < 0 || cfg.AccrualHourUTC > 23 {
		cfg.AccrualHourUTC = 6
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return fallback
}
