package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port        string
	Environment string
	LogLevel    string

	// Database
	DatabaseURL string
	AutoMigrate bool

	// Auth (tokens are issued by the hosted auth provider)
	AuthJWTSecret string

	// Background Workers
	WorkerCount int

	// CORS
	AllowedOrigins []string

	// Payment initiation
	PaymentInitURL        string
	PaymentInitAPIKey     string
	PaymentCallbackSecret string
	PendingPaymentTTL     time.Duration

	// Sentry
	SentryDSN string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:                  getEnv("PORT", "8080"),
		Environment:           getEnv("ENVIRONMENT", "development"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		AutoMigrate:           getEnvAsBool("AUTO_MIGRATE", false),
		AuthJWTSecret:         getEnv("AUTH_JWT_SECRET", ""),
		WorkerCount:           getEnvAsInt("WORKER_COUNT", 5),
		AllowedOrigins:        getEnvAsSlice("ALLOWED_ORIGINS", []string{"*"}),
		PaymentInitURL:        getEnv("PAYMENT_INIT_URL", ""),
		PaymentInitAPIKey:     getEnv("PAYMENT_INIT_API_KEY", ""),
		PaymentCallbackSecret: getEnv("PAYMENT_CALLBACK_SECRET", ""),
		PendingPaymentTTL:     time.Duration(getEnvAsInt("PENDING_PAYMENT_TTL_MINUTES", 60)) * time.Minute,
		SentryDSN:             getEnv("SENTRY_DSN", ""),
	}

	// Validate required configuration
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.Environment == "production" {
		if cfg.AuthJWTSecret == "" {
			return nil, fmt.Errorf("AUTH_JWT_SECRET is required in production")
		}
		if cfg.PaymentCallbackSecret == "" {
			return nil, fmt.Errorf("PAYMENT_CALLBACK_SECRET is required in production")
		}
	}

	// Set default secret for development
	if cfg.AuthJWTSecret == "" {
		cfg.AuthJWTSecret = "dev-secret-change-in-production"
	}

	if cfg.PendingPaymentTTL <= 0 {
		cfg.PendingPaymentTTL = time.Hour
	}

	return cfg, nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an environment variable as integer
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice reads an environment variable as comma-separated slice
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
