package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port         int
	DevMode      bool
	DatabasePath string
	LogLevel     string

	StockAPIURL       string
	HealthProbeSymbol string
	FetchTimeout      time.Duration
	ProbeTimeout      time.Duration
	RetryAttempts     int
	RetryBaseDelay    time.Duration

	BreakerThreshold int
	BreakerCooldown  time.Duration

	PriceSyncSchedule string
	InterestSchedule  string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnvAsInt("PORT", 8080),
		DevMode:      getEnvAsBool("DEV_MODE", false),
		DatabasePath: getEnv("DATABASE_PATH", "./data/fintrack.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		StockAPIURL:       getEnv("STOCK_API_URL", "http://localhost:8000"),
		HealthProbeSymbol: getEnv("PRICE_PROBE_SYMBOL", "VNM"),
		FetchTimeout:      getEnvAsDuration("PRICE_FETCH_TIMEOUT", 10*time.Second),
		ProbeTimeout:      getEnvAsDuration("PRICE_PROBE_TIMEOUT", 3*time.Second),
		RetryAttempts:     getEnvAsInt("PRICE_RETRY_ATTEMPTS", 3),
		RetryBaseDelay:    getEnvAsDuration("PRICE_RETRY_BASE_DELAY", time.Second),

		BreakerThreshold: getEnvAsInt("BREAKER_FAILURE_THRESHOLD", 5),
		BreakerCooldown:  getEnvAsDuration("BREAKER_COOLDOWN", 60*time.Second),

		// Seconds-aware cron expressions
		PriceSyncSchedule: getEnv("PRICE_SYNC_SCHEDULE", "0 */2 * * * *"),
		InterestSchedule:  getEnv("INTEREST_SCHEDULE", "0 0 1 * * *"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.StockAPIURL == "" {
		return fmt.Errorf("STOCK_API_URL is required")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("PRICE_RETRY_ATTEMPTS must be at least 1")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
