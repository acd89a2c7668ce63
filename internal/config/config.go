package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds application settings loaded from environment variables.
// Per-security tax parameters live in the securities config file instead.
type Config struct {
	ECBBaseURL        string
	ECBRetryMax       int
	ECBRetryBaseDelay time.Duration
	RatesDBPath       string
	Parallelism       int
	SheetsSpreadsheet string
	SheetsCredentials string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		ECBBaseURL:        envOrDefault("ECB_BASE_URL", "https://data-api.ecb.europa.eu"),
		ECBRetryMax:       envOrDefaultInt("ECB_RETRY_MAX", 3),
		ECBRetryBaseDelay: envOrDefaultDuration("ECB_RETRY_BASE_DELAY", 1*time.Second),
		RatesDBPath:       envOrDefault("RATES_DB_PATH", defaultRatesDBPath()),
		Parallelism:       envOrDefaultInt("PARALLELISM", 4),
		SheetsSpreadsheet: envOrDefault("SHEETS_SPREADSHEET_ID", ""),
		SheetsCredentials: envOrDefault("SHEETS_CREDENTIALS_JSON", ""),
	}
}

func defaultRatesDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "ecb-rates.db"
	}
	return filepath.Join(home, ".kest", "ecb-rates.db")
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}
