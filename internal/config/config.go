package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
)

// defaultUSDToSRD is the fallback exchange rate when USD_SRD_RATE is not configured.
const defaultUSDToSRD = "5.5"

// Config carries all runtime settings read from the environment.
type Config struct {
	DatabaseURL    string
	ServerPort     string
	AllowedOrigins string // comma-separated; empty disables CORS

	// USDToSRD converts USD cost figures into SRD for revenue and profit math.
	// Injected here so a deployment can change it without touching ledger code.
	USDToSRD decimal.Decimal
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		ServerPort:     os.Getenv("SERVER_PORT"),
		AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	rateStr := os.Getenv("USD_SRD_RATE")
	if rateStr == "" {
		rateStr = defaultUSDToSRD
	}
	rate, err := decimal.NewFromString(rateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid USD_SRD_RATE %q: %w", rateStr, err)
	}
	if rate.IsNegative() || rate.IsZero() {
		return nil, fmt.Errorf("USD_SRD_RATE must be > 0, got %s", rate)
	}
	cfg.USDToSRD = rate

	return cfg, nil
}
