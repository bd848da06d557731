package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application runtime configuration.
type Config struct {
	Env         string
	HTTPPort    string
	DatabaseURL string
	JWTSecret   string

	DefaultCurrency string

	// SweepInterval is how often the in-process scheduler runs the
	// billing/overdue/renewal sweeps.
	SweepInterval time.Duration

	// RenewalLeadDays is the fallback notification lead time for contracts
	// without an explicit renewal notice date.
	RenewalLeadDays int

	// OverpaymentTolerance is the maximum amount by which accumulated
	// payments may exceed an invoice total before the payment is rejected.
	OverpaymentTolerance string
}

// Load reads environment variables and .env (if present).
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:                  getEnv("APP_ENV", "development"),
		HTTPPort:             getEnv("HTTP_PORT", "8080"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		DefaultCurrency:      getEnv("CURRENCY_CODE", "BRL"),
		SweepInterval:        getDuration("SWEEP_INTERVAL", time.Hour),
		RenewalLeadDays:      getInt("RENEWAL_LEAD_DAYS", 30),
		OverpaymentTolerance: getEnv("OVERPAYMENT_TOLERANCE", "0.00"),
	}

	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return cfg, errors.New("JWT_SECRET is required")
	}
	return cfg, nil
}

func getEnv(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func getInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(name string, def time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
