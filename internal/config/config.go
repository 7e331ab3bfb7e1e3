package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	DBSource string
	Port     string
	Env      string

	RedisAddr string
	RedisPass string

	// Payment network (reversal) settings.
	OpenPayBaseURL   string
	OpenPayTenantID  string
	OpenPaySecret    string
	OpenPayWalletID  string
	OpenPayTimeout   time.Duration
	WebhookSecret    string
	ReversalFallback string // operations wallet used when sender metadata is missing; empty disables

	// Auto-approval thresholds per currency, plus the default applied to
	// currencies without an explicit entry.
	AutoApproveThresholds map[string]decimal.Decimal
	DefaultThreshold      decimal.Decimal

	RateCacheTTL time.Duration
}

func Load() (*Config, error) {
	dbSource := os.Getenv("DB_SOURCE")
	if dbSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}

	thresholds, err := parseThresholds(getEnv("AUTO_APPROVE_THRESHOLDS", "USD:1000,EUR:900,PKR:250000"))
	if err != nil {
		return nil, err
	}

	defaultThreshold, err := decimal.NewFromString(getEnv("AUTO_APPROVE_DEFAULT_THRESHOLD", "500"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTO_APPROVE_DEFAULT_THRESHOLD: %w", err)
	}

	timeout, err := time.ParseDuration(getEnv("OPENPAY_TIMEOUT", "8s"))
	if err != nil {
		return nil, fmt.Errorf("invalid OPENPAY_TIMEOUT: %w", err)
	}

	rateTTL, err := time.ParseDuration(getEnv("RATE_CACHE_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_CACHE_TTL: %w", err)
	}

	return &Config{
		DBSource: dbSource,
		Port:     getEnv("SERVER_PORT", "8080"),
		Env:      getEnv("ENVIRONMENT", "development"),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass: getEnv("REDIS_PASS", ""),

		OpenPayBaseURL:   getEnv("OPENPAY_BASE_URL", "http://localhost:3000"),
		OpenPayTenantID:  getEnv("OPENPAY_TENANT_ID", ""),
		OpenPaySecret:    getEnv("OPENPAY_SECRET", ""),
		OpenPayWalletID:  getEnv("OPENPAY_WALLET_ID", ""),
		OpenPayTimeout:   timeout,
		WebhookSecret:    getEnv("OPENPAY_WEBHOOK_SECRET", ""),
		ReversalFallback: getEnv("REVERSAL_FALLBACK_WALLET", ""),

		AutoApproveThresholds: thresholds,
		DefaultThreshold:      defaultThreshold,
		RateCacheTTL:          rateTTL,
	}, nil
}

// parseThresholds parses "USD:1000,PKR:250000" style lists.
func parseThresholds(s string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid threshold entry %q", pair)
		}
		v, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid threshold for %s: %w", parts[0], err)
		}
		out[strings.ToUpper(strings.TrimSpace(parts[0]))] = v
	}
	return out, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
