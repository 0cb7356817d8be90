// Package config loads and validates gateway configuration from environment
// variables, with an optional YAML file for the non-secret trading parameters.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AuthPolicy selects how multiple configured auth mechanisms combine.
type AuthPolicy string

const (
	// PolicyAny authorizes when any configured mechanism passes.
	PolicyAny AuthPolicy = "any"
	// PolicyAll requires every configured mechanism to pass.
	PolicyAll AuthPolicy = "all"
)

// Config holds every setting the gateway reads. Loaded once at startup and
// passed by reference; never mutated afterwards.
type Config struct {
	// Webhook auth
	WebhookSecret string
	WebhookKey    string
	AuthPolicy    AuthPolicy

	// Exchange
	Exchange        string
	CoinbaseAPIKey  string
	CoinbaseSecret  string
	CoinbaseBaseURL string

	// Trading parameters
	Symbol           string
	DefaultUSD       float64
	MaxUSD           float64
	AllowImplicitBuy bool

	// Audit
	AuditURL string

	// Process
	ListenAddr  string
	MetricsAddr string
	LogLevel    string
}

// Params is the YAML-file shape for the non-secret trading parameters.
// Environment variables take precedence over file values.
type Params struct {
	Exchange         string  `yaml:"exchange"`
	Symbol           string  `yaml:"symbol"`
	DefaultUSD       float64 `yaml:"default_usd"`
	MaxUSD           float64 `yaml:"max_usd"`
	AllowImplicitBuy bool    `yaml:"allow_implicit_buy"`
	ListenAddr       string  `yaml:"listen_addr"`
	MetricsAddr      string  `yaml:"metrics_addr"`
	LogLevel         string  `yaml:"log_level"`
}

// Load reads configuration with precedence: environment > .env file >
// CONFIG_FILE YAML > hardcoded defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	params := Params{
		Exchange:    "coinbase",
		Symbol:      "SOL-USDC",
		DefaultUSD:  20,
		ListenAddr:  ":8080",
		MetricsAddr: ":9100",
		LogLevel:    "info",
	}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadParams(path, &params); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),
		WebhookKey:    os.Getenv("WEBHOOK_KEY"),
		AuthPolicy:    AuthPolicy(getEnv("AUTH_POLICY", string(PolicyAny))),

		Exchange:        getEnv("EXCHANGE", params.Exchange),
		CoinbaseAPIKey:  os.Getenv("COINBASE_API_KEY"),
		CoinbaseSecret:  os.Getenv("COINBASE_API_SECRET"),
		CoinbaseBaseURL: getEnv("COINBASE_BASE_URL", "https://api.coinbase.com"),

		Symbol:           getEnv("SYMBOL", params.Symbol),
		DefaultUSD:       getEnvFloat("DEFAULT_USD", params.DefaultUSD),
		MaxUSD:           getEnvFloat("MAX_USD", params.MaxUSD),
		AllowImplicitBuy: getEnvBool("ALLOW_IMPLICIT_BUY", params.AllowImplicitBuy),

		AuditURL: os.Getenv("AUDIT_URL"),

		ListenAddr:  getEnv("LISTEN_ADDR", params.ListenAddr),
		MetricsAddr: getEnv("METRICS_ADDR", params.MetricsAddr),
		LogLevel:    getEnv("LOG_LEVEL", params.LogLevel),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func loadParams(path string, params *Params) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(params); err != nil {
		return fmt.Errorf("decode yaml: %w", err)
	}
	return nil
}

// Validate checks the invariants that must hold before serving traffic.
// Auth being entirely unconfigured is allowed here: the authenticator fails
// closed at request time, so a half-configured deploy stays observable
// instead of dead on boot.
func (c *Config) Validate() error {
	if c.Exchange == "" {
		return fmt.Errorf("EXCHANGE is required")
	}
	if c.AuthPolicy != PolicyAny && c.AuthPolicy != PolicyAll {
		return fmt.Errorf("AUTH_POLICY must be %q or %q, got %q", PolicyAny, PolicyAll, c.AuthPolicy)
	}
	if c.Symbol == "" {
		return fmt.Errorf("SYMBOL is required")
	}
	if c.DefaultUSD <= 0 {
		return fmt.Errorf("DEFAULT_USD must be positive")
	}
	if c.MaxUSD < 0 {
		return fmt.Errorf("MAX_USD must not be negative")
	}
	if c.MaxUSD > 0 && c.DefaultUSD > c.MaxUSD {
		return fmt.Errorf("DEFAULT_USD exceeds MAX_USD")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("LISTEN_ADDR is required")
	}
	return nil
}

// MaskedAPIKey returns the exchange API key with most characters hidden.
func (c *Config) MaskedAPIKey() string { return maskSecret(c.CoinbaseAPIKey) }

// MaskedWebhookSecret returns the webhook secret with most characters hidden.
func (c *Config) MaskedWebhookSecret() string { return maskSecret(c.WebhookSecret) }

func maskSecret(s string) string {
	if len(s) <= 8 {
		if len(s) == 0 {
			return "(not set)"
		}
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
