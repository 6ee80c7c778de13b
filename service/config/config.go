package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Network labels for the two supported endpoints.
const (
	NetworkDevnet  = "devnet"
	NetworkMainnet = "mainnet-beta"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// Solana RPC endpoints, one per supported network
	SolanaDevnetRPCURL  string
	SolanaMainnetRPCURL string

	// Network selected at startup (devnet or mainnet-beta)
	DefaultNetwork string

	// Token metadata directory
	TokenListURL string

	// Wallet configuration. A keypair file enables signing; a bare public
	// key yields a watch-only console that can still read and airdrop.
	WalletKeypairPath string
	WalletPublicKey   string

	// Operation policy
	AirdropCeiling      float64
	ConfirmInterval     time.Duration
	AirdropMaxAttempts  int
	TransferMaxAttempts int
	TokenMaxAttempts    int
	HistoryLimit        int

	// Optional integrations
	DatabaseURL string
	NATSURL     string
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Solana endpoints
	cfg.SolanaDevnetRPCURL = getEnvOrDefault("SOLANA_DEVNET_RPC_URL", "https://api.devnet.solana.com")
	cfg.SolanaMainnetRPCURL = getEnvOrDefault("SOLANA_MAINNET_RPC_URL", "https://api.mainnet-beta.solana.com")
	if cfg.SolanaDevnetRPCURL == cfg.SolanaMainnetRPCURL {
		errs = append(errs, fmt.Errorf("SOLANA_DEVNET_RPC_URL and SOLANA_MAINNET_RPC_URL must be different"))
	}

	cfg.DefaultNetwork = getEnvOrDefault("DEFAULT_NETWORK", NetworkDevnet)

	// Token metadata directory
	cfg.TokenListURL = getEnvOrDefault("TOKEN_LIST_URL",
		"https://cdn.jsdelivr.net/gh/solana-labs/token-list@main/src/tokens/solana.tokenlist.json")

	// Wallet configuration
	cfg.WalletKeypairPath = os.Getenv("WALLET_KEYPAIR_PATH")
	cfg.WalletPublicKey = os.Getenv("WALLET_PUBLIC_KEY")

	// Operation policy
	ceiling, err := parseFloat("AIRDROP_CEILING", 10)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.AirdropCeiling = ceiling
	}

	interval, err := parseDuration("CONFIRM_INTERVAL", "2s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ConfirmInterval = interval
	}

	cfg.AirdropMaxAttempts, err = parseInt("AIRDROP_MAX_ATTEMPTS", 2)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.TransferMaxAttempts, err = parseInt("TRANSFER_MAX_ATTEMPTS", 5)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.TokenMaxAttempts, err = parseInt("TOKEN_MAX_ATTEMPTS", 10)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.HistoryLimit, err = parseInt("HISTORY_LIMIT", 10)
	if err != nil {
		errs = append(errs, err)
	}

	// Optional integrations
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.NATSURL = os.Getenv("NATS_URL")

	// Return all env parsing errors before structural validation
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.SolanaDevnetRPCURL == "" {
		errs = append(errs, fmt.Errorf("SolanaDevnetRPCURL is required"))
	}

	if c.SolanaMainnetRPCURL == "" {
		errs = append(errs, fmt.Errorf("SolanaMainnetRPCURL is required"))
	}

	if c.DefaultNetwork != NetworkDevnet && c.DefaultNetwork != NetworkMainnet {
		errs = append(errs, fmt.Errorf("DefaultNetwork must be %q or %q", NetworkDevnet, NetworkMainnet))
	}

	if c.TokenListURL == "" {
		errs = append(errs, fmt.Errorf("TokenListURL is required"))
	}

	if c.AirdropCeiling <= 0 {
		errs = append(errs, fmt.Errorf("AirdropCeiling must be positive"))
	}

	if c.ConfirmInterval <= 0 {
		errs = append(errs, fmt.Errorf("ConfirmInterval must be positive"))
	}

	if c.AirdropMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("AirdropMaxAttempts must be at least 1"))
	}

	if c.TransferMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("TransferMaxAttempts must be at least 1"))
	}

	if c.TokenMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("TokenMaxAttempts must be at least 1"))
	}

	if c.HistoryLimit < 1 {
		errs = append(errs, fmt.Errorf("HistoryLimit must be at least 1"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// RPCURL returns the RPC endpoint for the given network label.
func (c *Config) RPCURL(network string) (string, error) {
	switch network {
	case NetworkDevnet:
		return c.SolanaDevnetRPCURL, nil
	case NetworkMainnet:
		return c.SolanaMainnetRPCURL, nil
	default:
		return "", fmt.Errorf("unknown network %q", network)
	}
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}

// parseFloat parses a float from an environment variable or uses a default.
func parseFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q: %w", key, value, err)
	}
	return result, nil
}
