// Package config loads client configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds everything the client needs to reach its two collaborators:
// the REST backend and the ExpensesBalancer contract.
type Config struct {
	// BackendURL is the base URL of the session/expense REST backend.
	BackendURL string `env:"BACKEND_URL" envDefault:"http://localhost:8000"`

	// RPCURL is the JSON-RPC endpoint of the chain node.
	RPCURL string `env:"RPC_URL,required"`

	// ContractAddress is the deployed ExpensesBalancer contract.
	ContractAddress string `env:"CONTRACT_ADDRESS,required"`

	// TokenAddress is the ERC-20 token (USDC) used for settlement.
	TokenAddress string `env:"TOKEN_ADDRESS,required"`

	// ChainID of the target network (Sepolia by default).
	ChainID int64 `env:"CHAIN_ID" envDefault:"11155111"`

	// PrivateKey is the hex-encoded wallet key used for contract writes.
	// Optional: a client without a key can still read chain state.
	PrivateKey string `env:"PRIVATE_KEY"`

	// HTTPTimeout bounds each backend request.
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`

	// ReceiptTimeout bounds how long a submitted transaction is awaited.
	ReceiptTimeout time.Duration `env:"RECEIPT_TIMEOUT" envDefault:"2m"`

	// EventLookbackBlocks bounds event-log queries to a recent block range.
	EventLookbackBlocks uint64 `env:"EVENT_LOOKBACK_BLOCKS" envDefault:"5000"`

	// LogLevel controls the injected logger ("debug", "info", ...).
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from the environment, first merging a .env file
// if one is present (missing .env is not an error).
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
