// Package config reads the service configuration from the environment
// once at startup. Anything invalid is a startup error, never a
// per-request one.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/saakshiraut28/roastarena/internal/ledger"
)

// Config is the fully validated service configuration.
type Config struct {
	Port             string
	RPCURL           string
	Merchant         solana.PublicKey
	PriceLamports    uint64
	Cluster          string
	Commitment       rpc.CommitmentType
	BroadcastTimeout time.Duration
	ConfirmTimeout   time.Duration
	DatabaseURL      string
}

// Load reads and validates the environment. Required: MERCHANT_ADDRESS
// and PRICE_LAMPORTS. DATABASE_URL is optional; when empty the service
// runs on the in-memory store.
func Load() (*Config, error) {
	merchantStr := os.Getenv("MERCHANT_ADDRESS")
	if merchantStr == "" {
		return nil, fmt.Errorf("MERCHANT_ADDRESS is required")
	}
	merchant, err := solana.PublicKeyFromBase58(merchantStr)
	if err != nil {
		return nil, fmt.Errorf("invalid MERCHANT_ADDRESS: %w", err)
	}

	priceStr := os.Getenv("PRICE_LAMPORTS")
	if priceStr == "" {
		return nil, fmt.Errorf("PRICE_LAMPORTS is required")
	}
	price, err := strconv.ParseUint(priceStr, 10, 64)
	if err != nil || price == 0 {
		return nil, fmt.Errorf("invalid PRICE_LAMPORTS %q", priceStr)
	}

	commitment, err := ledger.ParseCommitment(os.Getenv("COMMITMENT"))
	if err != nil {
		return nil, fmt.Errorf("invalid COMMITMENT: %w", err)
	}

	broadcastTimeout, err := durationEnv("BROADCAST_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	confirmTimeout, err := durationEnv("CONFIRM_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:             getEnv("PORT", "8080"),
		RPCURL:           getEnv("SOLANA_RPC_URL", rpc.DevNet_RPC),
		Merchant:         merchant,
		PriceLamports:    price,
		Cluster:          getEnv("SOLANA_CLUSTER", "devnet"),
		Commitment:       commitment,
		BroadcastTimeout: broadcastTimeout,
		ConfirmTimeout:   confirmTimeout,
		DatabaseURL:      os.Getenv("DATABASE_URL"),
	}, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, value)
	}
	return d, nil
}
