// Package config loads runtime configuration from the environment,
// with a .env file loaded first if present (non-fatal if absent), in
// the same style the teacher server used for its database DSN.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const (
	defaultHost          = "localhost"
	defaultPort           = "9000"
	defaultLedgerPath     = "trades.ledger"
	defaultSnapshotPath   = "orderbook.snapshot"
	defaultQueueCapacity  = 1024
)

// Config holds every value the server binary needs to start.
type Config struct {
	Host          string
	Port          string
	LedgerPath    string
	SnapshotPath  string
	QueueCapacity int
}

// Addr returns the host:port pair to bind.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Load reads .env (if present) then the environment, falling back to
// defaults. Each string setting that falls back is logged at INFO; an
// invalid EXCHANGE_QUEUE_CAPACITY is logged at WARN, and an unset one
// falls back to the default without logging.
func Load(log zerolog.Logger) Config {
	if err := godotenv.Load(); err != nil {
		log.Info().Err(err).Msg(".env not loaded, using process environment only")
	}

	cfg := Config{
		Host:          getEnvOrDefault("EXCHANGE_HOST", defaultHost, log),
		Port:          getEnvOrDefault("EXCHANGE_PORT", defaultPort, log),
		LedgerPath:    getEnvOrDefault("EXCHANGE_LEDGER_PATH", defaultLedgerPath, log),
		SnapshotPath:  getEnvOrDefault("EXCHANGE_SNAPSHOT_PATH", defaultSnapshotPath, log),
		QueueCapacity: defaultQueueCapacity,
	}

	if raw := os.Getenv("EXCHANGE_QUEUE_CAPACITY"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			log.Warn().Str("value", raw).Msg("invalid EXCHANGE_QUEUE_CAPACITY, using default")
		} else {
			cfg.QueueCapacity = n
		}
	}

	return cfg
}

func getEnvOrDefault(key, fallback string, log zerolog.Logger) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	log.Info().Str("key", key).Str("default", fallback).Msg("environment variable not set, using default")
	return fallback
}
