// Package config reads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures everything the server needs at startup. Optional backends
// (Postgres, Redis, Kafka) are enabled by setting their addresses; the engine
// falls back to in-memory implementations otherwise.
type Config struct {
	Addr          string `env:"SCHOLARHUB_ADDR" envDefault:":8080"`
	DatabaseURL   string `env:"DATABASE_URL"`
	RedisURL      string `env:"REDIS_URL"`
	KafkaSeeds    string `env:"KAFKA_SEEDS"`
	AuditTopic    string `env:"AUDIT_TOPIC" envDefault:"scholarhub.audit"`
	JWTSigningKey string `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`

	// OwnerHandle is the principal allowed to appoint verifiers, create
	// pools, and withdraw residual funds.
	OwnerHandle string `env:"OWNER_HANDLE,required"`
	// VerifierHandle is the initial oracle binding; rotatable at runtime.
	VerifierHandle string `env:"VERIFIER_HANDLE"`
	// OwnerInitialBalance seeds the owner's treasury balance at startup so
	// pools can be funded. Deposits are otherwise outside this system.
	OwnerInitialBalance int64 `env:"OWNER_INITIAL_BALANCE" envDefault:"0"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// PoolSnapshotTTL bounds staleness of cached read-side pool snapshots.
	PoolSnapshotTTL time.Duration `env:"POOL_SNAPSHOT_TTL" envDefault:"5s"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
