package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("OWNER_HANDLE", "0xowner")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "scholarhub.audit", cfg.AuditTopic)
	assert.Equal(t, "0xowner", cfg.OwnerHandle)
	assert.Equal(t, 5*time.Second, cfg.PoolSnapshotTTL)
}

func TestFromEnvRequiresOwner(t *testing.T) {
	t.Setenv("OWNER_HANDLE", "")

	_, err := FromEnv()
	require.Error(t, err)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("OWNER_HANDLE", "0xowner")
	t.Setenv("SCHOLARHUB_ADDR", ":9999")
	t.Setenv("VERIFIER_HANDLE", "0xoracle")
	t.Setenv("POOL_SNAPSHOT_TTL", "30s")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, "0xoracle", cfg.VerifierHandle)
	assert.Equal(t, 30*time.Second, cfg.PoolSnapshotTTL)
}
