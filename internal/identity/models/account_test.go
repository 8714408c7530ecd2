package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "scholarhub/pkg/domain-errors"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewAccountValidation(t *testing.T) {
	_, err := NewAccount(0, "0xalice", "proof", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = NewAccount(1, "", "proof", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = NewAccount(1, "0xalice", "", now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	acc, err := NewAccount(1, "0xalice", "proof", now)
	require.NoError(t, err)
	assert.False(t, acc.Eligible)
	assert.Empty(t, acc.ClaimedPools)
	assert.NotEmpty(t, acc.ID)
}

func TestMarkClaimedOnlyOnce(t *testing.T) {
	acc, err := NewAccount(1, "0xalice", "proof", now)
	require.NoError(t, err)

	require.NoError(t, acc.MarkClaimed(7))
	assert.True(t, acc.HasClaimed(7))
	assert.False(t, acc.HasClaimed(8))

	err = acc.MarkClaimed(7)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestApplyVerificationMirrorsLatest(t *testing.T) {
	acc, err := NewAccount(1, "0xalice", "proof", now)
	require.NoError(t, err)

	acc.ApplyVerification(true, now)
	assert.True(t, acc.Eligible)

	later := now.Add(time.Hour)
	acc.ApplyVerification(false, later)
	assert.False(t, acc.Eligible)
	assert.Equal(t, later, *acc.VerifiedAt)
}

func TestCloneIsDeep(t *testing.T) {
	acc, err := NewAccount(1, "0xalice", "proof", now)
	require.NoError(t, err)
	require.NoError(t, acc.MarkClaimed(1))

	clone := acc.Clone()
	require.NoError(t, clone.MarkClaimed(2))
	clone.ApplyVerification(true, now)

	assert.False(t, acc.HasClaimed(2))
	assert.False(t, acc.Eligible)
}
