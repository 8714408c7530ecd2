package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "scholarhub/pkg/domain-errors"
)

func TestNewPoolTruncatesShare(t *testing.T) {
	pool, err := NewPool("STEM Fund", 100, 3, "0xowner", time.Now())
	require.NoError(t, err)

	assert.Equal(t, int64(33), pool.ShareAmount)
	assert.Equal(t, int64(100), pool.RemainingAmount)
	assert.Zero(t, pool.ClaimsProcessed)
	assert.True(t, pool.Active)
	assert.True(t, pool.ConservationHolds())
}

func TestNewPoolRejectsBadInput(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		amount   int64
		capacity int
		wantCode dErrors.Code
	}{
		{"zero capacity", "Fund", 100, 0, dErrors.CodeInvalidCapacity},
		{"negative capacity", "Fund", 100, -1, dErrors.CodeInvalidCapacity},
		{"zero amount", "Fund", 0, 3, dErrors.CodeInvalidInput},
		{"share truncates to zero", "Fund", 2, 5, dErrors.CodeShareTooSmall},
		{"empty title", "", 100, 3, dErrors.CodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPool(tt.title, tt.amount, tt.capacity, "0xowner", time.Now())
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, dErrors.CodeOf(err))
		})
	}
}

func TestNewSponsoredPool(t *testing.T) {
	pool, err := NewSponsoredPool("Named Grant", 500, "0xsponsor", "0xstudent", time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, pool.Capacity)
	assert.Equal(t, int64(500), pool.ShareAmount)
	assert.Equal(t, "0xsponsor", pool.Creator)
	assert.True(t, pool.Sponsored())

	_, err = NewSponsoredPool("Named Grant", 500, "0xsponsor", "", time.Now())
	assert.Equal(t, dErrors.CodeInvalidInput, dErrors.CodeOf(err))
}

func TestConservationAcrossClaimsAndWithdrawals(t *testing.T) {
	pool, err := NewPool("Fund", 100, 3, "0xowner", time.Now())
	require.NoError(t, err)

	pool.ApplyClaim()
	pool.ApplyClaim()
	assert.Equal(t, int64(34), pool.RemainingAmount)
	assert.True(t, pool.ConservationHolds())

	pool.ApplyWithdrawal(20)
	assert.Equal(t, int64(14), pool.RemainingAmount)
	assert.Equal(t, int64(20), pool.WithdrawnAmount)
	assert.True(t, pool.ConservationHolds())
	// 14 remaining cannot cover a 33 share, so the pool soft-closes.
	assert.False(t, pool.Active)

	pool.RevertWithdrawal(20)
	assert.True(t, pool.Active)
	assert.True(t, pool.ConservationHolds())
}

func TestRevertClaimRestoresState(t *testing.T) {
	pool, err := NewPool("Fund", 90, 3, "0xowner", time.Now())
	require.NoError(t, err)

	pool.ApplyClaim()
	pool.RevertClaim()

	assert.Zero(t, pool.ClaimsProcessed)
	assert.Equal(t, int64(90), pool.RemainingAmount)
	assert.True(t, pool.ConservationHolds())
}
