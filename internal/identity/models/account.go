package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "scholarhub/pkg/domain-errors"
)

// Account represents one registered identity: an external unique key bound to
// exactly one controlling handle. ExternalID and Handle are immutable once
// set; Eligible is a projection of the verification ledger; ClaimedPools only
// ever grows.
type Account struct {
	ID             uuid.UUID
	ExternalID     uint64
	Handle         string
	IntegrityProof string
	Eligible       bool
	VerifiedAt     *time.Time
	ClaimedPools   map[int64]bool
	CreatedAt      time.Time
}

// NewAccount validates registration input and builds an unverified account.
func NewAccount(externalID uint64, handle, integrityProof string, now time.Time) (*Account, error) {
	if externalID == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "external id cannot be zero")
	}
	if handle == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "handle cannot be empty")
	}
	if integrityProof == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "integrity proof cannot be empty")
	}
	return &Account{
		ID:             uuid.New(),
		ExternalID:     externalID,
		Handle:         handle,
		IntegrityProof: integrityProof,
		ClaimedPools:   make(map[int64]bool),
		CreatedAt:      now,
	}, nil
}

// HasClaimed reports whether this account already claimed from the pool.
func (a *Account) HasClaimed(poolID int64) bool {
	return a.ClaimedPools[poolID]
}

// MarkClaimed sets the per-pool claimed flag. The flag only ever transitions
// false to true; a second transition means the claim processor skipped its
// precondition check.
func (a *Account) MarkClaimed(poolID int64) error {
	if a.ClaimedPools[poolID] {
		return dErrors.New(dErrors.CodeInvariantViolation, "claimed flag already set")
	}
	if a.ClaimedPools == nil {
		a.ClaimedPools = make(map[int64]bool)
	}
	a.ClaimedPools[poolID] = true
	return nil
}

// ApplyVerification updates the eligibility projection from a new ledger
// record. Recording the same status twice is legal; the projection always
// mirrors the most recent record.
func (a *Account) ApplyVerification(eligible bool, at time.Time) {
	a.Eligible = eligible
	a.VerifiedAt = &at
}

// Clone returns a deep copy so stores can hand out snapshots.
func (a *Account) Clone() *Account {
	claimed := make(map[int64]bool, len(a.ClaimedPools))
	for k, v := range a.ClaimedPools {
		claimed[k] = v
	}
	copied := *a
	copied.ClaimedPools = claimed
	if a.VerifiedAt != nil {
		at := *a.VerifiedAt
		copied.VerifiedAt = &at
	}
	return &copied
}
