package models

import (
	"time"

	"github.com/google/uuid"
)

// Record is one immutable eligibility decision. The ledger is append-only:
// records are never rewritten, and the account projection always mirrors the
// most recent one. Verifier attribution is fixed at append time and survives
// later verifier rotations.
type Record struct {
	ID         uuid.UUID
	AccountID  uuid.UUID
	Handle     string
	ExternalID uint64
	Eligible   bool
	Reason     string
	Verifier   string
	VerifiedAt time.Time
}
