package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Kind names a state transition recorded on the public feed.
type Kind string

const (
	KindAccountRegistered   Kind = "account_registered"
	KindEligibilityVerified Kind = "eligibility_verified"
	KindVerifierRotated     Kind = "verifier_rotated"
	KindPoolCreated         Kind = "pool_created"
	KindScholarshipClaimed  Kind = "scholarship_claimed"
	KindResidualWithdrawn   Kind = "residual_withdrawn"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
//
// Seq is assigned by the store at append time and gives the feed its total
// order. External consumers (dashboards, explorers) only ever read this feed.
type Event struct {
	ID        uuid.UUID      `json:"id"`
	Seq       int64          `json:"seq"`
	Kind      Kind           `json:"kind"`
	Actor     string         `json:"actor"`
	Subject   string         `json:"subject"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	RequestID string         `json:"request_id,omitempty"`

	// SubjectIDHash is a SHA-256 hash of the external identity key involved,
	// for compliance traceability without putting the raw key on the public
	// record. Empty for events with no identity subject.
	SubjectIDHash string `json:"subject_id_hash,omitempty"`
}

// HashExternalID derives the public traceability hash for an external
// identity key.
func HashExternalID(externalID uint64) string {
	sum := sha256.Sum256([]byte(strconv.FormatUint(externalID, 10)))
	return hex.EncodeToString(sum[:])
}
