package handler

import (
	"sort"
	"time"

	"scholarhub/internal/identity/models"
)

// AccountResponse is the HTTP representation of an account.
type AccountResponse struct {
	Handle       string     `json:"handle"`
	ExternalID   uint64     `json:"external_id"`
	Eligible     bool       `json:"eligible"`
	VerifiedAt   *time.Time `json:"verified_at,omitempty"`
	ClaimedPools []int64    `json:"claimed_pools"`
	CreatedAt    time.Time  `json:"created_at"`
}

// FromAccount converts the domain account to its HTTP shape. The integrity
// proof is write-only; it never appears on the query surface.
func FromAccount(account *models.Account) AccountResponse {
	claimed := make([]int64, 0, len(account.ClaimedPools))
	for poolID := range account.ClaimedPools {
		claimed = append(claimed, poolID)
	}
	sort.Slice(claimed, func(i, j int) bool { return claimed[i] < claimed[j] })
	return AccountResponse{
		Handle:       account.Handle,
		ExternalID:   account.ExternalID,
		Eligible:     account.Eligible,
		VerifiedAt:   account.VerifiedAt,
		ClaimedPools: claimed,
		CreatedAt:    account.CreatedAt,
	}
}
