// Package models holds the fund pool aggregate: escrowed funding with a
// fixed per-beneficiary share, a capacity, and a running remaining balance.
package models

import (
	"time"

	dErrors "scholarhub/pkg/domain-errors"
)

// Pool is one funding pool. ShareAmount is computed once at creation and
// never changes; RemainingAmount moves only through claims and residual
// withdrawals. A pool is never deleted, only marked inactive.
type Pool struct {
	ID              int64
	Title           string
	TotalAmount     int64
	ShareAmount     int64
	Capacity        int
	ClaimsProcessed int
	RemainingAmount int64
	WithdrawnAmount int64
	Creator         string
	// Sponsor and Beneficiary are set only on the sponsor-assigned variant:
	// one sponsor funds one pre-assigned student, capacity 1.
	Sponsor     string
	Beneficiary string
	Active      bool
	// Frozen blocks all further writes after a conservation violation has
	// been detected, pending manual audit.
	Frozen    bool
	CreatedAt time.Time
}

// NewPool validates creation input and builds a pooled scholarship. The
// share is integer division truncated; pools too small to pay anyone a
// positive share are rejected.
func NewPool(title string, totalAmount int64, capacity int, creator string, now time.Time) (*Pool, error) {
	if title == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "title cannot be empty")
	}
	if capacity <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidCapacity, "capacity must be positive")
	}
	if totalAmount <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "funding amount must be positive")
	}
	share := totalAmount / int64(capacity)
	if share == 0 {
		return nil, dErrors.New(dErrors.CodeShareTooSmall,
			"funding amount divided by capacity yields a zero share")
	}
	return &Pool{
		Title:           title,
		TotalAmount:     totalAmount,
		ShareAmount:     share,
		Capacity:        capacity,
		RemainingAmount: totalAmount,
		Creator:         creator,
		Active:          true,
		CreatedAt:       now,
	}, nil
}

// NewSponsoredPool builds the sponsor-assigned variant: capacity 1, the
// whole amount as the share, and the beneficiary fixed up front. Everything
// downstream (claim, conservation, withdrawal) is the same machine.
func NewSponsoredPool(title string, amount int64, sponsor, beneficiary string, now time.Time) (*Pool, error) {
	if beneficiary == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "beneficiary cannot be empty")
	}
	pool, err := NewPool(title, amount, 1, sponsor, now)
	if err != nil {
		return nil, err
	}
	pool.Sponsor = sponsor
	pool.Beneficiary = beneficiary
	return pool, nil
}

// Sponsored reports whether this is the sponsor-assigned variant.
func (p *Pool) Sponsored() bool {
	return p.Beneficiary != ""
}

// ConservationHolds checks the ledger identity: what remains plus what was
// released plus what was withdrawn must equal the original funding.
func (p *Pool) ConservationHolds() bool {
	return p.RemainingAmount == p.TotalAmount-int64(p.ClaimsProcessed)*p.ShareAmount-p.WithdrawnAmount
}

// ApplyClaim books one disbursement against the pool.
func (p *Pool) ApplyClaim() {
	p.ClaimsProcessed++
	p.RemainingAmount -= p.ShareAmount
}

// RevertClaim undoes ApplyClaim after a failed fund transfer.
func (p *Pool) RevertClaim() {
	p.ClaimsProcessed--
	p.RemainingAmount += p.ShareAmount
}

// ApplyWithdrawal books a residual withdrawal. The pool soft-closes once it
// can no longer pay a full share; capacity and the claims counter are
// untouched.
func (p *Pool) ApplyWithdrawal(amount int64) {
	p.RemainingAmount -= amount
	p.WithdrawnAmount += amount
	if p.RemainingAmount < p.ShareAmount {
		p.Active = false
	}
}

// RevertWithdrawal undoes ApplyWithdrawal after a failed fund transfer.
func (p *Pool) RevertWithdrawal(amount int64) {
	p.RemainingAmount += amount
	p.WithdrawnAmount -= amount
	if p.RemainingAmount >= p.ShareAmount {
		p.Active = true
	}
}

// Clone returns a copy so stores can hand out snapshots.
func (p *Pool) Clone() *Pool {
	copied := *p
	return &copied
}
