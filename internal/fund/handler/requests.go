package handler

import (
	"strings"

	dErrors "scholarhub/pkg/domain-errors"
)

// CreatePoolRequest is the HTTP request body for POST /pools. Setting
// beneficiary selects the sponsor-assigned variant: the caller funds one
// pre-assigned student and capacity is fixed at 1.
type CreatePoolRequest struct {
	Title         string `json:"title"`
	Capacity      int    `json:"capacity,omitempty"`
	FundingAmount int64  `json:"funding_amount"`
	Beneficiary   string `json:"beneficiary,omitempty"`
}

// Sponsored reports whether this request selects the sponsor-assigned
// variant.
func (r *CreatePoolRequest) Sponsored() bool {
	return r.Beneficiary != ""
}

// Validate validates and normalizes the request. Capacity and share bounds
// are the domain's call; only shape problems are rejected here.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreatePoolRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "title is required")
	}
	if len(r.Title) > 200 {
		return dErrors.New(dErrors.CodeInvalidInput, "title must be at most 200 characters")
	}
	if r.FundingAmount <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "funding_amount must be positive")
	}
	r.Beneficiary = strings.TrimSpace(r.Beneficiary)
	if r.Sponsored() && r.Capacity > 1 {
		return dErrors.New(dErrors.CodeInvalidInput, "sponsored pools have exactly one beneficiary")
	}
	return nil
}

// WithdrawRequest is the HTTP request body for POST /pools/{id}/withdrawals.
type WithdrawRequest struct {
	Amount int64 `json:"amount"`
}

// Validate checks the withdrawal amount.
func (r *WithdrawRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}
	if r.Amount <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "amount must be positive")
	}
	return nil
}
