package handler

import (
	"time"

	"scholarhub/internal/fund/models"
)

// PoolResponse is the HTTP representation of a pool.
type PoolResponse struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	TotalAmount     int64     `json:"total_amount"`
	ShareAmount     int64     `json:"share_amount"`
	Capacity        int       `json:"capacity"`
	ClaimsProcessed int       `json:"claims_processed"`
	RemainingAmount int64     `json:"remaining_amount"`
	WithdrawnAmount int64     `json:"withdrawn_amount"`
	Beneficiary     string    `json:"beneficiary,omitempty"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
}

func FromPool(pool *models.Pool) PoolResponse {
	return PoolResponse{
		ID:              pool.ID,
		Title:           pool.Title,
		TotalAmount:     pool.TotalAmount,
		ShareAmount:     pool.ShareAmount,
		Capacity:        pool.Capacity,
		ClaimsProcessed: pool.ClaimsProcessed,
		RemainingAmount: pool.RemainingAmount,
		WithdrawnAmount: pool.WithdrawnAmount,
		Beneficiary:     pool.Beneficiary,
		Active:          pool.Active,
		CreatedAt:       pool.CreatedAt,
	}
}

// ClaimResponse is the HTTP representation of a disbursement receipt.
type ClaimResponse struct {
	PoolID    int64     `json:"pool_id"`
	Handle    string    `json:"handle"`
	Amount    int64     `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

func FromClaimReceipt(receipt *models.ClaimReceipt) ClaimResponse {
	return ClaimResponse{
		PoolID:    receipt.PoolID,
		Handle:    receipt.Handle,
		Amount:    receipt.Amount,
		Timestamp: receipt.Timestamp,
	}
}

// WithdrawalResponse is the HTTP representation of a withdrawal receipt.
type WithdrawalResponse struct {
	PoolID    int64     `json:"pool_id"`
	Amount    int64     `json:"amount"`
	Remaining int64     `json:"remaining"`
	Closed    bool      `json:"closed"`
	Timestamp time.Time `json:"timestamp"`
}

func FromWithdrawalReceipt(receipt *models.WithdrawalReceipt) WithdrawalResponse {
	return WithdrawalResponse{
		PoolID:    receipt.PoolID,
		Amount:    receipt.Amount,
		Remaining: receipt.Remaining,
		Closed:    receipt.Closed,
		Timestamp: receipt.Timestamp,
	}
}
