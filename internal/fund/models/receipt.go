package models

import "time"

// ClaimReceipt is the result of a successful disbursement.
type ClaimReceipt struct {
	PoolID    int64
	Handle    string
	Amount    int64
	Timestamp time.Time
}

// WithdrawalReceipt is the result of a successful residual withdrawal.
type WithdrawalReceipt struct {
	PoolID    int64
	To        string
	Amount    int64
	Remaining int64
	Closed    bool
	Timestamp time.Time
}
