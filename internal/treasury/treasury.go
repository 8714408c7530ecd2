// Package treasury abstracts the fund transfer mechanism: moving base units
// between external handles and pool custody. Implementations must be
// all-or-nothing and report success or failure synchronously; the claim
// processor treats the transfer as part of its own transaction.
package treasury

import (
	"context"
	"fmt"

	"scholarhub/pkg/platform/sentinel"
)

// ErrInsufficientBalance is returned when the debited party cannot cover the
// amount. Unwraps to sentinel.ErrInvalidState.
var ErrInsufficientBalance = fmt.Errorf("insufficient balance: %w", sentinel.ErrInvalidState)

// Treasury moves funds. Pool custody is addressed by pool id; external
// parties by handle.
type Treasury interface {
	// Fund moves amount from the funder's handle into pool custody.
	Fund(ctx context.Context, funder string, poolID int64, amount int64) error
	// Release moves amount from pool custody to a beneficiary handle.
	Release(ctx context.Context, poolID int64, to string, amount int64) error
	// Withdraw moves amount from pool custody back to an owner/sponsor handle.
	Withdraw(ctx context.Context, poolID int64, to string, amount int64) error
	// BalanceOf returns the current balance of a handle.
	BalanceOf(ctx context.Context, handle string) (int64, error)
	// CustodyBalance returns the units currently held for a pool.
	CustodyBalance(ctx context.Context, poolID int64) (int64, error)
}
