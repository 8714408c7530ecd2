package treasury

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is a single ledger record for a party: negative for debits, positive
// for credits. Every movement produces a balanced debit/credit pair.
type Entry struct {
	ID        string
	Party     string
	Amount    int64
	CreatedAt time.Time
}

// Ledger is the in-process Treasury: a double-entry ledger over handle and
// pool-custody parties. Each movement is atomic under the ledger lock.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]int64
	entries  []Entry
}

func NewLedger() *Ledger {
	return &Ledger{balances: make(map[string]int64)}
}

func custodyParty(poolID int64) string {
	return fmt.Sprintf("pool:%d", poolID)
}

// Credit mints units onto a handle. This is the boundary with the off-system
// world: deposits arrive here, the engine never creates money elsewhere.
func (l *Ledger) Credit(handle string, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[handle] += amount
	l.entries = append(l.entries, Entry{
		ID:        uuid.New().String() + "-credit",
		Party:     handle,
		Amount:    amount,
		CreatedAt: time.Now(),
	})
}

func (l *Ledger) move(from, to string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[from] < amount {
		return ErrInsufficientBalance
	}

	now := time.Now()
	id := uuid.New().String()
	l.balances[from] -= amount
	l.balances[to] += amount
	l.entries = append(l.entries,
		Entry{ID: id + "-debit", Party: from, Amount: -amount, CreatedAt: now},
		Entry{ID: id + "-credit", Party: to, Amount: amount, CreatedAt: now},
	)
	return nil
}

func (l *Ledger) Fund(_ context.Context, funder string, poolID int64, amount int64) error {
	return l.move(funder, custodyParty(poolID), amount)
}

func (l *Ledger) Release(_ context.Context, poolID int64, to string, amount int64) error {
	return l.move(custodyParty(poolID), to, amount)
}

func (l *Ledger) Withdraw(_ context.Context, poolID int64, to string, amount int64) error {
	return l.move(custodyParty(poolID), to, amount)
}

func (l *Ledger) BalanceOf(_ context.Context, handle string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[handle], nil
}

func (l *Ledger) CustodyBalance(_ context.Context, poolID int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[custodyParty(poolID)], nil
}

// Entries returns a copy of the full ledger, for reconciliation checks.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry{}, l.entries...)
}
