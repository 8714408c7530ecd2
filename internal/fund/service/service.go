// Package service implements fund pool accounting and the claim processor:
// pool creation with atomic escrow funding, residual withdrawal, and
// exactly-once claim execution with fund conservation guarantees.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"scholarhub/internal/access"
	"scholarhub/internal/fund/models"
	identitymodels "scholarhub/internal/identity/models"
	"scholarhub/internal/platform/metrics"
	"scholarhub/internal/treasury"
	dErrors "scholarhub/pkg/domain-errors"
	audit "scholarhub/pkg/platform/audit"
	"scholarhub/pkg/platform/sentinel"
	"scholarhub/pkg/platform/tx"
	"scholarhub/pkg/requestcontext"
)

var tracer = otel.Tracer("scholarhub/internal/fund")

// PoolStore is the pool persistence surface.
type PoolStore interface {
	Create(ctx context.Context, pool *models.Pool) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*models.Pool, error)
	Execute(ctx context.Context, id int64,
		validate func(*models.Pool) error, mutate func(*models.Pool)) (*models.Pool, error)
	List(ctx context.Context) ([]models.Pool, error)
	Count(ctx context.Context) (int, error)
}

// AccountStore is the slice of the identity store the claim processor needs.
type AccountStore interface {
	FindByHandle(ctx context.Context, handle string) (*identitymodels.Account, error)
	Execute(ctx context.Context, handle string,
		validate func(*identitymodels.Account) error,
		mutate func(*identitymodels.Account)) (*identitymodels.Account, error)
}

// AuditPublisher is the slice of the audit publisher this service needs.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns all mutations against pools. Claims and withdrawals serialize
// on one mutex so the account-then-pool update plus the fund transfer run as
// a single critical section with no interleaving.
type Service struct {
	pools     PoolStore
	accounts  AccountStore
	treasury  treasury.Treasury
	roles     *access.Roles
	publisher AuditPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tx        tx.Runner

	mu sync.Mutex
}

type Option func(*Service)

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithTxRunner(runner tx.Runner) Option {
	return func(s *Service) { s.tx = runner }
}

func New(pools PoolStore, accounts AccountStore, ledger treasury.Treasury,
	roles *access.Roles, opts ...Option) *Service {

	s := &Service{
		pools:    pools,
		accounts: accounts,
		treasury: ledger,
		roles:    roles,
		logger:   slog.Default(),
		tx:       tx.NopRunner{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePool creates a pooled scholarship and escrows its funding in one
// operation. Owner-gated; the owner's balance funds the pool, so a pool can
// never exist underfunded.
func (s *Service) CreatePool(ctx context.Context, caller, title string,
	capacity int, fundingAmount int64) (*models.Pool, error) {

	if err := s.roles.RequireOwner(caller); err != nil {
		return nil, err
	}
	pool, err := models.NewPool(title, fundingAmount, capacity, caller, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	return s.createFunded(ctx, caller, pool)
}

// CreateSponsoredPool creates the sponsor-assigned variant: the caller funds
// one pre-assigned beneficiary with the full amount as the single share. Only
// the designated sponsor may supply the funds.
func (s *Service) CreateSponsoredPool(ctx context.Context, caller, title string,
	amount int64, sponsor, beneficiary string) (*models.Pool, error) {

	if err := s.roles.RequireSelf(caller, sponsor); err != nil {
		return nil, err
	}
	pool, err := models.NewSponsoredPool(title, amount, sponsor, beneficiary, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	return s.createFunded(ctx, sponsor, pool)
}

func (s *Service) createFunded(ctx context.Context, funder string, pool *models.Pool) (*models.Pool, error) {
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.pools.Create(txCtx, pool); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create pool")
		}
		if err := s.treasury.Fund(txCtx, funder, pool.ID, pool.TotalAmount); err != nil {
			if deleteErr := s.pools.Delete(txCtx, pool.ID); deleteErr != nil {
				s.logger.ErrorContext(txCtx, "failed to remove unfunded pool",
					"pool_id", pool.ID, "error", deleteErr)
			}
			return dErrors.Wrap(err, dErrors.CodeTransferFailed, "funding transfer failed")
		}

		if s.publisher != nil {
			if err := s.publisher.Emit(txCtx, audit.Event{
				Kind:      audit.KindPoolCreated,
				Actor:     funder,
				Subject:   pool.Title,
				Timestamp: pool.CreatedAt,
				RequestID: requestcontext.RequestID(txCtx),
				Payload: map[string]any{
					"pool_id":      pool.ID,
					"total_amount": pool.TotalAmount,
					"share_amount": pool.ShareAmount,
					"capacity":     pool.Capacity,
					"sponsored":    pool.Sponsored(),
				},
			}); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit pool creation")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.PoolsCreated.Inc()
	}
	s.logger.InfoContext(ctx, "pool created",
		"pool_id", pool.ID, "title", pool.Title,
		"share", pool.ShareAmount, "capacity", pool.Capacity)
	return pool, nil
}

// Claim disburses one share of the pool to the caller. Preconditions run in a
// fixed order so callers get deterministic, cheap-first failures; the state
// reads claimed before the fund transfer is acknowledged, and a transfer
// failure rolls the whole mutation back.
func (s *Service) Claim(ctx context.Context, caller string, poolID int64) (*models.ClaimReceipt, error) {
	ctx, span := tracer.Start(ctx, "fund.claim",
		trace.WithAttributes(attribute.Int64("pool.id", poolID)))
	defer span.End()

	receipt, err := s.claim(ctx, caller, poolID)
	if err != nil {
		span.RecordError(err)
		s.metrics.IncrementClaimFailure(string(dErrors.CodeOf(err)))
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ClaimsProcessed.Inc()
		s.metrics.AmountDisbursed.Add(float64(receipt.Amount))
	}
	s.logger.InfoContext(ctx, "scholarship claimed",
		"pool_id", poolID, "handle", caller, "amount", receipt.Amount,
		"request_id", requestcontext.RequestID(ctx))
	return receipt, nil
}

func (s *Service) claim(ctx context.Context, caller string, poolID int64) (*models.ClaimReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pool, err := s.pools.FindByID(ctx, poolID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodePoolNotFound, "pool not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pool")
	}
	if pool.Frozen {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "pool is frozen pending audit")
	}
	if !pool.Active {
		return nil, dErrors.New(dErrors.CodePoolNotFound, "pool is closed")
	}
	if pool.Sponsored() && caller != pool.Beneficiary {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "pool is assigned to another beneficiary")
	}

	account, err := s.accounts.FindByHandle(ctx, caller)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeAccountNotFound, "account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	if !account.Eligible {
		return nil, dErrors.New(dErrors.CodeNotEligible, "account is not verified eligible")
	}
	if account.HasClaimed(poolID) {
		return nil, dErrors.New(dErrors.CodeAlreadyClaimed, "share already claimed from this pool")
	}
	if pool.ClaimsProcessed >= pool.Capacity {
		return nil, dErrors.New(dErrors.CodeCapacityExhausted, "all shares have been claimed")
	}
	if pool.RemainingAmount < pool.ShareAmount {
		// Capacity says a share is owed but the balance cannot cover it. If
		// the conservation identity still holds, a residual withdrawal drained
		// the pool and this is an ordinary rejection. If it does not hold, the
		// bookkeeping itself is broken: freeze the pool and alert.
		if pool.ConservationHolds() {
			return nil, dErrors.New(dErrors.CodeInsufficientFunds,
				"remaining balance cannot cover a share")
		}
		return nil, s.freezePool(ctx, pool)
	}

	now := requestcontext.Now(ctx)
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.accounts.Execute(txCtx, caller,
			func(a *identitymodels.Account) error {
				if !a.Eligible {
					return dErrors.New(dErrors.CodeNotEligible, "account is not verified eligible")
				}
				if a.HasClaimed(poolID) {
					return dErrors.New(dErrors.CodeAlreadyClaimed, "share already claimed from this pool")
				}
				return nil
			},
			func(a *identitymodels.Account) {
				_ = a.MarkClaimed(poolID)
			},
		); err != nil {
			return err
		}

		if _, err := s.pools.Execute(txCtx, poolID,
			func(p *models.Pool) error {
				if p.ClaimsProcessed >= p.Capacity {
					return dErrors.New(dErrors.CodeCapacityExhausted, "all shares have been claimed")
				}
				if p.RemainingAmount < p.ShareAmount {
					return dErrors.New(dErrors.CodeInsufficientFunds,
						"remaining balance cannot cover a share")
				}
				return nil
			},
			func(p *models.Pool) { p.ApplyClaim() },
		); err != nil {
			s.revertClaimFlag(txCtx, caller, poolID)
			return err
		}

		if err := s.treasury.Release(txCtx, poolID, caller, pool.ShareAmount); err != nil {
			s.revertClaim(txCtx, caller, poolID)
			return dErrors.Wrap(err, dErrors.CodeTransferFailed, "disbursement transfer failed")
		}

		if s.publisher != nil {
			if err := s.publisher.Emit(txCtx, audit.Event{
				Kind:          audit.KindScholarshipClaimed,
				Actor:         caller,
				Subject:       caller,
				SubjectIDHash: audit.HashExternalID(account.ExternalID),
				Timestamp:     now,
				RequestID:     requestcontext.RequestID(txCtx),
				Payload: map[string]any{
					"pool_id": poolID,
					"amount":  pool.ShareAmount,
				},
			}); err != nil {
				s.revertClaim(txCtx, caller, poolID)
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit claim")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &models.ClaimReceipt{
		PoolID:    poolID,
		Handle:    caller,
		Amount:    pool.ShareAmount,
		Timestamp: now,
	}, nil
}

// revertClaim undoes both halves of a claim mutation after a failed transfer.
// Under the SQL runner the surrounding rollback discards everything anyway;
// the in-memory stores need the explicit compensation.
func (s *Service) revertClaim(ctx context.Context, caller string, poolID int64) {
	if _, err := s.pools.Execute(ctx, poolID, nil,
		func(p *models.Pool) { p.RevertClaim() }); err != nil {
		s.logger.ErrorContext(ctx, "failed to revert pool claim",
			"pool_id", poolID, "error", err)
	}
	s.revertClaimFlag(ctx, caller, poolID)
}

func (s *Service) revertClaimFlag(ctx context.Context, caller string, poolID int64) {
	if _, err := s.accounts.Execute(ctx, caller, nil,
		func(a *identitymodels.Account) { delete(a.ClaimedPools, poolID) }); err != nil {
		s.logger.ErrorContext(ctx, "failed to revert claimed flag",
			"pool_id", poolID, "handle", caller, "error", err)
	}
}

// freezePool blocks all further writes against a pool whose conservation
// identity no longer holds. Correctness over availability: the pool stays
// frozen until a manual audit clears it.
func (s *Service) freezePool(ctx context.Context, pool *models.Pool) error {
	s.logger.ErrorContext(ctx, "conservation invariant violated, freezing pool",
		"pool_id", pool.ID, "total", pool.TotalAmount, "remaining", pool.RemainingAmount,
		"claims", pool.ClaimsProcessed, "share", pool.ShareAmount,
		"withdrawn", pool.WithdrawnAmount)

	if _, err := s.pools.Execute(ctx, pool.ID, nil,
		func(p *models.Pool) { p.Frozen = true }); err != nil {
		s.logger.ErrorContext(ctx, "failed to freeze pool", "pool_id", pool.ID, "error", err)
	}
	return dErrors.New(dErrors.CodeInvariantViolation,
		"pool balance does not match its claim history")
}

// WithdrawResidual moves unclaimed funds out of pool custody back to the
// owner (or the sponsor, for sponsored pools). The pool soft-closes once it
// can no longer pay a full share. Funds implicitly owed to
// verified-but-unclaimed accounts are not reserved; a later claim against a
// drained pool fails with InsufficientFunds.
func (s *Service) WithdrawResidual(ctx context.Context, caller string,
	poolID int64, amount int64) (*models.WithdrawalReceipt, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	pool, err := s.pools.FindByID(ctx, poolID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodePoolNotFound, "pool not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pool")
	}
	if pool.Sponsored() {
		if err := s.roles.RequireSelf(caller, pool.Sponsor); err != nil {
			return nil, err
		}
	} else if err := s.roles.RequireOwner(caller); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "withdrawal amount must be positive")
	}
	if pool.Frozen {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "pool is frozen pending audit")
	}
	if !pool.ConservationHolds() {
		return nil, s.freezePool(ctx, pool)
	}
	if amount > pool.RemainingAmount {
		return nil, dErrors.New(dErrors.CodeInsufficientFunds,
			"withdrawal exceeds remaining balance")
	}

	now := requestcontext.Now(ctx)
	var updated *models.Pool
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		updated, err = s.pools.Execute(txCtx, poolID,
			func(p *models.Pool) error {
				if amount > p.RemainingAmount {
					return dErrors.New(dErrors.CodeInsufficientFunds,
						"withdrawal exceeds remaining balance")
				}
				return nil
			},
			func(p *models.Pool) { p.ApplyWithdrawal(amount) },
		)
		if err != nil {
			return err
		}

		if err := s.treasury.Withdraw(txCtx, poolID, caller, amount); err != nil {
			if _, revertErr := s.pools.Execute(txCtx, poolID, nil,
				func(p *models.Pool) { p.RevertWithdrawal(amount) }); revertErr != nil {
				s.logger.ErrorContext(txCtx, "failed to revert withdrawal",
					"pool_id", poolID, "error", revertErr)
			}
			return dErrors.Wrap(err, dErrors.CodeTransferFailed, "withdrawal transfer failed")
		}

		if s.publisher != nil {
			if err := s.publisher.Emit(txCtx, audit.Event{
				Kind:      audit.KindResidualWithdrawn,
				Actor:     caller,
				Subject:   pool.Title,
				Timestamp: now,
				RequestID: requestcontext.RequestID(txCtx),
				Payload: map[string]any{
					"pool_id":   poolID,
					"amount":    amount,
					"remaining": updated.RemainingAmount,
					"closed":    !updated.Active,
				},
			}); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit withdrawal")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ResidualWithdrawals.Inc()
	}
	s.logger.InfoContext(ctx, "residual withdrawn",
		"pool_id", poolID, "amount", amount, "remaining", updated.RemainingAmount)
	return &models.WithdrawalReceipt{
		PoolID:    poolID,
		To:        caller,
		Amount:    amount,
		Remaining: updated.RemainingAmount,
		Closed:    !updated.Active,
		Timestamp: now,
	}, nil
}

// GetPool returns a snapshot of one pool.
func (s *Service) GetPool(ctx context.Context, id int64) (*models.Pool, error) {
	pool, err := s.pools.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodePoolNotFound, "pool not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pool")
	}
	return pool, nil
}

// ListPools returns snapshots of all pools ordered by id.
func (s *Service) ListPools(ctx context.Context) ([]models.Pool, error) {
	pools, err := s.pools.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pools")
	}
	return pools, nil
}

// PoolCount returns the total number of pools ever created.
func (s *Service) PoolCount(ctx context.Context) (int, error) {
	count, err := s.pools.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count pools")
	}
	return count, nil
}
