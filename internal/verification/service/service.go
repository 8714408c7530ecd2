// Package service implements the verification ledger: oracle-authorized
// eligibility transitions with a permanent history and a current-status
// projection on the account.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"scholarhub/internal/access"
	identitymodels "scholarhub/internal/identity/models"
	"scholarhub/internal/platform/metrics"
	"scholarhub/internal/verification/models"
	dErrors "scholarhub/pkg/domain-errors"
	audit "scholarhub/pkg/platform/audit"
	"scholarhub/pkg/platform/sentinel"
	"scholarhub/pkg/platform/tx"
	"scholarhub/pkg/requestcontext"
)

// RecordStore is the append-only persistence surface for the ledger.
type RecordStore interface {
	Append(ctx context.Context, record *models.Record) error
	ListByHandle(ctx context.Context, handle string) ([]models.Record, error)
}

// AccountStore is the slice of the identity store this service needs to keep
// the account projection in sync with the ledger.
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

// Service appends eligibility decisions on behalf of the designated verifier.
type Service struct {
	records   RecordStore
	accounts  AccountStore
	roles     *access.Roles
	publisher AuditPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	tx        tx.Runner
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

func New(records RecordStore, accounts AccountStore, roles *access.Roles, opts ...Option) *Service {
	s := &Service{
		records:  records,
		accounts: accounts,
		roles:    roles,
		logger:   slog.Default(),
		tx:       tx.NopRunner{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Decision is one eligibility assertion from the verifier. The reason string
// goes on the public record verbatim; the verifier is responsible for keeping
// raw PII out of it.
type Decision struct {
	Handle     string
	ExternalID uint64
	Eligible   bool
	Reason     string
}

// RecordEligibility appends a verification record and updates the account
// projection, as one atomic unit. The external id must match the account the
// handle resolves to; this defends against a stale or forged reference
// attacking a different account than intended.
func (s *Service) RecordEligibility(ctx context.Context, caller string, decision Decision) (*models.Record, error) {
	if err := s.roles.RequireVerifier(caller); err != nil {
		return nil, err
	}

	var record *models.Record
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		now := requestcontext.Now(txCtx)

		account, err := s.accounts.Execute(txCtx, decision.Handle,
			func(a *identitymodels.Account) error {
				if a.ExternalID != decision.ExternalID {
					return dErrors.New(dErrors.CodeIdentityMismatch,
						"external id does not match the referenced account")
				}
				return nil
			},
			func(a *identitymodels.Account) {
				a.ApplyVerification(decision.Eligible, now)
			},
		)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeAccountNotFound, "account not found")
			}
			if dErrors.HasCode(err, dErrors.CodeIdentityMismatch) {
				return err
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update eligibility projection")
		}

		record = &models.Record{
			ID:         uuid.New(),
			AccountID:  account.ID,
			Handle:     account.Handle,
			ExternalID: account.ExternalID,
			Eligible:   decision.Eligible,
			Reason:     decision.Reason,
			Verifier:   caller,
			VerifiedAt: now,
		}
		if err := s.records.Append(txCtx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append verification record")
		}

		if s.publisher != nil {
			if err := s.publisher.Emit(txCtx, audit.Event{
				Kind:          audit.KindEligibilityVerified,
				Actor:         caller,
				Subject:       account.Handle,
				SubjectIDHash: audit.HashExternalID(account.ExternalID),
				Timestamp:     now,
				RequestID:     requestcontext.RequestID(txCtx),
				Payload: map[string]any{
					"eligible": decision.Eligible,
					"reason":   decision.Reason,
				},
			}); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit verification")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.VerificationsRecorded.Inc()
	}
	s.logger.InfoContext(ctx, "eligibility recorded",
		"handle", decision.Handle, "eligible", decision.Eligible,
		"request_id", requestcontext.RequestID(ctx))
	return record, nil
}

// BatchResult pairs one batch item with its outcome.
type BatchResult struct {
	Decision Decision
	Record   *models.Record
	Err      error
}

// RecordBatch applies a batch of decisions independently; one bad item does
// not abort the rest. The verifier check runs once up front.
func (s *Service) RecordBatch(ctx context.Context, caller string, decisions []Decision) ([]BatchResult, error) {
	if err := s.roles.RequireVerifier(caller); err != nil {
		return nil, err
	}

	results := make([]BatchResult, 0, len(decisions))
	for _, d := range decisions {
		record, err := s.RecordEligibility(ctx, caller, d)
		results = append(results, BatchResult{Decision: d, Record: record, Err: err})
	}
	return results, nil
}

// History returns the full verification history for a handle, oldest first.
func (s *Service) History(ctx context.Context, handle string) ([]models.Record, error) {
	records, err := s.records.ListByHandle(ctx, handle)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list verification records")
	}
	return records, nil
}
