// Package service implements the identity registry: Sybil-resistant account
// registration and the read-side account queries.
package service

import (
	"context"
	"errors"
	"log/slog"

	"scholarhub/internal/access"
	"scholarhub/internal/identity/models"
	"scholarhub/internal/identity/store"
	"scholarhub/internal/platform/metrics"
	dErrors "scholarhub/pkg/domain-errors"
	audit "scholarhub/pkg/platform/audit"
	"scholarhub/pkg/platform/sentinel"
	"scholarhub/pkg/requestcontext"
)

// AccountStore is the persistence surface the registry needs.
type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	FindByHandle(ctx context.Context, handle string) (*models.Account, error)
	FindByExternalID(ctx context.Context, externalID uint64) (*models.Account, error)
	Count(ctx context.Context) (int, error)
}

// AuditPublisher is the slice of the audit publisher this service needs.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates account registration.
type Service struct {
	accounts  AccountStore
	roles     *access.Roles
	publisher AuditPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
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

func New(accounts AccountStore, roles *access.Roles, opts ...Option) *Service {
	s := &Service{accounts: accounts, roles: roles, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account for the caller's own handle. The external id is
// the Sybil-resistance key: at most one account per external id, at most one
// per handle. The integrity proof is the content hash of the off-system
// application data and is stored verbatim.
func (s *Service) Register(ctx context.Context, caller string, externalID uint64, handle, integrityProof string) (*models.Account, error) {
	if err := s.roles.RequireSelf(caller, handle); err != nil {
		return nil, err
	}

	account, err := models.NewAccount(externalID, handle, integrityProof, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		switch {
		case errors.Is(err, store.ErrExternalIDTaken):
			return nil, dErrors.New(dErrors.CodeDuplicateIdentity, "external id is already registered")
		case errors.Is(err, store.ErrHandleTaken):
			return nil, dErrors.New(dErrors.CodeDuplicateHandle, "handle is already bound to an account")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Emit(ctx, audit.Event{
			Kind:          audit.KindAccountRegistered,
			Actor:         caller,
			Subject:       handle,
			SubjectIDHash: audit.HashExternalID(externalID),
			Timestamp:     requestcontext.Now(ctx),
			RequestID:     requestcontext.RequestID(ctx),
			Payload:       map[string]any{"integrity_proof": integrityProof},
		}); err != nil {
			s.logger.ErrorContext(ctx, "failed to audit registration", "handle", handle, "error", err)
		}
	}
	if s.metrics != nil {
		s.metrics.AccountsRegistered.Inc()
	}

	s.logger.InfoContext(ctx, "account registered",
		"handle", handle, "request_id", requestcontext.RequestID(ctx))
	return account, nil
}

// GetAccount returns the current account snapshot for a handle.
func (s *Service) GetAccount(ctx context.Context, handle string) (*models.Account, error) {
	account, err := s.accounts.FindByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeAccountNotFound, "account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	return account, nil
}

// Count returns the number of registered accounts.
func (s *Service) Count(ctx context.Context) (int, error) {
	count, err := s.accounts.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count accounts")
	}
	return count, nil
}
