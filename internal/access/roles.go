// Package access holds the role model gating every mutating operation:
// a fixed owner, exactly one rotatable verifier (the oracle binding), and
// ordinary account holders acting only for themselves.
package access

import (
	"context"
	"sync"

	dErrors "scholarhub/pkg/domain-errors"
	audit "scholarhub/pkg/platform/audit"
	"scholarhub/pkg/requestcontext"
)

// AuditPublisher is the slice of the audit publisher this package needs.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Roles binds privileged capabilities to handles. The owner is fixed at
// construction; the verifier binding is rotatable by the owner only.
type Roles struct {
	owner string

	mu       sync.RWMutex
	verifier string

	publisher AuditPublisher
}

func NewRoles(owner, verifier string, publisher AuditPublisher) *Roles {
	return &Roles{owner: owner, verifier: verifier, publisher: publisher}
}

// Owner returns the owner handle.
func (r *Roles) Owner() string { return r.owner }

// Verifier returns the currently designated verifier handle.
func (r *Roles) Verifier() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.verifier
}

// RequireOwner fails with Unauthorized unless the caller is the owner.
func (r *Roles) RequireOwner(caller string) error {
	if caller == "" || caller != r.owner {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the owner")
	}
	return nil
}

// RequireVerifier fails with Unauthorized unless the caller holds the
// verifier capability.
func (r *Roles) RequireVerifier(caller string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if caller == "" || caller != r.verifier {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not the designated verifier")
	}
	return nil
}

// RequireSelf fails with Unauthorized unless the caller is acting on its own
// account. Registration and claims are never performed on behalf of another
// handle.
func (r *Roles) RequireSelf(caller, subject string) error {
	if caller == "" || caller != subject {
		return dErrors.New(dErrors.CodeUnauthorized, "caller may only act on its own account")
	}
	return nil
}

// SetVerifier rotates the verifier binding. Owner-gated; the rotation is
// itself audited. Rotation does not retroactively affect the attribution of
// prior verification records.
func (r *Roles) SetVerifier(ctx context.Context, caller, verifier string) error {
	if err := r.RequireOwner(caller); err != nil {
		return err
	}
	if verifier == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "verifier handle cannot be empty")
	}

	r.mu.Lock()
	previous := r.verifier
	r.verifier = verifier
	r.mu.Unlock()

	if r.publisher != nil {
		if err := r.publisher.Emit(ctx, audit.Event{
			Kind:      audit.KindVerifierRotated,
			Actor:     caller,
			Subject:   verifier,
			Timestamp: requestcontext.Now(ctx),
			RequestID: requestcontext.RequestID(ctx),
			Payload:   map[string]any{"previous_verifier": previous},
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to audit verifier rotation")
		}
	}
	return nil
}
