package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholarhub/internal/access"
	"scholarhub/internal/identity/store"
	"scholarhub/internal/platform/metrics"
	dErrors "scholarhub/pkg/domain-errors"
	audit "scholarhub/pkg/platform/audit"
	auditmem "scholarhub/pkg/platform/audit/store/memory"
)

func newService(t *testing.T) (*Service, *audit.Publisher) {
	t.Helper()
	pub := audit.NewPublisher(auditmem.NewInMemoryStore())
	roles := access.NewRoles("0xowner", "0xoracle", pub)
	svc := New(store.NewInMemory(), roles,
		WithAuditPublisher(pub),
		WithMetrics(metrics.NewForTesting()),
	)
	return svc, pub
}

func TestRegisterCreatesUnverifiedAccount(t *testing.T) {
	svc, pub := newService(t)
	ctx := context.Background()

	account, err := svc.Register(ctx, "0xalice", 1, "0xalice", "sha256:abc")
	require.NoError(t, err)

	assert.Equal(t, uint64(1), account.ExternalID)
	assert.False(t, account.Eligible)
	assert.Empty(t, account.ClaimedPools)

	events, err := pub.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.KindAccountRegistered, events[0].Kind)
	assert.Equal(t, audit.HashExternalID(1), events[0].SubjectIDHash)
}

func TestRegisterRejectsDuplicateIdentity(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "0xalice", 42, "0xalice", "sha256:abc")
	require.NoError(t, err)

	// Same external id from a different handle.
	_, err = svc.Register(ctx, "0xbob", 42, "0xbob", "sha256:def")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeDuplicateIdentity))

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRegisterRejectsDuplicateHandle(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "0xalice", 1, "0xalice", "sha256:abc")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "0xalice", 2, "0xalice", "sha256:def")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeDuplicateHandle))
}

func TestRegisterRequiresSelf(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Register(context.Background(), "0xmallory", 1, "0xalice", "sha256:abc")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestRegisterValidatesInput(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "0xalice", 0, "0xalice", "sha256:abc")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = svc.Register(ctx, "0xalice", 1, "0xalice", "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestGetAccountNotFound(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.GetAccount(context.Background(), "0xghost")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAccountNotFound))
}
