package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholarhub/internal/access"
	fundmodels "scholarhub/internal/fund/models"
	fundstore "scholarhub/internal/fund/store"
	identitymodels "scholarhub/internal/identity/models"
	identitystore "scholarhub/internal/identity/store"
	"scholarhub/internal/platform/metrics"
	"scholarhub/internal/treasury"
	dErrors "scholarhub/pkg/domain-errors"
	audit "scholarhub/pkg/platform/audit"
	auditmem "scholarhub/pkg/platform/audit/store/memory"
)

type fixture struct {
	accounts *identitystore.InMemory
	pools    *fundstore.InMemory
	ledger   *treasury.Ledger
	roles    *access.Roles
	pub      *audit.Publisher
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		accounts: identitystore.NewInMemory(),
		pools:    fundstore.NewInMemory(),
		ledger:   treasury.NewLedger(),
	}
	f.pub = audit.NewPublisher(auditmem.NewInMemoryStore())
	f.roles = access.NewRoles("0xowner", "0xoracle", f.pub)
	f.ledger.Credit("0xowner", 10_000)
	f.svc = New(f.pools, f.accounts, f.ledger, f.roles,
		WithAuditPublisher(f.pub),
		WithMetrics(metrics.NewForTesting()),
	)
	return f
}

// registerEligible creates an account and flips it eligible, bypassing the
// verification service; claim behavior only depends on the projection.
func (f *fixture) registerEligible(t *testing.T, externalID uint64, handle string) {
	t.Helper()
	f.register(t, externalID, handle)
	f.setEligible(t, handle, true)
}

func (f *fixture) register(t *testing.T, externalID uint64, handle string) {
	t.Helper()
	account, err := identitymodels.NewAccount(externalID, handle, "sha256:docs", time.Now())
	require.NoError(t, err)
	require.NoError(t, f.accounts.Create(context.Background(), account))
}

func (f *fixture) setEligible(t *testing.T, handle string, eligible bool) {
	t.Helper()
	_, err := f.accounts.Execute(context.Background(), handle, nil,
		func(a *identitymodels.Account) { a.ApplyVerification(eligible, time.Now()) })
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, handle string) int64 {
	t.Helper()
	balance, err := f.ledger.BalanceOf(context.Background(), handle)
	require.NoError(t, err)
	return balance
}

func TestCreatePoolComputesTruncatedShare(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pool, err := f.svc.CreatePool(ctx, "0xowner", "STEM Fund", 3, 100)
	require.NoError(t, err)

	assert.Equal(t, int64(33), pool.ShareAmount)
	assert.Equal(t, int64(100), pool.RemainingAmount)

	custody, err := f.ledger.CustodyBalance(ctx, pool.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), custody)
	assert.Equal(t, int64(9_900), f.balance(t, "0xowner"))
}

func TestCreatePoolIsOwnerGated(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreatePool(context.Background(), "0xmallory", "Fund", 3, 100)
	assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))

	count, err := f.svc.PoolCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCreatePoolRejectsZeroShare(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreatePool(ctx, "0xowner", "Tiny", 5, 2)
	assert.Equal(t, dErrors.CodeShareTooSmall, dErrors.CodeOf(err))

	// No pool created and no funds held.
	count, err := f.svc.PoolCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, int64(10_000), f.balance(t, "0xowner"))
}

func TestCreatePoolRejectsInvalidCapacity(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreatePool(context.Background(), "0xowner", "Fund", 0, 100)
	assert.Equal(t, dErrors.CodeInvalidCapacity, dErrors.CodeOf(err))
}

func TestCreatePoolCompensatesFailedFunding(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreatePool(ctx, "0xowner", "Too Big", 3, 50_000)
	assert.Equal(t, dErrors.CodeTransferFailed, dErrors.CodeOf(err))

	count, err := f.svc.PoolCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, int64(10_000), f.balance(t, "0xowner"))
}

func TestClaimsDrainPoolUpToCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pool, err := f.svc.CreatePool(ctx, "0xowner", "Fund", 3, 100)
	require.NoError(t, err)

	for i, handle := range []string{"0xalice", "0xbob", "0xcarol"} {
		f.registerEligible(t, uint64(i+1), handle)
		receipt, err := f.svc.Claim(ctx, handle, pool.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(33), receipt.Amount)
		assert.Equal(t, int64(33), f.balance(t, handle))
	}

	drained, err := f.svc.GetPool(ctx, pool.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, drained.ClaimsProcessed)
	assert.Equal(t, int64(1), drained.RemainingAmount)
	assert.True(t, drained.ConservationHolds())

	// The truncation remainder stays in custody but pays nobody.
	f.registerEligible(t, 4, "0xdan")
	_, err = f.svc.Claim(ctx, "0xdan", pool.ID)
	assert.Equal(t, dErrors.CodeCapacityExhausted, dErrors.CodeOf(err))

	events, err := f.pub.List(ctx, 0, 0)
	require.NoError(t, err)
	var claimed int
	for _, e := range events {
		if e.Kind == audit.KindScholarshipClaimed {
			claimed++
		}
	}
	assert.Equal(t, 3, claimed)
}

func TestClaimUnknownPool(t *testing.T) {
	f := newFixture(t)
	f.registerEligible(t, 1, "0xalice")

	_, err := f.svc.Claim(context.Background(), "0xalice", 99)
	assert.Equal(t, dErrors.CodePoolNotFound, dErrors.CodeOf(err))
}

func TestClaimRequiresCurrentEligibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pool, err := f.svc.CreatePool(ctx, "0xowner", "Fund", 3, 100)
	require.NoError(t, err)

	f.register(t, 1, "0xalice")
	_, err = f.svc.Claim(ctx, "0xalice", pool.ID)
	assert.Equal(t, dErrors.CodeNotEligible, dErrors.CodeOf(err))

	// Only the current projection gates the claim, whatever the history.
	f.setEligible(t, "0xalice", true)
	f.setEligible(t, "0xalice", false)
	_, err = f.svc.Claim(ctx, "0xalice", pool.ID)
	assert.Equal(t, dErrors.CodeNotEligible, dErrors.CodeOf(err))

	f.setEligible(t, "0xalice", true)
	receipt, err := f.svc.Claim(ctx, "0xalice", pool.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(33), receipt.Amount)
}

func TestClaimIsExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pool, err := f.svc.CreatePool(ctx, "0xowner", "Fund", 3, 100)
	require.NoError(t, err)
	f.registerEligible(t, 1, "0xalice")

	_, err = f.svc.Claim(ctx, "0xalice", pool.ID)
	require.NoError(t, err)

	_, err = f.svc.Claim(ctx, "0xalice", pool.ID)
	assert.Equal(t, dErrors.CodeAlreadyClaimed, dErrors.CodeOf(err))

	// The rejection left everything untouched.
	assert.Equal(t, int64(33), f.balance(t, "0xalice"))
	unchanged, err := f.svc.GetPool(ctx, pool.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, unchanged.ClaimsProcessed)
	assert.Equal(t, int64(67), unchanged.RemainingAmount)
}

func TestClaimAfterPartialWithdrawal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pool, err := f.svc.CreatePool(ctx, "0xowner", "Fund", 3, 100)
	require.NoError(t, err)

	// Withdraw part of the escrow; two shares still fit, the third does not.
	_, err = f.svc.WithdrawResidual(ctx, "0xowner", pool.ID, 30)
	require.NoError(t, err)

	for i, handle := range []string{"0xalice", "0xbob"} {
		f.registerEligible(t, uint64(i+1), handle)
		_, err := f.svc.Claim(ctx, handle, pool.ID)
		require.NoError(t, err)
	}

	f.registerEligible(t, 3, "0xcarol")
	_, err = f.svc.Claim(ctx, "0xcarol", pool.ID)
	assert.Equal(t, dErrors.CodeInsufficientFunds, dErrors.CodeOf(err))

	remaining, err := f.svc.GetPool(ctx, pool.ID)
	require.NoError(t, err)
	assert.True(t, remaining.ConservationHolds())
	assert.False(t, remaining.Frozen)
}

func TestClaimFreezesPoolOnBrokenConservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pool, err := f.svc.CreatePool(ctx, "0xowner", "Fund", 3, 100)
	require.NoError(t, err)
	f.registerEligible(t, 1, "0xalice")

	// Corrupt the balance behind the service's back so remaining no longer
	// matches the claim history.
	_, err = f.pools.Execute(ctx, pool.ID, nil,
		func(p *fundmodels.Pool) { p.RemainingAmount = 10 })
	require.NoError(t, err)

	_, err = f.svc.Claim(ctx, "0xalice", pool.ID)
	assert.Equal(t, dErrors.CodeInvariantViolation, dErrors.CodeOf(err))

	frozen, err := f.svc.GetPool(ctx, pool.ID)
	require.NoError(t, err)
	assert.True(t, frozen.Frozen)

	// All further writes against the pool are blocked.
	f.registerEligible(t, 2, "0xbob")
	_, err = f.svc.Claim(ctx, "0xbob", pool.ID)
	assert.Equal(t, dErrors.CodeInvariantViolation, dErrors.CodeOf(err))
	_, err = f.svc.WithdrawResidual(ctx, "0xowner", pool.ID, 1)
	assert.Equal(t, dErrors.CodeInvariantViolation, dErrors.CodeOf(err))
}

type failingRelease struct {
	*treasury.Ledger
}

func (f failingRelease) Release(context.Context, int64, string, int64) error {
	return errors.New("transfer endpoint unavailable")
}

func TestClaimRollsBackOnTransferFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pool, err := f.svc.CreatePool(ctx, "0xowner", "Fund", 3, 100)
	require.NoError(t, err)
	f.registerEligible(t, 1, "0xalice")

	broken := New(f.pools, f.accounts, failingRelease{f.ledger}, f.roles,
		WithMetrics(metrics.NewForTesting()))
	_, err = broken.Claim(ctx, "0xalice", pool.ID)
	assert.Equal(t, dErrors.CodeTransferFailed, dErrors.CodeOf(err))

	// Full rollback: no claimed flag, no counter movement, no payout.
	account, err := f.accounts.FindByHandle(ctx, "0xalice")
	require.NoError(t, err)
	assert.False(t, account.HasClaimed(pool.ID))
	unchanged, err := f.svc.GetPool(ctx, pool.ID)
	require.NoError(t, err)
	assert.Zero(t, unchanged.ClaimsProcessed)
	assert.Equal(t, int64(100), unchanged.RemainingAmount)
	assert.Zero(t, f.balance(t, "0xalice"))

	// Resubmission through a healthy transfer path succeeds.
	_, err = f.svc.Claim(ctx, "0xalice", pool.ID)
	require.NoError(t, err)
}

func TestSponsoredPoolPaysOnlyItsBeneficiary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ledger.Credit("0xsponsor", 500)

	pool, err := f.svc.CreateSponsoredPool(ctx, "0xsponsor", "Named Grant", 500, "0xsponsor", "0xstudent")
	require.NoError(t, err)
	assert.Equal(t, 1, pool.Capacity)
	assert.Equal(t, int64(500), pool.ShareAmount)

	f.registerEligible(t, 1, "0xstudent")
	f.registerEligible(t, 2, "0xother")

	_, err = f.svc.Claim(ctx, "0xother", pool.ID)
	assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))

	receipt, err := f.svc.Claim(ctx, "0xstudent", pool.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), receipt.Amount)
	assert.Equal(t, int64(500), f.balance(t, "0xstudent"))

	_, err = f.svc.Claim(ctx, "0xstudent", pool.ID)
	assert.Equal(t, dErrors.CodeAlreadyClaimed, dErrors.CodeOf(err))
}

func TestSponsoredPoolOnlySponsorFunds(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateSponsoredPool(context.Background(),
		"0xmallory", "Grant", 500, "0xsponsor", "0xstudent")
	assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
}

func TestWithdrawResidualSoftClosesPool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pool, err := f.svc.CreatePool(ctx, "0xowner", "Fund", 3, 100)
	require.NoError(t, err)

	for i, handle := range []string{"0xalice", "0xbob", "0xcarol"} {
		f.registerEligible(t, uint64(i+1), handle)
		_, err := f.svc.Claim(ctx, handle, pool.ID)
		require.NoError(t, err)
	}

	receipt, err := f.svc.WithdrawResidual(ctx, "0xowner", pool.ID, 1)
	require.NoError(t, err)
	assert.Zero(t, receipt.Remaining)
	assert.True(t, receipt.Closed)
	assert.Equal(t, int64(9_901), f.balance(t, "0xowner"))

	closed, err := f.svc.GetPool(ctx, pool.ID)
	require.NoError(t, err)
	assert.False(t, closed.Active)
	assert.True(t, closed.ConservationHolds())

	events, err := f.pub.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, audit.KindResidualWithdrawn, events[len(events)-1].Kind)
}

func TestWithdrawResidualAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ledger.Credit("0xsponsor", 500)

	pooled, err := f.svc.CreatePool(ctx, "0xowner", "Fund", 3, 100)
	require.NoError(t, err)
	sponsored, err := f.svc.CreateSponsoredPool(ctx, "0xsponsor", "Grant", 500, "0xsponsor", "0xstudent")
	require.NoError(t, err)

	_, err = f.svc.WithdrawResidual(ctx, "0xmallory", pooled.ID, 1)
	assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))

	// Sponsored residuals belong to the sponsor, not the platform owner.
	_, err = f.svc.WithdrawResidual(ctx, "0xowner", sponsored.ID, 1)
	assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
	_, err = f.svc.WithdrawResidual(ctx, "0xsponsor", sponsored.ID, 100)
	require.NoError(t, err)
}

func TestWithdrawResidualBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pool, err := f.svc.CreatePool(ctx, "0xowner", "Fund", 3, 100)
	require.NoError(t, err)

	_, err = f.svc.WithdrawResidual(ctx, "0xowner", pool.ID, 0)
	assert.Equal(t, dErrors.CodeInvalidInput, dErrors.CodeOf(err))

	_, err = f.svc.WithdrawResidual(ctx, "0xowner", pool.ID, 101)
	assert.Equal(t, dErrors.CodeInsufficientFunds, dErrors.CodeOf(err))

	_, err = f.svc.WithdrawResidual(ctx, "0xowner", 99, 1)
	assert.Equal(t, dErrors.CodePoolNotFound, dErrors.CodeOf(err))
}

func TestListAndCountPools(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreatePool(ctx, "0xowner", "First", 3, 100)
	require.NoError(t, err)
	_, err = f.svc.CreatePool(ctx, "0xowner", "Second", 2, 200)
	require.NoError(t, err)

	pools, err := f.svc.ListPools(ctx)
	require.NoError(t, err)
	require.Len(t, pools, 2)
	assert.Equal(t, "First", pools[0].Title)

	count, err := f.svc.PoolCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
