package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	AccountsRegistered    prometheus.Counter
	VerificationsRecorded prometheus.Counter
	PoolsCreated          prometheus.Counter
	ClaimsProcessed       prometheus.Counter
	ClaimFailures         *prometheus.CounterVec
	ResidualWithdrawals   prometheus.Counter
	AmountDisbursed       prometheus.Counter
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return newWith(prometheus.DefaultRegisterer)
}

// NewForTesting registers metrics on a private registry so parallel tests do
// not collide on duplicate registration.
func NewForTesting() *Metrics {
	return newWith(prometheus.NewRegistry())
}

func newWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AccountsRegistered: factory.NewCounter(prometheus.CounterOpts{
			Name: "scholarhub_accounts_registered_total",
			Help: "Total number of accounts registered",
		}),
		VerificationsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "scholarhub_verifications_recorded_total",
			Help: "Total number of eligibility verification records appended",
		}),
		PoolsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "scholarhub_pools_created_total",
			Help: "Total number of fund pools created",
		}),
		ClaimsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "scholarhub_claims_processed_total",
			Help: "Total number of claims disbursed",
		}),
		ClaimFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scholarhub_claim_failures_total",
			Help: "Total number of rejected claims by failure kind",
		}, []string{"reason"}),
		ResidualWithdrawals: factory.NewCounter(prometheus.CounterOpts{
			Name: "scholarhub_residual_withdrawals_total",
			Help: "Total number of residual withdrawals by the owner",
		}),
		AmountDisbursed: factory.NewCounter(prometheus.CounterOpts{
			Name: "scholarhub_amount_disbursed_total",
			Help: "Total amount of base units released to beneficiaries",
		}),
	}
}

// IncrementClaimFailure records one rejected claim with its failure kind.
func (m *Metrics) IncrementClaimFailure(reason string) {
	if m == nil {
		return
	}
	m.ClaimFailures.WithLabelValues(reason).Inc()
}
