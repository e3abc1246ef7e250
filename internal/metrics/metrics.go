package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Ledger groups the collectors for distributions, withdrawals and payout
// sweeps. All methods are safe on a nil receiver.
type Ledger struct {
	distributions   *prometheus.CounterVec
	distributed     *prometheus.CounterVec
	undistributed   *prometheus.CounterVec
	withdrawals     *prometheus.CounterVec
	withdrawn       *prometheus.CounterVec
	gatewayLatency  prometheus.Histogram
	sweepDuration   prometheus.Histogram
	sweepPaid       prometheus.Gauge
	sweepSkipped    *prometheus.CounterVec
	reconcileDrifts prometheus.Counter
}

var (
	ledgerOnce     sync.Once
	ledgerRegistry *Ledger
)

// Default returns the process-wide collectors, registering them with the
// default Prometheus registry on first use.
func Default() *Ledger {
	ledgerOnce.Do(func() {
		ledgerRegistry = &Ledger{
			distributions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "revenue",
				Subsystem: "distribution",
				Name:      "events_total",
				Help:      "Distribution requests by outcome.",
			}, []string{"outcome"}),
			distributed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "revenue",
				Subsystem: "distribution",
				Name:      "amount_total",
				Help:      "Amount credited to contributors by currency.",
			}, []string{"currency"}),
			undistributed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "revenue",
				Subsystem: "distribution",
				Name:      "undistributed_amount_total",
				Help:      "Gross revenue left on the resource as pending by currency.",
			}, []string{"currency"}),
			withdrawals: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "revenue",
				Subsystem: "withdrawal",
				Name:      "requests_total",
				Help:      "Withdrawals by trigger and outcome.",
			}, []string{"trigger", "outcome"}),
			withdrawn: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "revenue",
				Subsystem: "withdrawal",
				Name:      "amount_total",
				Help:      "Amount withdrawn to external wallets by currency.",
			}, []string{"currency"}),
			gatewayLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "revenue",
				Subsystem: "gateway",
				Name:      "transfer_duration_seconds",
				Help:      "Wallet gateway transfer latency including retries.",
				Buckets:   prometheus.DefBuckets,
			}),
			sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "revenue",
				Subsystem: "payout",
				Name:      "sweep_duration_seconds",
				Help:      "Duration of automatic payout sweeps.",
				Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300},
			}),
			sweepPaid: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "revenue",
				Subsystem: "payout",
				Name:      "last_sweep_paid",
				Help:      "Accounts paid by the most recent automatic payout sweep.",
			}),
			sweepSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "revenue",
				Subsystem: "payout",
				Name:      "skipped_total",
				Help:      "Accounts skipped by automatic payout sweeps by reason.",
			}, []string{"reason"}),
			reconcileDrifts: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "revenue",
				Subsystem: "balance",
				Name:      "reconcile_drift_total",
				Help:      "Reconciliations that found the cached balance out of step with the ledger.",
			}),
		}
		prometheus.MustRegister(
			ledgerRegistry.distributions,
			ledgerRegistry.distributed,
			ledgerRegistry.undistributed,
			ledgerRegistry.withdrawals,
			ledgerRegistry.withdrawn,
			ledgerRegistry.gatewayLatency,
			ledgerRegistry.sweepDuration,
			ledgerRegistry.sweepPaid,
			ledgerRegistry.sweepSkipped,
			ledgerRegistry.reconcileDrifts,
		)
	})
	return ledgerRegistry
}

func (m *Ledger) ObserveDistribution(outcome, currency string, distributed, undistributed decimal.Decimal) {
	if m == nil {
		return
	}
	m.distributions.WithLabelValues(outcome).Inc()
	if distributed.IsPositive() {
		m.distributed.WithLabelValues(currency).Add(distributed.InexactFloat64())
	}
	if undistributed.IsPositive() {
		m.undistributed.WithLabelValues(currency).Add(undistributed.InexactFloat64())
	}
}

func (m *Ledger) ObserveWithdrawal(trigger, outcome, currency string, amount decimal.Decimal) {
	if m == nil {
		return
	}
	if trigger == "" {
		trigger = "manual"
	}
	m.withdrawals.WithLabelValues(trigger, outcome).Inc()
	if outcome == "success" {
		m.withdrawn.WithLabelValues(currency).Add(amount.InexactFloat64())
	}
}

func (m *Ledger) ObserveGateway(d time.Duration) {
	if m == nil {
		return
	}
	m.gatewayLatency.Observe(d.Seconds())
}

func (m *Ledger) ObserveSweep(d time.Duration, paid int) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(d.Seconds())
	m.sweepPaid.Set(float64(paid))
}

// RecordSkip counts an account the sweep passed over. Reasons should be
// stable strings such as "below_threshold" or "in_flight".
func (m *Ledger) RecordSkip(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.sweepSkipped.WithLabelValues(reason).Inc()
}

func (m *Ledger) RecordDrift() {
	if m == nil {
		return
	}
	m.reconcileDrifts.Inc()
}
