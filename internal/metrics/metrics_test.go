package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNilLedgerIsNoop(t *testing.T) {
	var m *Ledger
	assert.NotPanics(t, func() {
		m.ObserveDistribution("success", "USDC", decimal.NewFromInt(1), decimal.Zero)
		m.ObserveWithdrawal("auto", "success", "USDC", decimal.NewFromInt(1))
		m.ObserveGateway(time.Second)
		m.ObserveSweep(time.Second, 3)
		m.RecordSkip("in_flight")
		m.RecordDrift()
	})
}

func TestDefaultRegistersOnce(t *testing.T) {
	m := Default()
	assert.Same(t, m, Default())

	before := testutil.ToFloat64(m.distributions.WithLabelValues("replayed"))
	m.ObserveDistribution("replayed", "USDC", decimal.Zero, decimal.Zero)
	assert.Equal(t, before+1, testutil.ToFloat64(m.distributions.WithLabelValues("replayed")))

	m.ObserveSweep(time.Millisecond, 7)
	assert.Equal(t, float64(7), testutil.ToFloat64(m.sweepPaid))
}
