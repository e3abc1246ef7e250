package payout

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/revenue-ledger/internal/domain"
)

func writePolicies(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadPolicies(t *testing.T) {
	path := writePolicies(t, `
- currency: usdc
  daily_cap: "1000.50"
- currency: BTC
  daily_cap: "2"
`)
	policies, err := LoadPolicies(path)
	require.NoError(t, err)
	require.Len(t, policies, 2)
	assert.Equal(t, domain.Currency("BTC"), policies[0].Currency)
	assert.Equal(t, domain.Currency("USDC"), policies[1].Currency)
	assert.True(t, policies[1].DailyCap.Equal(decimal.RequireFromString("1000.5")))
}

func TestLoadPolicies_Invalid(t *testing.T) {
	tests := map[string]string{
		"duplicate":      "- {currency: USDC, daily_cap: '1'}\n- {currency: usdc, daily_cap: '2'}\n",
		"missing":        "- {daily_cap: '1'}\n",
		"negative cap":   "- {currency: USDC, daily_cap: '-1'}\n",
		"not a number":   "- {currency: USDC, daily_cap: 'lots'}\n",
		"not a sequence": "currency: USDC\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadPolicies(writePolicies(t, body))
			assert.Error(t, err)
		})
	}

	_, err := LoadPolicies(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestPolicyEnforcer_Reserve(t *testing.T) {
	p, err := NewPolicyEnforcer([]Policy{{Currency: "USDC", DailyCap: decimal.NewFromInt(100)}})
	require.NoError(t, err)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	release, err := p.Reserve("usdc", decimal.NewFromInt(60), now)
	require.NoError(t, err)
	assert.True(t, p.RemainingCap("USDC", now).Equal(decimal.NewFromInt(40)))

	_, err = p.Reserve("USDC", decimal.NewFromInt(41), now)
	assert.ErrorIs(t, err, domain.ErrPayoutCapExceeded)

	release()
	release()
	assert.True(t, p.RemainingCap("USDC", now).Equal(decimal.NewFromInt(100)))

	_, err = p.Reserve("USDC", decimal.NewFromInt(100), now)
	require.NoError(t, err)
	assert.True(t, p.RemainingCap("USDC", now.Add(24*time.Hour)).Equal(decimal.NewFromInt(100)))

	_, err = p.Reserve("EUR", decimal.NewFromInt(1), now)
	assert.ErrorIs(t, err, ErrPolicyNotFound)
}

func TestPolicyEnforcer_ConcurrentReservesNeverExceedCap(t *testing.T) {
	p, err := NewPolicyEnforcer([]Policy{{Currency: "USDC", DailyCap: decimal.NewFromInt(10)}})
	require.NoError(t, err)
	now := time.Now()

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Reserve("USDC", decimal.NewFromInt(1), now); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, ok)
}

func TestNewPolicyEnforcer_Rejects(t *testing.T) {
	_, err := NewPolicyEnforcer(nil)
	assert.Error(t, err)

	_, err = NewPolicyEnforcer([]Policy{
		{Currency: "USDC", DailyCap: decimal.NewFromInt(1)},
		{Currency: "usdc", DailyCap: decimal.NewFromInt(2)},
	})
	assert.Error(t, err)
}
