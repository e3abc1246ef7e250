package payout

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/josh-kwaku/revenue-ledger/internal/domain"
	"github.com/josh-kwaku/revenue-ledger/internal/service/ledger"
	"github.com/josh-kwaku/revenue-ledger/internal/wallet"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const ethAddr = "0xde709f2102306220921060314715629080e2fb77"

// fakeLedger keeps pending balances in memory and serialises withdrawals the
// way the account row lock does.
type fakeLedger struct {
	mu        sync.Mutex
	pending   map[uuid.UUID]decimal.Decimal
	paid      map[uuid.UUID]int
	delay     time.Duration
	failFor   map[uuid.UUID]error
	accounts  []domain.Account
	listCalls int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		pending: make(map[uuid.UUID]decimal.Decimal),
		paid:    make(map[uuid.UUID]int),
		failFor: make(map[uuid.UUID]error),
	}
}

func (f *fakeLedger) addAccount(pending string, threshold int64, auto bool, addr string) uuid.UUID {
	id := uuid.New()
	a := addr
	f.accounts = append(f.accounts, domain.Account{
		UserID:        id,
		WalletAddress: &a,
		WalletNetwork: domain.NetworkEthereum,
		PaymentSettings: domain.PaymentSettings{
			AutoWithdraw:      auto,
			WithdrawThreshold: decimal.NewFromInt(threshold),
		},
	})
	f.pending[id] = decimal.RequireFromString(pending)
	return id
}

func (f *fakeLedger) ListAutoWithdrawCandidates(context.Context) ([]domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	out := make([]domain.Account, len(f.accounts))
	copy(out, f.accounts)
	return out, nil
}

func (f *fakeLedger) PendingAmount(_ context.Context, id uuid.UUID) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending[id], nil
}

func (f *fakeLedger) Currency() domain.Currency { return "USDC" }

func (f *fakeLedger) Withdraw(_ context.Context, req ledger.WithdrawRequest) (*domain.LedgerEntry, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[req.UserID]; err != nil {
		return nil, err
	}
	if f.pending[req.UserID].LessThan(req.Amount) {
		return nil, domain.ErrInsufficientFunds
	}
	f.pending[req.UserID] = f.pending[req.UserID].Sub(req.Amount)
	f.paid[req.UserID]++
	return &domain.LedgerEntry{ID: uuid.New(), Amount: req.Amount}, nil
}

func newTestScheduler(t *testing.T, f *fakeLedger, policy *PolicyEnforcer) *Scheduler {
	t.Helper()
	v, err := wallet.NewValidator("mainnet")
	require.NoError(t, err)
	return NewScheduler(f, f, f, v, policy, nil, slog.Default(), time.Hour, 4)
}

func TestRunAutomaticPayouts_Eligibility(t *testing.T) {
	f := newFakeLedger()
	above := f.addAccount("70", 50, true, ethAddr)
	exact := f.addAccount("10", 10, true, ethAddr)
	below := f.addAccount("9.999999", 10, true, ethAddr)
	optedOut := f.addAccount("500", 10, false, ethAddr)
	badWallet := f.addAccount("500", 10, true, "0x123")
	failing := f.addAccount("500", 10, true, ethAddr)
	f.failFor[failing] = errors.New("gateway exploded")

	paid, err := newTestScheduler(t, f, nil).RunAutomaticPayouts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, paid)

	assert.Equal(t, 1, f.paid[above])
	assert.True(t, f.pending[above].IsZero())
	assert.Equal(t, 1, f.paid[exact])
	assert.Zero(t, f.paid[below])
	assert.Zero(t, f.paid[optedOut])
	assert.Zero(t, f.paid[badWallet])
	assert.Zero(t, f.paid[failing])
}

func TestRunAutomaticPayouts_OverlappingSweepsPayOnce(t *testing.T) {
	f := newFakeLedger()
	f.delay = 20 * time.Millisecond
	var ids []uuid.UUID
	for i := 0; i < 8; i++ {
		ids = append(ids, f.addAccount("100", 10, true, ethAddr))
	}
	s := newTestScheduler(t, f, nil)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := s.RunAutomaticPayouts(context.Background())
			assert.NoError(t, err)
			mu.Lock()
			total += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, len(ids), total)
	for _, id := range ids {
		assert.Equal(t, 1, f.paid[id], "account %s", id)
	}
}

func TestRunAutomaticPayouts_RepeatedSweepIsNoop(t *testing.T) {
	f := newFakeLedger()
	id := f.addAccount("25", 10, true, ethAddr)
	s := newTestScheduler(t, f, nil)

	first, err := s.RunAutomaticPayouts(context.Background())
	require.NoError(t, err)
	second, err := s.RunAutomaticPayouts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second)
	assert.Equal(t, 1, f.paid[id])
}

func TestRunAutomaticPayouts_PolicyCap(t *testing.T) {
	f := newFakeLedger()
	f.addAccount("60", 10, true, ethAddr)
	f.addAccount("60", 10, true, ethAddr)
	failing := f.addAccount("30", 10, true, ethAddr)
	f.failFor[failing] = errors.New("boom")

	policy, err := NewPolicyEnforcer([]Policy{{Currency: "USDC", DailyCap: decimal.NewFromInt(100)}})
	require.NoError(t, err)
	s := NewScheduler(f, f, f, wallet.FuncGateway{}, policy, nil, slog.Default(), time.Hour, 1)

	paid, err := s.RunAutomaticPayouts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, paid)
	// the failed payout released its reservation
	assert.True(t, policy.RemainingCap("USDC", time.Now()).Equal(decimal.NewFromInt(40)))
}

func TestStart_StopsOnCancel(t *testing.T) {
	f := newFakeLedger()
	f.addAccount("20", 10, true, ethAddr)
	s := NewScheduler(f, f, f, wallet.FuncGateway{}, nil, nil, slog.Default(), 10*time.Millisecond, 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.listCalls >= 2
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, 1, f.paid[f.accounts[0].UserID])
}
