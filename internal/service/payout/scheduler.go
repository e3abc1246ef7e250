package payout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/josh-kwaku/revenue-ledger/internal/domain"
	"github.com/josh-kwaku/revenue-ledger/internal/logging"
	"github.com/josh-kwaku/revenue-ledger/internal/metrics"
	"github.com/josh-kwaku/revenue-ledger/internal/service/ledger"
)

type candidateLister interface {
	ListAutoWithdrawCandidates(ctx context.Context) ([]domain.Account, error)
}

type pendingReader interface {
	PendingAmount(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
}

type withdrawer interface {
	Currency() domain.Currency
	Withdraw(ctx context.Context, req ledger.WithdrawRequest) (*domain.LedgerEntry, error)
}

type addressVerifier interface {
	VerifyAddressFormat(network domain.WalletNetwork, address string) bool
}

// Scheduler sweeps opted-in accounts and withdraws their full pending balance
// once it reaches their threshold.
type Scheduler struct {
	accounts    candidateLister
	balances    pendingReader
	withdrawals withdrawer
	verifier    addressVerifier
	policy      *PolicyEnforcer
	metrics     *metrics.Ledger
	logger      *slog.Logger
	interval    time.Duration
	concurrency int

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
}

func NewScheduler(
	accounts candidateLister,
	balances pendingReader,
	withdrawals withdrawer,
	verifier addressVerifier,
	policy *PolicyEnforcer,
	m *metrics.Ledger,
	logger *slog.Logger,
	interval time.Duration,
	concurrency int,
) *Scheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Scheduler{
		accounts:    accounts,
		balances:    balances,
		withdrawals: withdrawals,
		verifier:    verifier,
		policy:      policy,
		metrics:     m,
		logger:      logger,
		interval:    interval,
		concurrency: concurrency,
		inFlight:    make(map[uuid.UUID]struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("payout scheduler started", "interval", s.interval, "concurrency", s.concurrency)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("payout scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.RunAutomaticPayouts(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("automatic payout sweep failed", "error", err)
			}
		}
	}
}

// RunAutomaticPayouts pays every eligible account once and returns how many
// were paid. Per-account failures are logged and skipped. Overlapping calls
// never pay the same account twice: an account already being paid by another
// sweep is skipped, and the withdrawal itself rechecks the ledger under the
// account row lock.
func (s *Scheduler) RunAutomaticPayouts(ctx context.Context) (int, error) {
	start := time.Now()
	ctx = logging.WithLogger(ctx, s.logger.With("sweep_id", uuid.NewString()))

	candidates, err := s.accounts.ListAutoWithdrawCandidates(ctx)
	if err != nil {
		return 0, fmt.Errorf("RunAutomaticPayouts: %w", err)
	}

	var paid atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, acct := range candidates {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if s.payAccount(gctx, acct) {
				paid.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	n := int(paid.Load())
	s.metrics.ObserveSweep(time.Since(start), n)
	logging.FromContext(ctx).Info("automatic payout sweep finished",
		"candidates", len(candidates),
		"paid", n,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return n, nil
}

func (s *Scheduler) payAccount(ctx context.Context, acct domain.Account) bool {
	ctx, log := logging.With(ctx, "user_id", acct.UserID)

	if !s.claim(acct.UserID) {
		s.metrics.RecordSkip("in_flight")
		log.Debug("payout already in flight, skipping")
		return false
	}
	defer s.release(acct.UserID)

	threshold := acct.PaymentSettings.WithdrawThreshold
	if !acct.PaymentSettings.AutoWithdraw || !threshold.IsPositive() {
		s.metrics.RecordSkip("not_opted_in")
		return false
	}
	if !s.verifier.VerifyAddressFormat(acct.WalletNetwork, acct.Wallet()) {
		s.metrics.RecordSkip("invalid_wallet")
		log.Warn("auto-withdraw account has an invalid wallet", "network", acct.WalletNetwork)
		return false
	}

	pending, err := s.balances.PendingAmount(ctx, acct.UserID)
	if err != nil {
		log.Error("failed to read pending amount", "error", err)
		return false
	}
	if pending.LessThan(threshold) {
		s.metrics.RecordSkip("below_threshold")
		return false
	}

	amount := pending.Truncate(domain.AmountScale)
	if s.policy == nil {
		return s.withdraw(ctx, log, acct, amount)
	}

	release, err := s.policy.Reserve(s.withdrawals.Currency(), amount, time.Now())
	if err != nil {
		s.metrics.RecordSkip("policy")
		log.Warn("payout blocked by policy", "amount", amount.String(), "error", err)
		return false
	}
	if !s.withdraw(ctx, log, acct, amount) {
		release()
		return false
	}
	return true
}

func (s *Scheduler) withdraw(ctx context.Context, log *slog.Logger, acct domain.Account, amount decimal.Decimal) bool {
	entry, err := s.withdrawals.Withdraw(ctx, ledger.WithdrawRequest{
		UserID:      acct.UserID,
		Amount:      amount,
		Destination: acct.Wallet(),
		Trigger:     ledger.TriggerAuto,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			s.metrics.RecordSkip("balance_changed")
			log.Info("pending balance changed before payout", "amount", amount.String())
			return false
		}
		log.Error("automatic payout failed", "amount", amount.String(), "error", err)
		return false
	}

	log.Info("automatic payout completed", "entry_id", entry.ID, "amount", amount.String())
	return true
}

func (s *Scheduler) claim(userID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[userID]; busy {
		return false
	}
	s.inFlight[userID] = struct{}{}
	return true
}

func (s *Scheduler) release(userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, userID)
}
