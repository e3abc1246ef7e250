package balance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/revenue-ledger/internal/domain"
	"github.com/josh-kwaku/revenue-ledger/internal/logging"
	"github.com/josh-kwaku/revenue-ledger/internal/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type accountRepo interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (*domain.Account, error)
	SetCachedBalance(ctx context.Context, tx *sql.Tx, userID uuid.UUID, balance decimal.Decimal, now time.Time) error
}

type ledgerReader interface {
	PendingAmount(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (decimal.Decimal, error)
}

type Balance struct {
	UserID        uuid.UUID
	PendingAmount decimal.Decimal
	CachedBalance decimal.Decimal
}

type Reconciliation struct {
	UserID   uuid.UUID
	Previous decimal.Decimal
	Current  decimal.Decimal
	Drift    decimal.Decimal
}

// Reconciler answers balance questions from the ledger. The cached balance on
// the account is only reported, never trusted.
type Reconciler struct {
	db       txRunner
	accounts accountRepo
	ledger   ledgerReader
	metrics  *metrics.Ledger
}

func NewReconciler(db txRunner, accounts accountRepo, ledger ledgerReader, m *metrics.Ledger) *Reconciler {
	return &Reconciler{
		db:       db,
		accounts: accounts,
		ledger:   ledger,
		metrics:  m,
	}
}

// PendingAmount is completed royalties to userID minus completed withdrawals
// from it.
func (r *Reconciler) PendingAmount(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	pending, err := r.ledger.PendingAmount(ctx, nil, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("PendingAmount: %w", err)
	}
	return pending, nil
}

func (r *Reconciler) Balance(ctx context.Context, userID uuid.UUID) (*Balance, error) {
	acct, err := r.accounts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Balance: %w", err)
	}
	pending, err := r.ledger.PendingAmount(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("Balance: %w", err)
	}
	return &Balance{
		UserID:        userID,
		PendingAmount: pending,
		CachedBalance: acct.CachedBalance,
	}, nil
}

// Reconcile rewrites the cached balance from the ledger under the account row
// lock and reports how far it had drifted.
func (r *Reconciler) Reconcile(ctx context.Context, userID uuid.UUID) (*Reconciliation, error) {
	var rec Reconciliation
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		acct, err := r.accounts.GetForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		pending, err := r.ledger.PendingAmount(ctx, tx, userID)
		if err != nil {
			return err
		}

		rec = Reconciliation{
			UserID:   userID,
			Previous: acct.CachedBalance,
			Current:  pending,
			Drift:    pending.Sub(acct.CachedBalance),
		}
		if rec.Drift.IsZero() {
			return nil
		}
		return r.accounts.SetCachedBalance(ctx, tx, userID, pending, time.Now().UTC())
	})
	if err != nil {
		return nil, fmt.Errorf("Reconcile: %w", err)
	}

	if !rec.Drift.IsZero() {
		r.metrics.RecordDrift()
		logging.FromContext(ctx).Warn("cached balance drift corrected",
			"user_id", userID,
			"previous", rec.Previous.String(),
			"current", rec.Current.String(),
			"drift", rec.Drift.String(),
		)
	}
	return &rec, nil
}
