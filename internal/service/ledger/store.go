package ledger

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/revenue-ledger/internal/domain"
	"github.com/josh-kwaku/revenue-ledger/internal/metrics"
	"github.com/josh-kwaku/revenue-ledger/internal/repository"
	"github.com/josh-kwaku/revenue-ledger/internal/wallet"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type resourceRepo interface {
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Resource, error)
	UpdateRevenueStats(ctx context.Context, tx *sql.Tx, id uuid.UUID, totalEarnedDelta, pendingDelta decimal.Decimal, payoutAt time.Time) error
}

type accountRepo interface {
	GetForUpdate(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (*domain.Account, error)
	LockInOrder(ctx context.Context, tx *sql.Tx, userIDs []uuid.UUID) error
	AdjustCachedBalance(ctx context.Context, tx *sql.Tx, userID uuid.UUID, delta decimal.Decimal, now time.Time) error
}

type entryRepo interface {
	Create(ctx context.Context, tx *sql.Tx, entry *domain.LedgerEntry) error
	Finalize(ctx context.Context, tx *sql.Tx, entry *domain.LedgerEntry) error
	PendingAmount(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (decimal.Decimal, error)
	CountWithdrawals(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (int, error)
	ListRoyaltiesByResource(ctx context.Context, resourceID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int, error)
	ListByEvent(ctx context.Context, resourceID uuid.UUID, eventID string) ([]domain.LedgerEntry, error)
}

type eventRepo interface {
	Reserve(ctx context.Context, tx *sql.Tx, ev *repository.DistributionEvent) error
	Get(ctx context.Context, resourceID uuid.UUID, eventID string) (*repository.DistributionEvent, error)
}

type historyRepo interface {
	Append(ctx context.Context, tx *sql.Tx, rec *domain.RevenueRecord) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.RevenueRecord, int, error)
}

type Config struct {
	Currency       domain.Currency
	GatewayTimeout time.Duration
}

// Store is the only writer of ledger entries. Every write runs in one
// database transaction together with the projections it affects.
type Store struct {
	db        txRunner
	resources resourceRepo
	accounts  accountRepo
	entries   entryRepo
	events    eventRepo
	history   historyRepo
	gateway   wallet.Gateway
	metrics   *metrics.Ledger
	config    Config
	now       func() time.Time
}

func NewStore(
	db txRunner,
	resources resourceRepo,
	accounts accountRepo,
	entries entryRepo,
	events eventRepo,
	history historyRepo,
	gateway wallet.Gateway,
	m *metrics.Ledger,
	cfg Config,
) *Store {
	return &Store{
		db:        db,
		resources: resources,
		accounts:  accounts,
		entries:   entries,
		events:    events,
		history:   history,
		gateway:   gateway,
		metrics:   m,
		config:    cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Currency() domain.Currency {
	return s.config.Currency
}
