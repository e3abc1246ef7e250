package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/revenue-ledger/internal/domain"
	"github.com/josh-kwaku/revenue-ledger/internal/repository"
)

// Wallet addresses that pass the ethereum and bitcoin format checks.
const (
	EthWallet = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	BtcWallet = "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"
)

type AccountOpts struct {
	Wallet       string
	Network      domain.WalletNetwork
	AutoWithdraw bool
	Threshold    decimal.Decimal
}

// SeedAccount inserts an account for a fresh user. A zero Network defaults to
// ethereum and a zero Threshold to the minimum.
func SeedAccount(t *testing.T, db *sql.DB, opts AccountOpts) *domain.Account {
	t.Helper()

	if opts.Network == "" {
		opts.Network = domain.NetworkEthereum
	}
	if opts.Threshold.IsZero() {
		opts.Threshold = domain.MinWithdrawThreshold
	}

	now := time.Now().UTC()
	a := &domain.Account{
		UserID:        uuid.New(),
		WalletNetwork: opts.Network,
		CachedBalance: decimal.Zero,
		PaymentSettings: domain.PaymentSettings{
			AutoWithdraw:      opts.AutoWithdraw,
			WithdrawThreshold: opts.Threshold,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if opts.Wallet != "" {
		a.WalletAddress = &opts.Wallet
	}

	if err := repository.NewAccountRepository(db).Create(context.Background(), a); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return a
}

// SeedResource inserts a resource owned by ownerID with the given
// contributors, in order.
func SeedResource(t *testing.T, db *sql.DB, ownerID uuid.UUID, contributors ...domain.Contributor) *domain.Resource {
	t.Helper()

	now := time.Now().UTC()
	res := &domain.Resource{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		Contributors: contributors,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := db.Exec(
		`INSERT INTO resources (id, owner_id, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		res.ID, res.OwnerID, res.CreatedAt, res.UpdatedAt,
	); err != nil {
		t.Fatalf("seed resource: %v", err)
	}

	for i, c := range contributors {
		if c.JoinedAt.IsZero() {
			res.Contributors[i].JoinedAt = now
		}
		if _, err := db.Exec(
			`INSERT INTO resource_contributors (resource_id, user_id, position, role, share_percent, joined_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			res.ID, c.UserID, i, c.Role, c.SharePercent, res.Contributors[i].JoinedAt,
		); err != nil {
			t.Fatalf("seed contributor %s: %v", c.UserID, err)
		}
	}
	return res
}

func Share(userID uuid.UUID, role domain.ContributorRole, percent string) domain.Contributor {
	return domain.Contributor{
		UserID:       userID,
		Role:         role,
		SharePercent: decimal.RequireFromString(percent),
	}
}

func CachedBalance(t *testing.T, db *sql.DB, userID uuid.UUID) decimal.Decimal {
	t.Helper()

	var bal decimal.Decimal
	if err := db.QueryRow(`SELECT cached_balance FROM accounts WHERE user_id = $1`, userID).Scan(&bal); err != nil {
		t.Fatalf("cached balance %s: %v", userID, err)
	}
	return bal
}

func CountLedgerEntries(t *testing.T, db *sql.DB, entryType domain.EntryType) int {
	t.Helper()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ledger_entries WHERE type = $1`, entryType).Scan(&n); err != nil {
		t.Fatalf("count %s entries: %v", entryType, err)
	}
	return n
}

func CountRevenueHistory(t *testing.T, db *sql.DB, userID uuid.UUID) int {
	t.Helper()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM revenue_history WHERE user_id = $1`, userID).Scan(&n); err != nil {
		t.Fatalf("count revenue history %s: %v", userID, err)
	}
	return n
}

func ResourceStats(t *testing.T, db *sql.DB, resourceID uuid.UUID) domain.RevenueStats {
	t.Helper()

	var stats domain.RevenueStats
	if err := db.QueryRow(
		`SELECT total_earned, pending_amount, last_payout_at FROM resources WHERE id = $1`, resourceID,
	).Scan(&stats.TotalEarned, &stats.PendingAmount, &stats.LastPayoutAt); err != nil {
		t.Fatalf("resource stats %s: %v", resourceID, err)
	}
	return stats
}
