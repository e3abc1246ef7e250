package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/revenue-ledger/internal/domain"
)

const accountColumns = `user_id, wallet_address, wallet_network, cached_balance,
	auto_withdraw, withdraw_threshold, created_at, updated_at`

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (
			user_id, wallet_address, wallet_network, cached_balance,
			auto_withdraw, withdraw_threshold, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.UserID, a.WalletAddress, a.WalletNetwork, a.CachedBalance,
		a.PaymentSettings.AutoWithdraw, a.PaymentSettings.WithdrawThreshold,
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = $1`, userID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByUserID: %w", domain.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("GetByUserID: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (*domain.Account, error) {
	a, err := scanAccount(tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 FOR UPDATE`, userID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return a, nil
}

// LockInOrder takes row locks on every listed account in ascending user id
// order. Missing accounts are skipped.
func (r *AccountRepository) LockInOrder(ctx context.Context, tx *sql.Tx, userIDs []uuid.UUID) error {
	ids := make([]string, len(userIDs))
	for i, id := range userIDs {
		ids[i] = id.String()
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT user_id FROM accounts WHERE user_id = ANY($1::uuid[])
		ORDER BY user_id FOR UPDATE`, pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("LockInOrder: %w", err)
	}
	defer rows.Close()

	var locked uuid.UUID
	for rows.Next() {
		if err := rows.Scan(&locked); err != nil {
			return fmt.Errorf("LockInOrder: scan: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("LockInOrder: rows: %w", err)
	}
	return nil
}

type Wallet struct {
	Address string
	Network domain.WalletNetwork
}

// LookupWallets returns the configured wallet for each user that has one.
// Users with no account or no address are absent from the result.
func (r *AccountRepository) LookupWallets(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]Wallet, error) {
	ids := make([]string, len(userIDs))
	for i, id := range userIDs {
		ids[i] = id.String()
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, wallet_address, wallet_network FROM accounts
		WHERE user_id = ANY($1::uuid[]) AND wallet_address IS NOT NULL AND wallet_address <> ''`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("LookupWallets: %w", err)
	}
	defer rows.Close()

	wallets := make(map[uuid.UUID]Wallet, len(userIDs))
	for rows.Next() {
		var (
			id uuid.UUID
			w  Wallet
		)
		if err := rows.Scan(&id, &w.Address, &w.Network); err != nil {
			return nil, fmt.Errorf("LookupWallets: scan: %w", err)
		}
		wallets[id] = w
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("LookupWallets: rows: %w", err)
	}
	return wallets, nil
}

func (r *AccountRepository) AdjustCachedBalance(ctx context.Context, tx *sql.Tx, userID uuid.UUID, delta decimal.Decimal, now time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET cached_balance = cached_balance + $1, updated_at = $2
		WHERE user_id = $3`,
		delta, now, userID,
	)
	if err != nil {
		return fmt.Errorf("AdjustCachedBalance: %w", err)
	}
	return expectOneRow("AdjustCachedBalance", res)
}

func (r *AccountRepository) SetCachedBalance(ctx context.Context, tx *sql.Tx, userID uuid.UUID, balance decimal.Decimal, now time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET cached_balance = $1, updated_at = $2 WHERE user_id = $3`,
		balance, now, userID,
	)
	if err != nil {
		return fmt.Errorf("SetCachedBalance: %w", err)
	}
	return expectOneRow("SetCachedBalance", res)
}

// ListAutoWithdrawCandidates returns accounts opted into automatic payouts
// with a wallet configured. Eligibility against the ledger is decided later.
func (r *AccountRepository) ListAutoWithdrawCandidates(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts
		WHERE auto_withdraw AND withdraw_threshold > 0
			AND wallet_address IS NOT NULL AND wallet_address <> ''
		ORDER BY user_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("ListAutoWithdrawCandidates: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("ListAutoWithdrawCandidates: scan: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListAutoWithdrawCandidates: rows: %w", err)
	}
	return accounts, nil
}

func expectOneRow(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrAccountNotFound)
	}
	return nil
}

func scanAccount(s scanner) (*domain.Account, error) {
	var a domain.Account
	err := s.Scan(
		&a.UserID, &a.WalletAddress, &a.WalletNetwork, &a.CachedBalance,
		&a.PaymentSettings.AutoWithdraw, &a.PaymentSettings.WithdrawThreshold,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
