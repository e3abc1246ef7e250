package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/revenue-ledger/internal/domain"
)

const ledgerColumns = `id, type, amount, currency, sender_id, recipient_id,
	resource_id, event_id, status, metadata, created_at, completed_at`

type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Create appends entry inside tx after validating its amount and metadata.
func (r *LedgerRepository) Create(ctx context.Context, tx *sql.Tx, entry *domain.LedgerEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	meta, err := entry.Metadata.Marshal()
	if err != nil {
		return fmt.Errorf("Create: metadata: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO ledger_entries (
			id, type, amount, currency, sender_id, recipient_id,
			resource_id, event_id, status, metadata, created_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11, $12)`,
		entry.ID, entry.Type, entry.Amount, entry.Currency, entry.SenderID, entry.RecipientID,
		entry.ResourceID, entry.EventID, entry.Status, string(meta), entry.CreatedAt, entry.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

// Finalize writes the terminal status, completed_at and metadata of an entry
// that is still pending. The storage trigger rejects changes to terminal rows.
func (r *LedgerRepository) Finalize(ctx context.Context, tx *sql.Tx, entry *domain.LedgerEntry) error {
	if !entry.Status.IsTerminal() {
		return fmt.Errorf("Finalize: %s: status %s is not terminal", entry.ID, entry.Status)
	}
	meta, err := entry.Metadata.Marshal()
	if err != nil {
		return fmt.Errorf("Finalize: metadata: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE ledger_entries SET status = $1, completed_at = $2, metadata = $3::jsonb
		WHERE id = $4 AND status = 'pending'`,
		entry.Status, entry.CompletedAt, string(meta), entry.ID,
	)
	if err != nil {
		return fmt.Errorf("Finalize: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Finalize: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("Finalize: %s: %w", entry.ID, domain.ErrEntryTerminal)
	}
	return nil
}

// PendingAmount sums completed royalties credited to userID minus completed
// withdrawals debited from it. Pass a tx to read under that tx's locks.
func (r *LedgerRepository) PendingAmount(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (decimal.Decimal, error) {
	var q querier = r.db
	if tx != nil {
		q = tx
	}

	var pending decimal.Decimal
	err := q.QueryRowContext(ctx,
		`SELECT
			COALESCE(SUM(amount) FILTER (WHERE type = 'royalty' AND recipient_id = $1), 0)
			- COALESCE(SUM(amount) FILTER (WHERE type = 'withdrawal' AND sender_id = $1), 0)
		FROM ledger_entries
		WHERE status = 'completed' AND (recipient_id = $1 OR sender_id = $1)`,
		userID,
	).Scan(&pending)
	if err != nil {
		return decimal.Zero, fmt.Errorf("PendingAmount: %w", err)
	}
	return pending, nil
}

// CountWithdrawals counts completed withdrawals sent by userID. Read it under
// the account lock to get a stable per-user sequence.
func (r *LedgerRepository) CountWithdrawals(ctx context.Context, tx *sql.Tx, userID uuid.UUID) (int, error) {
	var q querier = r.db
	if tx != nil {
		q = tx
	}

	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger_entries
		WHERE type = 'withdrawal' AND status = 'completed' AND sender_id = $1`,
		userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("CountWithdrawals: %w", err)
	}
	return n, nil
}

func (r *LedgerRepository) ListRoyaltiesByResource(ctx context.Context, resourceID uuid.UUID, limit, offset int) ([]domain.LedgerEntry, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger_entries WHERE resource_id = $1 AND type = 'royalty'`, resourceID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ListRoyaltiesByResource: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries
		WHERE resource_id = $1 AND type = 'royalty'
		ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`,
		resourceID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("ListRoyaltiesByResource: %w", err)
	}
	entries, err := collectLedgerEntries(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("ListRoyaltiesByResource: %w", err)
	}
	return entries, total, nil
}

// ListByEvent returns the royalties written for one distribution event.
func (r *LedgerRepository) ListByEvent(ctx context.Context, resourceID uuid.UUID, eventID string) ([]domain.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM ledger_entries
		WHERE resource_id = $1 AND event_id = $2 AND type = 'royalty'
		ORDER BY created_at, id`,
		resourceID, eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("ListByEvent: %w", err)
	}
	entries, err := collectLedgerEntries(rows)
	if err != nil {
		return nil, fmt.Errorf("ListByEvent: %w", err)
	}
	return entries, nil
}

func collectLedgerEntries(rows *sql.Rows) ([]domain.LedgerEntry, error) {
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return entries, nil
}

func scanLedgerEntry(s scanner) (*domain.LedgerEntry, error) {
	var (
		e    domain.LedgerEntry
		meta []byte
	)
	err := s.Scan(
		&e.ID, &e.Type, &e.Amount, &e.Currency, &e.SenderID, &e.RecipientID,
		&e.ResourceID, &e.EventID, &e.Status, &meta, &e.CreatedAt, &e.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Metadata, err = domain.UnmarshalMetadata(meta)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
