package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/josh-kwaku/revenue-ledger/internal/domain"
)

type RevenueHistoryRepository struct {
	db *sql.DB
}

func NewRevenueHistoryRepository(db *sql.DB) *RevenueHistoryRepository {
	return &RevenueHistoryRepository{db: db}
}

func (r *RevenueHistoryRepository) Append(ctx context.Context, tx *sql.Tx, rec *domain.RevenueRecord) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO revenue_history (user_id, ledger_entry_id, amount, currency, source, resource_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.UserID, rec.LedgerEntryID, rec.Amount, rec.Currency, rec.Source, rec.ResourceID, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Append: %w", err)
	}
	return nil
}

func (r *RevenueHistoryRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.RevenueRecord, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM revenue_history WHERE user_id = $1`, userID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByUser: count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, ledger_entry_id, amount, currency, source, resource_id, created_at
		FROM revenue_history WHERE user_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("ListByUser: %w", err)
	}
	defer rows.Close()

	var records []domain.RevenueRecord
	for rows.Next() {
		var rec domain.RevenueRecord
		if err := rows.Scan(
			&rec.UserID, &rec.LedgerEntryID, &rec.Amount, &rec.Currency,
			&rec.Source, &rec.ResourceID, &rec.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("ListByUser: scan: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ListByUser: rows: %w", err)
	}
	return records, total, nil
}
