package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/revenue-ledger/internal/domain"
)

const resourceColumns = `id, owner_id, total_earned, pending_amount, last_payout_at,
	created_at, updated_at`

type ResourceRepository struct {
	db *sql.DB
}

func NewResourceRepository(db *sql.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

func (r *ResourceRepository) Create(ctx context.Context, tx *sql.Tx, res *domain.Resource) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO resources (id, owner_id, total_earned, pending_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		res.ID, res.OwnerID, res.RevenueStats.TotalEarned, res.RevenueStats.PendingAmount,
		res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *ResourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Resource, error) {
	res, err := scanResource(r.db.QueryRowContext(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrResourceNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}

	res.Contributors, err = r.listContributors(ctx, r.db, id)
	if err != nil {
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return res, nil
}

// GetForUpdate locks the resource row for the rest of tx. Contributors are
// read under the same lock.
func (r *ResourceRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Resource, error) {
	res, err := scanResource(tx.QueryRowContext(ctx,
		`SELECT `+resourceColumns+` FROM resources WHERE id = $1 FOR UPDATE`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrResourceNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}

	res.Contributors, err = r.listContributors(ctx, tx, id)
	if err != nil {
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return res, nil
}

func (r *ResourceRepository) GetContributors(ctx context.Context, id uuid.UUID) ([]domain.Contributor, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM resources WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("GetContributors: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("GetContributors: %w", domain.ErrResourceNotFound)
	}

	list, err := r.listContributors(ctx, r.db, id)
	if err != nil {
		return nil, fmt.Errorf("GetContributors: %w", err)
	}
	return list, nil
}

// ReplaceContributors swaps the whole list inside tx; callers hold the
// resource row lock.
func (r *ResourceRepository) ReplaceContributors(ctx context.Context, tx *sql.Tx, id uuid.UUID, list []domain.Contributor) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM resource_contributors WHERE resource_id = $1`, id,
	); err != nil {
		return fmt.Errorf("ReplaceContributors: delete: %w", err)
	}

	for i, c := range list {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO resource_contributors (resource_id, user_id, position, role, share_percent, joined_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			id, c.UserID, i, c.Role, c.SharePercent, c.JoinedAt,
		); err != nil {
			return fmt.Errorf("ReplaceContributors: insert %s: %w", c.UserID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE resources SET updated_at = now() WHERE id = $1`, id,
	); err != nil {
		return fmt.Errorf("ReplaceContributors: touch: %w", err)
	}
	return nil
}

func (r *ResourceRepository) UpdateRevenueStats(ctx context.Context, tx *sql.Tx, id uuid.UUID, totalEarnedDelta, pendingDelta decimal.Decimal, payoutAt time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE resources
		SET total_earned = total_earned + $1,
			pending_amount = pending_amount + $2,
			last_payout_at = $3,
			updated_at = $3
		WHERE id = $4`,
		totalEarnedDelta, pendingDelta, payoutAt, id,
	)
	if err != nil {
		return fmt.Errorf("UpdateRevenueStats: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateRevenueStats: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("UpdateRevenueStats: %w", domain.ErrResourceNotFound)
	}
	return nil
}

func (r *ResourceRepository) listContributors(ctx context.Context, q querier, id uuid.UUID) ([]domain.Contributor, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT user_id, role, share_percent, joined_at
		FROM resource_contributors WHERE resource_id = $1 ORDER BY position`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("listContributors: %w", err)
	}
	defer rows.Close()

	var list []domain.Contributor
	for rows.Next() {
		var c domain.Contributor
		if err := rows.Scan(&c.UserID, &c.Role, &c.SharePercent, &c.JoinedAt); err != nil {
			return nil, fmt.Errorf("listContributors: scan: %w", err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listContributors: rows: %w", err)
	}
	return list, nil
}

func scanResource(s scanner) (*domain.Resource, error) {
	var res domain.Resource
	err := s.Scan(
		&res.ID, &res.OwnerID,
		&res.RevenueStats.TotalEarned, &res.RevenueStats.PendingAmount, &res.RevenueStats.LastPayoutAt,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}
