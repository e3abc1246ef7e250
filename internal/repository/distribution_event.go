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

// ErrDuplicateEvent is returned by Reserve when (resource_id, event_id) was
// already recorded by a committed transaction.
var ErrDuplicateEvent = errors.New("distribution event already recorded")

type DistributionEvent struct {
	ResourceID  uuid.UUID
	EventID     string
	GrossAmount decimal.Decimal
	Source      domain.RevenueSource
	CreatedAt   time.Time
}

// Matches reports whether gross and source describe the revenue recorded in e.
func (e *DistributionEvent) Matches(gross decimal.Decimal, source domain.RevenueSource) bool {
	return e.GrossAmount.Equal(gross) && e.Source == source
}

type DistributionEventRepository struct {
	db *sql.DB
}

func NewDistributionEventRepository(db *sql.DB) *DistributionEventRepository {
	return &DistributionEventRepository{db: db}
}

// Reserve records the event key inside tx. A concurrent transaction holding
// the same key blocks this insert until it commits or rolls back.
func (r *DistributionEventRepository) Reserve(ctx context.Context, tx *sql.Tx, ev *DistributionEvent) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO distribution_events (resource_id, event_id, gross_amount, source, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		ev.ResourceID, ev.EventID, ev.GrossAmount, ev.Source, ev.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("Reserve: %w", ErrDuplicateEvent)
		}
		return fmt.Errorf("Reserve: %w", err)
	}
	return nil
}

func (r *DistributionEventRepository) Get(ctx context.Context, resourceID uuid.UUID, eventID string) (*DistributionEvent, error) {
	var ev DistributionEvent
	err := r.db.QueryRowContext(ctx,
		`SELECT resource_id, event_id, gross_amount, source, created_at
		FROM distribution_events WHERE resource_id = $1 AND event_id = $2`,
		resourceID, eventID,
	).Scan(&ev.ResourceID, &ev.EventID, &ev.GrossAmount, &ev.Source, &ev.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &ev, nil
}
