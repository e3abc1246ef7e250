package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/revenue-ledger/internal/domain"
	"github.com/josh-kwaku/revenue-ledger/internal/logging"
	"github.com/josh-kwaku/revenue-ledger/internal/repository"
)

// Share is one contributor's cut of a revenue event.
type Share struct {
	UserID       uuid.UUID
	Amount       decimal.Decimal
	SharePercent decimal.Decimal
}

type Commit struct {
	ResourceID  uuid.UUID
	GrossAmount decimal.Decimal
	Source      domain.RevenueSource
	EventID     string
	Shares      []Share
}

type DistributionResult struct {
	ResourceID    uuid.UUID
	EventID       string
	Entries       []domain.LedgerEntry
	Distributed   decimal.Decimal
	Undistributed decimal.Decimal
	Replayed      bool
}

func (c Commit) validate() error {
	if c.ResourceID == uuid.Nil || c.EventID == "" {
		return domain.ErrInvalidRequest
	}
	if !domain.ValidAmount(c.GrossAmount) {
		return domain.ErrInvalidAmount
	}
	if !c.Source.IsValid() {
		return domain.ErrInvalidSource
	}
	if len(c.Shares) == 0 {
		return domain.ErrNoPayableContributors
	}

	seen := make(map[uuid.UUID]struct{}, len(c.Shares))
	for _, sh := range c.Shares {
		if !domain.ValidAmount(sh.Amount) {
			return domain.ErrInvalidAmount
		}
		if _, dup := seen[sh.UserID]; dup {
			return domain.ErrDuplicateContributor
		}
		seen[sh.UserID] = struct{}{}
	}
	return nil
}

// CommitDistribution writes one completed royalty per share, the revenue
// history rows, the cached balance deltas and the resource stats in a single
// transaction. A repeated (resource, event) returns what the first call wrote.
func (s *Store) CommitDistribution(ctx context.Context, c Commit) (*DistributionResult, error) {
	ctx, log := logging.With(ctx, "resource_id", c.ResourceID, "event_id", c.EventID)

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("CommitDistribution: %w", err)
	}

	now := s.now()
	result := &DistributionResult{
		ResourceID:  c.ResourceID,
		EventID:     c.EventID,
		Distributed: decimal.Zero,
	}

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.resources.GetForUpdate(ctx, tx, c.ResourceID); err != nil {
			return err
		}

		if err := s.events.Reserve(ctx, tx, &repository.DistributionEvent{
			ResourceID:  c.ResourceID,
			EventID:     c.EventID,
			GrossAmount: c.GrossAmount,
			Source:      c.Source,
			CreatedAt:   now,
		}); err != nil {
			return err
		}

		recipients := make([]uuid.UUID, len(c.Shares))
		for i, sh := range c.Shares {
			recipients[i] = sh.UserID
		}
		if err := s.accounts.LockInOrder(ctx, tx, recipients); err != nil {
			return err
		}

		for _, sh := range c.Shares {
			entry, err := s.creditRoyalty(ctx, tx, c, sh, now)
			if err != nil {
				return err
			}
			result.Entries = append(result.Entries, *entry)
			result.Distributed = result.Distributed.Add(sh.Amount)
		}

		result.Undistributed = undistributed(c.GrossAmount, result.Distributed)
		return s.resources.UpdateRevenueStats(ctx, tx, c.ResourceID, c.GrossAmount, result.Undistributed, now)
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEvent) {
			res, err := s.FindDistribution(ctx, c.ResourceID, c.EventID, c.GrossAmount, c.Source)
			if err != nil {
				return nil, fmt.Errorf("CommitDistribution: %w", err)
			}
			if res == nil {
				return nil, fmt.Errorf("CommitDistribution: event %s not found after conflict: %w", c.EventID, domain.ErrDistributionFailed)
			}
			return res, nil
		}
		if errors.Is(err, domain.ErrResourceNotFound) || errors.Is(err, domain.ErrValidation) {
			return nil, fmt.Errorf("CommitDistribution: %w", err)
		}

		log.Error("distribution rolled back",
			"gross_amount", c.GrossAmount.String(),
			"source", c.Source,
			"shares", len(c.Shares),
			"error", err,
		)
		s.metrics.ObserveDistribution("failed", string(s.config.Currency), decimal.Zero, decimal.Zero)
		return nil, fmt.Errorf("CommitDistribution: %w: %w", domain.ErrDistributionFailed, err)
	}

	s.metrics.ObserveDistribution("success", string(s.config.Currency), result.Distributed, result.Undistributed)
	log.Info("distribution committed",
		"gross_amount", c.GrossAmount.String(),
		"distributed", result.Distributed.String(),
		"undistributed", result.Undistributed.String(),
		"entries", len(result.Entries),
	)
	return result, nil
}

func (s *Store) creditRoyalty(ctx context.Context, tx *sql.Tx, c Commit, sh Share, now time.Time) (*domain.LedgerEntry, error) {
	entry := domain.NewPendingEntry(domain.EntryTypeRoyalty, sh.Amount, s.config.Currency, now)
	recipient, resourceID, eventID := sh.UserID, c.ResourceID, c.EventID
	gross, pct := c.GrossAmount, sh.SharePercent
	entry.RecipientID = &recipient
	entry.ResourceID = &resourceID
	entry.EventID = &eventID
	entry.Metadata.Source = c.Source
	entry.Metadata.GrossAmount = &gross
	entry.Metadata.SharePercent = &pct
	if err := entry.Complete(now); err != nil {
		return nil, err
	}

	if err := s.entries.Create(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("royalty for %s: %w", recipient, err)
	}
	if err := s.history.Append(ctx, tx, &domain.RevenueRecord{
		UserID:        recipient,
		LedgerEntryID: entry.ID,
		Amount:        sh.Amount,
		Currency:      s.config.Currency,
		Source:        c.Source,
		ResourceID:    &resourceID,
		CreatedAt:     now,
	}); err != nil {
		return nil, fmt.Errorf("revenue history for %s: %w", recipient, err)
	}
	if err := s.accounts.AdjustCachedBalance(ctx, tx, recipient, sh.Amount, now); err != nil {
		return nil, fmt.Errorf("cached balance for %s: %w", recipient, err)
	}
	return entry, nil
}

// FindDistribution returns the stored outcome of an event, or nil if the event
// has not been committed. A stored event with a different amount or source
// yields ErrIdempotencyConflict.
func (s *Store) FindDistribution(ctx context.Context, resourceID uuid.UUID, eventID string, gross decimal.Decimal, source domain.RevenueSource) (*DistributionResult, error) {
	ev, err := s.events.Get(ctx, resourceID, eventID)
	if err != nil {
		return nil, fmt.Errorf("FindDistribution: %w", err)
	}
	if ev == nil {
		return nil, nil
	}
	if !ev.Matches(gross, source) {
		return nil, fmt.Errorf("FindDistribution: %w", domain.ErrIdempotencyConflict)
	}

	entries, err := s.entries.ListByEvent(ctx, resourceID, eventID)
	if err != nil {
		return nil, fmt.Errorf("FindDistribution: %w", err)
	}

	res := &DistributionResult{
		ResourceID:  resourceID,
		EventID:     eventID,
		Entries:     entries,
		Distributed: decimal.Zero,
		Replayed:    true,
	}
	for _, e := range entries {
		res.Distributed = res.Distributed.Add(e.Amount)
	}
	res.Undistributed = undistributed(ev.GrossAmount, res.Distributed)

	s.metrics.ObserveDistribution("replayed", string(s.config.Currency), decimal.Zero, decimal.Zero)
	logging.FromContext(ctx).Info("distribution replayed",
		"resource_id", resourceID,
		"event_id", eventID,
		"entries", len(entries),
	)
	return res, nil
}

// undistributed is what stays on the resource. Shares of a list summing above
// 100% can exceed gross; that overshoot is absorbed, never charged back.
func undistributed(gross, distributed decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, gross.Sub(distributed))
}
