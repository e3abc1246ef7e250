package ledger

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/josh-kwaku/revenue-ledger/internal/domain"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	// maxPage keeps (page-1)*limit inside int; anything past it is empty anyway.
	maxPage = math.MaxInt / MaxPageSize
)

// Page normalises 1-based page numbers and limits into limit and offset.
func Page(page, limit int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	return limit, (page - 1) * limit
}

// DistributionHistory lists royalty entries for a resource, newest first.
func (s *Store) DistributionHistory(ctx context.Context, resourceID uuid.UUID, page, limit int) ([]domain.LedgerEntry, int, error) {
	l, offset := Page(page, limit)
	entries, total, err := s.entries.ListRoyaltiesByResource(ctx, resourceID, l, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("DistributionHistory: %w", err)
	}
	return entries, total, nil
}

func (s *Store) RevenueHistory(ctx context.Context, userID uuid.UUID, page, limit int) ([]domain.RevenueRecord, int, error) {
	l, offset := Page(page, limit)
	records, total, err := s.history.ListByUser(ctx, userID, l, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("RevenueHistory: %w", err)
	}
	return records, total, nil
}
