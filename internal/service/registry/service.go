package registry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/revenue-ledger/internal/domain"
	"github.com/josh-kwaku/revenue-ledger/internal/logging"
)

type resourceRepo interface {
	Create(ctx context.Context, tx *sql.Tx, res *domain.Resource) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Resource, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Resource, error)
	GetContributors(ctx context.Context, id uuid.UUID) ([]domain.Contributor, error)
	ReplaceContributors(ctx context.Context, tx *sql.Tx, id uuid.UUID, list []domain.Contributor) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Service owns contributor lists and keeps every stored list summing to 100%.
type Service struct {
	resources resourceRepo
	db        txRunner
	now       func() time.Time
}

func NewService(resources resourceRepo, db txRunner) *Service {
	return &Service{
		resources: resources,
		db:        db,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateResource stores a new resource owned by creatorID. An empty list makes
// the creator the sole owner with a 100% share.
func (s *Service) CreateResource(ctx context.Context, creatorID uuid.UUID, list []domain.Contributor) (*domain.Resource, error) {
	if creatorID == uuid.Nil {
		return nil, fmt.Errorf("CreateResource: %w", domain.ErrInvalidRequest)
	}

	now := s.now()
	if len(list) == 0 {
		list = domain.SoleOwner(creatorID, now)
	}
	list = stampJoinedAt(list, nil, now)
	if err := domain.ValidateContributors(list); err != nil {
		return nil, fmt.Errorf("CreateResource: %w", err)
	}

	res := &domain.Resource{
		ID:           uuid.New(),
		OwnerID:      creatorID,
		Contributors: list,
		RevenueStats: domain.RevenueStats{
			TotalEarned:   decimal.Zero,
			PendingAmount: decimal.Zero,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.resources.Create(ctx, tx, res); err != nil {
			return err
		}
		return s.resources.ReplaceContributors(ctx, tx, res.ID, list)
	})
	if err != nil {
		return nil, fmt.Errorf("CreateResource: %w", err)
	}

	logging.FromContext(ctx).Info("resource created",
		"resource_id", res.ID,
		"owner_id", creatorID,
		"contributors", len(list),
	)
	return res, nil
}

// SetContributors replaces the whole contributor list. The caller must own
// the resource or be an admin. Nothing is written if any entry is invalid.
func (s *Service) SetContributors(ctx context.Context, caller domain.Caller, resourceID uuid.UUID, list []domain.Contributor) ([]domain.Contributor, error) {
	if err := domain.ValidateContributors(list); err != nil {
		return nil, fmt.Errorf("SetContributors: %w", err)
	}

	var stored []domain.Contributor
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := s.resources.GetForUpdate(ctx, tx, resourceID)
		if err != nil {
			return err
		}
		if !caller.Admin && caller.UserID != res.OwnerID {
			return domain.ErrForbidden
		}

		stored = stampJoinedAt(list, res.Contributors, s.now())
		return s.resources.ReplaceContributors(ctx, tx, resourceID, stored)
	})
	if err != nil {
		return nil, fmt.Errorf("SetContributors: %w", err)
	}

	logging.FromContext(ctx).Info("contributors replaced",
		"resource_id", resourceID,
		"actor_id", caller.UserID,
		"contributors", len(stored),
	)
	return stored, nil
}

func (s *Service) GetContributors(ctx context.Context, resourceID uuid.UUID) ([]domain.Contributor, error) {
	list, err := s.resources.GetContributors(ctx, resourceID)
	if err != nil {
		return nil, fmt.Errorf("GetContributors: %w", err)
	}
	return list, nil
}

func (s *Service) GetResource(ctx context.Context, resourceID uuid.UUID) (*domain.Resource, error) {
	res, err := s.resources.GetByID(ctx, resourceID)
	if err != nil {
		return nil, fmt.Errorf("GetResource: %w", err)
	}
	return res, nil
}

// stampJoinedAt returns a copy of list where contributors already present in
// previous keep their original join time and new ones join at now.
func stampJoinedAt(list, previous []domain.Contributor, now time.Time) []domain.Contributor {
	joined := make(map[uuid.UUID]time.Time, len(previous))
	for _, c := range previous {
		joined[c.UserID] = c.JoinedAt
	}

	out := make([]domain.Contributor, len(list))
	for i, c := range list {
		switch at, ok := joined[c.UserID]; {
		case ok:
			c.JoinedAt = at
		case c.JoinedAt.IsZero():
			c.JoinedAt = now
		}
		out[i] = c
	}
	return out
}
