package registry

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/revenue-ledger/internal/domain"
)

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *sql.Tx) error) error { return fn(nil) }

type memoryResources struct {
	byID     map[uuid.UUID]*domain.Resource
	replaced int
}

func newMemoryResources() *memoryResources {
	return &memoryResources{byID: make(map[uuid.UUID]*domain.Resource)}
}

func (m *memoryResources) Create(_ context.Context, _ *sql.Tx, res *domain.Resource) error {
	cp := *res
	m.byID[res.ID] = &cp
	return nil
}

func (m *memoryResources) GetByID(_ context.Context, id uuid.UUID) (*domain.Resource, error) {
	res, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrResourceNotFound
	}
	return res, nil
}

func (m *memoryResources) GetForUpdate(ctx context.Context, _ *sql.Tx, id uuid.UUID) (*domain.Resource, error) {
	return m.GetByID(ctx, id)
}

func (m *memoryResources) GetContributors(ctx context.Context, id uuid.UUID) ([]domain.Contributor, error) {
	res, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return res.Contributors, nil
}

func (m *memoryResources) ReplaceContributors(_ context.Context, _ *sql.Tx, id uuid.UUID, list []domain.Contributor) error {
	res, ok := m.byID[id]
	if !ok {
		return domain.ErrResourceNotFound
	}
	m.replaced++
	res.Contributors = append([]domain.Contributor(nil), list...)
	return nil
}

func contributor(id uuid.UUID, role domain.ContributorRole, pct string) domain.Contributor {
	return domain.Contributor{UserID: id, Role: role, SharePercent: decimal.RequireFromString(pct)}
}

func TestCreateResource_DefaultsToSoleOwner(t *testing.T) {
	repo := newMemoryResources()
	svc := NewService(repo, passthroughTx{})
	creator := uuid.New()

	res, err := svc.CreateResource(context.Background(), creator, nil)
	require.NoError(t, err)
	assert.Equal(t, creator, res.OwnerID)
	require.Len(t, res.Contributors, 1)
	assert.Equal(t, domain.RoleOwner, res.Contributors[0].Role)
	assert.True(t, decimal.NewFromInt(100).Equal(res.Contributors[0].SharePercent))
	assert.False(t, res.Contributors[0].JoinedAt.IsZero())

	stored, err := svc.GetContributors(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestCreateResource_RejectsBadList(t *testing.T) {
	repo := newMemoryResources()
	svc := NewService(repo, passthroughTx{})

	_, err := svc.CreateResource(context.Background(), uuid.New(), []domain.Contributor{
		contributor(uuid.New(), domain.RoleOwner, "60"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidShareConfiguration)
	assert.Empty(t, repo.byID)

	_, err = svc.CreateResource(context.Background(), uuid.Nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestSetContributors(t *testing.T) {
	owner, collab, stranger := uuid.New(), uuid.New(), uuid.New()
	joined := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	seed := func() (*memoryResources, *domain.Resource) {
		repo := newMemoryResources()
		res := &domain.Resource{
			ID:      uuid.New(),
			OwnerID: owner,
			Contributors: []domain.Contributor{
				{UserID: owner, Role: domain.RoleOwner, SharePercent: decimal.NewFromInt(100), JoinedAt: joined},
			},
		}
		repo.byID[res.ID] = res
		return repo, res
	}
	next := []domain.Contributor{
		contributor(owner, domain.RoleOwner, "60"),
		contributor(collab, domain.RoleCollaborator, "40"),
	}

	tests := []struct {
		name    string
		caller  domain.Caller
		list    []domain.Contributor
		wantErr error
	}{
		{"owner replaces list", domain.Caller{UserID: owner}, next, nil},
		{"admin replaces list", domain.Caller{UserID: stranger, Admin: true}, next, nil},
		{"stranger is forbidden", domain.Caller{UserID: stranger}, next, domain.ErrForbidden},
		{"sum over 100", domain.Caller{UserID: owner}, []domain.Contributor{
			contributor(owner, domain.RoleOwner, "60"),
			contributor(collab, domain.RoleCollaborator, "40.2"),
		}, domain.ErrInvalidShareConfiguration},
		{"duplicate user", domain.Caller{UserID: owner}, []domain.Contributor{
			contributor(owner, domain.RoleOwner, "50"),
			contributor(owner, domain.RoleCollaborator, "50"),
		}, domain.ErrDuplicateContributor},
		{"unknown role", domain.Caller{UserID: owner}, []domain.Contributor{
			contributor(owner, "sponsor", "100"),
		}, domain.ErrInvalidRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, res := seed()
			svc := NewService(repo, passthroughTx{})

			stored, err := svc.SetContributors(context.Background(), tt.caller, res.ID, tt.list)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, 0, repo.replaced)
				require.Len(t, res.Contributors, 1)
				assert.Equal(t, owner, res.Contributors[0].UserID)
				return
			}

			require.NoError(t, err)
			require.Len(t, stored, 2)
			assert.Equal(t, joined, stored[0].JoinedAt, "existing contributor keeps join time")
			assert.True(t, stored[1].JoinedAt.After(joined))
			assert.Equal(t, stored, res.Contributors)
		})
	}
}

func TestSetContributors_UnknownResource(t *testing.T) {
	svc := NewService(newMemoryResources(), passthroughTx{})
	_, err := svc.SetContributors(context.Background(), domain.Caller{Admin: true}, uuid.New(), []domain.Contributor{
		contributor(uuid.New(), domain.RoleOwner, "100"),
	})
	assert.True(t, errors.Is(err, domain.ErrResourceNotFound))
}

func TestStampJoinedAt_DoesNotMutateInput(t *testing.T) {
	id := uuid.New()
	list := []domain.Contributor{contributor(id, domain.RoleOwner, "100")}
	now := time.Now()

	out := stampJoinedAt(list, nil, now)
	assert.True(t, list[0].JoinedAt.IsZero())
	assert.Equal(t, now, out[0].JoinedAt)
}
