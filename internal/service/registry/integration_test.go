package registry_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/revenue-ledger/internal/domain"
	"github.com/josh-kwaku/revenue-ledger/internal/repository"
	"github.com/josh-kwaku/revenue-ledger/internal/service/registry"
	"github.com/josh-kwaku/revenue-ledger/internal/testutil"
)

func TestRegistry_RoundTripAndRejectedUpdate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := registry.NewService(repository.NewResourceRepository(db), repository.NewDB(db))
	ctx := context.Background()

	owner, collab := uuid.New(), uuid.New()
	res, err := svc.CreateResource(ctx, owner, nil)
	require.NoError(t, err)

	_, err = svc.SetContributors(ctx, domain.Caller{UserID: owner}, res.ID, []domain.Contributor{
		testutil.Share(collab, domain.RoleCollaborator, "33.333333"),
		testutil.Share(owner, domain.RoleOwner, "66.666667"),
	})
	require.NoError(t, err)

	before, err := svc.GetContributors(ctx, res.ID)
	require.NoError(t, err)
	require.Len(t, before, 2)
	assert.Equal(t, collab, before[0].UserID, "order is preserved")
	assert.True(t, decimal.RequireFromString("66.666667").Equal(before[1].SharePercent))

	_, err = svc.SetContributors(ctx, domain.Caller{UserID: owner}, res.ID, []domain.Contributor{
		testutil.Share(owner, domain.RoleOwner, "90"),
	})
	require.ErrorIs(t, err, domain.ErrInvalidShareConfiguration)

	_, err = svc.SetContributors(ctx, domain.Caller{UserID: collab}, res.ID, []domain.Contributor{
		testutil.Share(collab, domain.RoleOwner, "100"),
	})
	require.ErrorIs(t, err, domain.ErrForbidden)

	after, err := svc.GetContributors(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, len(before), len(after))
	for i := range before {
		assert.Equal(t, before[i].UserID, after[i].UserID)
		assert.True(t, before[i].SharePercent.Equal(after[i].SharePercent))
	}

	_, err = svc.GetContributors(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrResourceNotFound)
}
