package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contributor(role ContributorRole, share string) Contributor {
	return Contributor{
		UserID:       uuid.New(),
		Role:         role,
		SharePercent: decimal.RequireFromString(share),
	}
}

func TestValidateContributors(t *testing.T) {
	dupID := uuid.New()

	tests := []struct {
		name    string
		list    []Contributor
		wantErr error
	}{
		{
			name: "sole owner",
			list: []Contributor{contributor(RoleOwner, "100")},
		},
		{
			name: "sixty forty",
			list: []Contributor{contributor(RoleOwner, "60"), contributor(RoleCollaborator, "40")},
		},
		{
			name: "thirds within tolerance",
			list: []Contributor{
				contributor(RoleOwner, "33.33"),
				contributor(RoleCollaborator, "33.33"),
				contributor(RoleMaintainer, "33.33"),
			},
		},
		{
			name: "exactly at upper tolerance",
			list: []Contributor{contributor(RoleOwner, "50"), contributor(RoleCollaborator, "50.1")},
		},
		{
			name:    "above tolerance",
			list:    []Contributor{contributor(RoleOwner, "50"), contributor(RoleCollaborator, "50.2")},
			wantErr: ErrInvalidShareConfiguration,
		},
		{
			name:    "below tolerance",
			list:    []Contributor{contributor(RoleOwner, "50"), contributor(RoleCollaborator, "49.8")},
			wantErr: ErrInvalidShareConfiguration,
		},
		{
			name:    "empty list",
			list:    nil,
			wantErr: ErrInvalidShareConfiguration,
		},
		{
			name:    "unknown role",
			list:    []Contributor{contributor("sponsor", "100")},
			wantErr: ErrInvalidRole,
		},
		{
			name:    "negative share",
			list:    []Contributor{contributor(RoleOwner, "110"), contributor(RoleCollaborator, "-10")},
			wantErr: ErrInvalidSharePercent,
		},
		{
			name:    "share finer than storage precision",
			list:    []Contributor{contributor(RoleOwner, "50.0000004"), contributor(RoleCollaborator, "49.9999996")},
			wantErr: ErrInvalidSharePercent,
		},
		{
			name: "share at storage precision",
			list: []Contributor{contributor(RoleOwner, "50.000001"), contributor(RoleCollaborator, "49.999999")},
		},
		{
			name:    "share above hundred",
			list:    []Contributor{contributor(RoleOwner, "100.05")},
			wantErr: ErrInvalidSharePercent,
		},
		{
			name: "duplicate user",
			list: []Contributor{
				{UserID: dupID, Role: RoleOwner, SharePercent: decimal.NewFromInt(50)},
				{UserID: dupID, Role: RoleCollaborator, SharePercent: decimal.NewFromInt(50)},
			},
			wantErr: ErrDuplicateContributor,
		},
		{
			name:    "nil user",
			list:    []Contributor{{Role: RoleOwner, SharePercent: decimal.NewFromInt(100)}},
			wantErr: ErrInvalidRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateContributors(tc.list)
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.wantErr)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestSoleOwner(t *testing.T) {
	creator := uuid.New()
	now := time.Now().UTC()

	list := SoleOwner(creator, now)

	require.Len(t, list, 1)
	assert.Equal(t, creator, list[0].UserID)
	assert.Equal(t, RoleOwner, list[0].Role)
	assert.True(t, list[0].SharePercent.Equal(decimal.NewFromInt(100)))
	assert.NoError(t, ValidateContributors(list))
}
