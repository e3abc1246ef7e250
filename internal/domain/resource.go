package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ContributorRole string

const (
	RoleOwner        ContributorRole = "owner"
	RoleCollaborator ContributorRole = "collaborator"
	RoleMaintainer   ContributorRole = "maintainer"
)

func (r ContributorRole) IsValid() bool {
	switch r {
	case RoleOwner, RoleCollaborator, RoleMaintainer:
		return true
	}
	return false
}

var (
	hundredPercent = decimal.NewFromInt(100)
	shareTolerance = decimal.RequireFromString("0.1")
)

type Contributor struct {
	UserID       uuid.UUID
	Role         ContributorRole
	SharePercent decimal.Decimal
	JoinedAt     time.Time
}

type RevenueStats struct {
	TotalEarned   decimal.Decimal
	PendingAmount decimal.Decimal
	LastPayoutAt  *time.Time
}

type Resource struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	Contributors []Contributor
	RevenueStats RevenueStats
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ValidateContributors checks every entry and the whole-list sum. It never
// mutates the input.
func ValidateContributors(list []Contributor) error {
	if len(list) == 0 {
		return ErrInvalidShareConfiguration
	}

	seen := make(map[uuid.UUID]struct{}, len(list))
	sum := decimal.Zero
	for _, c := range list {
		if c.UserID == uuid.Nil {
			return ErrInvalidRequest
		}
		if !c.Role.IsValid() {
			return ErrInvalidRole
		}
		if c.SharePercent.IsNegative() || c.SharePercent.GreaterThan(hundredPercent) ||
			!c.SharePercent.Equal(c.SharePercent.Truncate(AmountScale)) {
			return ErrInvalidSharePercent
		}
		if _, dup := seen[c.UserID]; dup {
			return ErrDuplicateContributor
		}
		seen[c.UserID] = struct{}{}
		sum = sum.Add(c.SharePercent)
	}

	if sum.Sub(hundredPercent).Abs().GreaterThan(shareTolerance) {
		return ErrInvalidShareConfiguration
	}
	return nil
}

// SoleOwner is the contributor list given to a resource created without one.
func SoleOwner(creatorID uuid.UUID, now time.Time) []Contributor {
	return []Contributor{{
		UserID:       creatorID,
		Role:         RoleOwner,
		SharePercent: hundredPercent,
		JoinedAt:     now,
	}}
}
