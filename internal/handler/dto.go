package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/revenue-ledger/internal/domain"
	"github.com/josh-kwaku/revenue-ledger/internal/service/ledger"
)

// Amounts are rendered as fixed six-place decimal strings.
func amountString(d decimal.Decimal) string {
	return d.StringFixed(domain.AmountScale)
}

type contributorDTO struct {
	UserID              uuid.UUID `json:"user_id"`
	Role                string    `json:"role"`
	RevenueSharePercent string    `json:"revenue_share_percent"`
	JoinedAt            time.Time `json:"joined_at"`
}

func toContributorDTOs(list []domain.Contributor) []contributorDTO {
	out := make([]contributorDTO, len(list))
	for i, c := range list {
		out[i] = contributorDTO{
			UserID:              c.UserID,
			Role:                string(c.Role),
			RevenueSharePercent: c.SharePercent.String(),
			JoinedAt:            c.JoinedAt,
		}
	}
	return out
}

type resourceDTO struct {
	ID           uuid.UUID        `json:"id"`
	OwnerID      uuid.UUID        `json:"owner_id"`
	Contributors []contributorDTO `json:"contributors"`
	RevenueStats revenueStatsDTO  `json:"revenue_stats"`
	CreatedAt    time.Time        `json:"created_at"`
}

type revenueStatsDTO struct {
	TotalEarned   string     `json:"total_earned"`
	PendingAmount string     `json:"pending_amount"`
	LastPayoutAt  *time.Time `json:"last_payout_at"`
}

func toResourceDTO(res *domain.Resource) resourceDTO {
	return resourceDTO{
		ID:           res.ID,
		OwnerID:      res.OwnerID,
		Contributors: toContributorDTOs(res.Contributors),
		RevenueStats: revenueStatsDTO{
			TotalEarned:   amountString(res.RevenueStats.TotalEarned),
			PendingAmount: amountString(res.RevenueStats.PendingAmount),
			LastPayoutAt:  res.RevenueStats.LastPayoutAt,
		},
		CreatedAt: res.CreatedAt,
	}
}

type ledgerEntryDTO struct {
	ID          uuid.UUID            `json:"id"`
	Type        string               `json:"type"`
	Amount      string               `json:"amount"`
	Currency    string               `json:"currency"`
	SenderID    *uuid.UUID           `json:"sender_id"`
	RecipientID *uuid.UUID           `json:"recipient_id"`
	ResourceID  *uuid.UUID           `json:"resource_id,omitempty"`
	EventID     *string              `json:"event_id,omitempty"`
	Status      string               `json:"status"`
	Metadata    domain.EntryMetadata `json:"metadata"`
	CreatedAt   time.Time            `json:"created_at"`
	CompletedAt *time.Time           `json:"completed_at"`
}

func toLedgerEntryDTO(e *domain.LedgerEntry) ledgerEntryDTO {
	return ledgerEntryDTO{
		ID:          e.ID,
		Type:        string(e.Type),
		Amount:      amountString(e.Amount),
		Currency:    string(e.Currency),
		SenderID:    e.SenderID,
		RecipientID: e.RecipientID,
		ResourceID:  e.ResourceID,
		EventID:     e.EventID,
		Status:      string(e.Status),
		Metadata:    e.Metadata,
		CreatedAt:   e.CreatedAt,
		CompletedAt: e.CompletedAt,
	}
}

func toLedgerEntryDTOs(entries []domain.LedgerEntry) []ledgerEntryDTO {
	out := make([]ledgerEntryDTO, len(entries))
	for i := range entries {
		out[i] = toLedgerEntryDTO(&entries[i])
	}
	return out
}

type distributionDTO struct {
	ResourceID    uuid.UUID        `json:"resource_id"`
	EventID       string           `json:"event_id"`
	Distributed   string           `json:"distributed"`
	Undistributed string           `json:"undistributed"`
	Replayed      bool             `json:"replayed"`
	Entries       []ledgerEntryDTO `json:"entries"`
}

func toDistributionDTO(res *ledger.DistributionResult) distributionDTO {
	return distributionDTO{
		ResourceID:    res.ResourceID,
		EventID:       res.EventID,
		Distributed:   amountString(res.Distributed),
		Undistributed: amountString(res.Undistributed),
		Replayed:      res.Replayed,
		Entries:       toLedgerEntryDTOs(res.Entries),
	}
}

type revenueRecordDTO struct {
	LedgerEntryID uuid.UUID  `json:"ledger_entry_id"`
	Amount        string     `json:"amount"`
	Currency      string     `json:"currency"`
	Source        string     `json:"source"`
	ResourceID    *uuid.UUID `json:"resource_id"`
	Timestamp     time.Time  `json:"timestamp"`
}

func toRevenueRecordDTOs(records []domain.RevenueRecord) []revenueRecordDTO {
	out := make([]revenueRecordDTO, len(records))
	for i, rec := range records {
		out[i] = revenueRecordDTO{
			LedgerEntryID: rec.LedgerEntryID,
			Amount:        amountString(rec.Amount),
			Currency:      string(rec.Currency),
			Source:        string(rec.Source),
			ResourceID:    rec.ResourceID,
			Timestamp:     rec.CreatedAt,
		}
	}
	return out
}
