package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EntryType string

const (
	EntryTypeRoyalty      EntryType = "royalty"
	EntryTypeWithdrawal   EntryType = "withdrawal"
	EntryTypePurchase     EntryType = "purchase"
	EntryTypeSubscription EntryType = "subscription"
	EntryTypeReward       EntryType = "reward"
)

type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "pending"
	EntryStatusCompleted EntryStatus = "completed"
	EntryStatusFailed    EntryStatus = "failed"
)

func (s EntryStatus) IsTerminal() bool {
	return s == EntryStatusCompleted || s == EntryStatusFailed
}

// LedgerEntry is a single money movement. A nil SenderID means the platform,
// a nil RecipientID means an external wallet.
type LedgerEntry struct {
	ID          uuid.UUID
	Type        EntryType
	Amount      decimal.Decimal
	Currency    Currency
	SenderID    *uuid.UUID
	RecipientID *uuid.UUID
	ResourceID  *uuid.UUID
	EventID     *string
	Status      EntryStatus
	Metadata    EntryMetadata
	CreatedAt   time.Time
	CompletedAt *time.Time
}

func NewPendingEntry(t EntryType, amount decimal.Decimal, currency Currency, now time.Time) *LedgerEntry {
	return &LedgerEntry{
		ID:        uuid.New(),
		Type:      t,
		Amount:    amount,
		Currency:  currency,
		Status:    EntryStatusPending,
		Metadata:  EntryMetadata{Version: MetadataVersion},
		CreatedAt: now,
	}
}

// Complete moves a pending entry to completed and stamps CompletedAt.
func (e *LedgerEntry) Complete(now time.Time) error {
	if e.Status.IsTerminal() {
		return fmt.Errorf("Complete: %s: %w", e.ID, ErrEntryTerminal)
	}
	e.Status = EntryStatusCompleted
	e.CompletedAt = &now
	return nil
}

func (e *LedgerEntry) Fail() error {
	if e.Status.IsTerminal() {
		return fmt.Errorf("Fail: %s: %w", e.ID, ErrEntryTerminal)
	}
	e.Status = EntryStatusFailed
	return nil
}

func (e *LedgerEntry) Validate() error {
	if !ValidAmount(e.Amount) {
		return ErrInvalidAmount
	}
	if e.Currency == "" {
		return ErrInvalidCurrency
	}
	return e.Metadata.ValidateFor(e.Type)
}
