package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WalletNetwork string

const (
	NetworkEthereum WalletNetwork = "ethereum"
	NetworkBitcoin  WalletNetwork = "bitcoin"
)

func (n WalletNetwork) IsValid() bool {
	return n == NetworkEthereum || n == NetworkBitcoin
}

// MinWithdrawThreshold is the lowest threshold an account may configure.
var MinWithdrawThreshold = decimal.NewFromInt(10)

type PaymentSettings struct {
	AutoWithdraw      bool
	WithdrawThreshold decimal.Decimal
}

// Account is the per-user payout profile. CachedBalance is a projection of the
// ledger and is never consulted on its own to authorize a withdrawal.
type Account struct {
	UserID          uuid.UUID
	WalletAddress   *string
	WalletNetwork   WalletNetwork
	CachedBalance   decimal.Decimal
	PaymentSettings PaymentSettings
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (a *Account) Wallet() string {
	if a.WalletAddress == nil {
		return ""
	}
	return *a.WalletAddress
}

type RevenueRecord struct {
	UserID        uuid.UUID
	LedgerEntryID uuid.UUID
	Amount        decimal.Decimal
	Currency      Currency
	Source        RevenueSource
	ResourceID    *uuid.UUID
	CreatedAt     time.Time
}
