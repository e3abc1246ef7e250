package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimal places every ledger amount carries.
const AmountScale int32 = 6

type Currency string

func (c Currency) Normalize() Currency {
	return Currency(strings.ToUpper(strings.TrimSpace(string(c))))
}

type RevenueSource string

const (
	SourceDownload     RevenueSource = "download"
	SourceUsage        RevenueSource = "usage"
	SourceReward       RevenueSource = "reward"
	SourceReferral     RevenueSource = "referral"
	SourceSubscription RevenueSource = "subscription"
)

func (s RevenueSource) IsValid() bool {
	switch s {
	case SourceDownload, SourceUsage, SourceReward, SourceReferral, SourceSubscription:
		return true
	}
	return false
}

// ValidAmount reports whether d is positive and representable at AmountScale
// without losing digits.
func ValidAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Truncate(AmountScale))
}

// ShareOf returns gross * percent / 100 truncated toward zero at AmountScale.
func ShareOf(gross, percent decimal.Decimal) decimal.Decimal {
	return gross.Mul(percent).Shift(-2).Truncate(AmountScale)
}
