package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

const MetadataVersion = 1

// EntryMetadata is the typed payload stored alongside a ledger entry. Readers
// ignore keys they do not know so newer writers stay readable.
type EntryMetadata struct {
	Version int `json:"v"`

	Source       RevenueSource    `json:"source,omitempty"`
	GrossAmount  *decimal.Decimal `json:"gross_amount,omitempty"`
	SharePercent *decimal.Decimal `json:"share_percent,omitempty"`

	DestinationAddress string        `json:"destination_address,omitempty"`
	Network            WalletNetwork `json:"network,omitempty"`
	TransferRef        string        `json:"transfer_ref,omitempty"`
	SettlementRef      string        `json:"settlement_ref,omitempty"`
	Trigger            string        `json:"trigger,omitempty"`
}

func (m EntryMetadata) ValidateFor(t EntryType) error {
	if m.Version < 1 || m.Version > MetadataVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidMetadata, m.Version)
	}
	switch t {
	case EntryTypeRoyalty:
		if !m.Source.IsValid() {
			return fmt.Errorf("%w: royalty requires a source", ErrInvalidMetadata)
		}
	case EntryTypeWithdrawal:
		if m.DestinationAddress == "" || !m.Network.IsValid() {
			return fmt.Errorf("%w: withdrawal requires a destination", ErrInvalidMetadata)
		}
	}
	return nil
}

func (m EntryMetadata) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

func UnmarshalMetadata(raw []byte) (EntryMetadata, error) {
	var m EntryMetadata
	if len(raw) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return m, fmt.Errorf("UnmarshalMetadata: %w", err)
	}
	return m, nil
}
