package wallet

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/revenue-ledger/internal/domain"
)

// TransferRequest asks the gateway to move Amount to an external wallet.
// Reference is stable per user withdrawal sequence; gateways treat a repeated
// reference as the same transfer.
type TransferRequest struct {
	Reference   string
	Network     domain.WalletNetwork
	Destination string
	Amount      decimal.Decimal
	Currency    domain.Currency
}

// Gateway is the settlement collaborator. Transfer returns the gateway's
// settlement reference.
type Gateway interface {
	VerifyAddressFormat(network domain.WalletNetwork, address string) bool
	Transfer(ctx context.Context, req TransferRequest) (string, error)
}

// FuncGateway adapts a callback to Gateway. Address checks go to Validator
// when set and are otherwise accepted.
type FuncGateway struct {
	Validator    *Validator
	TransferFunc func(ctx context.Context, req TransferRequest) (string, error)
}

func (g FuncGateway) VerifyAddressFormat(network domain.WalletNetwork, address string) bool {
	if g.Validator == nil {
		return network.IsValid() && address != ""
	}
	return g.Validator.VerifyAddressFormat(network, address)
}

func (g FuncGateway) Transfer(ctx context.Context, req TransferRequest) (string, error) {
	if g.TransferFunc == nil {
		return "settled-" + req.Reference, nil
	}
	return g.TransferFunc(ctx, req)
}
