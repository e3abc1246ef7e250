package wallet

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil"
	"github.com/ethereum/go-ethereum/common"

	"github.com/josh-kwaku/revenue-ledger/internal/domain"
)

// Validator checks that an address is well formed for its network. It does
// not check that the address exists or can receive funds.
type Validator struct {
	bitcoin *chaincfg.Params
}

// NewValidator accepts mainnet, testnet3, regtest or simnet for bitcoinNet.
func NewValidator(bitcoinNet string) (*Validator, error) {
	var params *chaincfg.Params
	switch strings.ToLower(strings.TrimSpace(bitcoinNet)) {
	case "", "mainnet":
		params = &chaincfg.MainNetParams
	case "testnet", "testnet3":
		params = &chaincfg.TestNet3Params
	case "regtest":
		params = &chaincfg.RegressionNetParams
	case "simnet":
		params = &chaincfg.SimNetParams
	default:
		return nil, fmt.Errorf("NewValidator: unknown bitcoin network %q", bitcoinNet)
	}
	return &Validator{bitcoin: params}, nil
}

func (v *Validator) VerifyAddressFormat(network domain.WalletNetwork, address string) bool {
	address = strings.TrimSpace(address)
	if address == "" {
		return false
	}
	switch network {
	case domain.NetworkEthereum:
		return validEthereum(address)
	case domain.NetworkBitcoin:
		return v.validBitcoin(address)
	default:
		return false
	}
}

func validEthereum(address string) bool {
	if !strings.HasPrefix(address, "0x") || !common.IsHexAddress(address) {
		return false
	}
	addr := common.HexToAddress(address)
	if addr == (common.Address{}) {
		return false
	}
	// Mixed case means the sender used an EIP-55 checksum; honour it.
	body := address[2:]
	if body != strings.ToLower(body) && body != strings.ToUpper(body) {
		return addr.Hex() == address
	}
	return true
}

func (v *Validator) validBitcoin(address string) bool {
	addr, err := btcutil.DecodeAddress(address, v.bitcoin)
	if err != nil {
		return false
	}
	return addr.IsForNet(v.bitcoin)
}
