package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/revenue-ledger/internal/domain"
)

func TestVerifyAddressFormat(t *testing.T) {
	v, err := NewValidator("mainnet")
	require.NoError(t, err)

	tests := []struct {
		name    string
		network domain.WalletNetwork
		address string
		want    bool
	}{
		{"eth checksummed", domain.NetworkEthereum, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", true},
		{"eth lowercase", domain.NetworkEthereum, "0xde709f2102306220921060314715629080e2fb77", true},
		{"eth uppercase body", domain.NetworkEthereum, "0x52908400098527886E0F7030069857D2E4169EE7", true},
		{"eth bad checksum", domain.NetworkEthereum, "0x5aaeb6053F3E94C9b9A09f33669435E7Ef1BeAed", false},
		{"eth missing prefix", domain.NetworkEthereum, "de709f2102306220921060314715629080e2fb77", false},
		{"eth too short", domain.NetworkEthereum, "0xde709f21023062209210", false},
		{"eth zero address", domain.NetworkEthereum, "0x0000000000000000000000000000000000000000", false},
		{"btc p2pkh", domain.NetworkBitcoin, "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", true},
		{"btc bech32", domain.NetworkBitcoin, "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", true},
		{"btc testnet on mainnet", domain.NetworkBitcoin, "mipcBbFg9gMiCh81Kj8tqqdgoZub1ZJRfn", false},
		{"btc garbage", domain.NetworkBitcoin, "not-an-address", false},
		{"eth address on bitcoin", domain.NetworkBitcoin, "0xde709f2102306220921060314715629080e2fb77", false},
		{"btc address on ethereum", domain.NetworkEthereum, "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", false},
		{"empty", domain.NetworkEthereum, "", false},
		{"unknown network", domain.WalletNetwork("solana"), "0xde709f2102306220921060314715629080e2fb77", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, v.VerifyAddressFormat(tc.network, tc.address))
		})
	}
}

func TestNewValidator_UnknownNetwork(t *testing.T) {
	_, err := NewValidator("litecoin")
	assert.Error(t, err)

	v, err := NewValidator("testnet3")
	require.NoError(t, err)
	assert.True(t, v.VerifyAddressFormat(domain.NetworkBitcoin, "mipcBbFg9gMiCh81Kj8tqqdgoZub1ZJRfn"))
}
