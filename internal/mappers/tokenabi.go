package mappers

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ERC20/ERC721 metadata call selectors (spec.md §4.12).
const (
	SelectorName        = "0x06fdde03"
	SelectorSymbol      = "0x95d89b41"
	SelectorDecimals    = "0x313ce567"
	SelectorTotalSupply = "0x18160ddd"
)

// DecodeABIString decodes an eth_call return value that encodes a Solidity string,
// handling both the ABI-dynamic-string encoding (offset+length+data) used by modern
// contracts and the legacy fixed bytes32 encoding some pre-standardization ERC20
// tokens still return for name()/symbol(). Returns nil for an empty/revert result.
func DecodeABIString(hexResult string) *string {
	data, err := hexutil.Decode(hexResult)
	if err != nil || len(data) == 0 {
		return nil
	}
	if len(data) == 32 {
		s := strings.TrimRight(string(data), "\x00")
		if s == "" {
			return nil
		}
		return &s
	}
	if len(data) < 64 {
		return nil
	}
	length := new(big.Int).SetBytes(data[32:64]).Uint64()
	if uint64(len(data)) < 64+length {
		return nil
	}
	s := string(data[64 : 64+length])
	s = strings.TrimRight(s, "\x00")
	if s == "" {
		return nil
	}
	return &s
}

// DecodeABIUint256 decodes an eth_call return value that encodes a uint256. Returns
// nil for an empty/revert result.
func DecodeABIUint256(hexResult string) *big.Int {
	data, err := hexutil.Decode(hexResult)
	if err != nil || len(data) == 0 {
		return nil
	}
	return new(big.Int).SetBytes(data)
}
