// Package hexutil2 holds the pure hex/address decoding helpers shared by every mapper.
// Kept separate from go-ethereum's own hexutil package because the source JSON fields
// here are loosely-typed map[string]interface{} values straight off the wire, not
// already-typed RPC structs, and nil must round-trip to nil rather than to zero.
package hexutil2

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// HexToBigInt decodes a 0x-prefixed hex string into an arbitrary-precision integer
// using go-ethereum's quantity decoding. A nil or empty input decodes to nil, matching
// the invariant in spec.md §8. Falls back to a lenient big.Int parse for values that
// don't conform to hexutil's strict EIP-ish no-leading-zero quantity encoding, since
// not every JSON-RPC node is strictly spec-compliant.
func HexToBigInt(v interface{}) *big.Int {
	s, ok := asString(v)
	if !ok || s == "" {
		return nil
	}
	if n, err := hexutil.DecodeBig(s); err == nil {
		return n
	}
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if trimmed == "" {
		return big.NewInt(0)
	}
	n := new(big.Int)
	if _, ok := n.SetString(trimmed, 16); !ok {
		return nil
	}
	return n
}

// HexToUint64 decodes a 0x-prefixed hex string into a uint64 using go-ethereum's
// quantity decoding, with the same lenient fallback as HexToBigInt. Returns (0, false)
// for nil/empty/unparseable input.
func HexToUint64(v interface{}) (uint64, bool) {
	s, ok := asString(v)
	if !ok || s == "" {
		return 0, false
	}
	if n, err := hexutil.DecodeUint64(s); err == nil {
		return n, true
	}
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if trimmed == "" {
		return 0, true
	}
	n := new(big.Int)
	if _, ok := n.SetString(trimmed, 16); !ok || !n.IsUint64() {
		return 0, false
	}
	return n.Uint64(), true
}

// HexToInt64 decodes a 0x-prefixed hex string into an int64, or (0, false) when absent.
func HexToInt64(v interface{}) (int64, bool) {
	n, ok := HexToUint64(v)
	if !ok {
		return 0, false
	}
	return int64(n), true
}

// NormalizeAddress lowercases a 0x-prefixed address to its canonical 42-character form.
// A nil input stays nil (spec.md §3 "Semantic types").
func NormalizeAddress(v interface{}) *string {
	s, ok := asString(v)
	if !ok || s == "" {
		return nil
	}
	lower := strings.ToLower(s)
	return &lower
}

// BigIntToDecimalString renders a decoded integer in stable decimal form, or "" for nil.
func BigIntToDecimalString(n *big.Int) string {
	if n == nil {
		return ""
	}
	return n.String()
}

func asString(v interface{}) (string, bool) {
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return s, true
}
