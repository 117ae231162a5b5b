// Package sighash extracts 4-byte function selectors from a contract's bytecode
// preamble and classifies ERC20/ERC721 contracts from the result (spec.md §4.6).
package sighash

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Function selectors used for ERC20/ERC721 classification, derived the same way
// solc computes them: the first 4 bytes of keccak256(signature).
var (
	selTransfer          = selector("transfer(address,uint256)")
	selTransferFrom      = selector("transferFrom(address,address,uint256)")
	selApprove           = selector("approve(address,uint256)")
	selBalanceOf         = selector("balanceOf(address)")
	selTotalSupply       = selector("totalSupply()")
	selAllowance         = selector("allowance(address,address)")
	selSafeTransferFrom  = selector("safeTransferFrom(address,address,uint256)")
	selOwnerOf           = selector("ownerOf(uint256)")
	selGetApproved       = selector("getApproved(uint256)")
	selSetApprovalForAll = selector("setApprovalForAll(address,bool)")
	selIsApprovedForAll  = selector("isApprovedForAll(address,address)")
)

// Event topics that must appear literally in the bytecode for a contract to qualify
// (Solidity embeds LOG topics as PUSH32 literals, keccak256 of the event signature).
var (
	topicTransferEvent = eventTopic("Transfer(address,address,uint256)")
	topicApprovalEvent = eventTopic("Approval(address,address,uint256)")
)

func selector(signature string) string {
	return hex.EncodeToString(crypto.Keccak256([]byte(signature))[:4])
}

func eventTopic(signature string) string {
	return hex.EncodeToString(crypto.Keccak256([]byte(signature)))
}

var erc20Selectors = []string{selTransfer, selTransferFrom, selApprove, selBalanceOf, selTotalSupply, selAllowance}

var erc721Selectors = []string{
	selTransferFrom, selSafeTransferFrom, selOwnerOf, selApprove, selBalanceOf,
	selGetApproved, selSetApprovalForAll, selIsApprovedForAll,
}

// classificationCache memoizes (sighashes, isERC20, isERC721) by bytecode so a contracts
// job re-encountering the same proxy implementation within a run doesn't
// re-scan the bytecode (spec.md §9 suggests memoizing the receipt-mode lookup; the
// same principle applies to the more expensive bytecode scan).
var classificationCache, _ = lru.New[string, classification](512)

type classification struct {
	sighashes []string
	isERC20   bool
	isERC721  bool
}

// Classify scans runtimeBytecode (a 0x-prefixed hex string) for its dispatch-table
// selectors and returns them in encounter order along with the ERC20/ERC721
// classification booleans (spec.md §4.6).
func Classify(runtimeBytecode string) (sighashes []string, isERC20 bool, isERC721 bool) {
	if c, ok := classificationCache.Get(runtimeBytecode); ok {
		return c.sighashes, c.isERC20, c.isERC721
	}
	sighashes = extractSighashes(runtimeBytecode)
	set := make(map[string]bool, len(sighashes))
	for _, s := range sighashes {
		set[s] = true
	}
	lower := strings.ToLower(runtimeBytecode)

	isERC20 = supersetOf(set, erc20Selectors) &&
		strings.Contains(lower, topicTransferEvent) &&
		strings.Contains(lower, topicApprovalEvent)
	isERC721 = supersetOf(set, erc721Selectors) &&
		strings.Contains(lower, topicTransferEvent)

	classificationCache.Add(runtimeBytecode, classification{sighashes, isERC20, isERC721})
	return sighashes, isERC20, isERC721
}

// extractSighashes walks the bytecode looking for the Solidity dispatcher idiom:
// PUSH4 <selector> ... EQ within a short window, which is how solc emits the
// if/else selector-matching jump table at the start of the runtime code.
func extractSighashes(runtimeBytecode string) []string {
	raw := strings.TrimPrefix(runtimeBytecode, "0x")
	raw = strings.TrimPrefix(raw, "0X")
	code, err := hex.DecodeString(raw)
	if err != nil {
		return nil
	}

	const (
		opPUSH4 = 0x63
		opEQ    = 0x14
	)

	var out []string
	seen := make(map[string]bool)
	i := 0
	for i < len(code) {
		op := code[i]
		if op == opPUSH4 && i+5 <= len(code) {
			selector := code[i+1 : i+5]
			// Look for an EQ within the next 8 bytes: PUSH4 sel [DUPn] EQ ...
			window := code[i+5:]
			if len(window) > 8 {
				window = window[:8]
			}
			if containsByte(window, opEQ) {
				hx := hex.EncodeToString(selector)
				if !seen[hx] {
					seen[hx] = true
					out = append(out, hx)
				}
			}
			i += 5
			continue
		}
		i += pushSkip(op)
		i++
	}
	return out
}

func containsByte(b []byte, target byte) bool {
	for _, x := range b {
		if x == target {
			return true
		}
	}
	return false
}

// pushSkip returns how many immediate bytes follow a PUSH1..PUSH32 opcode so the
// scanner doesn't misinterpret push data as opcodes.
func pushSkip(op byte) int {
	if op >= 0x60 && op <= 0x7f {
		return int(op - 0x60 + 1)
	}
	return 0
}

func supersetOf(set map[string]bool, required []string) bool {
	for _, r := range required {
		if !set[r] {
			return false
		}
	}
	return true
}
