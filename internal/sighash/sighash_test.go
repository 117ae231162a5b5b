package sighash

import (
	"encoding/hex"
	"strings"
	"testing"
)

// buildDispatchBytecode fabricates a minimal Solidity-style dispatch table: for each
// selector, PUSH4 <selector> DUP1 EQ PUSH2 <dest> JUMPI, which is enough for
// extractSighashes' PUSH4-then-EQ-within-a-window scan to recognize it.
func buildDispatchBytecode(selectors ...string) string {
	var code []byte
	for _, s := range selectors {
		sel, _ := hex.DecodeString(s)
		code = append(code, 0x63) // PUSH4
		code = append(code, sel...)
		code = append(code, 0x80)       // DUP1
		code = append(code, 0x14)       // EQ
		code = append(code, 0x61, 0x00, 0x00) // PUSH2 dest
		code = append(code, 0x57)       // JUMPI
	}
	return "0x" + hex.EncodeToString(code)
}

func appendTopics(bytecode string, topics ...string) string {
	var b strings.Builder
	b.WriteString(bytecode)
	for _, t := range topics {
		b.WriteString(t)
	}
	return b.String()
}

func TestClassifyERC20(t *testing.T) {
	bytecode := buildDispatchBytecode(
		selTransfer, selTransferFrom, selApprove, selBalanceOf, selTotalSupply, selAllowance,
	)
	bytecode = appendTopics(bytecode, topicTransferEvent, topicApprovalEvent)

	sighashes, isERC20, isERC721 := Classify(bytecode)
	if !isERC20 {
		t.Fatalf("expected ERC20 classification")
	}
	if isERC721 {
		t.Fatalf("did not expect ERC721 classification")
	}
	if len(sighashes) != 6 {
		t.Fatalf("expected 6 sighashes, got %d: %v", len(sighashes), sighashes)
	}
}

func TestClassifyERC721(t *testing.T) {
	bytecode := buildDispatchBytecode(
		selTransferFrom, selSafeTransferFrom, selOwnerOf, selApprove, selBalanceOf,
		selGetApproved, selSetApprovalForAll, selIsApprovedForAll,
	)
	bytecode = appendTopics(bytecode, topicTransferEvent)

	_, isERC20, isERC721 := Classify(bytecode)
	if isERC20 {
		t.Fatalf("did not expect ERC20 classification")
	}
	if !isERC721 {
		t.Fatalf("expected ERC721 classification")
	}
}

func TestClassifyNeitherMissingTopic(t *testing.T) {
	// Has every ERC20 selector but not the event topic literals.
	bytecode := buildDispatchBytecode(
		selTransfer, selTransferFrom, selApprove, selBalanceOf, selTotalSupply, selAllowance,
	)
	_, isERC20, isERC721 := Classify(bytecode)
	if isERC20 || isERC721 {
		t.Fatalf("expected neither classification without event topics")
	}
}

func TestClassifyMalformedBytecode(t *testing.T) {
	sighashes, isERC20, isERC721 := Classify("0xzzzz")
	if sighashes != nil || isERC20 || isERC721 {
		t.Fatalf("expected empty classification for malformed bytecode")
	}
}

func TestClassifyCachesByBytecode(t *testing.T) {
	bytecode := buildDispatchBytecode(selTransfer)
	first, _, _ := Classify(bytecode)
	second, _, _ := Classify(bytecode)
	if len(first) != len(second) {
		t.Fatalf("expected cached classification to match")
	}
}
