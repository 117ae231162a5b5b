package mappers

import "testing"

func TestLogToTokenTransferERC20(t *testing.T) {
	from := "0x" + pad40("11")
	to := "0x" + pad40("22")
	j := map[string]interface{}{
		"address":         "0xTOKEN000000000000000000000000000000005",
		"topics":          []interface{}{TransferEventTopic, from, to},
		"data":            "0x64",
		"transactionHash": "0xabc",
		"logIndex":        "0x0",
		"blockNumber":     "0x1",
		"blockHash":       "0xblockhash",
	}
	tt := LogToTokenTransfer(j)
	if tt == nil {
		t.Fatalf("expected non-nil token transfer")
	}
	if tt.Value == nil || tt.Value.Int64() != 100 {
		t.Fatalf("expected value 100, got %v", tt.Value)
	}
	if tt.FromAddress == nil || *tt.FromAddress != "0x"+pad40("11") {
		t.Fatalf("expected from address from topic, got %v", tt.FromAddress)
	}
}

func TestLogToTokenTransferERC721(t *testing.T) {
	from := "0x" + pad40("11")
	to := "0x" + pad40("22")
	tokenID := "0x" + pad40("2a")
	j := map[string]interface{}{
		"address":         "0xTOKEN000000000000000000000000000000005",
		"topics":          []interface{}{TransferEventTopic, from, to, tokenID},
		"transactionHash": "0xabc",
		"logIndex":        "0x0",
		"blockNumber":     "0x1",
		"blockHash":       "0xblockhash",
	}
	tt := LogToTokenTransfer(j)
	if tt == nil {
		t.Fatalf("expected non-nil token transfer")
	}
	if tt.Value == nil || tt.Value.Int64() != 42 {
		t.Fatalf("expected tokenId 42 read from topics[3], got %v", tt.Value)
	}
}

func TestLogToTokenTransferTooFewTopics(t *testing.T) {
	j := map[string]interface{}{"topics": []interface{}{TransferEventTopic}}
	if LogToTokenTransfer(j) != nil {
		t.Fatalf("expected nil when fewer than 3 topics")
	}
}

func pad40(suffix string) string {
	prefix := ""
	for i := 0; i < 40-len(suffix); i++ {
		prefix += "0"
	}
	return prefix + suffix
}
