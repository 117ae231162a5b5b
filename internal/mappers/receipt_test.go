package mappers

import "testing"

func TestJSONToReceiptNil(t *testing.T) {
	r := JSONToReceipt(nil)
	if r.TransactionHash != "" {
		t.Fatalf("expected zero-value receipt for nil input")
	}
}

func TestJSONToReceiptAndLogs(t *testing.T) {
	j := map[string]interface{}{
		"transactionHash":   "0x1",
		"transactionIndex":  "0x0",
		"blockHash":         "0xabc",
		"blockNumber":       "0x1",
		"cumulativeGasUsed": "0x5208",
		"gasUsed":           "0x5208",
		"contractAddress":   "0xCCCC000000000000000000000000000000000003",
		"status":            "0x1",
		"logs": []interface{}{
			map[string]interface{}{"logIndex": "0x0", "transactionHash": "0x1"},
		},
	}
	r := JSONToReceipt(j)
	row := ReceiptToRow(r)
	if row["status"] != int64(1) {
		t.Fatalf("expected status=1, got %v", row["status"])
	}
	if row["contract_address"] != "0xcccc000000000000000000000000000000000003" {
		t.Fatalf("expected normalized contract address, got %v", row["contract_address"])
	}

	logs := ReceiptLogs(j)
	if len(logs) != 1 {
		t.Fatalf("expected 1 log, got %d", len(logs))
	}
	if logs[0].TransactionHash != "0x1" {
		t.Fatalf("expected log transaction hash to match parent receipt")
	}
}

func TestReceiptLogsNoLogsField(t *testing.T) {
	if ReceiptLogs(map[string]interface{}{}) != nil {
		t.Fatalf("expected nil for a receipt with no logs field")
	}
	if ReceiptLogs(nil) != nil {
		t.Fatalf("expected nil for nil receipt")
	}
}
