package mappers

import (
	"github.com/spicehq/ethereum-etl/internal/hexutil2"
	"github.com/spicehq/ethereum-etl/internal/model"
)

// JSONToTransaction maps one transaction JSON dict (as embedded in a block result)
// into a Transaction, optionally splicing in receipt_* fields when the block job has
// already stashed a "receipt" dict onto it (spec.md §4.2 step 2).
func JSONToTransaction(j map[string]interface{}, blockTimestamp uint64) *model.Transaction {
	if j == nil {
		return nil
	}
	t := &model.Transaction{}
	t.Hash, _ = j["hash"].(string)
	if n, ok := hexutil2.HexToUint64(j["nonce"]); ok {
		t.Nonce = n
	}
	if n, ok := hexutil2.HexToUint64(j["transactionIndex"]); ok {
		t.TransactionIndex = n
	}
	t.FromAddress = hexutil2.NormalizeAddress(j["from"])
	t.ToAddress = hexutil2.NormalizeAddress(j["to"])
	t.Value = hexutil2.HexToBigInt(j["value"])
	if g, ok := hexutil2.HexToUint64(j["gas"]); ok {
		t.Gas = g
	}
	t.GasPrice = hexutil2.HexToBigInt(j["gasPrice"])
	t.Input, _ = j["input"].(string)
	t.BlockTimestamp = blockTimestamp
	if n, ok := hexutil2.HexToUint64(j["blockNumber"]); ok {
		t.BlockNumber = n
	}
	t.BlockHash, _ = j["blockHash"].(string)
	t.MaxFeePerGas = hexutil2.HexToBigInt(j["maxFeePerGas"])
	t.MaxPriorityFeePerGas = hexutil2.HexToBigInt(j["maxPriorityFeePerGas"])
	if ty, ok := hexutil2.HexToInt64(j["type"]); ok {
		t.TransactionType = ty
	}

	if receiptDict, ok := j["receipt"].(map[string]interface{}); ok && receiptDict != nil {
		t.ReceiptCumulativeGasUsed = hexutil2.HexToBigInt(receiptDict["cumulativeGasUsed"])
		t.ReceiptGasUsed = hexutil2.HexToBigInt(receiptDict["gasUsed"])
		t.ReceiptContractAddress = hexutil2.NormalizeAddress(receiptDict["contractAddress"])
		t.ReceiptRoot, _ = receiptDict["root"].(string)
		if st, ok := hexutil2.HexToInt64(receiptDict["status"]); ok {
			t.ReceiptStatus = &st
		}
		t.ReceiptEffectiveGasPrice = hexutil2.HexToBigInt(receiptDict["effectiveGasPrice"])
	}
	return t
}

// TransactionToRow renders a Transaction as a flat row dictionary for the
// "transaction" item type.
func TransactionToRow(t *model.Transaction) map[string]interface{} {
	row := map[string]interface{}{
		"type":                          "transaction",
		"hash":                          t.Hash,
		"nonce":                         t.Nonce,
		"transaction_index":             t.TransactionIndex,
		"from_address":                  derefStr(t.FromAddress),
		"to_address":                    derefStr(t.ToAddress),
		"value":                         hexutil2.BigIntToDecimalString(t.Value),
		"gas":                           t.Gas,
		"gas_price":                     hexutil2.BigIntToDecimalString(t.GasPrice),
		"input":                         t.Input,
		"block_timestamp":               t.BlockTimestamp,
		"block_number":                  t.BlockNumber,
		"block_hash":                    t.BlockHash,
		"max_fee_per_gas":               hexutil2.BigIntToDecimalString(t.MaxFeePerGas),
		"max_priority_fee_per_gas":      hexutil2.BigIntToDecimalString(t.MaxPriorityFeePerGas),
		"transaction_type":              t.TransactionType,
		"receipt_cumulative_gas_used":   hexutil2.BigIntToDecimalString(t.ReceiptCumulativeGasUsed),
		"receipt_gas_used":              hexutil2.BigIntToDecimalString(t.ReceiptGasUsed),
		"receipt_contract_address":      derefStr(t.ReceiptContractAddress),
		"receipt_root":                  t.ReceiptRoot,
		"receipt_effective_gas_price":   hexutil2.BigIntToDecimalString(t.ReceiptEffectiveGasPrice),
	}
	if t.ReceiptStatus != nil {
		row["receipt_status"] = *t.ReceiptStatus
	} else {
		row["receipt_status"] = ""
	}
	return row
}
