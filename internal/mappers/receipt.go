package mappers

import (
	"github.com/spicehq/ethereum-etl/internal/hexutil2"
	"github.com/spicehq/ethereum-etl/internal/model"
)

// JSONToReceipt maps one eth_getTransactionReceipt result into a Receipt. A nil input
// is allowed (spec.md §4.2 edge case: a null receipt maps with all fields null) and
// returns a zero-value Receipt with TransactionHash left empty so callers can detect it.
func JSONToReceipt(j map[string]interface{}) *model.Receipt {
	r := &model.Receipt{}
	if j == nil {
		return r
	}
	r.TransactionHash, _ = j["transactionHash"].(string)
	if n, ok := hexutil2.HexToUint64(j["transactionIndex"]); ok {
		r.TransactionIndex = n
	}
	r.BlockHash, _ = j["blockHash"].(string)
	if n, ok := hexutil2.HexToUint64(j["blockNumber"]); ok {
		r.BlockNumber = n
	}
	r.CumulativeGasUsed = hexutil2.HexToBigInt(j["cumulativeGasUsed"])
	r.GasUsed = hexutil2.HexToBigInt(j["gasUsed"])
	r.ContractAddress = hexutil2.NormalizeAddress(j["contractAddress"])
	r.Root, _ = j["root"].(string)
	if st, ok := hexutil2.HexToInt64(j["status"]); ok {
		r.Status = &st
	}
	r.EffectiveGasPrice = hexutil2.HexToBigInt(j["effectiveGasPrice"])
	return r
}

// ReceiptToRow renders a Receipt as a flat row dictionary for the "receipt" item type.
func ReceiptToRow(r *model.Receipt) map[string]interface{} {
	row := map[string]interface{}{
		"type":                 "receipt",
		"transaction_hash":     r.TransactionHash,
		"transaction_index":    r.TransactionIndex,
		"block_hash":           r.BlockHash,
		"block_number":         r.BlockNumber,
		"cumulative_gas_used":  hexutil2.BigIntToDecimalString(r.CumulativeGasUsed),
		"gas_used":             hexutil2.BigIntToDecimalString(r.GasUsed),
		"contract_address":     derefStr(r.ContractAddress),
		"root":                 r.Root,
		"effective_gas_price":  hexutil2.BigIntToDecimalString(r.EffectiveGasPrice),
	}
	if r.Status != nil {
		row["status"] = *r.Status
	} else {
		row["status"] = ""
	}
	return row
}

// ReceiptLogs maps the "logs" array embedded in a receipt JSON dict into Log entities.
// block_timestamp is left zero; enrichment fills it in against the in-memory blocks.
func ReceiptLogs(j map[string]interface{}) []*model.Log {
	if j == nil {
		return nil
	}
	rawLogs, ok := j["logs"].([]interface{})
	if !ok {
		return nil
	}
	logs := make([]*model.Log, 0, len(rawLogs))
	for _, rl := range rawLogs {
		lj, ok := rl.(map[string]interface{})
		if !ok {
			continue
		}
		logs = append(logs, JSONToLog(lj))
	}
	return logs
}
