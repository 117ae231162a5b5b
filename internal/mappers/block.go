// Package mappers holds the pure transforms between raw JSON-RPC shapes, domain
// entities, and flat row dictionaries (spec.md §9 "Mappers").
package mappers

import (
	"github.com/spicehq/ethereum-etl/internal/hexutil2"
	"github.com/spicehq/ethereum-etl/internal/model"
)

// JSONToBlock maps one eth_getBlockByNumber result into a Block. Transactions are
// mapped separately by JSONToTransaction; this function only reads block-level fields
// plus the transaction count.
func JSONToBlock(j map[string]interface{}) *model.Block {
	if j == nil {
		return nil
	}
	b := &model.Block{}
	if n, ok := hexutil2.HexToUint64(j["number"]); ok {
		b.Number = n
	}
	b.Hash, _ = j["hash"].(string)
	b.ParentHash, _ = j["parentHash"].(string)
	b.Nonce, _ = j["nonce"].(string)
	b.Sha3Uncles, _ = j["sha3Uncles"].(string)
	b.LogsBloom, _ = j["logsBloom"].(string)
	b.TransactionsRoot, _ = j["transactionsRoot"].(string)
	b.StateRoot, _ = j["stateRoot"].(string)
	b.ReceiptsRoot, _ = j["receiptsRoot"].(string)
	b.Miner = hexutil2.NormalizeAddress(j["miner"])
	b.Difficulty = hexutil2.HexToBigInt(j["difficulty"])
	b.TotalDifficulty = hexutil2.HexToBigInt(j["totalDifficulty"])
	if s, ok := hexutil2.HexToUint64(j["size"]); ok {
		b.Size = s
	}
	b.ExtraData, _ = j["extraData"].(string)
	if g, ok := hexutil2.HexToUint64(j["gasLimit"]); ok {
		b.GasLimit = g
	}
	if g, ok := hexutil2.HexToUint64(j["gasUsed"]); ok {
		b.GasUsed = g
	}
	if t, ok := hexutil2.HexToUint64(j["timestamp"]); ok {
		b.Timestamp = t
	}
	b.BaseFeePerGas = hexutil2.HexToBigInt(j["baseFeePerGas"])
	if txs, ok := j["transactions"].([]interface{}); ok {
		b.TransactionCount = len(txs)
	}
	return b
}

// BlockToRow renders a Block as a flat row dictionary for the "block" item type.
func BlockToRow(b *model.Block) map[string]interface{} {
	return map[string]interface{}{
		"type":              "block",
		"number":            b.Number,
		"hash":              b.Hash,
		"parent_hash":       b.ParentHash,
		"nonce":             b.Nonce,
		"sha3_uncles":       b.Sha3Uncles,
		"logs_bloom":        b.LogsBloom,
		"transactions_root": b.TransactionsRoot,
		"state_root":        b.StateRoot,
		"receipts_root":     b.ReceiptsRoot,
		"miner":             derefStr(b.Miner),
		"difficulty":        hexutil2.BigIntToDecimalString(b.Difficulty),
		"total_difficulty":  hexutil2.BigIntToDecimalString(b.TotalDifficulty),
		"size":              b.Size,
		"extra_data":        b.ExtraData,
		"gas_limit":         b.GasLimit,
		"gas_used":          b.GasUsed,
		"timestamp":         b.Timestamp,
		"transaction_count": b.TransactionCount,
		"base_fee_per_gas":  hexutil2.BigIntToDecimalString(b.BaseFeePerGas),
	}
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
