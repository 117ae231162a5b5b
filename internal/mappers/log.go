package mappers

import (
	"strings"

	"github.com/spicehq/ethereum-etl/internal/hexutil2"
	"github.com/spicehq/ethereum-etl/internal/model"
)

// TopicsDelimiter separates serialized topics while preserving order (spec.md §3).
const TopicsDelimiter = ","

// JSONToLog maps one log JSON dict into a Log. block_timestamp is left zero for the
// enrichment step to fill in.
func JSONToLog(j map[string]interface{}) *model.Log {
	if j == nil {
		return nil
	}
	l := &model.Log{}
	if n, ok := hexutil2.HexToUint64(j["logIndex"]); ok {
		l.LogIndex = n
	}
	l.TransactionHash, _ = j["transactionHash"].(string)
	if n, ok := hexutil2.HexToUint64(j["transactionIndex"]); ok {
		l.TransactionIndex = n
	}
	l.Address = hexutil2.NormalizeAddress(j["address"])
	l.Data, _ = j["data"].(string)
	if rawTopics, ok := j["topics"].([]interface{}); ok {
		for _, rt := range rawTopics {
			if s, ok := rt.(string); ok {
				l.Topics = append(l.Topics, s)
			}
		}
	}
	if n, ok := hexutil2.HexToUint64(j["blockNumber"]); ok {
		l.BlockNumber = n
	}
	l.BlockHash, _ = j["blockHash"].(string)
	return l
}

// LogToRow renders a Log as a flat row dictionary for the "log" item type.
func LogToRow(l *model.Log) map[string]interface{} {
	return map[string]interface{}{
		"type":              "log",
		"log_index":         l.LogIndex,
		"transaction_hash":  l.TransactionHash,
		"transaction_index": l.TransactionIndex,
		"address":           derefStr(l.Address),
		"data":              l.Data,
		"topics":            strings.Join(l.Topics, TopicsDelimiter),
		"block_timestamp":   l.BlockTimestamp,
		"block_number":      l.BlockNumber,
		"block_hash":        l.BlockHash,
	}
}
