package mappers

import (
	"strings"

	"github.com/spicehq/ethereum-etl/internal/hexutil2"
	"github.com/spicehq/ethereum-etl/internal/model"
)

// TransferEventTopic is the Transfer(address,address,uint256) event signature shared
// by ERC20 and ERC721 (spec.md §4.4).
const TransferEventTopic = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"

// LogToTokenTransfer maps a raw eth_getLogs result into a TokenTransfer. ERC20 logs
// carry from/to as indexed topics and value in data; ERC721 logs additionally index
// the tokenId as topics[3] instead of encoding a value in data (spec.md §4.4).
func LogToTokenTransfer(j map[string]interface{}) *model.TokenTransfer {
	if j == nil {
		return nil
	}
	topics, _ := j["topics"].([]interface{})
	if len(topics) < 3 {
		return nil
	}
	tt := &model.TokenTransfer{}
	tt.TokenAddress = hexutil2.NormalizeAddress(j["address"])
	tt.FromAddress = topicToAddress(topics[1])
	tt.ToAddress = topicToAddress(topics[2])

	if len(topics) >= 4 {
		// ERC721: value slot carries the indexed tokenId.
		tt.Value = hexutil2.HexToBigInt(topics[3])
	} else {
		data, _ := j["data"].(string)
		tt.Value = hexutil2.HexToBigInt(data)
	}

	tt.TransactionHash, _ = j["transactionHash"].(string)
	if n, ok := hexutil2.HexToUint64(j["logIndex"]); ok {
		tt.LogIndex = n
	}
	if n, ok := hexutil2.HexToUint64(j["blockNumber"]); ok {
		tt.BlockNumber = n
	}
	tt.BlockHash, _ = j["blockHash"].(string)
	return tt
}

// TokenTransferToRow renders a TokenTransfer as a flat row dictionary.
func TokenTransferToRow(tt *model.TokenTransfer) map[string]interface{} {
	return map[string]interface{}{
		"type":            "token_transfer",
		"token_address":   derefStr(tt.TokenAddress),
		"from_address":    derefStr(tt.FromAddress),
		"to_address":      derefStr(tt.ToAddress),
		"value":           hexutil2.BigIntToDecimalString(tt.Value),
		"transaction_hash": tt.TransactionHash,
		"log_index":       tt.LogIndex,
		"block_timestamp": tt.BlockTimestamp,
		"block_number":    tt.BlockNumber,
		"block_hash":      tt.BlockHash,
	}
}

// topicToAddress extracts the lower 20 bytes of a 32-byte indexed topic as a
// normalized address.
func topicToAddress(topic interface{}) *string {
	s, ok := topic.(string)
	if !ok {
		return nil
	}
	s = strings.TrimPrefix(s, "0x")
	if len(s) < 40 {
		return nil
	}
	addr := "0x" + s[len(s)-40:]
	return hexutil2.NormalizeAddress(addr)
}
