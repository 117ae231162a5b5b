package mappers

import (
	"strconv"
	"strings"

	"github.com/spicehq/ethereum-etl/internal/model"
)

// SighashDelimiter separates serialized function sighashes while preserving order.
const SighashDelimiter = ","

// ContractToRow renders a Contract as a flat row dictionary.
func ContractToRow(c *model.Contract) map[string]interface{} {
	return map[string]interface{}{
		"type":               "contract",
		"address":            c.Address,
		"bytecode":           c.Bytecode,
		"function_sighashes": strings.Join(c.FunctionSighashes, SighashDelimiter),
		"is_erc20":           strconv.FormatBool(c.IsERC20),
		"is_erc721":          strconv.FormatBool(c.IsERC721),
		"block_number":       c.BlockNumber,
		"block_timestamp":    c.BlockTimestamp,
		"block_hash":         c.BlockHash,
		"transaction_index":  c.TransactionIndex,
	}
}
