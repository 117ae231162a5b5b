package mappers

import (
	"github.com/spicehq/ethereum-etl/internal/hexutil2"
	"github.com/spicehq/ethereum-etl/internal/model"
)

// TokenToRow renders a Token as a flat row dictionary.
func TokenToRow(t *model.Token) map[string]interface{} {
	row := map[string]interface{}{
		"type":            "token",
		"address":         t.Address,
		"name":            derefStr(t.Name),
		"symbol":          derefStr(t.Symbol),
		"total_supply":    hexutil2.BigIntToDecimalString(t.TotalSupply),
		"block_number":    t.BlockNumber,
		"block_timestamp": t.BlockTimestamp,
		"block_hash":      t.BlockHash,
		// On first insert the "live" and "updated" triples coincide; only a later
		// conflicting upsert advances updated_block_* while block_* stays pinned
		// (spec.md §4.10, §3).
		"updated_block_number":    t.BlockNumber,
		"updated_block_timestamp": t.BlockTimestamp,
		"updated_block_hash":      t.BlockHash,
	}
	if t.Decimals != nil {
		row["decimals"] = *t.Decimals
	} else {
		row["decimals"] = ""
	}
	return row
}
