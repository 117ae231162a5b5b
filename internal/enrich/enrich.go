// Package enrich implements the in-process joins that backfill block-level fields onto
// entities produced without them (spec.md §4.3, §4.6, GLOSSARY "Enrichment").
package enrich

// BlockInfo is the subset of Block fields enrichment needs to project onto other
// entities.
type BlockInfo struct {
	Hash      string
	Timestamp uint64
}

// IndexBlocksByNumber builds the number->BlockInfo lookup enrichment joins share,
// replacing the source's linear scan (spec.md §9 "Contract receipt-mode lookup").
func IndexBlocksByNumber(blocks []map[string]interface{}) map[uint64]BlockInfo {
	idx := make(map[uint64]BlockInfo, len(blocks))
	for _, b := range blocks {
		n, ok := toUint64(b["number"])
		if !ok {
			continue
		}
		hash, _ := b["hash"].(string)
		ts, _ := toUint64(b["timestamp"])
		idx[n] = BlockInfo{Hash: hash, Timestamp: ts}
	}
	return idx
}

// Logs joins logs against the block index on block_number, filling block_timestamp and
// block_hash. Logs whose block is unknown are dropped; the second return value is the
// drop count (spec.md §4.3).
func Logs(blockIndex map[uint64]BlockInfo, logs []map[string]interface{}) ([]map[string]interface{}, int) {
	out := make([]map[string]interface{}, 0, len(logs))
	dropped := 0
	for _, l := range logs {
		n, ok := toUint64(l["block_number"])
		if !ok {
			dropped++
			continue
		}
		info, ok := blockIndex[n]
		if !ok {
			dropped++
			continue
		}
		enriched := cloneRow(l)
		enriched["block_timestamp"] = info.Timestamp
		enriched["block_hash"] = info.Hash
		out = append(out, enriched)
	}
	return out, dropped
}

// Contracts joins contracts against the block index on block_number.
func Contracts(blockIndex map[uint64]BlockInfo, contracts []map[string]interface{}) []map[string]interface{} {
	return joinGeneric(blockIndex, contracts)
}

// Tokens joins tokens against the block index on block_number.
func Tokens(blockIndex map[uint64]BlockInfo, tokens []map[string]interface{}) []map[string]interface{} {
	return joinGeneric(blockIndex, tokens)
}

func joinGeneric(blockIndex map[uint64]BlockInfo, rows []map[string]interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(rows))
	for _, r := range rows {
		n, ok := toUint64(r["block_number"])
		enriched := cloneRow(r)
		if ok {
			if info, ok := blockIndex[n]; ok {
				enriched["block_timestamp"] = info.Timestamp
				enriched["block_hash"] = info.Hash
			}
		}
		out = append(out, enriched)
	}
	return out
}

func cloneRow(row map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

func toUint64(v interface{}) (uint64, bool) {
	switch x := v.(type) {
	case uint64:
		return x, true
	case int:
		return uint64(x), true
	case int64:
		return uint64(x), true
	default:
		return 0, false
	}
}
