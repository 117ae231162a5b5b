package jobs

import (
	"context"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/spicehq/ethereum-etl/internal/batchexec"
	"github.com/spicehq/ethereum-etl/internal/bus"
	"github.com/spicehq/ethereum-etl/internal/etlerrors"
	"github.com/spicehq/ethereum-etl/internal/jsonrpc"
	"github.com/spicehq/ethereum-etl/internal/mappers"
	"github.com/spicehq/ethereum-etl/internal/model"
	"github.com/spicehq/ethereum-etl/internal/rpcclient"
)

// tokenCandidate is one contract flagged as an ERC20 or ERC721 during extraction,
// carrying the block fields contracts were already enriched with.
type tokenCandidate struct {
	Address        string
	BlockNumber    uint64
	BlockTimestamp uint64
	BlockHash      string
}

// TokensJob extracts name/symbol/decimals/totalSupply metadata for every contract
// classified as ERC20 or ERC721 (spec.md §4.12, supplementing the distilled spec's
// Token entity with its extraction job).
type TokensJob struct {
	Candidates []tokenCandidate
	Factory    *rpcclient.Factory
	Executor   *batchexec.Executor
	Bus        *bus.Bus
}

// NewTokensJob builds Candidates from already-enriched contract rows whose is_erc20 or
// is_erc721 flag is set.
func NewTokensJob(contracts []map[string]interface{}, factory *rpcclient.Factory, executor *batchexec.Executor, b *bus.Bus) *TokensJob {
	var candidates []tokenCandidate
	for _, c := range contracts {
		isERC20, _ := c["is_erc20"].(string)
		isERC721, _ := c["is_erc721"].(string)
		if isERC20 != "true" && isERC721 != "true" {
			continue
		}
		addr, _ := c["address"].(string)
		bn, _ := c["block_number"].(uint64)
		bt, _ := c["block_timestamp"].(uint64)
		bh, _ := c["block_hash"].(string)
		candidates = append(candidates, tokenCandidate{Address: addr, BlockNumber: bn, BlockTimestamp: bt, BlockHash: bh})
	}
	return &TokensJob{Candidates: candidates, Factory: factory, Executor: executor, Bus: b}
}

func (j *TokensJob) Run(ctx context.Context) error {
	work := make([]interface{}, len(j.Candidates))
	for i, c := range j.Candidates {
		work[i] = c
	}
	return j.Executor.Execute(ctx, work, j.exportBatch)
}

func (j *TokensJob) exportBatch(ctx context.Context, workerID int, items []interface{}) error {
	client, err := j.Factory.Get(ctx, workerID)
	if err != nil {
		return &etlerrors.Transient{Op: "dial", Err: err}
	}

	// Every candidate's own eth_call batch is validated and mapped before anything is
	// exported: a later candidate's transient failure must not leave an earlier
	// candidate's token row already emitted, since batchexec retries this whole batch
	// and the bus has no dedup (spec.md §3's per-partition primary-key uniqueness).
	rows := make([]map[string]interface{}, 0, len(items))
	for _, it := range items {
		c := it.(tokenCandidate)
		calls := []jsonrpc.CallArgs{
			{To: c.Address, Data: mappers.SelectorName},
			{To: c.Address, Data: mappers.SelectorSymbol},
			{To: c.Address, Data: mappers.SelectorDecimals},
			{To: c.Address, Data: mappers.SelectorTotalSupply},
		}
		elems := jsonrpc.EthCall(calls)
		if err := rpcclient.BatchCall(ctx, client, elems); err != nil {
			return &etlerrors.Transient{Op: "eth_call", Err: err}
		}

		token := &model.Token{
			Address:        c.Address,
			BlockNumber:    c.BlockNumber,
			BlockTimestamp: c.BlockTimestamp,
			BlockHash:      c.BlockHash,
		}
		// A reverting/empty field maps to null without failing the batch: ERC721
		// contracts commonly lack decimals()/totalSupply() (spec.md §4.12).
		if r, ok := resultString(elems[0]); ok {
			token.Name = mappers.DecodeABIString(r)
		}
		if r, ok := resultString(elems[1]); ok {
			token.Symbol = mappers.DecodeABIString(r)
		}
		if r, ok := resultString(elems[2]); ok {
			if d := mappers.DecodeABIUint256(r); d != nil {
				v := d.Uint64()
				token.Decimals = &v
			}
		}
		if r, ok := resultString(elems[3]); ok {
			token.TotalSupply = mappers.DecodeABIUint256(r)
		}

		rows = append(rows, mappers.TokenToRow(token))
	}

	for _, row := range rows {
		j.Bus.ExportItem(row)
	}
	return nil
}

// resultString extracts a successful eth_call's hex return value. A reverted or
// malformed call (e.Error set, or a nil/non-string Result) yields (_, false) so the
// caller leaves that field null rather than failing the batch.
func resultString(e rpc.BatchElem) (string, bool) {
	if e.Error != nil {
		return "", false
	}
	ptr, ok := e.Result.(*string)
	if !ok || ptr == nil {
		return "", false
	}
	return *ptr, true
}
