package jobs

import (
	"context"

	"github.com/spicehq/ethereum-etl/internal/batchexec"
	"github.com/spicehq/ethereum-etl/internal/bus"
	"github.com/spicehq/ethereum-etl/internal/etlerrors"
	"github.com/spicehq/ethereum-etl/internal/jsonrpc"
	"github.com/spicehq/ethereum-etl/internal/mappers"
	"github.com/spicehq/ethereum-etl/internal/model"
	"github.com/spicehq/ethereum-etl/internal/rpcclient"
	"github.com/spicehq/ethereum-etl/internal/sighash"
)

// ExportContractsJob is the receipt-mode fallback for contract extraction: it calls
// eth_getCode for every unique contract address seen in receipts (spec.md §4.6 receipt
// mode). BlockNumberByAddress replaces the source's per-contract linear scan over
// transactions with a single map built once per partition (spec.md §9).
type ExportContractsJob struct {
	Addresses             []string
	BlockNumberByAddress  map[string]uint64
	Factory               *rpcclient.Factory
	Executor              *batchexec.Executor
	Bus                   *bus.Bus
}

func (j *ExportContractsJob) Run(ctx context.Context) error {
	work := make([]interface{}, len(j.Addresses))
	for i, a := range j.Addresses {
		work[i] = a
	}
	return j.Executor.Execute(ctx, work, j.exportBatch)
}

func (j *ExportContractsJob) exportBatch(ctx context.Context, workerID int, items []interface{}) error {
	client, err := j.Factory.Get(ctx, workerID)
	if err != nil {
		return &etlerrors.Transient{Op: "dial", Err: err}
	}

	addresses := make([]string, len(items))
	for i, it := range items {
		addresses[i] = it.(string)
	}

	elems := jsonrpc.GetCode(addresses)
	if err := rpcclient.BatchCall(ctx, client, elems); err != nil {
		return &etlerrors.Transient{Op: "eth_getCode", Err: err}
	}

	// Validate and map every element before exporting anything, so a retry of this
	// batch after a mid-batch failure can't re-emit rows for elements that already
	// succeeded on a prior attempt (spec.md §3's per-partition primary-key uniqueness).
	rows := make([]map[string]interface{}, 0, len(elems))
	for i, e := range elems {
		if e.Error != nil {
			return &etlerrors.Transient{Op: "eth_getCode", Err: e.Error}
		}
		bytecodePtr, _ := e.Result.(*string)
		bytecode := ""
		if bytecodePtr != nil {
			bytecode = *bytecodePtr
		}
		address := addresses[i]
		blockNumber := j.BlockNumberByAddress[address]

		sighashes, isERC20, isERC721 := sighash.Classify(bytecode)
		contract := &model.Contract{
			Address:           address,
			Bytecode:          bytecode,
			FunctionSighashes: sighashes,
			IsERC20:           isERC20,
			IsERC721:          isERC721,
			BlockNumber:       blockNumber,
		}
		rows = append(rows, mappers.ContractToRow(contract))
	}

	for _, row := range rows {
		j.Bus.ExportItem(row)
	}
	return nil
}
