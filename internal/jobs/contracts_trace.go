package jobs

import (
	"context"

	"github.com/spicehq/ethereum-etl/internal/bus"
	"github.com/spicehq/ethereum-etl/internal/hexutil2"
	"github.com/spicehq/ethereum-etl/internal/mappers"
	"github.com/spicehq/ethereum-etl/internal/model"
	"github.com/spicehq/ethereum-etl/internal/sighash"
)

// ExtractContractsJob walks callTracer trace trees and emits a Contract item for every
// CREATE/CREATE2 frame with a non-error outcome (spec.md §4.6 trace mode). It runs
// synchronously against already-fetched traces, not through the batch executor: the
// RPC work was already done by TracesJob.
type ExtractContractsJob struct {
	Traces []map[string]interface{} // raw "geth_trace" rows from the bus
	Bus    *bus.Bus
}

func (j *ExtractContractsJob) Run(_ context.Context) error {
	for _, traceRow := range j.Traces {
		blockNumber, _ := traceRow["block_number"].(uint64)
		txIndex, _ := traceRow["tx_index"].(uint64)
		tree, _ := traceRow["trace"].(map[string]interface{})
		if tree == nil {
			continue
		}
		j.walk(tree, blockNumber, txIndex)
	}
	return nil
}

func (j *ExtractContractsJob) walk(frame map[string]interface{}, blockNumber uint64, txIndex uint64) {
	frameType, _ := frame["type"].(string)
	switch frameType {
	case "CREATE", "CREATE2", "create", "create2":
		if _, hasErr := frame["error"]; !hasErr {
			j.emitContract(frame, blockNumber, txIndex)
		}
	}
	if calls, ok := frame["calls"].([]interface{}); ok {
		for _, c := range calls {
			if childFrame, ok := c.(map[string]interface{}); ok {
				j.walk(childFrame, blockNumber, txIndex)
			}
		}
	}
}

func (j *ExtractContractsJob) emitContract(frame map[string]interface{}, blockNumber uint64, txIndex uint64) {
	addr := hexutil2.NormalizeAddress(frame["to"])
	if addr == nil {
		return
	}
	bytecode, _ := frame["output"].(string)

	sighashes, isERC20, isERC721 := sighash.Classify(bytecode)
	contract := &model.Contract{
		Address:           *addr,
		Bytecode:          bytecode,
		FunctionSighashes: sighashes,
		IsERC20:           isERC20,
		IsERC721:          isERC721,
		BlockNumber:       blockNumber,
		TransactionIndex:  txIndex,
	}
	j.Bus.ExportItem(mappers.ContractToRow(contract))
}
