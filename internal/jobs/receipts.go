package jobs

import (
	"context"

	"github.com/spicehq/ethereum-etl/internal/batchexec"
	"github.com/spicehq/ethereum-etl/internal/bus"
	"github.com/spicehq/ethereum-etl/internal/etlerrors"
	"github.com/spicehq/ethereum-etl/internal/jsonrpc"
	"github.com/spicehq/ethereum-etl/internal/mappers"
	"github.com/spicehq/ethereum-etl/internal/rpcclient"
)

// ReceiptsJob exports receipts and their logs for a stream of transaction hashes
// (spec.md §4.3).
type ReceiptsJob struct {
	TransactionHashes          []string
	ExportReceipts, ExportLogs bool
	Factory                    *rpcclient.Factory
	Executor                   *batchexec.Executor
	Bus                        *bus.Bus
}

func (j *ReceiptsJob) Run(ctx context.Context) error {
	work := make([]interface{}, len(j.TransactionHashes))
	for i, h := range j.TransactionHashes {
		work[i] = h
	}
	return j.Executor.Execute(ctx, work, j.exportBatch)
}

func (j *ReceiptsJob) exportBatch(ctx context.Context, workerID int, items []interface{}) error {
	client, err := j.Factory.Get(ctx, workerID)
	if err != nil {
		return &etlerrors.Transient{Op: "dial", Err: err}
	}

	hashes := make([]string, len(items))
	for i, it := range items {
		hashes[i] = it.(string)
	}

	elems := jsonrpc.GetTransactionReceipt(hashes)
	if err := rpcclient.BatchCall(ctx, client, elems); err != nil {
		return &etlerrors.Transient{Op: "eth_getTransactionReceipt", Err: err}
	}

	// Validate and map every element before exporting anything: a mid-batch error on a
	// later element must not leave earlier elements' rows already emitted, since
	// batchexec retries the whole batch and the bus has no dedup (spec.md §3 "primary
	// keys are unique within a partition").
	var receiptRows []map[string]interface{}
	var logRows []map[string]interface{}
	for _, e := range elems {
		if e.Error != nil {
			return &etlerrors.Transient{Op: "eth_getTransactionReceipt", Err: e.Error}
		}
		ptr, _ := e.Result.(*map[string]interface{})
		var receiptJSON map[string]interface{}
		if ptr != nil {
			receiptJSON = *ptr
		}
		if receiptJSON == nil {
			continue
		}

		if j.ExportReceipts {
			receipt := mappers.JSONToReceipt(receiptJSON)
			receiptRows = append(receiptRows, mappers.ReceiptToRow(receipt))
		}
		if j.ExportLogs {
			for _, log := range mappers.ReceiptLogs(receiptJSON) {
				logRows = append(logRows, mappers.LogToRow(log))
			}
		}
	}

	for _, row := range receiptRows {
		j.Bus.ExportItem(row)
	}
	for _, row := range logRows {
		j.Bus.ExportItem(row)
	}
	return nil
}
