package jobs

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/spicehq/ethereum-etl/internal/batchexec"
	"github.com/spicehq/ethereum-etl/internal/bus"
	"github.com/spicehq/ethereum-etl/internal/etlerrors"
	"github.com/spicehq/ethereum-etl/internal/jsonrpc"
	"github.com/spicehq/ethereum-etl/internal/rpcclient"
)

// TracesJob exports raw debug_traceBlockByNumber call trees for [StartBlock, EndBlock]
// as "geth_trace" items, used only for downstream contract extraction (spec.md §4.5).
type TracesJob struct {
	StartBlock, EndBlock uint64
	Factory              *rpcclient.Factory
	Executor             *batchexec.Executor
	Bus                  *bus.Bus

	// unavailable flips to true the first time the job observes a historical-state or
	// HTTP error, at which point the partition driver treats traces as unavailable for
	// the rest of the partition (spec.md §4.5, §7).
	unavailable int32
}

// Available reports whether debug_traceBlockByNumber worked for this partition.
func (j *TracesJob) Available() bool {
	return atomic.LoadInt32(&j.unavailable) == 0
}

func (j *TracesJob) Run(ctx context.Context) error {
	work := make([]interface{}, 0, j.EndBlock-j.StartBlock+1)
	for n := j.StartBlock; n <= j.EndBlock; n++ {
		work = append(work, n)
	}
	err := j.Executor.Execute(ctx, work, j.exportBatch)
	if err != nil && isTraceUnavailable(err) {
		atomic.StoreInt32(&j.unavailable, 1)
		return nil
	}
	return err
}

func (j *TracesJob) exportBatch(ctx context.Context, workerID int, items []interface{}) error {
	client, err := j.Factory.Get(ctx, workerID)
	if err != nil {
		return &etlerrors.Transient{Op: "dial", Err: err}
	}

	numbers := make([]uint64, len(items))
	for i, it := range items {
		numbers[i] = it.(uint64)
	}

	elems := jsonrpc.DebugTraceBlockByNumber(numbers)
	if err := rpcclient.BatchCall(ctx, client, elems); err != nil {
		if isTraceUnavailable(err) {
			return &etlerrors.MethodUnavailable{Method: "debug_traceBlockByNumber", Err: err}
		}
		return &etlerrors.Transient{Op: "debug_traceBlockByNumber", Err: err}
	}

	for i, e := range elems {
		if e.Error != nil {
			if isTraceUnavailable(e.Error) {
				return &etlerrors.MethodUnavailable{Method: "debug_traceBlockByNumber", Err: e.Error}
			}
			return &etlerrors.Transient{Op: "debug_traceBlockByNumber", Err: e.Error}
		}
		raw, _ := e.Result.(*interface{})
		if raw == nil {
			continue
		}
		j.exportBlockResult(numbers[i], *raw)
	}
	return nil
}

// exportBlockResult unwraps the real debug_traceBlockByNumber(callTracer) wire shape —
// one []*txTraceResult element per transaction, each {"result": <call frame>, "error":
// ...} — into one "geth_trace" item per transaction carrying that transaction's real
// index, so ExtractContractsJob can attribute CREATE frames to the right transaction_index.
// A handful of nodes return a single call frame for the whole block instead; that shape
// is kept as transaction 0.
func (j *TracesJob) exportBlockResult(blockNumber uint64, raw interface{}) {
	arr, ok := raw.([]interface{})
	if !ok {
		if m, ok := raw.(map[string]interface{}); ok {
			j.emitTrace(blockNumber, 0, m)
		}
		return
	}
	for txIndex, item := range arr {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if _, hasErr := obj["error"]; hasErr {
			continue
		}
		frame, ok := obj["result"].(map[string]interface{})
		if !ok {
			continue
		}
		j.emitTrace(blockNumber, uint64(txIndex), frame)
	}
}

func (j *TracesJob) emitTrace(blockNumber, txIndex uint64, frame map[string]interface{}) {
	j.Bus.ExportItem(map[string]interface{}{
		"type":         "geth_trace",
		"block_number": blockNumber,
		"tx_index":     txIndex,
		"trace":        frame,
	})
}

func isTraceUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "missing trie node") ||
		strings.Contains(msg, "historical state") ||
		strings.Contains(msg, "pruned") ||
		strings.Contains(msg, "method not found") ||
		strings.Contains(msg, "504") ||
		strings.Contains(msg, "502") ||
		strings.Contains(msg, "503")
}
