// Package jsonrpc builds the rpc.BatchElem slices used by the batch executor. Kept
// separate from the jobs that consume them so the request shape for each JSON-RPC
// method lives in one place, mirroring the teacher's one-concern-per-file lessons.
package jsonrpc

import (
	"strconv"

	"github.com/ethereum/go-ethereum/rpc"
)

// GetBlockByNumber builds one BatchElem per block number, result decoded into a
// map[string]interface{} so mappers can work off the raw field names.
func GetBlockByNumber(numbers []uint64, fullTx bool) []rpc.BatchElem {
	elems := make([]rpc.BatchElem, len(numbers))
	for i, n := range numbers {
		result := make(map[string]interface{})
		elems[i] = rpc.BatchElem{
			Method: "eth_getBlockByNumber",
			Args:   []interface{}{toBlockNumberHex(n), fullTx},
			Result: &result,
		}
	}
	return elems
}

// GetTransactionReceipt builds one BatchElem per transaction hash.
func GetTransactionReceipt(hashes []string) []rpc.BatchElem {
	elems := make([]rpc.BatchElem, len(hashes))
	for i, h := range hashes {
		result := make(map[string]interface{})
		elems[i] = rpc.BatchElem{
			Method: "eth_getTransactionReceipt",
			Args:   []interface{}{h},
			Result: &result,
		}
	}
	return elems
}

// GetCode builds one BatchElem per contract address, at the "latest" tag (spec.md §4.6
// receipt mode).
func GetCode(addresses []string) []rpc.BatchElem {
	elems := make([]rpc.BatchElem, len(addresses))
	for i, a := range addresses {
		var result string
		elems[i] = rpc.BatchElem{
			Method: "eth_getCode",
			Args:   []interface{}{a, "latest"},
			Result: &result,
		}
	}
	return elems
}

// DebugTraceBlockByNumber builds one BatchElem per block number using the callTracer
// configuration (spec.md §4.5).
func DebugTraceBlockByNumber(numbers []uint64) []rpc.BatchElem {
	elems := make([]rpc.BatchElem, len(numbers))
	cfg := map[string]interface{}{"tracer": "callTracer"}
	for i, n := range numbers {
		var result interface{}
		elems[i] = rpc.BatchElem{
			Method: "debug_traceBlockByNumber",
			Args:   []interface{}{toBlockNumberHex(n), cfg},
			Result: &result,
		}
	}
	return elems
}

// EthCall builds one BatchElem per (to, data) pair against the "latest" block tag, used
// by the tokens job to read name/symbol/decimals/totalSupply.
func EthCall(calls []CallArgs) []rpc.BatchElem {
	elems := make([]rpc.BatchElem, len(calls))
	for i, c := range calls {
		var result string
		elems[i] = rpc.BatchElem{
			Method: "eth_call",
			Args: []interface{}{
				map[string]interface{}{"to": c.To, "data": c.Data},
				"latest",
			},
			Result: &result,
		}
	}
	return elems
}

// CallArgs is the (to, data) pair for an eth_call.
type CallArgs struct {
	To   string
	Data string
}

// GetLogs builds a single BatchElem for an eth_getLogs filter over [fromBlock,
// toBlock] restricted to the given topic0 (spec.md §4.4).
func GetLogs(fromBlock, toBlock uint64, topic0 string) rpc.BatchElem {
	var result []map[string]interface{}
	return rpc.BatchElem{
		Method: "eth_getLogs",
		Args: []interface{}{
			map[string]interface{}{
				"fromBlock": toBlockNumberHex(fromBlock),
				"toBlock":   toBlockNumberHex(toBlock),
				"topics":    []interface{}{topic0},
			},
		},
		Result: &result,
	}
}

func toBlockNumberHex(n uint64) string {
	return "0x" + strconv.FormatUint(n, 16)
}
