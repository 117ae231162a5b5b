package jobs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spicehq/ethereum-etl/internal/batchexec"
	"github.com/spicehq/ethereum-etl/internal/bus"
	"github.com/spicehq/ethereum-etl/internal/rpcclient"
)

type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params []interface{}   `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
}

// newFakeNode serves a minimal JSON-RPC batch endpoint backed by handlers keyed by
// method name, mirroring the shape a real node's HTTP transport exposes.
func newFakeNode(t *testing.T, handlers map[string]func(params []interface{}) interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqs []rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
			var single rpcRequest
			r.Body.Close()
			_ = single
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		resps := make([]rpcResponse, len(reqs))
		for i, req := range reqs {
			h, ok := handlers[req.Method]
			var result interface{}
			if ok {
				result = h(req.Params)
			}
			resps[i] = rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resps)
	}))
}

func TestBlocksJobExportsBlocksAndTransactions(t *testing.T) {
	server := newFakeNode(t, map[string]func(params []interface{}) interface{}{
		"eth_getBlockByNumber": func(params []interface{}) interface{} {
			return map[string]interface{}{
				"number":    params[0],
				"hash":      "0xblockhash",
				"timestamp": "0x5f5e100",
				"transactions": []interface{}{
					map[string]interface{}{"hash": "0xtx1", "from": "0xfrom", "to": "0xto", "value": "0x1"},
				},
			}
		},
		"eth_getTransactionReceipt": func(params []interface{}) interface{} {
			return map[string]interface{}{
				"transactionHash": params[0],
				"status":          "0x1",
				"gasUsed":         "0x5208",
			}
		},
	})
	defer server.Close()

	b := bus.New()
	b.Open()
	job := &BlocksJob{
		StartBlock: 1, EndBlock: 2,
		ExportBlocks: true, ExportTxs: true,
		Factory:  rpcclient.NewFactory(server.URL),
		Executor: batchexec.New(10, 2),
		Bus:      b,
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	blocks := b.GetItems("block")
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	txs := b.GetItems("transaction")
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions (1 per block), got %d", len(txs))
	}
	if txs[0]["receipt_status"] != int64(1) {
		t.Fatalf("expected receipt status spliced onto the transaction, got %v", txs[0]["receipt_status"])
	}
}

func TestBlocksJobRejectsNoExportTargets(t *testing.T) {
	job := &BlocksJob{StartBlock: 1, EndBlock: 1}
	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected an error when neither ExportBlocks nor ExportTxs is set")
	}
}
