package jobs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/spicehq/ethereum-etl/internal/batchexec"
	"github.com/spicehq/ethereum-etl/internal/bus"
	"github.com/spicehq/ethereum-etl/internal/rpcclient"
)

func TestReceiptsJobExportsReceiptsAndLogs(t *testing.T) {
	server := newFakeNode(t, map[string]func(params []interface{}) interface{}{
		"eth_getTransactionReceipt": func(params []interface{}) interface{} {
			return map[string]interface{}{
				"transactionHash": params[0],
				"status":          "0x1",
				"logs": []interface{}{
					map[string]interface{}{"logIndex": "0x0", "transactionHash": params[0], "topics": []interface{}{}},
				},
			}
		},
	})
	defer server.Close()

	b := bus.New()
	b.Open()
	job := &ReceiptsJob{
		TransactionHashes: []string{"0x1", "0x2"},
		ExportReceipts:    true, ExportLogs: true,
		Factory:  rpcclient.NewFactory(server.URL),
		Executor: batchexec.New(10, 2),
		Bus:      b,
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(b.GetItems("receipt")) != 2 {
		t.Fatalf("expected 2 receipts, got %d", len(b.GetItems("receipt")))
	}
	if len(b.GetItems("log")) != 2 {
		t.Fatalf("expected 2 logs (1 per receipt), got %d", len(b.GetItems("log")))
	}
}

// TestReceiptsJobDoesNotDuplicateRowsOnPartialBatchRetry exercises the exact failure
// mode batchexec's retry is meant to survive: one hash in a two-item batch fails
// transiently on the first attempt while the other succeeds, then the whole batch
// retries and both succeed. The first hash's receipt/log rows must not be duplicated
// by having been exported on the failed first attempt.
func TestReceiptsJobDoesNotDuplicateRowsOnPartialBatchRetry(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqs []rpcRequest
		json.NewDecoder(r.Body).Decode(&reqs)

		mu.Lock()
		attempts++
		firstAttempt := attempts == 1
		mu.Unlock()

		resps := make([]map[string]interface{}, len(reqs))
		for i, req := range reqs {
			hash, _ := req.Params[0].(string)
			resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
			if firstAttempt && hash == "0x2" {
				resp["error"] = map[string]interface{}{"code": -32000, "message": "temporarily unavailable"}
			} else {
				resp["result"] = map[string]interface{}{
					"transactionHash": hash,
					"status":          "0x1",
					"logs": []interface{}{
						map[string]interface{}{"logIndex": "0x0", "transactionHash": hash, "topics": []interface{}{}},
					},
				}
			}
			resps[i] = resp
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resps)
	}))
	defer server.Close()

	b := bus.New()
	b.Open()
	executor := batchexec.New(10, 1)
	executor.BaseDelay = 0
	job := &ReceiptsJob{
		TransactionHashes: []string{"0x1", "0x2"},
		ExportReceipts:    true, ExportLogs: true,
		Factory:  rpcclient.NewFactory(server.URL),
		Executor: executor,
		Bus:      b,
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if attempts < 2 {
		t.Fatalf("expected the batch to be retried at least once, got %d attempt(s)", attempts)
	}
	if got := len(b.GetItems("receipt")); got != 2 {
		t.Fatalf("expected exactly 2 receipts (no duplicate from the retried batch), got %d", got)
	}
	if got := len(b.GetItems("log")); got != 2 {
		t.Fatalf("expected exactly 2 logs (no duplicate from the retried batch), got %d", got)
	}
}

func TestReceiptsJobSkipsNullReceipts(t *testing.T) {
	server := newFakeNode(t, map[string]func(params []interface{}) interface{}{
		"eth_getTransactionReceipt": func(params []interface{}) interface{} { return nil },
	})
	defer server.Close()

	b := bus.New()
	b.Open()
	job := &ReceiptsJob{
		TransactionHashes: []string{"0x1"},
		ExportReceipts:    true,
		Factory:           rpcclient.NewFactory(server.URL),
		Executor:          batchexec.New(10, 1),
		Bus:               b,
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(b.GetItems("receipt")) != 0 {
		t.Fatalf("expected a null receipt to be skipped, got %d", len(b.GetItems("receipt")))
	}
}
