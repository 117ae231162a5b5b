// Package rpcclient manages per-worker JSON-RPC connections to the node and the
// batch/single call primitives every job builds on.
package rpcclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/rpc"
)

// Factory lazily constructs one *rpc.Client per worker index and hands the same one
// back on subsequent calls, replacing the source's thread-local proxy (spec.md §9):
// a captured mutable proxy becomes a map keyed by worker index instead of goroutine
// identity, since the batch executor owns a fixed-size worker pool.
type Factory struct {
	providerURI string

	mu      sync.Mutex
	clients map[int]*rpc.Client
}

func NewFactory(providerURI string) *Factory {
	return &Factory{providerURI: providerURI, clients: make(map[int]*rpc.Client)}
}

// Get returns the *rpc.Client owned by workerID, dialing on first use.
func (f *Factory) Get(ctx context.Context, workerID int) (*rpc.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.clients[workerID]; ok {
		return c, nil
	}
	c, err := rpc.DialContext(ctx, f.providerURI)
	if err != nil {
		return nil, fmt.Errorf("dial worker %d: %w", workerID, err)
	}
	f.clients[workerID] = c
	return c, nil
}

// Close releases every client the factory has ever handed out.
func (f *Factory) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.clients {
		c.Close()
	}
	f.clients = make(map[int]*rpc.Client)
}

// BatchCall submits elems as a single JSON-RPC batch request and returns the ordered
// responses in elems themselves (each BatchElem.Result is populated in place, matching
// go-ethereum's rpc.Client.BatchCallContext contract).
func BatchCall(ctx context.Context, client *rpc.Client, elems []rpc.BatchElem) error {
	if len(elems) == 0 {
		return nil
	}
	return client.BatchCallContext(ctx, elems)
}

// Call submits a single non-batched JSON-RPC request.
func Call(ctx context.Context, client *rpc.Client, result interface{}, method string, args ...interface{}) error {
	return client.CallContext(ctx, result, method, args...)
}
