package rpcclient

import (
	"context"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// capabilityCache memoizes probe results per (providerURI, method) so a multi-partition
// sweep only probes once, per spec.md §9's suggestion to replace the substring test on
// the provider URI with a real startup probe.
var capabilityCache, _ = lru.New[string, bool](64)

// LogFilterSupported probes eth_getLogs with an empty-range filter and caches the
// result. Falls back to the legacy substring heuristic ("infura" disables log filters
// on the free tier) only when the probe itself errors in a way that doesn't clearly
// indicate "unsupported" versus "transient", so a flaky probe doesn't wrongly disable
// the token-transfers job for an entire run.
func LogFilterSupported(ctx context.Context, client interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}, providerURI string) bool {
	key := providerURI + "|eth_getLogs"
	if v, ok := capabilityCache.Get(key); ok {
		return v
	}
	var result []map[string]interface{}
	err := client.CallContext(ctx, &result, "eth_getLogs", map[string]interface{}{
		"fromBlock": "0x0",
		"toBlock":   "0x0",
	})
	supported := err == nil || !isMethodUnsupported(err)
	if err != nil && strings.Contains(strings.ToLower(providerURI), "infura") {
		supported = false
	}
	capabilityCache.Add(key, supported)
	return supported
}

func isMethodUnsupported(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "method not found") ||
		strings.Contains(msg, "method not supported") ||
		strings.Contains(msg, "unsupported")
}
