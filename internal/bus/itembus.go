// Package bus implements the in-memory item exporter that is the seam between jobs
// within one partition (spec.md §4.7).
package bus

import "sync"

// Bus is an item-type-keyed accumulator. Writes happen only from the synchronous
// portion of each job after its batch executor has drained (spec.md §4.7), but the
// mutex still guards against accidental concurrent writers and gives every reader a
// consistent memory view across the goroutines the batch executor spawned.
type Bus struct {
	mu    sync.Mutex
	items map[string][]map[string]interface{}
}

func New() *Bus {
	return &Bus{items: make(map[string][]map[string]interface{})}
}

// Open resets the bus to empty, ready for a new partition.
func (b *Bus) Open() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = make(map[string][]map[string]interface{})
}

// Close clears every bucket. The bus is discarded with the partition (spec.md §3
// Lifecycle).
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = make(map[string][]map[string]interface{})
}

// ExportItem appends row into the bucket named by row["type"].
func (b *Bus) ExportItem(row map[string]interface{}) {
	itemType, _ := row["type"].(string)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items[itemType] = append(b.items[itemType], row)
}

// ExportItems appends a batch of rows.
func (b *Bus) ExportItems(rows []map[string]interface{}) {
	for _, r := range rows {
		b.ExportItem(r)
	}
}

// GetItems returns the current snapshot of rows for itemType. Matches the source
// contract of returning the live slice, not a defensive copy: callers must not retain
// it across a subsequent Open/Close.
func (b *Bus) GetItems(itemType string) []map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.items[itemType]
}
