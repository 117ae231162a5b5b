package bus

import "testing"

func TestExportItemBucketsByType(t *testing.T) {
	b := New()
	b.Open()
	b.ExportItem(map[string]interface{}{"type": "block", "number": uint64(1)})
	b.ExportItem(map[string]interface{}{"type": "transaction", "hash": "0x1"})
	b.ExportItem(map[string]interface{}{"type": "block", "number": uint64(2)})

	blocks := b.GetItems("block")
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	txs := b.GetItems("transaction")
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
}

func TestGetItemsReturnsLiveSlice(t *testing.T) {
	b := New()
	b.Open()
	b.ExportItem(map[string]interface{}{"type": "log"})
	first := b.GetItems("log")
	b.ExportItem(map[string]interface{}{"type": "log"})
	second := b.GetItems("log")
	if len(first) == len(second) {
		t.Fatalf("expected the live accumulator to grow, not a defensive snapshot")
	}
}

func TestCloseClearsAllBuckets(t *testing.T) {
	b := New()
	b.Open()
	b.ExportItem(map[string]interface{}{"type": "block"})
	b.Close()
	if len(b.GetItems("block")) != 0 {
		t.Fatalf("expected Close to clear the bus")
	}
}

func TestGetItemsUnknownType(t *testing.T) {
	b := New()
	b.Open()
	if b.GetItems("nonexistent") != nil {
		t.Fatalf("expected nil for an unseen item type")
	}
}
