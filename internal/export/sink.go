// Package export holds the multiplexed item exporter and its sinks: per-entity CSV
// writers and the relational upsert sink (spec.md §4.8, §4.9, §4.10).
package export

import "context"

// Sink is any consumer of items: a CSV file writer or an upsert writer (GLOSSARY).
// Idempotence is the sink's own responsibility.
type Sink interface {
	Open() error
	ExportItems(ctx context.Context, items []map[string]interface{}) error
	Close() error
}

// MultiExporter fans each call out to every configured sink in declared order. A sink
// failure is fatal to the partition; there is no partial-success contract (spec.md
// §4.8).
type MultiExporter struct {
	sinks []Sink
}

// NewMultiExporter builds a MultiExporter from sinks, silently dropping nil entries.
func NewMultiExporter(sinks ...Sink) *MultiExporter {
	valid := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			valid = append(valid, s)
		}
	}
	return &MultiExporter{sinks: valid}
}

func (m *MultiExporter) Open() error {
	for _, s := range m.sinks {
		if err := s.Open(); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiExporter) ExportItems(ctx context.Context, items []map[string]interface{}) error {
	for _, s := range m.sinks {
		if err := s.ExportItems(ctx, items); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiExporter) Close() error {
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			return err
		}
	}
	return nil
}
