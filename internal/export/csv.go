package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// CSVSink writes rows of one item type to a single CSV file with a fixed column order
// (spec.md §4.9). It is opened in write mode at partition start and finalized on Close.
type CSVSink struct {
	ItemType string
	Columns  []string
	Path     string

	file   *os.File
	writer *csv.Writer
}

func NewCSVSink(itemType string, columns []string, path string) *CSVSink {
	return &CSVSink{ItemType: itemType, Columns: columns, Path: path}
}

func (s *CSVSink) Open() error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("create csv dir for %s: %w", s.ItemType, err)
	}
	f, err := os.Create(s.Path)
	if err != nil {
		return fmt.Errorf("create csv file %s: %w", s.Path, err)
	}
	s.file = f
	s.writer = csv.NewWriter(f)
	return s.writer.Write(s.Columns)
}

func (s *CSVSink) ExportItems(_ context.Context, items []map[string]interface{}) error {
	for _, item := range items {
		if t, _ := item["type"].(string); t != s.ItemType {
			continue
		}
		row := make([]string, len(s.Columns))
		for i, col := range s.Columns {
			row[i] = stringify(item[col])
		}
		if err := s.writer.Write(row); err != nil {
			return fmt.Errorf("write csv row to %s: %w", s.Path, err)
		}
	}
	return nil
}

func (s *CSVSink) Close() error {
	if s.writer != nil {
		s.writer.Flush()
	}
	if s.file == nil {
		return nil
	}
	if err := s.writer.Error(); err != nil {
		return err
	}
	return s.file.Close()
}

func stringify(v interface{}) string {
	if v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}
