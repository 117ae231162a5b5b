package export

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PartitionSuffix renders the zero-padded "<start8>_<end8>" file-name suffix used by
// every entity CSV in a partition (spec.md §4.9, §6).
func PartitionSuffix(start, end uint64) string {
	return fmt.Sprintf("%08d_%08d", start, end)
}

// EntityDir builds "<outputDir>/<entity>/<partitionDir>".
func EntityDir(outputDir, entity, partitionDir string) string {
	return filepath.Join(outputDir, entity, strings.TrimPrefix(partitionDir, "/"))
}

// EntityFilePath builds "<outputDir>/<entity>/<partitionDir>/<entity>_<suffix>.csv".
func EntityFilePath(outputDir, entity, partitionDir string, start, end uint64) string {
	return filepath.Join(EntityDir(outputDir, entity, partitionDir), fmt.Sprintf("%s_%s.csv", entity, PartitionSuffix(start, end)))
}
