// Package uploader implements the size-bounded batching and
// dynamic-concurrency dispatch loop of spec.md §4.7, retrying each batch
// per the status-code policy table and feeding every attempt's outcome
// back into the adaptive strategy.
package uploader

import (
	"sort"

	"github.com/ctxmcp/ctxmcp/pkg/types"
)

// Batch is a group of chunks sent in a single upload request.
type Batch struct {
	Chunks []types.Chunk
}

// BuildBatches greedily packs chunks into batches, closing the current
// batch before it would exceed maxBytes (sum of logical path + content
// lengths) or maxCount. Input is sorted by logical path first so batch
// membership is stable across runs with the same chunk set.
func BuildBatches(chunks []types.Chunk, maxBytes int, maxCount int) []Batch {
	sorted := make([]types.Chunk, len(chunks))
	copy(sorted, chunks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LogicalPath < sorted[j].LogicalPath })

	var batches []Batch
	var cur []types.Chunk
	curBytes := 0

	flush := func() {
		if len(cur) > 0 {
			batches = append(batches, Batch{Chunks: cur})
			cur = nil
			curBytes = 0
		}
	}

	for _, c := range sorted {
		size := len(c.LogicalPath) + len(c.Content)
		if len(cur) > 0 && (curBytes+size > maxBytes || len(cur)+1 > maxCount) {
			flush()
		}
		cur = append(cur, c)
		curBytes += size
	}
	flush()

	return batches
}
