package uploader

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ctxmcp/ctxmcp/pkg/types"
)

func TestBuildBatches_SplitsOnByteCap(t *testing.T) {
	chunks := []types.Chunk{
		{LogicalPath: "a.go", Content: string(make([]byte, 600*1024))},
		{LogicalPath: "b.go", Content: string(make([]byte, 600*1024))},
	}
	batches := BuildBatches(chunks, 1024*1024, 100)
	require.Len(t, batches, 2)
}

func TestBuildBatches_SplitsOnCountCap(t *testing.T) {
	chunks := make([]types.Chunk, 5)
	for i := range chunks {
		chunks[i] = types.Chunk{LogicalPath: string(rune('a' + i)), Content: "x"}
	}
	batches := BuildBatches(chunks, 1024*1024, 2)
	require.Len(t, batches, 3)
	require.Len(t, batches[0].Chunks, 2)
	require.Len(t, batches[1].Chunks, 2)
	require.Len(t, batches[2].Chunks, 1)
}

func TestBuildBatches_StableOrderByLogicalPath(t *testing.T) {
	chunks := []types.Chunk{
		{LogicalPath: "z.go", Content: "z"},
		{LogicalPath: "a.go", Content: "a"},
	}
	batches := BuildBatches(chunks, 1024*1024, 100)
	require.Len(t, batches, 1)
	require.Equal(t, "a.go", batches[0].Chunks[0].LogicalPath)
	require.Equal(t, "z.go", batches[0].Chunks[1].LogicalPath)
}
