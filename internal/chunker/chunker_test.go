package chunker

import (
	"strings"
	"testing"

	"github.com/ctxmcp/ctxmcp/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestSplit_SingleChunkWhenWithinLimit(t *testing.T) {
	c := New(800)
	content := strings.Repeat("line\n", 10)
	chunks := c.Split(content, "a.go")
	require.Len(t, chunks, 1)
	require.Equal(t, "a.go", chunks[0].LogicalPath)
}

func TestSplit_MultipleChunksPartitionLines(t *testing.T) {
	c := New(10)
	var lines []string
	for i := 0; i < 25; i++ {
		lines = append(lines, "x")
	}
	content := strings.Join(lines, "\n")
	chunks := c.Split(content, "big.go")

	require.Len(t, chunks, 3)
	require.Equal(t, "big.go#chunk1of3", chunks[0].LogicalPath)
	require.Equal(t, "big.go#chunk2of3", chunks[1].LogicalPath)
	require.Equal(t, "big.go#chunk3of3", chunks[2].LogicalPath)

	total := 0
	for _, ch := range chunks {
		total += len(splitLines(ch.Content))
	}
	require.Equal(t, 25, total)
}

func TestNew_ZeroMaxLinesDefaultsTo800(t *testing.T) {
	c := New(0)
	require.Equal(t, types.DefaultMaxLinesPerChunk, c.MaxLinesPerChunk)
}

func TestChunkName_IsStableAndHex64(t *testing.T) {
	ch := types.Chunk{LogicalPath: "a.go", Content: "package a\n"}
	name := ch.Name()
	require.Len(t, name, 64)
	require.Equal(t, name, ch.Name())
}

func TestSanitize_DropsC0ControlsExceptTabNewlineCR(t *testing.T) {
	in := "a\x00b\tc\nd\re\x1Ff"
	out := Sanitize(in)
	require.Equal(t, "ab\tc\nd\ref", out)
}

func TestIsBinary_ThresholdCrossing(t *testing.T) {
	require.False(t, IsBinary(strings.Repeat("a", 100)))
	require.True(t, IsBinary(strings.Repeat("\x01", 20)+strings.Repeat("a", 100)))
}

func TestDecodeBytes_ValidUTF8Passthrough(t *testing.T) {
	in := []byte("héllo wörld")
	require.Equal(t, "héllo wörld", DecodeBytes(in))
}

func TestChunkBytes_RejectsBinary(t *testing.T) {
	c := New(800)
	raw := []byte(strings.Repeat("\x01", 50))
	_, err := c.ChunkBytes(raw, "bin.dat")
	require.Error(t, err)
	var binErr *ErrBinary
	require.ErrorAs(t, err, &binErr)
}

func TestChunkBytes_RejectsTooLarge(t *testing.T) {
	c := New(800)
	raw := []byte(strings.Repeat("a", types.MaxChunkBytes+1))
	_, err := c.ChunkBytes(raw, "big.txt")
	require.Error(t, err)
	var tooLarge *ErrTooLarge
	require.ErrorAs(t, err, &tooLarge)
}
