// Package chunker decodes file bytes, sanitizes and classifies them, and
// splits the result into line-bounded, content-addressed chunks per
// spec.md §4.3.
package chunker

import (
	"os"
	"strings"

	"github.com/ctxmcp/ctxmcp/pkg/types"
)

// ErrBinary is returned when content is classified as binary after
// decoding.
type ErrBinary struct{ Path string }

func (e *ErrBinary) Error() string { return "binary content: " + e.Path }

// ErrTooLarge is returned when sanitized content exceeds the per-chunk
// byte cap.
type ErrTooLarge struct{ Path string }

func (e *ErrTooLarge) Error() string { return "content too large after sanitization: " + e.Path }

// Chunker splits decoded, sanitized file content into chunks.
type Chunker struct {
	MaxLinesPerChunk int
}

// New builds a Chunker; maxLines <= 0 is treated as the default (800),
// never a divide-by-zero.
func New(maxLines int) *Chunker {
	if maxLines <= 0 {
		maxLines = types.DefaultMaxLinesPerChunk
	}
	return &Chunker{MaxLinesPerChunk: maxLines}
}

// ChunkFile reads, decodes, sanitizes, and splits path into chunks whose
// LogicalPath is rel (or rel suffixed with "#chunk<i>of<n>" when split).
func (c *Chunker) ChunkFile(path, rel string) ([]types.Chunk, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return c.ChunkBytes(raw, rel)
}

// ChunkBytes runs the full decode → binary-check → sanitize → split
// pipeline over raw bytes already read from disk (or a watcher event),
// addressed under logical path rel.
func (c *Chunker) ChunkBytes(raw []byte, rel string) ([]types.Chunk, error) {
	decoded := DecodeBytes(raw)

	if IsBinary(decoded) {
		return nil, &ErrBinary{Path: rel}
	}

	sanitized := Sanitize(decoded)
	if len(sanitized) > types.MaxChunkBytes {
		return nil, &ErrTooLarge{Path: rel}
	}

	return c.Split(sanitized, rel), nil
}

// Split divides sanitized content into line-bounded chunks. If the total
// line count is within MaxLinesPerChunk, a single chunk is produced
// whose logical path equals rel exactly (§8 invariant 2); otherwise
// ceil(lines/max) chunks are produced, each named "<rel>#chunk<i>of<n>"
// (§8 invariant 3).
func (c *Chunker) Split(content, rel string) []types.Chunk {
	maxLines := c.MaxLinesPerChunk
	if maxLines <= 0 {
		maxLines = types.DefaultMaxLinesPerChunk
	}

	lines := splitLines(content)
	total := len(lines)

	if total <= maxLines {
		return []types.Chunk{{LogicalPath: rel, Content: content}}
	}

	numChunks := (total + maxLines - 1) / maxLines
	chunks := make([]types.Chunk, 0, numChunks)
	for i := 0; i < numChunks; i++ {
		start := i * maxLines
		end := start + maxLines
		if end > total {
			end = total
		}
		chunkContent := strings.Join(lines[start:end], "\n")
		chunks = append(chunks, types.Chunk{
			LogicalPath: types.SplitLogicalPath(rel, i+1, numChunks),
			Content:     chunkContent,
		})
	}
	return chunks
}

// splitLines splits on '\n', matching Rust's str::lines() in treating a
// trailing '\r' as part of the line terminator, not the line content,
// and in not emitting a final empty element for a trailing newline.
func splitLines(s string) []string {
	raw := strings.Split(s, "\n")
	out := make([]string, len(raw))
	for i, l := range raw {
		out[i] = strings.TrimSuffix(l, "\r")
	}
	if len(out) > 0 && out[len(out)-1] == "" && strings.HasSuffix(s, "\n") {
		out = out[:len(out)-1]
	}
	return out
}
