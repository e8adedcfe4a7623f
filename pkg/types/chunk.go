package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// Chunk is a pair (logical-path, content) addressed by a content hash.
// logical_path is the project-relative path with forward slashes; when a
// file is split across multiple chunks it gains the suffix
// "#chunk<i>of<n>" (1-based).
type Chunk struct {
	LogicalPath string
	Content     string
}

// Name computes the chunk's content-addressed name: lowercase hex of
// SHA-256 over logical-path bytes concatenated with content bytes.
func (c Chunk) Name() string {
	h := sha256.New()
	h.Write([]byte(c.LogicalPath))
	h.Write([]byte(c.Content))
	return hex.EncodeToString(h.Sum(nil))
}

// Validate reports whether the chunk is well-formed.
func (c Chunk) Validate() error {
	if c.LogicalPath == "" {
		return errors.New("chunk logical path cannot be empty")
	}
	if c.Content == "" {
		return errors.New("chunk content cannot be empty")
	}
	return nil
}

// SplitLogicalPath builds the logical path for chunk i (1-based) of n
// total chunks split from rel. When n == 1, rel is returned unchanged.
func SplitLogicalPath(rel string, i, n int) string {
	if n <= 1 {
		return rel
	}
	return fmt.Sprintf("%s#chunk%dof%d", rel, i, n)
}

// FileEntry is the per-file cache record stored in the Index.
type FileEntry struct {
	MtimeSecs  int64
	MtimeNanos int64
	SizeBytes  int64
	ChunkNames []string
}

// Index is the per-project mapping from relative paths to cached chunk
// names plus file metadata, together with drift-detection fields.
type Index struct {
	SchemaVersion    int
	ConfigFingerprint uint64
	Entries          map[string]FileEntry
}

// NewIndex returns an empty index stamped with the current schema version
// and the given config fingerprint.
func NewIndex(fingerprint uint64) *Index {
	return &Index{
		SchemaVersion:     CurrentSchemaVersion,
		ConfigFingerprint: fingerprint,
		Entries:           make(map[string]FileEntry),
	}
}

// CurrentSchemaVersion is incremented whenever the on-disk Index layout
// changes incompatibly; a mismatch forces a full rebuild rather than a
// migration (spec: "stale files are discarded, not migrated").
const CurrentSchemaVersion = 1

// MaxIndexBytes is the serialized size cap; oversize files are treated as
// corrupt and discarded.
const MaxIndexBytes = 256 * 1024 * 1024

// MaxChunkBytes is the per-chunk size cap after sanitization.
const MaxChunkBytes = 128 * 1024

// MaxBatchBytes is the per-upload-batch size cap (sum of logical-path +
// content bytes across the batch).
const MaxBatchBytes = 1024 * 1024
