// Package index implements the single-file, versioned, size-capped Index
// Store of spec.md §4.4: atomic save and schema/config drift detection.
// The per-file cache decision tree lives in internal/indexer.
package index

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"runtime"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/ctxmcp/ctxmcp/pkg/types"
)

// Store owns the on-disk index file for one project and an optional
// bounded cache of the entries written by the last Save, readable through
// CachedEntry. Load never consults it, and the stores built in this tree
// pass cacheSize 0, so the cache is off there.
type Store struct {
	path  string
	log   zerolog.Logger
	cache *lru.Cache[string, types.FileEntry]
}

// NewStore builds a Store for the index file at path. cacheSize <= 0
// disables the read-through cache.
func NewStore(path string, cacheSize int, log zerolog.Logger) *Store {
	s := &Store{path: path, log: log}
	if cacheSize > 0 {
		c, err := lru.New[string, types.FileEntry](cacheSize)
		if err == nil {
			s.cache = c
		}
	}
	return s
}

// Load returns an empty index (never an error) whenever the file is
// absent, oversize, corrupt, or stamped with a mismatched schema version
// or config fingerprint — every one of those conditions forces a full
// rebuild, per spec.md §4.4.
func (s *Store) Load(expectedFingerprint uint64) *types.Index {
	info, err := os.Stat(s.path)
	if err != nil {
		return types.NewIndex(expectedFingerprint)
	}
	if info.Size() > types.MaxIndexBytes {
		s.log.Warn().Int64("bytes", info.Size()).Msg("index file too large, rebuilding")
		return types.NewIndex(expectedFingerprint)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to read index file, rebuilding")
		return types.NewIndex(expectedFingerprint)
	}

	var idx types.Index
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&idx); err != nil {
		s.log.Warn().Err(err).Msg("failed to deserialize index, rebuilding")
		return types.NewIndex(expectedFingerprint)
	}

	if idx.SchemaVersion != types.CurrentSchemaVersion || idx.ConfigFingerprint != expectedFingerprint {
		s.log.Info().
			Int("got_schema", idx.SchemaVersion).Int("want_schema", types.CurrentSchemaVersion).
			Uint64("got_fingerprint", idx.ConfigFingerprint).Uint64("want_fingerprint", expectedFingerprint).
			Msg("index version/config mismatch, rebuilding")
		return types.NewIndex(expectedFingerprint)
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]types.FileEntry)
	}
	return &idx
}

// Save serializes idx with gob, writes it to a sibling temp file, and
// atomically renames it over the target (remove-then-rename on Windows,
// where rename-over-existing fails).
func (s *Store) Save(idx *types.Index) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(idx); err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if buf.Len() > types.MaxIndexBytes {
		return types.ErrIndexTooLarge
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write temp index: %w", err)
	}

	if runtime.GOOS == "windows" {
		if _, err := os.Stat(s.path); err == nil {
			if rmErr := os.Remove(s.path); rmErr != nil {
				return fmt.Errorf("remove existing index before rename: %w", rmErr)
			}
		}
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename temp index into place: %w", err)
	}

	if s.cache != nil {
		for rel, entry := range idx.Entries {
			s.cache.Add(rel, entry)
		}
	}
	return nil
}

// CachedEntry consults the read-through cache, if enabled, for a recent
// FileEntry without requiring a full Load.
func (s *Store) CachedEntry(rel string) (types.FileEntry, bool) {
	if s.cache == nil {
		return types.FileEntry{}, false
	}
	return s.cache.Get(rel)
}

// NumCPUWorkers is a small convenience used by callers sizing the
// classify+chunk+hash worker pool (§5).
func NumCPUWorkers() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	return n
}
