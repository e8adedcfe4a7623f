// Package indexer ties the walker, chunker, index store, adaptive
// strategy, and uploader together into the single indexing pass of
// spec.md §4: walk the project, decide per-file whether the cache entry
// is still good, chunk and upload whatever is not, and persist a freshly
// built index.
package indexer

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ctxmcp/ctxmcp/internal/chunker"
	"github.com/ctxmcp/ctxmcp/internal/index"
	"github.com/ctxmcp/ctxmcp/internal/pathloc"
	"github.com/ctxmcp/ctxmcp/internal/strategy"
	"github.com/ctxmcp/ctxmcp/internal/uploader"
	"github.com/ctxmcp/ctxmcp/internal/walker"
	"github.com/ctxmcp/ctxmcp/pkg/types"
)

// Indexer drives one walk-chunk-diff-upload-save pass for a project.
type Indexer struct {
	loc      *pathloc.Locator
	walker   *walker.Walker
	chunker  *chunker.Chunker
	store    *index.Store
	uploader *uploader.Uploader
	strategy *strategy.Adaptive
	fprint   uint64
	workers  int
	log      zerolog.Logger

	lock IndexLock
}

// New builds an Indexer for one project location. fingerprint should come
// from index.ConfigFingerprint(maxLinesPerChunk) so a chunking-config
// change forces a full rebuild on the next pass.
func New(loc *pathloc.Locator, w *walker.Walker, c *chunker.Chunker, store *index.Store, up *uploader.Uploader, s *strategy.Adaptive, fingerprint uint64, workers int, log zerolog.Logger) *Indexer {
	if workers <= 0 {
		workers = index.NumCPUWorkers()
	}
	return &Indexer{loc: loc, walker: w, chunker: c, store: store, uploader: up, strategy: s, fprint: fingerprint, workers: workers, log: log}
}

// LoadIndex returns the last saved index for this project without
// walking the filesystem or uploading anything, for callers (like
// enhance_prompt) that only need the current chunk-name set cheaply.
func (ix *Indexer) LoadIndex() *types.Index {
	return ix.store.Load(ix.fprint)
}

// fileDecision is the outcome of applying the §4.4 cache decision tree to
// one candidate.
type fileDecision struct {
	rel    string
	entry  types.FileEntry // either the reused cache entry or the freshly computed one
	chunks []types.Chunk   // non-nil only when this file needs (re)upload
	err    error
}

// Run performs one full indexing pass: walk, classify+stat concurrently,
// decide per file against the loaded index, upload whatever changed, and
// save a freshly constructed index (never an additive merge onto the old
// one, so files deleted since the last pass simply have no entry).
//
// TryAcquire/Release guards against two concurrent passes for the same
// project racing each other's index file; a caller that loses the race
// gets ErrIndexingInProgress and should wait for the other pass.
func (ix *Indexer) Run(ctx context.Context) (*types.IndexingResult, error) {
	if !ix.lock.TryAcquire() {
		return nil, ErrIndexingInProgress
	}
	defer ix.lock.Release()

	candidates, err := ix.walker.Walk(ctx)
	if err != nil {
		return nil, fmt.Errorf("walk project: %w", err)
	}

	oldIdx := ix.store.Load(ix.fprint)

	decisions := make([]fileDecision, len(candidates))
	var mu sync.Mutex
	idxByRel := make(map[string]int, len(candidates))
	for i, c := range candidates {
		idxByRel[c.Rel] = i
	}

	walkErr := walker.ClassifyAndStat(ctx, candidates, ix.workers, func(c walker.Candidate, info os.FileInfo) error {
		d := ix.decideFile(c, info, oldIdx)
		mu.Lock()
		decisions[idxByRel[c.Rel]] = d
		mu.Unlock()
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("classify and stat candidates: %w", walkErr)
	}

	newIdx := types.NewIndex(ix.fprint)
	var toUpload []types.Chunk
	filesIndexed, filesSkipped := 0, 0

	for _, d := range decisions {
		if d.err != nil {
			ix.log.Warn().Err(d.err).Str("path", d.rel).Msg("skipping file after chunk error")
			filesSkipped++
			continue
		}
		if len(d.entry.ChunkNames) == 0 {
			// dropped: deleted, binary, oversize, or unreadable with no
			// prior entry; the new index gets no entry for it
			filesSkipped++
			continue
		}
		newIdx.Entries[d.rel] = d.entry
		if d.chunks != nil {
			toUpload = append(toUpload, d.chunks...)
			filesIndexed++
		} else {
			filesSkipped++
		}
	}

	batches := uploader.BuildBatches(toUpload, types.MaxBatchBytes, ix.strategy.BatchSize())
	results := ix.uploader.Run(ctx, batches)

	result := &types.IndexingResult{
		Status:       types.IndexingSuccess,
		FilesIndexed: filesIndexed,
		FilesSkipped: filesSkipped,
	}
	uploaded := make(map[string]struct{})
	for _, r := range results {
		if r.Err != nil {
			ix.log.Error().Err(r.Err).Int("batch_chunks", len(r.Batch.Chunks)).Msg("batch upload failed")
			result.Status = types.IndexingPartial
			result.Err = r.Err
			continue
		}
		result.ChunkNames = append(result.ChunkNames, r.ChunkNames...)
		result.ChunksUploaded += len(r.ChunkNames)
		for _, n := range r.ChunkNames {
			uploaded[n] = struct{}{}
		}
	}

	// Every chunk name the project currently has — just uploaded, or
	// already present from a prior pass and reused verbatim — is what
	// retrieval submits for this project.
	for _, entry := range newIdx.Entries {
		for _, n := range entry.ChunkNames {
			if _, ok := uploaded[n]; ok {
				continue
			}
			uploaded[n] = struct{}{}
			result.ChunkNames = append(result.ChunkNames, n)
		}
	}

	if err := ix.store.Save(newIdx); err != nil {
		ix.log.Error().Err(err).Msg("failed to persist index")
		if result.Status == types.IndexingSuccess {
			result.Status = types.IndexingPartial
		}
		result.Err = err
	}

	return result, nil
}

// decideFile applies spec.md §4.4's per-file cache decision tree to one
// candidate. A transient stat or read error outside of a genuine deletion
// keeps whatever the previous index said; when there is no previous entry
// to keep, a read error is returned in the decision and Run skips the file.
func (ix *Indexer) decideFile(c walker.Candidate, info os.FileInfo, oldIdx *types.Index) fileDecision {
	old, hadOld := oldIdx.Entries[c.Rel]

	if info == nil {
		// Lstat failed during ClassifyAndStat. A genuinely deleted file
		// drops its entry; any other transient error preserves the old one.
		if _, statErr := os.Stat(c.AbsPath); os.IsNotExist(statErr) {
			return fileDecision{rel: c.Rel}
		}
		if hadOld {
			return fileDecision{rel: c.Rel, entry: old}
		}
		return fileDecision{rel: c.Rel}
	}

	mtime := info.ModTime()
	secs, nanos := mtime.Unix(), int64(mtime.Nanosecond())
	size := info.Size()

	if hadOld && size == old.SizeBytes && secs == old.MtimeSecs {
		if old.MtimeNanos != 0 && nanos != 0 {
			if nanos == old.MtimeNanos {
				return fileDecision{rel: c.Rel, entry: old}
			}
		} else {
			// Low nanosecond precision on one or both sides: rechunk and
			// compare the resulting names before deciding anything changed.
			chunks, err := ix.chunker.ChunkFile(c.AbsPath, c.Rel)
			if err != nil {
				return ix.decisionForChunkError(c.Rel, err, old, hadOld)
			}
			names := chunkNames(chunks)
			if sameNames(names, old.ChunkNames) {
				entry := old
				entry.MtimeSecs, entry.MtimeNanos = secs, nanos
				return fileDecision{rel: c.Rel, entry: entry}
			}
			return fileDecision{
				rel:    c.Rel,
				entry:  types.FileEntry{MtimeSecs: secs, MtimeNanos: nanos, SizeBytes: size, ChunkNames: names},
				chunks: chunks,
			}
		}
	}

	chunks, err := ix.chunker.ChunkFile(c.AbsPath, c.Rel)
	if err != nil {
		return ix.decisionForChunkError(c.Rel, err, old, hadOld)
	}
	names := chunkNames(chunks)
	return fileDecision{
		rel:    c.Rel,
		entry:  types.FileEntry{MtimeSecs: secs, MtimeNanos: nanos, SizeBytes: size, ChunkNames: names},
		chunks: chunks,
	}
}

// decisionForChunkError drops a file that vanished between stat and read
// (a genuine deletion) and a binary or oversize file, since it was never
// a real candidate to begin with; any other chunk read error preserves
// the old entry verbatim.
func (ix *Indexer) decisionForChunkError(rel string, err error, old types.FileEntry, hadOld bool) fileDecision {
	switch err.(type) {
	case *chunker.ErrBinary, *chunker.ErrTooLarge:
		return fileDecision{rel: rel}
	}
	if os.IsNotExist(err) {
		return fileDecision{rel: rel}
	}
	if hadOld {
		return fileDecision{rel: rel, entry: old}
	}
	return fileDecision{rel: rel, err: err}
}

func chunkNames(chunks []types.Chunk) []string {
	names := make([]string, len(chunks))
	for i, c := range chunks {
		names[i] = c.Name()
	}
	return names
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
