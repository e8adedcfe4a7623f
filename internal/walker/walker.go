// Package walker enumerates candidate text files under a project root,
// applying the classification and ignore rules of spec.md §4.2, using a
// bounded worker pool so the classification pass (which stats every
// candidate) does not serialize on a single goroutine for large trees.
package walker

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ctxmcp/ctxmcp/internal/config"
	"github.com/ctxmcp/ctxmcp/internal/ignore"
	"github.com/ctxmcp/ctxmcp/internal/pathloc"
	"github.com/rs/zerolog"
)

// Classifier decides whether a basename or extension marks a file as a
// text candidate.
type Classifier struct {
	extensions map[string]struct{}
	filenames  map[string]struct{}
}

// NewClassifier builds a classifier from the known-extensions and
// known-filenames sets (case preserved for filenames, extensions
// lowercased for comparison per spec.md §4.2).
func NewClassifier(extensions, filenames []string) *Classifier {
	c := &Classifier{
		extensions: make(map[string]struct{}, len(extensions)),
		filenames:  make(map[string]struct{}, len(filenames)),
	}
	for _, e := range extensions {
		c.extensions[strings.ToLower(e)] = struct{}{}
	}
	for _, f := range filenames {
		c.filenames[f] = struct{}{}
	}
	return c
}

// IsCandidateName reports whether base names a text candidate, by
// extension or exact filename match.
func (c *Classifier) IsCandidateName(base string) bool {
	if _, ok := c.filenames[base]; ok {
		return true
	}
	ext := strings.ToLower(filepath.Ext(base))
	if ext == "" {
		return false
	}
	_, ok := c.extensions[ext]
	return ok
}

// Walker discovers candidate files under a project root.
type Walker struct {
	loc        *pathloc.Locator
	classifier *Classifier
	matcher    *ignore.Matcher
	maxBytes   int64
	workers    int
	log        zerolog.Logger

	mu    sync.Mutex
	dirty map[string]struct{} // populated by an attached watcher; nil means "no signal"
}

// New builds a Walker for a resolved project location.
func New(loc *pathloc.Locator, classifier *Classifier, matcher *ignore.Matcher, maxBytes int64, workers int, log zerolog.Logger) *Walker {
	if workers <= 0 {
		workers = 4
	}
	return &Walker{loc: loc, classifier: classifier, matcher: matcher, maxBytes: maxBytes, workers: workers, log: log}
}

// SetDirty records a set of project-relative paths known to have changed
// since the last pass (from the background watcher, §11.1). Walk always
// performs a full tree walk regardless, and the indexer does not read
// this set; it is only stored and returned by DirtyPaths. A nil or empty
// set means no signal either way.
func (w *Walker) SetDirty(paths map[string]struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dirty = paths
}

// DirtyPaths returns the most recently recorded dirty set, or nil if none
// has been recorded.
func (w *Walker) DirtyPaths() map[string]struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dirty
}

// Candidate is one discovered text-file candidate.
type Candidate struct {
	AbsPath string
	Rel     string
	Size    int64
}

// Walk enumerates candidate files. It never follows symlinks; a path
// that cannot be expressed relative to the project root is excluded
// (fail-closed, §4.2).
func (w *Walker) Walk(ctx context.Context) ([]Candidate, error) {
	var out []Candidate
	err := filepath.WalkDir(w.loc.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			w.log.Debug().Err(err).Str("path", path).Msg("walk error, skipping")
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != w.loc.Root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			rel, relErr := w.loc.RelPath(path)
			if relErr == nil && w.matcher.Match(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !w.classifier.IsCandidateName(d.Name()) {
			return nil
		}

		rel, relErr := w.loc.RelPath(path)
		if relErr != nil {
			return nil
		}
		if w.matcher.Match(rel) {
			return nil
		}

		info, statErr := d.Info()
		if statErr != nil {
			w.log.Debug().Err(statErr).Str("path", path).Msg("stat failed, excluding")
			return nil
		}
		if info.Size() > w.maxBytes {
			return nil
		}

		out = append(out, Candidate{AbsPath: path, Rel: rel, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rel < out[j].Rel })
	return out, ctx.Err()
}

// ClassifyAndStat runs a bounded-concurrency pass re-statting a known
// candidate set, used by the indexing pipeline's cache-decision step
// (§4.4) so file metadata reads don't serialize. It's a thin wrapper
// kept separate from Walk so callers driving the per-file cache decision
// tree can reuse the same worker-pool shape without re-walking the tree.
func ClassifyAndStat(ctx context.Context, candidates []Candidate, workers int, fn func(Candidate, os.FileInfo) error) error {
	if workers <= 0 {
		workers = 4
	}
	sem := make(chan struct{}, workers)
	g, gctx := errgroup.WithContext(ctx)

	for _, c := range candidates {
		c := c
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			if gctx.Err() != nil {
				return gctx.Err()
			}
			info, err := os.Lstat(c.AbsPath)
			if err != nil {
				return fn(c, nil)
			}
			return fn(c, info)
		})
	}
	return g.Wait()
}

// DefaultClassifier builds a Classifier from the built-in defaults in
// internal/config.
func DefaultClassifier() *Classifier {
	return NewClassifier(config.DefaultTextExtensions, config.DefaultTextFilenames)
}
