package indexer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ctxmcp/ctxmcp/internal/chunker"
	"github.com/ctxmcp/ctxmcp/internal/ignore"
	"github.com/ctxmcp/ctxmcp/internal/index"
	"github.com/ctxmcp/ctxmcp/internal/pathloc"
	"github.com/ctxmcp/ctxmcp/internal/strategy"
	"github.com/ctxmcp/ctxmcp/internal/uploader"
	"github.com/ctxmcp/ctxmcp/internal/walker"
	"github.com/ctxmcp/ctxmcp/pkg/types"
)

func chunkFor(path, content string) types.Chunk {
	return types.Chunk{LogicalPath: path, Content: content}
}

// echoUploadServer returns every submitted blob path|content pair's chunk
// name (computed the same way types.Chunk.Name does) so tests can assert
// on the exact names without duplicating production code.
func echoUploadServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Blobs []struct {
				Path    string `json:"path"`
				Content string `json:"content"`
			} `json:"blobs"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		names := make([]string, len(req.Blobs))
		for i, b := range req.Blobs {
			c := chunkFor(b.Path, b.Content)
			names[i] = c.Name()
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string][]string{"blob_names": names})
	}))
}

func setupIndexer(t *testing.T, uploadURL string) (*Indexer, *pathloc.Locator) {
	t.Helper()
	dir := t.TempDir()
	loc, err := pathloc.Resolve(dir)
	require.NoError(t, err)

	classifier := walker.NewClassifier([]string{".go", ".md"}, nil)
	matcher, err := ignore.New(dir, ".ctxmcpignore", nil)
	require.NoError(t, err)
	w := walker.New(loc, classifier, matcher, 1<<20, 4, zerolog.Nop())
	ck := chunker.New(800)
	store := index.NewStore(loc.IndexFilePath(), 0, zerolog.Nop())
	conc := 2
	s := strategy.New(0, strategy.Overrides{Concurrency: &conc}, false, zerolog.Nop())
	up := uploader.New(uploader.NewHTTPClient(uploadURL, "test-token", nil), s, zerolog.Nop())
	fprint := index.ConfigFingerprint(800)

	ix := New(loc, w, ck, store, up, s, fprint, 2, zerolog.Nop())
	return ix, loc
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRun_UploadsNewFilesAndPersistsIndex(t *testing.T) {
	srv := echoUploadServer(t)
	defer srv.Close()

	ix, loc := setupIndexer(t, srv.URL)
	writeFile(t, loc.Root, "main.go", "package main\n\nfunc main() {}\n")
	writeFile(t, loc.Root, "README.md", "# hello\n")

	result, err := ix.Run(t.Context())
	require.NoError(t, err)
	require.Equal(t, 2, result.FilesIndexed)
	require.Equal(t, 0, result.FilesSkipped)
	require.Len(t, result.ChunkNames, 2)
	require.FileExists(t, loc.IndexFilePath())
}

func TestRun_UnchangedFileIsCacheHitAndNotReuploaded(t *testing.T) {
	var uploadCount int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uploadCount++
		var req struct {
			Blobs []struct {
				Path    string `json:"path"`
				Content string `json:"content"`
			} `json:"blobs"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		names := make([]string, len(req.Blobs))
		for i, b := range req.Blobs {
			names[i] = chunkFor(b.Path, b.Content).Name()
		}
		json.NewEncoder(w).Encode(map[string][]string{"blob_names": names})
	}))
	defer srv.Close()

	ix, loc := setupIndexer(t, srv.URL)
	writeFile(t, loc.Root, "main.go", "package main\n")

	_, err := ix.Run(t.Context())
	require.NoError(t, err)
	require.Equal(t, 1, uploadCount)

	// A second pass over the same unchanged file should find a cache hit
	// and never open a new upload batch for it.
	result, err := ix.Run(t.Context())
	require.NoError(t, err)
	require.Equal(t, 1, uploadCount, "unchanged file must not be reuploaded")
	require.Equal(t, 0, result.FilesIndexed)
	require.Len(t, result.ChunkNames, 1)
}

func TestRun_ChangedFileIsReuploaded(t *testing.T) {
	srv := echoUploadServer(t)
	defer srv.Close()

	ix, loc := setupIndexer(t, srv.URL)
	writeFile(t, loc.Root, "main.go", "package main\n")

	_, err := ix.Run(t.Context())
	require.NoError(t, err)

	// Force a distinguishable mtime+size change.
	time.Sleep(10 * time.Millisecond)
	writeFile(t, loc.Root, "main.go", "package main\n\nfunc main() {}\n")

	result, err := ix.Run(t.Context())
	require.NoError(t, err)
	require.Equal(t, 1, result.FilesIndexed)
}

func TestRun_DeletedFileDropsFromIndex(t *testing.T) {
	srv := echoUploadServer(t)
	defer srv.Close()

	ix, loc := setupIndexer(t, srv.URL)
	writeFile(t, loc.Root, "a.go", "package a\n")
	writeFile(t, loc.Root, "b.go", "package b\n")

	first, err := ix.Run(t.Context())
	require.NoError(t, err)
	require.Len(t, first.ChunkNames, 2)

	require.NoError(t, os.Remove(filepath.Join(loc.Root, "b.go")))

	second, err := ix.Run(t.Context())
	require.NoError(t, err)
	require.Len(t, second.ChunkNames, 1)
}

func TestRun_ConcurrentCallsOneWinsOneBusy(t *testing.T) {
	srv := echoUploadServer(t)
	defer srv.Close()

	ix, loc := setupIndexer(t, srv.URL)
	writeFile(t, loc.Root, "main.go", "package main\n")

	ix.lock.TryAcquire()
	defer ix.lock.Release()

	_, err := ix.Run(t.Context())
	require.ErrorIs(t, err, ErrIndexingInProgress)
}

func TestRun_BatchUploadFailureMarksPartial(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	ix, loc := setupIndexer(t, srv.URL)
	writeFile(t, loc.Root, "main.go", "package main\n")

	result, err := ix.Run(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, "success", string(result.Status))
	require.Error(t, result.Err)
}
