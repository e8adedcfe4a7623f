package walker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctxmcp/ctxmcp/internal/config"
	"github.com/ctxmcp/ctxmcp/internal/ignore"
	"github.com/ctxmcp/ctxmcp/internal/pathloc"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func setupProject(t *testing.T) *pathloc.Locator {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules", "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node_modules", "pkg", "index.js"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte("binary"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "HEAD"), []byte("ref: refs/heads/main\n"), 0o644))

	loc, err := pathloc.Resolve(dir)
	require.NoError(t, err)
	return loc
}

func TestWalk_ClassifiesAndExcludes(t *testing.T) {
	loc := setupProject(t)
	classifier := NewClassifier(config.DefaultTextExtensions, config.DefaultTextFilenames)
	matcher, err := ignore.New(loc.Root, ".gitignore", config.DefaultExcludePatterns)
	require.NoError(t, err)

	w := New(loc, classifier, matcher, 128*1024, 4, zerolog.Nop())
	cands, err := w.Walk(context.Background())
	require.NoError(t, err)

	var rels []string
	for _, c := range cands {
		rels = append(rels, c.Rel)
	}
	require.Contains(t, rels, "main.go")
	require.Contains(t, rels, "README")
	require.NotContains(t, rels, "node_modules/pkg/index.js")
	require.NotContains(t, rels, "image.png")
	require.NotContains(t, rels, ".git/HEAD")
}
