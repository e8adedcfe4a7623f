package pathloc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ctxmcp/ctxmcp/internal/config"
	"github.com/stretchr/testify/require"
)

func TestResolve_CreatesStateDirAndIgnoreEntry(t *testing.T) {
	dir := t.TempDir()
	loc, err := Resolve(dir)
	require.NoError(t, err)
	require.DirExists(t, loc.StateDir)

	data, err := os.ReadFile(loc.IgnoreFile)
	require.NoError(t, err)
	require.Contains(t, string(data), config.StateDirName+"/")
}

func TestResolve_IdempotentIgnoreEntry(t *testing.T) {
	dir := t.TempDir()
	_, err := Resolve(dir)
	require.NoError(t, err)

	before, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)

	_, err = Resolve(dir)
	require.NoError(t, err)

	after, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	require.Equal(t, string(before), string(after))
}

func TestEnsureIgnored_NotFooledBySuperstring(t *testing.T) {
	dir := t.TempDir()
	ignorePath := filepath.Join(dir, ".gitignore")
	require.NoError(t, os.WriteFile(ignorePath, []byte(".ctxmcp-old/\n"), 0o644))

	loc, err := Resolve(dir)
	require.NoError(t, err)

	data, err := os.ReadFile(loc.IgnoreFile)
	require.NoError(t, err)
	require.Contains(t, string(data), ".ctxmcp-old/")
	require.Contains(t, string(data), config.StateDirName+"/")
}

func TestEnsureIgnored_TolerantOfMissingTrailingNewline(t *testing.T) {
	dir := t.TempDir()
	ignorePath := filepath.Join(dir, ".gitignore")
	require.NoError(t, os.WriteFile(ignorePath, []byte("node_modules/"), 0o644))

	_, err := Resolve(dir)
	require.NoError(t, err)

	data, err := os.ReadFile(ignorePath)
	require.NoError(t, err)
	require.Contains(t, string(data), "node_modules/\n"+config.StateDirName+"/")
}

func TestRelPath(t *testing.T) {
	dir := t.TempDir()
	loc, err := Resolve(dir)
	require.NoError(t, err)

	sub := filepath.Join(dir, "a", "b.go")
	rel, err := loc.RelPath(sub)
	require.NoError(t, err)
	require.Equal(t, "a/b.go", rel)

	_, err = loc.RelPath(filepath.Join(dir, "..", "outside.go"))
	require.Error(t, err)
}

func TestIndexFilePath(t *testing.T) {
	dir := t.TempDir()
	loc, err := Resolve(dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(loc.StateDir, "index.bin"), loc.IndexFilePath())
}
