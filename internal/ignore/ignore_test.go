package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatch_BuiltinBasename(t *testing.T) {
	m, err := New(t.TempDir(), ".gitignore", []string{"node_modules", "*.log"})
	require.NoError(t, err)

	require.True(t, m.Match("node_modules/foo/index.js"))
	require.True(t, m.Match("a/b/debug.log"))
	require.False(t, m.Match("a/b/main.go"))
}

func TestMatch_ProjectIgnoreFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("dist/\n!dist/keep.txt\n*.tmp\n"), 0o644))

	m, err := New(dir, ".gitignore", nil)
	require.NoError(t, err)

	require.True(t, m.Match("dist/bundle.js"))
	require.False(t, m.Match("dist/keep.txt"))
	require.True(t, m.Match("scratch.tmp"))
	require.False(t, m.Match("main.go"))
}

func TestMatch_MissingIgnoreFileIsNotAnError(t *testing.T) {
	m, err := New(t.TempDir(), ".gitignore", []string{"*.bin"})
	require.NoError(t, err)
	require.True(t, m.Match("out.bin"))
	require.False(t, m.Match("out.txt"))
}
