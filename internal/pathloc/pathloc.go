// Package pathloc resolves a project's canonical root, its per-project
// state directory, and the on-disk index file path, and idempotently
// ensures the project's own ignore file excludes that state directory.
package pathloc

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctxmcp/ctxmcp/internal/config"
)

// IndexFileName is the fixed filename of the on-disk index under the
// state directory.
const IndexFileName = "index.bin"

// Locator resolves filesystem locations for a single project root.
type Locator struct {
	Root      string // canonicalized, absolute
	StateDir  string // <Root>/<StateDirName>
	IgnoreFile string
}

// Resolve canonicalizes root (symlinks excluded: the walker never follows
// them, so the locator reports the path as given, only made absolute and
// cleaned) and ensures the state directory exists.
func Resolve(root string) (*Locator, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	abs = filepath.Clean(abs)

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat project root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", abs)
	}

	stateDir := filepath.Join(abs, config.StateDirName)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	loc := &Locator{
		Root:       abs,
		StateDir:   stateDir,
		IgnoreFile: filepath.Join(abs, ".gitignore"),
	}
	if err := loc.ensureIgnored(); err != nil {
		return nil, err
	}
	return loc, nil
}

// IndexFilePath returns the fixed path of the on-disk index file.
func (l *Locator) IndexFilePath() string {
	return filepath.Join(l.StateDir, IndexFileName)
}

// RelPath returns p expressed relative to the project root with forward
// slashes, or an error if p cannot be expressed relative to the root
// (§4.2 fail-closed rule: callers must exclude the file on error).
func (l *Locator) RelPath(p string) (string, error) {
	rel, err := filepath.Rel(l.Root, p)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%s is outside project root", p)
	}
	return filepath.ToSlash(rel), nil
}

// ensureIgnored idempotently appends an entry for the state directory to
// the project's ignore file: tolerant of a missing trailing newline,
// never duplicates an existing entry, and is not fooled by a superstring
// match (e.g. an existing ".ctxmcp-old/" entry must not suppress adding
// ".ctxmcp/").
func (l *Locator) ensureIgnored() error {
	entry := config.StateDirName + "/"

	data, err := os.ReadFile(l.IgnoreFile)
	if err != nil {
		if os.IsNotExist(err) {
			return os.WriteFile(l.IgnoreFile, []byte(entry+"\n"), 0o644)
		}
		return fmt.Errorf("read ignore file: %w", err)
	}

	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == entry || line == config.StateDirName {
			return nil
		}
	}

	out := string(data)
	if len(out) > 0 && !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	out += entry + "\n"
	return os.WriteFile(l.IgnoreFile, []byte(out), 0o644)
}
