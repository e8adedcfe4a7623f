// Package ignore implements the two distinct ignore-rule tiers spec.md
// §4.2 calls for: a built-in glob exclude list (matched the same way
// regardless of project conventions) and the project's own ignore file,
// matched using the prevailing ignore-file dialect.
package ignore

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"
)

// Matcher answers whether a project-relative, forward-slash path should
// be excluded from indexing.
type Matcher struct {
	builtin  []string
	project  *gitignore.GitIgnore
}

// New compiles the built-in pattern list once and loads the project's
// ignore file (if present) using gitignore dialect semantics. A missing
// ignore file is not an error — no project-level rules apply.
func New(projectRoot string, ignoreFileName string, builtinPatterns []string) (*Matcher, error) {
	m := &Matcher{builtin: append([]string(nil), builtinPatterns...)}

	path := filepath.Join(projectRoot, ignoreFileName)
	if data, err := os.ReadFile(path); err == nil {
		lines := strings.Split(string(data), "\n")
		gi := gitignore.CompileIgnoreLines(lines...)
		m.project = gi
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	return m, nil
}

// Match reports whether rel (project-relative, forward-slash, no leading
// slash) is excluded by either the built-in list or the project's ignore
// file.
func (m *Matcher) Match(rel string) bool {
	if m.matchesBuiltin(rel) {
		return true
	}
	if m.project != nil && m.project.MatchesPath(rel) {
		return true
	}
	return false
}

// matchesBuiltin checks every built-in pattern, bare name or wildcard
// alike, against the path's basename, the full relative path, and each
// single path component; a match on any of them excludes the path.
func (m *Matcher) matchesBuiltin(rel string) bool {
	base := filepath.Base(rel)
	for _, pat := range m.builtin {
		if ok, _ := doublestar.Match(pat, base); ok {
			return true
		}
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
		for _, comp := range strings.Split(rel, "/") {
			if ok, _ := doublestar.Match(pat, comp); ok {
				return true
			}
		}
	}
	return false
}
