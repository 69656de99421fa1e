package fs

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

// defaultIgnorePatterns are always applied. The index file lives inside the
// root and must never be picked up as tracked content.
var defaultIgnorePatterns = []string{
	".git/",
	IgnoreFileName,
	"biji_database.db",
	"biji_database.db-journal",
}

type ignorePattern struct {
	pattern   string
	matchPath bool // match the whole relative path instead of the basename
	dirOnly   bool // pattern ended in '/'
}

// IgnoreMatcher checks root-relative paths against ignore patterns.
//
// Patterns follow a small subset of gitignore: a pattern containing '/'
// is matched against the whole relative path, any other pattern against
// the basename, and a trailing '/' restricts the pattern to directories.
// A directory that matches hides everything below it.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings plus
// the defaults. Blank lines and lines starting with '#' are skipped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var patterns []ignorePattern
	for _, raw := range append(append([]string{}, defaultIgnorePatterns...), rawPatterns...) {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		p := ignorePattern{}
		if trimmed, ok := strings.CutSuffix(raw, "/"); ok {
			p.dirOnly = true
			raw = trimmed
		}
		raw = strings.TrimPrefix(raw, "/")
		if raw == "" {
			continue
		}
		p.pattern = raw
		p.matchPath = strings.Contains(raw, "/")
		patterns = append(patterns, p)
	}
	return &IgnoreMatcher{patterns: patterns}
}

// Match reports whether the slash-separated relative path is ignored.
func (m *IgnoreMatcher) Match(relativePath string, isDir bool) bool {
	basename := path.Base(relativePath)

	for _, p := range m.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		target := basename
		if p.matchPath {
			target = relativePath
		}
		matched, err := path.Match(p.pattern, target)
		if err != nil {
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// ParseIgnoreFile reads an ignore file and returns its raw lines.
// A missing file yields no patterns and no error.
func ParseIgnoreFile(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
