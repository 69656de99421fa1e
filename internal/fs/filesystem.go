package fs

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"biji-go/internal/biji"
)

// IgnoreFileName is the per-root ignore file, read once when the manager
// is created.
const IgnoreFileName = ".bijiignore"

// OSFilesystemManager is the real filesystem implementation of
// biji.FilesystemManager. All paths it accepts are relative to root.
type OSFilesystemManager struct {
	root   string
	ignore *IgnoreMatcher
}

// NewOSFilesystemManager creates a manager rooted at root. patterns are
// added to those found in root's ignore file.
func NewOSFilesystemManager(root string, patterns []string) (*OSFilesystemManager, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory: %w", absRoot, biji.ErrInvalidArgument)
	}

	filePatterns, err := ParseIgnoreFile(filepath.Join(absRoot, IgnoreFileName))
	if err != nil {
		return nil, err
	}

	all := append(append([]string{}, patterns...), filePatterns...)
	return &OSFilesystemManager{
		root:   absRoot,
		ignore: NewIgnoreMatcher(all),
	}, nil
}

func (m *OSFilesystemManager) Root() string {
	return m.root
}

// Relative converts a path given on the command line (absolute, or relative
// to the working directory) into the root-relative slash form. Paths outside
// the root are rejected.
func (m *OSFilesystemManager) Relative(rawPath string) (string, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}
	rel, err := filepath.Rel(m.root, absPath)
	if err != nil {
		return "", fmt.Errorf("%s is outside %s: %w", rawPath, m.root, biji.ErrInvalidArgument)
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside %s: %w", rawPath, m.root, biji.ErrInvalidArgument)
	}
	return rel, nil
}

// Absolute returns the OS path of a root-relative path.
func (m *OSFilesystemManager) Absolute(rel string) (string, error) {
	clean := path.Clean(rel)
	if rel == "" || path.IsAbs(clean) || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid relative path %q: %w", rel, biji.ErrInvalidArgument)
	}
	return filepath.Join(m.root, filepath.FromSlash(clean)), nil
}

func (m *OSFilesystemManager) Stat(rel string) (fs.FileInfo, error) {
	p, err := m.Absolute(rel)
	if err != nil {
		return nil, err
	}
	return os.Stat(p)
}

func (m *OSFilesystemManager) Exists(rel string) (bool, error) {
	_, err := m.Stat(rel)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (m *OSFilesystemManager) ReadFile(rel string) ([]byte, error) {
	p, err := m.Absolute(rel)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

// WriteFile writes data to a temporary file in the same directory and
// renames it over rel.
func (m *OSFilesystemManager) WriteFile(rel string, data []byte) error {
	p, err := m.Absolute(rel)
	if err != nil {
		return err
	}
	return atomic.WriteFile(p, bytes.NewReader(data))
}

func (m *OSFilesystemManager) Remove(rel string) error {
	p, err := m.Absolute(rel)
	if err != nil {
		return err
	}
	return os.Remove(p)
}

// Ignored reports whether a root-relative path is excluded by the ignore
// patterns. A sidecar is ignored when its tracked file is.
func (m *OSFilesystemManager) Ignored(rel string, isDir bool) bool {
	if tracked, ok := biji.TrackedPath(rel); ok && !isDir {
		rel = tracked
	}
	return m.ignore.Match(rel, isDir)
}

// FindSidecars walks the root and returns every sidecar that is a regular
// file outside ignored paths, in lexical order.
func (m *OSFilesystemManager) FindSidecars() ([]string, error) {
	var paths []string
	err := m.walk(func(rel string, d fs.DirEntry) {
		if d.IsDir() || !d.Type().IsRegular() {
			return
		}
		if strings.HasSuffix(d.Name(), biji.SidecarSuffix) {
			paths = append(paths, rel)
		}
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// Dirs returns the absolute path of the root and of every directory below it
// that is not ignored.
func (m *OSFilesystemManager) Dirs() ([]string, error) {
	dirs := []string{m.root}
	err := m.walk(func(rel string, d fs.DirEntry) {
		if d.IsDir() {
			dirs = append(dirs, filepath.Join(m.root, filepath.FromSlash(rel)))
		}
	})
	if err != nil {
		return nil, err
	}
	return dirs, nil
}

// walk visits every non-ignored entry below the root. Ignored directories
// are not descended into and symlinked directories are not followed.
func (m *OSFilesystemManager) walk(visit func(rel string, d fs.DirEntry)) error {
	err := filepath.WalkDir(m.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == m.root {
			return nil
		}
		rel, err := filepath.Rel(m.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if m.Ignored(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		visit(rel, d)
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking %s: %w", m.root, err)
	}
	return nil
}

var _ biji.FilesystemManager = (*OSFilesystemManager)(nil)
