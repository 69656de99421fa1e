package biji

import "io/fs"

// FilesystemManager provides rooted access to the tracked directory tree.
// Every path argument is slash-separated and relative to the root, which is
// the same form that is stored in sidecars and in the index.
// It abstracts file access to enable testing without touching the real filesystem.
type FilesystemManager interface {
	// Root returns the absolute path of the tracked root directory.
	Root() string

	// Stat returns file info for a path. Missing paths yield an error
	// satisfying errors.Is(err, fs.ErrNotExist).
	Stat(path string) (fs.FileInfo, error)

	// Exists reports whether a path exists.
	Exists(path string) (bool, error)

	// ReadFile reads a whole file.
	ReadFile(path string) ([]byte, error)

	// WriteFile replaces the contents of a file. Implementations must not
	// leave a partially written file behind if the write is interrupted.
	WriteFile(path string, data []byte) error

	// Remove deletes a file.
	Remove(path string) error

	// FindSidecars walks the root recursively and returns the relative paths
	// of every sidecar file, skipping ignored paths.
	FindSidecars() ([]string, error)
}

// MIMEResolver guesses a content type for a tracked file.
// It returns nil when no guess can be made; the value is only displayed.
type MIMEResolver interface {
	Resolve(path string) *string
}
