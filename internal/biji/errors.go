package biji

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an index or sidecar file that is expected
	// to exist does not. Callers usually react by initializing and retrying.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when creating something that is already
	// present, such as an index file or a tag name.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidArgument marks a programmer error, e.g. an empty tag name.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrCorruptSidecar is returned when a sidecar file cannot be decoded.
	ErrCorruptSidecar = errors.New("corrupt sidecar")
)

// SidecarError names the tracked file whose sidecar could not be read
// during a scan. It wraps the underlying cause, typically ErrCorruptSidecar.
type SidecarError struct {
	Path string
	Err  error
}

func (e *SidecarError) Error() string {
	return fmt.Sprintf("sidecar of %s: %v", e.Path, e.Err)
}

func (e *SidecarError) Unwrap() error { return e.Err }
