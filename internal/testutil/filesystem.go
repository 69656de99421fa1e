package testutil

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"biji-go/internal/biji"
)

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content     []byte
	Permissions fs.FileMode
	ModTime     time.Time
	IsDirectory bool
}

// MockFilesystemManager is an in-memory rooted filesystem for testing.
// Paths are root-relative and slash-separated, like the real manager.
type MockFilesystemManager struct {
	mu     sync.Mutex
	files  map[string]*MockFile
	writes map[string]int

	// WriteErr, when set, is returned by every WriteFile call.
	WriteErr error
}

// NewMockFilesystemManager creates a new mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files:  make(map[string]*MockFile),
		writes: make(map[string]int),
	}
}

// AddFile adds a file with a fixed modification time.
func (m *MockFilesystemManager) AddFile(p string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[p] = &MockFile{
		Content:     content,
		Permissions: 0644,
		ModTime:     time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

// AddDirectory adds a directory entry.
func (m *MockFilesystemManager) AddDirectory(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[p] = &MockFile{
		Permissions: 0755,
		ModTime:     time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		IsDirectory: true,
	}
}

// RemoveFile deletes a path behind the manager's back, as a user would.
func (m *MockFilesystemManager) RemoveFile(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, p)
}

// SetModTime changes a file's modification time.
func (m *MockFilesystemManager) SetModTime(p string, t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.files[p]; ok {
		f.ModTime = t
	}
}

// Content returns a file's bytes and whether it exists.
func (m *MockFilesystemManager) Content(p string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[p]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), f.Content...), true
}

// Writes returns how many times WriteFile succeeded for p.
func (m *MockFilesystemManager) Writes(p string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes[p]
}

func (m *MockFilesystemManager) Root() string {
	return "/mock"
}

func (m *MockFilesystemManager) Stat(p string) (fs.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[p]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: p, Err: fs.ErrNotExist}
	}
	mode := f.Permissions
	if f.IsDirectory {
		mode |= fs.ModeDir
	}
	return &mockFileInfo{
		name:    path.Base(p),
		size:    int64(len(f.Content)),
		mode:    mode,
		modTime: f.ModTime,
		isDir:   f.IsDirectory,
	}, nil
}

func (m *MockFilesystemManager) Exists(p string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[p]
	return ok, nil
}

func (m *MockFilesystemManager) ReadFile(p string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[p]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: p, Err: fs.ErrNotExist}
	}
	if f.IsDirectory {
		return nil, fmt.Errorf("read %s: is a directory", p)
	}
	return append([]byte(nil), f.Content...), nil
}

func (m *MockFilesystemManager) WriteFile(p string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.files[p] = &MockFile{
		Content:     append([]byte(nil), data...),
		Permissions: 0644,
		ModTime:     time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	m.writes[p]++
	return nil
}

func (m *MockFilesystemManager) Remove(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[p]; !ok {
		return &fs.PathError{Op: "remove", Path: p, Err: fs.ErrNotExist}
	}
	delete(m.files, p)
	return nil
}

func (m *MockFilesystemManager) FindSidecars() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var paths []string
	for p, f := range m.files {
		if !f.IsDirectory && strings.HasSuffix(p, biji.SidecarSuffix) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
	isDir   bool
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() any           { return nil }

// StubMIMEResolver maps lower-cased suffixes to content types.
type StubMIMEResolver struct {
	Types map[string]string
}

func NewStubMIMEResolver() *StubMIMEResolver {
	return &StubMIMEResolver{Types: map[string]string{
		".txt": "text/plain",
		".jpg": "image/jpeg",
		".png": "image/png",
	}}
}

func (r *StubMIMEResolver) Resolve(p string) *string {
	t, ok := r.Types[strings.ToLower(path.Ext(p))]
	if !ok {
		return nil
	}
	return &t
}

// Compile-time checks
var (
	_ biji.FilesystemManager = (*MockFilesystemManager)(nil)
	_ biji.MIMEResolver      = (*StubMIMEResolver)(nil)
)
