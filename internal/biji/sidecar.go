package biji

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// SidecarSuffix is appended to a tracked file's path to name its sidecar.
const SidecarSuffix = ".biji.json"

// SidecarPath returns the sidecar path for a tracked file.
func SidecarPath(filepath string) string {
	return filepath + SidecarSuffix
}

// TrackedPath returns the tracked file path for a sidecar path.
func TrackedPath(sidecarPath string) (string, bool) {
	p, ok := strings.CutSuffix(sidecarPath, SidecarSuffix)
	if !ok || p == "" {
		return "", false
	}
	return p, true
}

// SidecarStore constructs, loads, and persists Records through a
// FilesystemManager. It never touches the index.
type SidecarStore struct {
	fsmgr  FilesystemManager
	mime   MIMEResolver
	clock  Clock
	logger Logger
}

// NewSidecarStore creates a SidecarStore with the provided dependencies.
func NewSidecarStore(fsmgr FilesystemManager, mime MIMEResolver, clock Clock, logger Logger) *SidecarStore {
	return &SidecarStore{
		fsmgr:  fsmgr,
		mime:   mime,
		clock:  clock,
		logger: logger,
	}
}

// Now returns the current time as a timestamp string.
func (s *SidecarStore) Now() string {
	return FormatTimestamp(s.clock.Now())
}

// New builds a fresh record for an existing file. Nothing is written.
func (s *SidecarStore) New(filepath string) (*Record, error) {
	info, err := s.fsmgr.Stat(filepath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("file %s: %w", filepath, ErrNotFound)
		}
		return nil, fmt.Errorf("stat %s: %w", filepath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory: %w", filepath, ErrInvalidArgument)
	}

	name, suffix := splitName(filepath)
	now := s.Now()
	return &Record{
		Filepath:  filepath,
		Filename:  name,
		Suffix:    suffix,
		Mimetype:  s.mime.Resolve(filepath),
		Filesize:  info.Size(),
		UpdatedAt: FormatTimestamp(info.ModTime()),
		BackupAt:  "",
		BijiCTime: now,
		BijiMTime: now,
		Tags:      []string{},
	}, nil
}

// Load reads the sidecar of filepath and overlays it onto a fresh record.
// If the sidecar names a different path (the pair was moved together), the
// path is corrected and the sidecar rewritten.
func (s *SidecarStore) Load(filepath string) (*Record, error) {
	data, err := s.fsmgr.ReadFile(SidecarPath(filepath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("sidecar for %s: %w", filepath, ErrNotFound)
		}
		return nil, fmt.Errorf("reading sidecar for %s: %w", filepath, err)
	}

	fields, err := decodeSidecar(data)
	if err != nil {
		return nil, fmt.Errorf("decoding sidecar for %s: %w", filepath, err)
	}

	rec, err := s.New(filepath)
	if err != nil {
		return nil, err
	}
	fields.overlay(rec)

	if fields.Filepath != nil && *fields.Filepath != filepath {
		s.logger.Info("sidecar path corrected", "from", *fields.Filepath, "to", filepath)
		if err := s.Persist(rec); err != nil {
			return nil, fmt.Errorf("correcting sidecar path: %w", err)
		}
	}

	return rec, nil
}

// LoadOrNew loads the sidecar of filepath if there is one, otherwise it
// constructs a new record. existed reports which of the two happened.
func (s *SidecarStore) LoadOrNew(filepath string) (rec *Record, existed bool, err error) {
	existed, err = s.Exists(filepath)
	if err != nil {
		return nil, false, err
	}
	if existed {
		rec, err = s.Load(filepath)
	} else {
		rec, err = s.New(filepath)
	}
	if err != nil {
		return nil, false, err
	}
	return rec, existed, nil
}

// Persist writes the record to its sidecar, replacing any previous version.
func (s *SidecarStore) Persist(rec *Record) error {
	data, err := rec.Encode()
	if err != nil {
		return err
	}
	if err := s.fsmgr.WriteFile(SidecarPath(rec.Filepath), data); err != nil {
		return fmt.Errorf("writing sidecar for %s: %w", rec.Filepath, err)
	}
	s.logger.Debug("sidecar written", "path", rec.Filepath, "mtime", rec.BijiMTime)
	return nil
}

// Exists reports whether filepath has a sidecar.
func (s *SidecarStore) Exists(filepath string) (bool, error) {
	ok, err := s.fsmgr.Exists(SidecarPath(filepath))
	if err != nil {
		return false, fmt.Errorf("checking sidecar for %s: %w", filepath, err)
	}
	return ok, nil
}

// Remove deletes the sidecar of filepath.
func (s *SidecarStore) Remove(filepath string) error {
	if err := s.fsmgr.Remove(SidecarPath(filepath)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("sidecar for %s: %w", filepath, ErrNotFound)
		}
		return fmt.Errorf("removing sidecar for %s: %w", filepath, err)
	}
	s.logger.Info("sidecar removed", "path", filepath)
	return nil
}
