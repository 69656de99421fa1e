package biji

import (
	"fmt"
	"sort"
)

// Report is the outcome of a scan. The four sets are disjoint; a file whose
// sidecar and index row agree appears in none of them.
type Report struct {
	// FileMissing lists sidecars whose tracked file no longer exists.
	FileMissing []string
	// NewFile lists files with a sidecar but no index row.
	NewFile []string
	// Outdated lists files whose sidecar version is newer than the index row.
	Outdated []string
	// NoSidecar lists index rows whose sidecar does not exist.
	NoSidecar []string
}

// Empty reports whether the scan found nothing to resolve.
func (r *Report) Empty() bool {
	return len(r.FileMissing) == 0 && len(r.NewFile) == 0 &&
		len(r.Outdated) == 0 && len(r.NoSidecar) == 0
}

// Resolution counts what a batch resolution changed.
type Resolution struct {
	SidecarsDeleted int
	Added           int
	Updated         int
	RowsDeleted     int
}

// SyncAction describes what SyncRecord did to the index.
type SyncAction int

const (
	// SyncNone means the index already matched the sidecar.
	SyncNone SyncAction = iota
	// SyncInserted means a new row was inserted.
	SyncInserted
	// SyncUpdated means an existing row was refreshed.
	SyncUpdated
)

// String returns a human-readable representation of the action.
func (a SyncAction) String() string {
	switch a {
	case SyncNone:
		return "none"
	case SyncInserted:
		return "inserted"
	case SyncUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// Reconciler detects divergence between sidecars, the index, and the
// filesystem, and applies the batch operations that resolve it.
// Scan only classifies; nothing is changed until a resolver is called.
type Reconciler struct {
	sidecars *SidecarStore
	index    Index
	fsmgr    FilesystemManager
	logger   Logger
}

// NewReconciler creates a Reconciler with the provided dependencies.
func NewReconciler(sidecars *SidecarStore, index Index, fsmgr FilesystemManager, logger Logger) *Reconciler {
	return &Reconciler{
		sidecars: sidecars,
		index:    index,
		fsmgr:    fsmgr,
		logger:   logger,
	}
}

// Scan walks the sidecars on disk and the rows in the index independently
// and classifies every divergence it finds.
func (r *Reconciler) Scan() (*Report, error) {
	report := &Report{}

	sidecarPaths, err := r.fsmgr.FindSidecars()
	if err != nil {
		return nil, fmt.Errorf("finding sidecars: %w", err)
	}

	for _, sp := range sidecarPaths {
		p, ok := TrackedPath(sp)
		if !ok {
			continue
		}

		exists, err := r.fsmgr.Exists(p)
		if err != nil {
			return nil, fmt.Errorf("checking %s: %w", p, err)
		}
		if !exists {
			report.FileMissing = append(report.FileMissing, p)
			continue
		}

		rec, err := r.sidecars.Load(p)
		if err != nil {
			return nil, &SidecarError{Path: p, Err: err}
		}

		mtime, found, err := r.index.IndexMTime(p)
		if err != nil {
			return nil, fmt.Errorf("looking up %s: %w", p, err)
		}
		if !found {
			report.NewFile = append(report.NewFile, p)
			continue
		}
		if IsNewer(rec.BijiMTime, mtime) {
			r.logger.Debug("record outdated", "path", p, "index", mtime, "sidecar", rec.BijiMTime)
			report.Outdated = append(report.Outdated, p)
		}
	}

	rows, err := r.index.AllFilepaths()
	if err != nil {
		return nil, fmt.Errorf("listing index rows: %w", err)
	}
	for _, p := range rows {
		ok, err := r.sidecars.Exists(p)
		if err != nil {
			return nil, err
		}
		if !ok {
			report.NoSidecar = append(report.NoSidecar, p)
		}
	}

	sort.Strings(report.FileMissing)
	sort.Strings(report.NewFile)
	sort.Strings(report.Outdated)
	sort.Strings(report.NoSidecar)

	r.logger.Info("scan complete",
		"file_missing", len(report.FileMissing),
		"new_file", len(report.NewFile),
		"outdated", len(report.Outdated),
		"no_sidecar", len(report.NoSidecar))
	return report, nil
}

// DeleteGhostSidecars deletes the sidecars of files that no longer exist.
// An index row left behind for such a file is deleted too, since it would
// have no sidecar backing it.
func (r *Reconciler) DeleteGhostSidecars(paths []string) (int, error) {
	count := 0
	for _, p := range paths {
		if err := r.sidecars.Remove(p); err != nil {
			return count, err
		}
		_, found, err := r.index.IndexMTime(p)
		if err != nil {
			return count, fmt.Errorf("looking up %s: %w", p, err)
		}
		if found {
			if err := r.index.DeleteFile(p); err != nil {
				return count, fmt.Errorf("deleting row %s: %w", p, err)
			}
		}
		count++
	}
	return count, nil
}

// AddNewFiles inserts index rows and tag links for files that have a
// sidecar but no row.
func (r *Reconciler) AddNewFiles(paths []string) (int, error) {
	count := 0
	for _, p := range paths {
		rec, err := r.sidecars.Load(p)
		if err != nil {
			return count, err
		}
		if err := r.insertRecord(rec); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// UpdateOutdated refreshes index rows whose sidecar has a newer version.
func (r *Reconciler) UpdateOutdated(paths []string) (int, error) {
	count := 0
	for _, p := range paths {
		rec, err := r.sidecars.Load(p)
		if err != nil {
			return count, err
		}
		if err := r.updateRecord(rec); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// DeleteOrphanRows deletes index rows that have no sidecar. Tag links go
// with them by cascade.
func (r *Reconciler) DeleteOrphanRows(paths []string) (int, error) {
	count := 0
	for _, p := range paths {
		if err := r.index.DeleteFile(p); err != nil {
			return count, fmt.Errorf("deleting row %s: %w", p, err)
		}
		r.logger.Info("index row deleted", "path", p)
		count++
	}
	return count, nil
}

// SyncRecord brings the index in line with rec: a missing row is inserted,
// a row with an older version is updated, anything else is left alone.
func (r *Reconciler) SyncRecord(rec *Record) (SyncAction, error) {
	mtime, found, err := r.index.IndexMTime(rec.Filepath)
	if err != nil {
		return SyncNone, fmt.Errorf("looking up %s: %w", rec.Filepath, err)
	}
	if !found {
		if err := r.insertRecord(rec); err != nil {
			return SyncNone, err
		}
		return SyncInserted, nil
	}
	if IsNewer(rec.BijiMTime, mtime) {
		if err := r.updateRecord(rec); err != nil {
			return SyncNone, err
		}
		return SyncUpdated, nil
	}
	return SyncNone, nil
}

// Sync scans and resolves only new and outdated files. It never deletes
// sidecars or rows; the returned report still lists those candidates.
func (r *Reconciler) Sync() (*Report, *Resolution, error) {
	report, err := r.Scan()
	if err != nil {
		return nil, nil, err
	}

	res := &Resolution{}
	if res.Added, err = r.AddNewFiles(report.NewFile); err != nil {
		return report, res, fmt.Errorf("adding new files: %w", err)
	}
	if res.Updated, err = r.UpdateOutdated(report.Outdated); err != nil {
		return report, res, fmt.Errorf("updating outdated files: %w", err)
	}
	return report, res, nil
}

// ResolveAll applies every resolution to a report.
func (r *Reconciler) ResolveAll(report *Report) (*Resolution, error) {
	res := &Resolution{}
	var err error

	if res.SidecarsDeleted, err = r.DeleteGhostSidecars(report.FileMissing); err != nil {
		return res, fmt.Errorf("deleting sidecars: %w", err)
	}
	if res.Added, err = r.AddNewFiles(report.NewFile); err != nil {
		return res, fmt.Errorf("adding new files: %w", err)
	}
	if res.Updated, err = r.UpdateOutdated(report.Outdated); err != nil {
		return res, fmt.Errorf("updating outdated files: %w", err)
	}
	if res.RowsDeleted, err = r.DeleteOrphanRows(report.NoSidecar); err != nil {
		return res, fmt.Errorf("deleting orphan rows: %w", err)
	}
	return res, nil
}

// insertRecord inserts the row, its tags, and its links as one batch.
func (r *Reconciler) insertRecord(rec *Record) error {
	err := r.writeBatch(func() error {
		if err := r.index.InsertFile(rec); err != nil {
			return fmt.Errorf("inserting %s: %w", rec.Filepath, err)
		}
		return r.linkTags(rec)
	})
	if err != nil {
		return err
	}
	r.logger.Info("index row added", "path", rec.Filepath, "tags", len(rec.Tags))
	return nil
}

// updateRecord refreshes the row and replaces its links in full.
func (r *Reconciler) updateRecord(rec *Record) error {
	err := r.writeBatch(func() error {
		if err := r.index.UpdateFile(rec); err != nil {
			return fmt.Errorf("updating %s: %w", rec.Filepath, err)
		}
		old, err := r.index.TagsForFile(rec.Filepath)
		if err != nil {
			return fmt.Errorf("reading tags of %s: %w", rec.Filepath, err)
		}
		for _, tag := range old {
			if err := r.index.UnlinkTag(tag, rec.Filepath); err != nil {
				return fmt.Errorf("unlinking %q from %s: %w", tag, rec.Filepath, err)
			}
		}
		return r.linkTags(rec)
	})
	if err != nil {
		return err
	}
	r.logger.Info("index row updated", "path", rec.Filepath, "mtime", rec.BijiMTime)
	return nil
}

func (r *Reconciler) linkTags(rec *Record) error {
	if err := r.index.InsertTags(rec.Tags); err != nil {
		return fmt.Errorf("inserting tags of %s: %w", rec.Filepath, err)
	}
	for _, tag := range rec.Tags {
		if err := r.index.LinkTag(tag, rec.Filepath); err != nil {
			return fmt.Errorf("linking %q to %s: %w", tag, rec.Filepath, err)
		}
	}
	return nil
}

// writeBatch runs fn and commits. On failure the pending batch is rolled
// back so the next commit does not carry half of this one.
func (r *Reconciler) writeBatch(fn func() error) error {
	if err := fn(); err != nil {
		if rbErr := r.index.Rollback(); rbErr != nil {
			r.logger.Error("rollback failed", "error", rbErr)
		}
		return err
	}
	if err := r.index.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}
