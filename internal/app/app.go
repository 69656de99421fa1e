package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"biji-go/internal/biji"
	"biji-go/internal/config"
	"biji-go/internal/database"
	"biji-go/internal/fs"
	"biji-go/internal/watch"
)

// BijiApp is the application layer between the CLI and the biji core.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw command-line paths, and owns the index handle until Close.
type BijiApp struct {
	cfg        *config.Config
	fsmgr      *fs.OSFilesystemManager
	index      *database.SQLiteIndex
	sidecars   *biji.SidecarStore
	reconciler *biji.Reconciler
	tags       *biji.TagManager
	logger     biji.Logger
	op         *Operation
	logCloser  io.Closer
}

// NewBijiApp creates a fully wired BijiApp over an existing index.
// operation and args identify the CLI command being run.
// The caller must call Close when done.
func NewBijiApp(cfg *config.Config, operation string, args []string) (*BijiApp, error) {
	return newBijiApp(cfg, operation, args, database.OpenIndexFromConfig)
}

// InitBijiApp is NewBijiApp for a root that has no index yet. The index is
// created first and fails with biji.ErrAlreadyExists if one is present.
func InitBijiApp(cfg *config.Config, operation string, args []string) (*BijiApp, error) {
	return newBijiApp(cfg, operation, args, database.CreateIndexFromConfig)
}

type indexOpener func(config.DatabaseConfig, string, biji.Clock) (*database.SQLiteIndex, error)

func newBijiApp(cfg *config.Config, operation string, args []string, open indexOpener) (*BijiApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	clock := biji.RealClock{}
	op := NewOperation(operation, args, biji.UUIDGenerator{}, clock)

	slogger, logCloser, err := newLogger(cfg.LogDir, cfg.Log, op.ID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	fsmgr, err := fs.NewOSFilesystemManager(cfg.Root, cfg.Filesystem.Ignore)
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("opening root: %w", err)
	}

	index, err := open(cfg.Database, fsmgr.Root(), clock)
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("opening index: %w", err)
	}

	sidecars := biji.NewSidecarStore(fsmgr, fs.NewMIMEResolver(fsmgr), clock, logger)
	reconciler := biji.NewReconciler(sidecars, index, fsmgr, logger)

	logger.Debug("operation started", "operation", operation, "root", fsmgr.Root(), "index", index.Path())
	return &BijiApp{
		cfg:        cfg,
		fsmgr:      fsmgr,
		index:      index,
		sidecars:   sidecars,
		reconciler: reconciler,
		tags:       biji.NewTagManager(sidecars, index, reconciler, logger),
		logger:     logger,
		op:         op,
		logCloser:  logCloser,
	}, nil
}

// Root returns the absolute tracked root.
func (a *BijiApp) Root() string {
	return a.fsmgr.Root()
}

// IndexPath returns the location of the index file.
func (a *BijiApp) IndexPath() string {
	return a.index.Path()
}

// Fail marks the running operation as failed; the outcome is logged on Close.
func (a *BijiApp) Fail(err error) {
	a.op.Fail(err)
}

func (a *BijiApp) relativePaths(rawPaths []string) ([]string, error) {
	rel := make([]string, 0, len(rawPaths))
	for _, raw := range rawPaths {
		p, err := a.fsmgr.Relative(raw)
		if err != nil {
			return nil, fmt.Errorf("resolving path: %w", err)
		}
		rel = append(rel, p)
	}
	return rel, nil
}

// Tag applies a tag delta to the given files.
func (a *BijiApp) Tag(rawPaths, removed, added []string) (*biji.DeltaResult, error) {
	files, err := a.relativePaths(rawPaths)
	if err != nil {
		return nil, err
	}
	return a.tags.ApplyTagDelta(files, removed, added)
}

// CommonTags returns the tags shared by every given file and the union of
// their tags.
func (a *BijiApp) CommonTags(rawPaths []string) (common, all []string, err error) {
	files, err := a.relativePaths(rawPaths)
	if err != nil {
		return nil, nil, err
	}
	return a.tags.CommonTags(files)
}

// Tag list orders accepted by ListTags.
const (
	SortByCount  = "count"
	SortByRecent = "recent"
	SortByAlpha  = "alpha"
)

// ListTags returns every tag with its file count in the requested order.
func (a *BijiApp) ListTags(order string) ([]biji.TagCount, error) {
	byCount, err := a.index.TagsByCount()
	if err != nil {
		return nil, err
	}

	var names []string
	switch order {
	case "", SortByCount:
		return byCount, nil
	case SortByRecent:
		names, err = a.index.TagsByRecency()
	case SortByAlpha:
		names, err = a.index.TagsAlphabetical()
	default:
		return nil, fmt.Errorf("unknown sort order %q: %w", order, biji.ErrInvalidArgument)
	}
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(byCount))
	for _, tc := range byCount {
		counts[tc.Tag] = tc.Count
	}
	result := make([]biji.TagCount, 0, len(names))
	for _, n := range names {
		result = append(result, biji.TagCount{Tag: n, Count: counts[n]})
	}
	return result, nil
}

func (a *BijiApp) RenameTag(oldTag, newTag string) error {
	return a.tags.RenameTag(oldTag, newTag)
}

func (a *BijiApp) DeleteTag(tag string) error {
	return a.tags.DeleteTag(tag)
}

// PruneTags deletes tags that no file links to and returns them.
func (a *BijiApp) PruneTags() ([]string, error) {
	return a.tags.PruneOrphanTags()
}

// FilesForTag returns the root-relative paths of files carrying tag.
func (a *BijiApp) FilesForTag(tag string) ([]string, error) {
	return a.index.FilesForTag(tag)
}

// ListFiles returns every indexed file.
func (a *BijiApp) ListFiles() ([]string, error) {
	return a.index.AllFilepaths()
}

// RecentFiles returns indexed files whose tags changed at or after since,
// newest first.
func (a *BijiApp) RecentFiles(since time.Time) ([]string, error) {
	return a.index.FilesModifiedSince(biji.FormatTimestamp(since))
}

// FileDetails is what `show` prints for a single file.
type FileDetails struct {
	Record     *biji.Record // nil when the file has no sidecar
	Indexed    bool
	IndexMTime string
	IndexTags  []string
}

// InSync reports whether the index row matches the sidecar.
func (d *FileDetails) InSync() bool {
	if d.Record == nil {
		return !d.Indexed
	}
	return d.Indexed && d.IndexMTime == d.Record.BijiMTime
}

// Show loads the sidecar and the index view of one file.
func (a *BijiApp) Show(rawPath string) (*FileDetails, error) {
	files, err := a.relativePaths([]string{rawPath})
	if err != nil {
		return nil, err
	}
	p := files[0]

	details := &FileDetails{}
	rec, err := a.sidecars.Load(p)
	switch {
	case err == nil:
		details.Record = rec
	case errors.Is(err, biji.ErrNotFound):
	default:
		return nil, err
	}

	mtime, found, err := a.index.IndexMTime(p)
	if err != nil {
		return nil, err
	}
	details.Indexed = found
	details.IndexMTime = mtime
	if found {
		if details.IndexTags, err = a.index.TagsForFile(p); err != nil {
			return nil, err
		}
	}
	if details.Record == nil && !found {
		return nil, fmt.Errorf("%s is not tracked: %w", p, biji.ErrNotFound)
	}
	return details, nil
}

// Scan classifies every divergence between sidecars and the index.
func (a *BijiApp) Scan() (*biji.Report, error) {
	return a.reconciler.Scan()
}

// Resolve applies every resolution to report.
func (a *BijiApp) Resolve(report *biji.Report) (*biji.Resolution, error) {
	return a.reconciler.ResolveAll(report)
}

// Sync indexes new and outdated sidecars without deleting anything.
func (a *BijiApp) Sync() (*biji.Report, *biji.Resolution, error) {
	return a.reconciler.Sync()
}

// CleanGhosts deletes sidecars whose tracked file is gone.
func (a *BijiApp) CleanGhosts() ([]string, error) {
	report, err := a.reconciler.Scan()
	if err != nil {
		return nil, err
	}
	if _, err := a.reconciler.DeleteGhostSidecars(report.FileMissing); err != nil {
		return nil, err
	}
	return report.FileMissing, nil
}

// CleanOrphans deletes index rows whose sidecar is gone.
func (a *BijiApp) CleanOrphans() ([]string, error) {
	report, err := a.reconciler.Scan()
	if err != nil {
		return nil, err
	}
	if _, err := a.reconciler.DeleteOrphanRows(report.NoSidecar); err != nil {
		return nil, err
	}
	return report.NoSidecar, nil
}

// BackupIndex writes a consistent copy of the index to dest.
func (a *BijiApp) BackupIndex(dest string) error {
	if err := a.index.BackupTo(dest); err != nil {
		return err
	}
	a.logger.Info("index backed up", "dest", dest)
	return nil
}

// Watch re-syncs the index whenever sidecars change, until ctx is done.
func (a *BijiApp) Watch(ctx context.Context) error {
	debounce, err := a.cfg.DebounceInterval()
	if err != nil {
		return err
	}

	w, err := watch.NewSidecarWatcher(a.fsmgr)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		w.Stop()
		return err
	}
	defer w.Stop()

	a.logger.Info("watching", "root", a.fsmgr.Root(), "debounce", debounce.String())
	return watch.NewLoop(a.reconciler, debounce, a.logger).Run(ctx, w.Events(), w.Errors())
}

// Close logs the operation outcome and releases the index and the log file.
// A batch still pending in the index is discarded.
func (a *BijiApp) Close() error {
	var firstErr error

	fields := a.op.LogFields()
	if a.op.Err != nil {
		a.logger.Error("operation finished", fields...)
	} else {
		a.logger.Debug("operation finished", fields...)
	}

	if err := a.index.Close(); err != nil {
		firstErr = fmt.Errorf("closing index: %w", err)
	}
	if a.logCloser != nil {
		a.logCloser.Close()
	}
	return firstErr
}
