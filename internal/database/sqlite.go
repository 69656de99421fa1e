package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"

	"biji-go/internal/biji"
	"biji-go/internal/database/migrations"
	"biji-go/internal/database/sqlc"
)

// IndexFileName is the file name of the index inside the tracked root.
const IndexFileName = "biji_database.db"

// SQLiteIndex implements biji.Index on SQLite.
//
// Writes join a transaction that is opened lazily on the first mutation and
// closed by Commit or Rollback. While it is open every query, reads
// included, goes through it so the index sees its own pending writes.
type SQLiteIndex struct {
	db      *sql.DB
	queries *sqlc.Queries
	tx      *sql.Tx
	clock   biji.Clock
	path    string
}

var _ biji.Index = (*SQLiteIndex)(nil)

// CreateIndex creates a new index file at path with the current schema.
// It fails with biji.ErrAlreadyExists if the file is present.
func CreateIndex(path string, clock biji.Clock) (*SQLiteIndex, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("index %s: %w", path, biji.ErrAlreadyExists)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("checking index file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		os.Remove(path)
		return nil, err
	}
	return newSQLiteIndex(db, path, clock), nil
}

// OpenIndex opens an existing index file. It fails with biji.ErrNotFound
// if the file is missing and with a migration error if the schema is not
// current.
func OpenIndex(path string, clock biji.Clock) (*SQLiteIndex, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("index %s: %w", path, biji.ErrNotFound)
		}
		return nil, fmt.Errorf("checking index file: %w", err)
	}

	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.CheckDBMigrationStatus(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("index %s: %w", path, err)
	}
	return newSQLiteIndex(db, path, clock), nil
}

// NewMemoryIndex returns a migrated in-memory index.
func NewMemoryIndex(clock biji.Clock) (*SQLiteIndex, error) {
	db, err := OpenConnection(":memory:")
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return newSQLiteIndex(db, ":memory:", clock), nil
}

func newSQLiteIndex(db *sql.DB, path string, clock biji.Clock) *SQLiteIndex {
	if clock == nil {
		clock = biji.RealClock{}
	}
	return &SQLiteIndex{
		db:      db,
		queries: sqlc.New(db),
		clock:   clock,
		path:    path,
	}
}

// OpenConnection opens a SQLite connection with foreign keys enabled.
// The pool holds a single connection: PRAGMAs are per connection and an
// in-memory database exists only on the connection that created it.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return db, nil
}

// IsConstraintViolation reports whether err is a SQLite constraint error,
// such as inserting a filepath that is already indexed.
func IsConstraintViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.Code == sqlite3.ErrConstraint
}

func isDuplicateKey(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) || se.Code != sqlite3.ErrConstraint {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || se.ExtendedCode == sqlite3.ErrConstraintUnique
}

// wrapWrite adds context to a failed write. Duplicate keys also match
// biji.ErrAlreadyExists; the driver error stays reachable.
func wrapWrite(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if isDuplicateKey(err) {
		return fmt.Errorf("%s: %w: %w", msg, biji.ErrAlreadyExists, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// current returns the queries bound to the pending batch, if any.
func (s *SQLiteIndex) current() *sqlc.Queries {
	if s.tx != nil {
		return s.queries.WithTx(s.tx)
	}
	return s.queries
}

// batch returns the queries bound to the pending batch, opening it first
// if needed.
func (s *SQLiteIndex) batch() (*sqlc.Queries, error) {
	if s.tx == nil {
		tx, err := s.db.BeginTx(context.Background(), nil)
		if err != nil {
			return nil, fmt.Errorf("beginning batch: %w", err)
		}
		s.tx = tx
	}
	return s.queries.WithTx(s.tx), nil
}

func (s *SQLiteIndex) now() string {
	return biji.FormatTimestamp(s.clock.Now())
}

func nullMimetype(rec *biji.Record) sql.NullString {
	if rec.Mimetype == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *rec.Mimetype, Valid: true}
}

// File rows

func (s *SQLiteIndex) InsertFile(rec *biji.Record) error {
	q, err := s.batch()
	if err != nil {
		return err
	}
	err = q.InsertBiji(context.Background(), sqlc.InsertBijiParams{
		Filepath:  rec.Filepath,
		Filename:  rec.Filename,
		Suffix:    rec.Suffix,
		Mimetype:  nullMimetype(rec),
		Filesize:  rec.Filesize,
		UpdatedAt: rec.UpdatedAt,
		BackupAt:  rec.BackupAt,
		BijiCTime: rec.BijiCTime,
		BijiMTime: rec.BijiMTime,
	})
	if err != nil {
		return wrapWrite(err, "inserting %s", rec.Filepath)
	}
	return nil
}

func (s *SQLiteIndex) UpdateFile(rec *biji.Record) error {
	q, err := s.batch()
	if err != nil {
		return err
	}
	err = q.UpdateBiji(context.Background(), sqlc.UpdateBijiParams{
		Filename:  rec.Filename,
		Suffix:    rec.Suffix,
		Mimetype:  nullMimetype(rec),
		Filesize:  rec.Filesize,
		UpdatedAt: rec.UpdatedAt,
		BackupAt:  rec.BackupAt,
		BijiCTime: rec.BijiCTime,
		BijiMTime: rec.BijiMTime,
		Filepath:  rec.Filepath,
	})
	if err != nil {
		return fmt.Errorf("updating %s: %w", rec.Filepath, err)
	}
	return nil
}

func (s *SQLiteIndex) UpdateFileMTime(filepath, mtime string) error {
	q, err := s.batch()
	if err != nil {
		return err
	}
	if err := q.UpdateBijiMTime(context.Background(), sqlc.UpdateBijiMTimeParams{
		BijiMTime: mtime,
		Filepath:  filepath,
	}); err != nil {
		return fmt.Errorf("updating mtime of %s: %w", filepath, err)
	}
	return nil
}

func (s *SQLiteIndex) DeleteFile(filepath string) error {
	q, err := s.batch()
	if err != nil {
		return err
	}
	if err := q.DeleteBiji(context.Background(), filepath); err != nil {
		return fmt.Errorf("deleting %s: %w", filepath, err)
	}
	return s.Commit()
}

func (s *SQLiteIndex) IndexMTime(filepath string) (string, bool, error) {
	mtime, err := s.current().GetBijiMTime(context.Background(), filepath)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading mtime of %s: %w", filepath, err)
	}
	return mtime, true, nil
}

func (s *SQLiteIndex) AllFilepaths() ([]string, error) {
	paths, err := s.current().ListFilepaths(context.Background())
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}
	return paths, nil
}

func (s *SQLiteIndex) FilesModifiedSince(since string) ([]string, error) {
	paths, err := s.current().ListFilepathsModifiedSince(context.Background(), since)
	if err != nil {
		return nil, fmt.Errorf("listing files modified since %s: %w", since, err)
	}
	return paths, nil
}

// Tags

func (s *SQLiteIndex) InsertTags(tags []string) error {
	q, err := s.batch()
	if err != nil {
		return err
	}
	ctx := context.Background()
	now := s.now()

	for _, tag := range biji.NormalizeTags(tags) {
		if _, err := q.GetTagUsedAt(ctx, tag); err == nil {
			continue
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("looking up tag %q: %w", tag, err)
		}
		if err := q.InsertTag(ctx, sqlc.InsertTagParams{Tag: tag, UsedAt: now}); err != nil {
			return fmt.Errorf("inserting tag %q: %w", tag, err)
		}
	}
	return nil
}

func (s *SQLiteIndex) TagUsedAt(tag string) (string, bool, error) {
	usedAt, err := s.current().GetTagUsedAt(context.Background(), tag)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("looking up tag %q: %w", tag, err)
	}
	return usedAt, true, nil
}

func (s *SQLiteIndex) LinkTag(tag, filepath string) error {
	q, err := s.batch()
	if err != nil {
		return err
	}
	ctx := context.Background()
	if err := q.InsertTagBiji(ctx, sqlc.InsertTagBijiParams{Tag: tag, Filepath: filepath}); err != nil {
		return wrapWrite(err, "linking %q to %s", tag, filepath)
	}
	if err := q.TouchTag(ctx, sqlc.TouchTagParams{UsedAt: s.now(), Tag: tag}); err != nil {
		return fmt.Errorf("touching tag %q: %w", tag, err)
	}
	return nil
}

func (s *SQLiteIndex) UnlinkTag(tag, filepath string) error {
	q, err := s.batch()
	if err != nil {
		return err
	}
	ctx := context.Background()
	if err := q.DeleteTagBiji(ctx, sqlc.DeleteTagBijiParams{Tag: tag, Filepath: filepath}); err != nil {
		return fmt.Errorf("unlinking %q from %s: %w", tag, filepath, err)
	}
	if err := q.TouchTag(ctx, sqlc.TouchTagParams{UsedAt: s.now(), Tag: tag}); err != nil {
		return fmt.Errorf("touching tag %q: %w", tag, err)
	}
	return nil
}

func (s *SQLiteIndex) TagsForFile(filepath string) ([]string, error) {
	tags, err := s.current().ListTagsForFile(context.Background(), filepath)
	if err != nil {
		return nil, fmt.Errorf("listing tags of %s: %w", filepath, err)
	}
	return tags, nil
}

func (s *SQLiteIndex) FilesForTag(tag string) ([]string, error) {
	paths, err := s.current().ListFilesForTag(context.Background(), tag)
	if err != nil {
		return nil, fmt.Errorf("listing files tagged %q: %w", tag, err)
	}
	return paths, nil
}

func (s *SQLiteIndex) TagsByCount() ([]biji.TagCount, error) {
	ctx := context.Background()
	q := s.current()

	unused, err := q.ListUnusedTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing unused tags: %w", err)
	}
	counts, err := q.ListTagCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting tags: %w", err)
	}

	result := make([]biji.TagCount, 0, len(unused)+len(counts))
	for _, tag := range unused {
		result = append(result, biji.TagCount{Tag: tag})
	}
	for _, c := range counts {
		result = append(result, biji.TagCount{Tag: c.Tag, Count: int(c.N)})
	}
	return result, nil
}

func (s *SQLiteIndex) TagsByRecency() ([]string, error) {
	tags, err := s.current().ListTagsByUsedAt(context.Background())
	if err != nil {
		return nil, fmt.Errorf("listing tags by recency: %w", err)
	}
	return tags, nil
}

func (s *SQLiteIndex) TagsAlphabetical() ([]string, error) {
	tags, err := s.current().ListTagsByName(context.Background())
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	return tags, nil
}

func (s *SQLiteIndex) UnusedTags() ([]string, error) {
	tags, err := s.current().ListUnusedTags(context.Background())
	if err != nil {
		return nil, fmt.Errorf("listing unused tags: %w", err)
	}
	return tags, nil
}

func (s *SQLiteIndex) DeleteTag(tag string) error {
	q, err := s.batch()
	if err != nil {
		return err
	}
	if err := q.DeleteTag(context.Background(), tag); err != nil {
		return fmt.Errorf("deleting tag %q: %w", tag, err)
	}
	return s.Commit()
}

func (s *SQLiteIndex) RenameTag(oldTag, newTag string) error {
	q, err := s.batch()
	if err != nil {
		return err
	}
	if err := q.RenameTag(context.Background(), sqlc.RenameTagParams{NewTag: newTag, OldTag: oldTag}); err != nil {
		return wrapWrite(err, "renaming tag %q to %q", oldTag, newTag)
	}
	return s.Commit()
}

// Batching

func (s *SQLiteIndex) Commit() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	return nil
}

func (s *SQLiteIndex) Rollback() error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("rolling back batch: %w", err)
	}
	return nil
}

// Path returns the database file path, or ":memory:".
func (s *SQLiteIndex) Path() string {
	return s.path
}

// BackupTo writes a consistent copy of the index to destPath using
// VACUUM INTO. The pending batch must be committed first.
func (s *SQLiteIndex) BackupTo(destPath string) error {
	if s.tx != nil {
		return fmt.Errorf("backup with uncommitted batch: %w", biji.ErrInvalidArgument)
	}
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up index to %s: %w", destPath, err)
	}
	return nil
}

// Close discards any pending batch and closes the connection.
func (s *SQLiteIndex) Close() error {
	if s.tx != nil {
		s.tx.Rollback()
		s.tx = nil
	}
	return s.db.Close()
}
