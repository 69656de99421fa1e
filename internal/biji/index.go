package biji

// TagCount pairs a tag with the number of files linked to it.
type TagCount struct {
	Tag   string
	Count int
}

// Index is the relational cache of sidecar records.
//
// Mutations other than DeleteFile, DeleteTag, and RenameTag join a pending
// batch that is made durable by Commit. A crash before Commit loses the
// batch; re-running reconciliation restores consistency.
type Index interface {
	// File rows

	// InsertFile adds a row for rec. Inserting an existing filepath fails
	// with the driver's constraint error.
	InsertFile(rec *Record) error

	// UpdateFile rewrites the metadata columns of rec's row. Updating an
	// absent filepath affects nothing and is not an error.
	UpdateFile(rec *Record) error

	// UpdateFileMTime pushes only the logical version of a row.
	UpdateFileMTime(filepath, mtime string) error

	// DeleteFile removes a row and its tag links, committing immediately.
	DeleteFile(filepath string) error

	// IndexMTime returns the stored logical version of filepath.
	// found is false when the index has no row for it.
	IndexMTime(filepath string) (mtime string, found bool, err error)

	// AllFilepaths returns every indexed filepath.
	AllFilepaths() ([]string, error)

	// FilesModifiedSince returns filepaths whose logical version is at or
	// after since, newest first.
	FilesModifiedSince(since string) ([]string, error)

	// Tags

	// InsertTags adds tags that are not yet known, stamping usedAt on
	// first insertion only.
	InsertTags(tags []string) error

	// TagUsedAt returns the last activity time of a tag.
	// found is false when the tag does not exist.
	TagUsedAt(tag string) (usedAt string, found bool, err error)

	// LinkTag and UnlinkTag edit tag links and touch the tag's usedAt.
	LinkTag(tag, filepath string) error
	UnlinkTag(tag, filepath string) error

	// TagsForFile returns the tags linked to filepath, sorted.
	TagsForFile(filepath string) ([]string, error)

	// FilesForTag returns the filepaths linked to tag, sorted.
	FilesForTag(tag string) ([]string, error)

	// TagsByCount lists unused tags with a count of 0 first, followed by
	// used tags in ascending order of usage.
	TagsByCount() ([]TagCount, error)

	// TagsByRecency lists tags by usedAt, most recent first.
	TagsByRecency() ([]string, error)

	// TagsAlphabetical lists tags in ascending order.
	TagsAlphabetical() ([]string, error)

	// UnusedTags lists tags that have no links.
	UnusedTags() ([]string, error)

	// DeleteTag removes a tag and its links, committing immediately.
	DeleteTag(tag string) error

	// RenameTag renames a tag; links follow by cascade. Commits immediately.
	RenameTag(oldTag, newTag string) error

	// Batching

	// Commit makes the pending batch durable.
	Commit() error

	// Rollback discards the pending batch.
	Rollback() error

	// Close releases the connection. A pending batch is discarded.
	Close() error
}
