package database

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"biji-go/internal/biji"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)}
}

// newTestIndex creates an in-memory index with the schema applied.
func newTestIndex(t *testing.T) (*SQLiteIndex, *testClock) {
	t.Helper()

	clock := newTestClock()
	idx, err := NewMemoryIndex(clock)
	if err != nil {
		t.Fatalf("failed to create index: %v", err)
	}
	t.Cleanup(func() {
		idx.Close()
	})
	return idx, clock
}

func testRecord(path, mtime string, tags ...string) *biji.Record {
	mime := "text/plain"
	return &biji.Record{
		Filepath:  path,
		Filename:  filepath.Base(path),
		Suffix:    filepath.Ext(path),
		Mimetype:  &mime,
		Filesize:  12,
		UpdatedAt: "2024-01-01T00:00:00.000000",
		BijiCTime: "2024-01-01T00:00:00.000000",
		BijiMTime: mtime,
		Tags:      tags,
	}
}

func TestSQLiteIndex_InsertFile(t *testing.T) {
	t.Run("inserted row is visible before commit", func(t *testing.T) {
		idx, _ := newTestIndex(t)

		if err := idx.InsertFile(testRecord("a.txt", "2024-01-02T00:00:00.000000")); err != nil {
			t.Fatalf("InsertFile() error = %v", err)
		}

		mtime, found, err := idx.IndexMTime("a.txt")
		if err != nil {
			t.Fatalf("IndexMTime() error = %v", err)
		}
		if !found || mtime != "2024-01-02T00:00:00.000000" {
			t.Errorf("IndexMTime() = %q, %v; want row", mtime, found)
		}
	})

	t.Run("duplicate filepath is a constraint violation", func(t *testing.T) {
		idx, _ := newTestIndex(t)

		if err := idx.InsertFile(testRecord("a.txt", "m1")); err != nil {
			t.Fatalf("InsertFile() error = %v", err)
		}
		err := idx.InsertFile(testRecord("A.TXT", "m2"))
		if err == nil {
			t.Fatal("InsertFile() expected error for duplicate filepath")
		}
		if !IsConstraintViolation(err) {
			t.Errorf("IsConstraintViolation(%v) = false, want true", err)
		}
		if !errors.Is(err, biji.ErrAlreadyExists) {
			t.Errorf("InsertFile() error = %v, want ErrAlreadyExists", err)
		}
	})

	t.Run("other constraint failures are not ErrAlreadyExists", func(t *testing.T) {
		idx, _ := newTestIndex(t)

		err := idx.InsertFile(testRecord("a.txt", ""))
		if !IsConstraintViolation(err) {
			t.Errorf("InsertFile() with empty bijiMTime error = %v, want constraint violation", err)
		}
		if errors.Is(err, biji.ErrAlreadyExists) {
			t.Errorf("InsertFile() error = %v, must not be ErrAlreadyExists", err)
		}

		err = idx.LinkTag("nope", "missing.txt")
		if !IsConstraintViolation(err) {
			t.Errorf("LinkTag() to missing rows error = %v, want constraint violation", err)
		}
		if errors.Is(err, biji.ErrAlreadyExists) {
			t.Errorf("LinkTag() error = %v, must not be ErrAlreadyExists", err)
		}
	})

	t.Run("null mimetype is stored", func(t *testing.T) {
		idx, _ := newTestIndex(t)
		rec := testRecord("noext", "m1")
		rec.Mimetype = nil

		if err := idx.InsertFile(rec); err != nil {
			t.Fatalf("InsertFile() error = %v", err)
		}
		if err := idx.Commit(); err != nil {
			t.Fatalf("Commit() error = %v", err)
		}
	})
}

func TestSQLiteIndex_FilepathIgnoresCase(t *testing.T) {
	idx, _ := newTestIndex(t)

	if err := idx.InsertFile(testRecord("Photo.jpg", "m1")); err != nil {
		t.Fatalf("InsertFile() error = %v", err)
	}
	if err := idx.InsertTags([]string{"trip"}); err != nil {
		t.Fatalf("InsertTags() error = %v", err)
	}
	if err := idx.LinkTag("trip", "PHOTO.jpg"); err != nil {
		t.Fatalf("LinkTag() with other case error = %v", err)
	}
	if err := idx.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	mtime, found, err := idx.IndexMTime("PHOTO.JPG")
	if err != nil {
		t.Fatalf("IndexMTime() error = %v", err)
	}
	if !found || mtime != "m1" {
		t.Errorf("IndexMTime(PHOTO.JPG) = %q, %v; want m1, true", mtime, found)
	}

	err = idx.InsertFile(testRecord("photo.jpg", "m2"))
	if !IsConstraintViolation(err) {
		t.Errorf("InsertFile(photo.jpg) error = %v, want constraint violation", err)
	}
	if err := idx.Rollback(); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}

	tags, err := idx.TagsForFile("photo.JPG")
	if err != nil {
		t.Fatalf("TagsForFile() error = %v", err)
	}
	if !reflect.DeepEqual(tags, []string{"trip"}) {
		t.Errorf("TagsForFile(photo.JPG) = %v, want [trip]", tags)
	}

	if err := idx.DeleteFile("photo.jpg"); err != nil {
		t.Fatalf("DeleteFile() error = %v", err)
	}
	if _, found, _ := idx.IndexMTime("Photo.jpg"); found {
		t.Error("row survived DeleteFile with other case")
	}
	files, err := idx.FilesForTag("trip")
	if err != nil {
		t.Fatalf("FilesForTag() error = %v", err)
	}
	if len(files) != 0 {
		t.Errorf("FilesForTag(trip) = %v, want links removed by cascade", files)
	}
}

func TestSQLiteIndex_IndexMTime_Missing(t *testing.T) {
	idx, _ := newTestIndex(t)

	_, found, err := idx.IndexMTime("nope.txt")
	if err != nil {
		t.Fatalf("IndexMTime() error = %v", err)
	}
	if found {
		t.Error("IndexMTime() found = true for missing row")
	}
}

func TestSQLiteIndex_UpdateFile(t *testing.T) {
	idx, _ := newTestIndex(t)

	if err := idx.InsertFile(testRecord("a.txt", "m1")); err != nil {
		t.Fatalf("InsertFile() error = %v", err)
	}

	if err := idx.UpdateFile(testRecord("a.txt", "m2")); err != nil {
		t.Fatalf("UpdateFile() error = %v", err)
	}
	mtime, _, _ := idx.IndexMTime("a.txt")
	if mtime != "m2" {
		t.Errorf("mtime after UpdateFile = %q, want m2", mtime)
	}

	if err := idx.UpdateFileMTime("a.txt", "m3"); err != nil {
		t.Fatalf("UpdateFileMTime() error = %v", err)
	}
	mtime, _, _ = idx.IndexMTime("a.txt")
	if mtime != "m3" {
		t.Errorf("mtime after UpdateFileMTime = %q, want m3", mtime)
	}

	if err := idx.UpdateFile(testRecord("absent.txt", "m1")); err != nil {
		t.Errorf("UpdateFile() on absent row error = %v, want nil", err)
	}
}

func TestSQLiteIndex_DeleteFile(t *testing.T) {
	idx, _ := newTestIndex(t)

	if err := idx.InsertFile(testRecord("a.txt", "m1")); err != nil {
		t.Fatalf("InsertFile() error = %v", err)
	}
	if err := idx.InsertTags([]string{"trip"}); err != nil {
		t.Fatalf("InsertTags() error = %v", err)
	}
	if err := idx.LinkTag("trip", "a.txt"); err != nil {
		t.Fatalf("LinkTag() error = %v", err)
	}

	if err := idx.DeleteFile("a.txt"); err != nil {
		t.Fatalf("DeleteFile() error = %v", err)
	}

	// DeleteFile commits, so a rollback afterwards cannot bring the row back.
	if err := idx.Rollback(); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}

	if _, found, _ := idx.IndexMTime("a.txt"); found {
		t.Error("row still present after DeleteFile")
	}
	files, err := idx.FilesForTag("trip")
	if err != nil {
		t.Fatalf("FilesForTag() error = %v", err)
	}
	if len(files) != 0 {
		t.Errorf("FilesForTag() = %v, want links removed", files)
	}
}

func TestSQLiteIndex_Rollback(t *testing.T) {
	idx, _ := newTestIndex(t)

	if err := idx.InsertFile(testRecord("a.txt", "m1")); err != nil {
		t.Fatalf("InsertFile() error = %v", err)
	}
	if err := idx.Rollback(); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}

	paths, err := idx.AllFilepaths()
	if err != nil {
		t.Fatalf("AllFilepaths() error = %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("AllFilepaths() = %v, want empty after rollback", paths)
	}
}

func TestSQLiteIndex_InsertTags(t *testing.T) {
	idx, clock := newTestIndex(t)

	if err := idx.InsertTags([]string{"b", "a", "a"}); err != nil {
		t.Fatalf("InsertTags() error = %v", err)
	}
	first, found, err := idx.TagUsedAt("a")
	if err != nil || !found {
		t.Fatalf("TagUsedAt() = %q, %v, %v", first, found, err)
	}

	clock.advance(time.Hour)
	if err := idx.InsertTags([]string{"a"}); err != nil {
		t.Fatalf("InsertTags() error = %v", err)
	}
	again, _, _ := idx.TagUsedAt("a")
	if again != first {
		t.Errorf("usedAt changed on reinsert: %q -> %q", first, again)
	}

	tags, err := idx.TagsAlphabetical()
	if err != nil {
		t.Fatalf("TagsAlphabetical() error = %v", err)
	}
	if want := []string{"a", "b"}; !reflect.DeepEqual(tags, want) {
		t.Errorf("TagsAlphabetical() = %v, want %v", tags, want)
	}
}

func TestSQLiteIndex_LinkTag(t *testing.T) {
	t.Run("link touches usedAt", func(t *testing.T) {
		idx, clock := newTestIndex(t)
		if err := idx.InsertFile(testRecord("a.txt", "m1")); err != nil {
			t.Fatalf("InsertFile() error = %v", err)
		}
		if err := idx.InsertTags([]string{"trip"}); err != nil {
			t.Fatalf("InsertTags() error = %v", err)
		}
		before, _, _ := idx.TagUsedAt("trip")

		clock.advance(time.Minute)
		if err := idx.LinkTag("trip", "a.txt"); err != nil {
			t.Fatalf("LinkTag() error = %v", err)
		}
		after, _, _ := idx.TagUsedAt("trip")
		if !biji.IsNewer(after, before) {
			t.Errorf("usedAt %q not newer than %q after link", after, before)
		}

		tags, err := idx.TagsForFile("a.txt")
		if err != nil {
			t.Fatalf("TagsForFile() error = %v", err)
		}
		if !reflect.DeepEqual(tags, []string{"trip"}) {
			t.Errorf("TagsForFile() = %v, want [trip]", tags)
		}
	})

	t.Run("link to unknown tag violates foreign key", func(t *testing.T) {
		idx, _ := newTestIndex(t)
		if err := idx.InsertFile(testRecord("a.txt", "m1")); err != nil {
			t.Fatalf("InsertFile() error = %v", err)
		}

		err := idx.LinkTag("ghost", "a.txt")
		if err == nil {
			t.Fatal("LinkTag() expected error for unknown tag")
		}
		if !IsConstraintViolation(err) {
			t.Errorf("IsConstraintViolation(%v) = false, want true", err)
		}
	})

	t.Run("unlink removes the link and keeps the tag", func(t *testing.T) {
		idx, _ := newTestIndex(t)
		if err := idx.InsertFile(testRecord("a.txt", "m1")); err != nil {
			t.Fatalf("InsertFile() error = %v", err)
		}
		if err := idx.InsertTags([]string{"trip"}); err != nil {
			t.Fatalf("InsertTags() error = %v", err)
		}
		if err := idx.LinkTag("trip", "a.txt"); err != nil {
			t.Fatalf("LinkTag() error = %v", err)
		}

		if err := idx.UnlinkTag("trip", "a.txt"); err != nil {
			t.Fatalf("UnlinkTag() error = %v", err)
		}
		unused, err := idx.UnusedTags()
		if err != nil {
			t.Fatalf("UnusedTags() error = %v", err)
		}
		if !reflect.DeepEqual(unused, []string{"trip"}) {
			t.Errorf("UnusedTags() = %v, want [trip]", unused)
		}
	})
}

func TestSQLiteIndex_TagQueries(t *testing.T) {
	idx, clock := newTestIndex(t)

	for _, p := range []string{"a.txt", "b.txt", "c.txt"} {
		if err := idx.InsertFile(testRecord(p, "m1")); err != nil {
			t.Fatalf("InsertFile(%s) error = %v", p, err)
		}
	}
	if err := idx.InsertTags([]string{"beach", "family", "spare", "zoo"}); err != nil {
		t.Fatalf("InsertTags() error = %v", err)
	}
	links := []struct{ tag, file string }{
		{"family", "a.txt"},
		{"family", "b.txt"},
		{"family", "c.txt"},
		{"beach", "a.txt"},
		{"zoo", "b.txt"},
	}
	for _, l := range links {
		clock.advance(time.Second)
		if err := idx.LinkTag(l.tag, l.file); err != nil {
			t.Fatalf("LinkTag(%s, %s) error = %v", l.tag, l.file, err)
		}
	}
	if err := idx.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	t.Run("by count", func(t *testing.T) {
		got, err := idx.TagsByCount()
		if err != nil {
			t.Fatalf("TagsByCount() error = %v", err)
		}
		want := []biji.TagCount{
			{Tag: "spare", Count: 0},
			{Tag: "beach", Count: 1},
			{Tag: "zoo", Count: 1},
			{Tag: "family", Count: 3},
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("TagsByCount() = %v, want %v", got, want)
		}
	})

	t.Run("by recency", func(t *testing.T) {
		got, err := idx.TagsByRecency()
		if err != nil {
			t.Fatalf("TagsByRecency() error = %v", err)
		}
		want := []string{"zoo", "beach", "family", "spare"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("TagsByRecency() = %v, want %v", got, want)
		}
	})

	t.Run("files for tag", func(t *testing.T) {
		got, err := idx.FilesForTag("family")
		if err != nil {
			t.Fatalf("FilesForTag() error = %v", err)
		}
		if want := []string{"a.txt", "b.txt", "c.txt"}; !reflect.DeepEqual(got, want) {
			t.Errorf("FilesForTag() = %v, want %v", got, want)
		}
	})

	t.Run("rename cascades to links", func(t *testing.T) {
		if err := idx.RenameTag("zoo", "animals"); err != nil {
			t.Fatalf("RenameTag() error = %v", err)
		}
		tags, err := idx.TagsForFile("b.txt")
		if err != nil {
			t.Fatalf("TagsForFile() error = %v", err)
		}
		if want := []string{"animals", "family"}; !reflect.DeepEqual(tags, want) {
			t.Errorf("TagsForFile() = %v, want %v", tags, want)
		}
	})

	t.Run("delete cascades to links", func(t *testing.T) {
		if err := idx.DeleteTag("family"); err != nil {
			t.Fatalf("DeleteTag() error = %v", err)
		}
		tags, err := idx.TagsForFile("c.txt")
		if err != nil {
			t.Fatalf("TagsForFile() error = %v", err)
		}
		if len(tags) != 0 {
			t.Errorf("TagsForFile() = %v, want empty", tags)
		}
		if _, found, _ := idx.TagUsedAt("family"); found {
			t.Error("tag still present after DeleteTag")
		}
	})
}

func TestSQLiteIndex_FilesModifiedSince(t *testing.T) {
	idx, _ := newTestIndex(t)

	recs := []*biji.Record{
		testRecord("old.txt", "2024-01-01T00:00:00.000000"),
		testRecord("mid.txt", "2024-02-01T00:00:00.000000"),
		testRecord("new.txt", "2024-03-01T00:00:00.000000"),
	}
	for _, r := range recs {
		if err := idx.InsertFile(r); err != nil {
			t.Fatalf("InsertFile() error = %v", err)
		}
	}

	got, err := idx.FilesModifiedSince("2024-02-01T00:00:00.000000")
	if err != nil {
		t.Fatalf("FilesModifiedSince() error = %v", err)
	}
	if want := []string{"new.txt", "mid.txt"}; !reflect.DeepEqual(got, want) {
		t.Errorf("FilesModifiedSince() = %v, want %v", got, want)
	}
}

func TestCreateAndOpenIndex(t *testing.T) {
	t.Run("create then reopen keeps committed rows", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sub", IndexFileName)
		clock := newTestClock()

		idx, err := CreateIndex(path, clock)
		if err != nil {
			t.Fatalf("CreateIndex() error = %v", err)
		}
		if err := idx.InsertFile(testRecord("a.txt", "m1")); err != nil {
			t.Fatalf("InsertFile() error = %v", err)
		}
		if err := idx.Commit(); err != nil {
			t.Fatalf("Commit() error = %v", err)
		}
		if err := idx.InsertFile(testRecord("b.txt", "m1")); err != nil {
			t.Fatalf("InsertFile() error = %v", err)
		}
		idx.Close()

		reopened, err := OpenIndex(path, clock)
		if err != nil {
			t.Fatalf("OpenIndex() error = %v", err)
		}
		defer reopened.Close()

		paths, err := reopened.AllFilepaths()
		if err != nil {
			t.Fatalf("AllFilepaths() error = %v", err)
		}
		if want := []string{"a.txt"}; !reflect.DeepEqual(paths, want) {
			t.Errorf("AllFilepaths() = %v, want %v (uncommitted batch must be lost)", paths, want)
		}
	})

	t.Run("create fails when file exists", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), IndexFileName)
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatal(err)
		}

		_, err := CreateIndex(path, nil)
		if !errors.Is(err, biji.ErrAlreadyExists) {
			t.Errorf("CreateIndex() error = %v, want ErrAlreadyExists", err)
		}
	})

	t.Run("open fails when file is missing", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), IndexFileName)

		_, err := OpenIndex(path, nil)
		if !errors.Is(err, biji.ErrNotFound) {
			t.Errorf("OpenIndex() error = %v, want ErrNotFound", err)
		}
	})
}

func TestSQLiteIndex_BackupTo(t *testing.T) {
	idx, clock := newTestIndex(t)
	if err := idx.InsertFile(testRecord("a.txt", "m1")); err != nil {
		t.Fatalf("InsertFile() error = %v", err)
	}

	dest := filepath.Join(t.TempDir(), "backup.db")
	if err := idx.BackupTo(dest); !errors.Is(err, biji.ErrInvalidArgument) {
		t.Fatalf("BackupTo() with pending batch error = %v, want ErrInvalidArgument", err)
	}

	if err := idx.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if err := idx.BackupTo(dest); err != nil {
		t.Fatalf("BackupTo() error = %v", err)
	}

	copied, err := OpenIndex(dest, clock)
	if err != nil {
		t.Fatalf("OpenIndex(backup) error = %v", err)
	}
	defer copied.Close()

	if _, found, _ := copied.IndexMTime("a.txt"); !found {
		t.Error("backup is missing committed row")
	}
}
