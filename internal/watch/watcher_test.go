package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	bijifs "biji-go/internal/fs"
)

func startWatcher(t *testing.T, root string, ignore ...string) *SidecarWatcher {
	t.Helper()
	tree, err := bijifs.NewOSFilesystemManager(root, ignore)
	if err != nil {
		t.Fatalf("NewOSFilesystemManager() error = %v", err)
	}
	w, err := NewSidecarWatcher(tree)
	if err != nil {
		t.Fatalf("NewSidecarWatcher() error = %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { w.Stop() })
	return w
}

// nextEvent waits for an event on path, skipping others.
func nextEvent(t *testing.T, w *SidecarWatcher, path string, op EventOp) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-w.Events():
			if ev.Path == path && ev.Op == op {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s %s", op, path)
		}
	}
}

func TestSidecarWatcher_ReportsSidecarWrites(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root)

	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "notes.txt.biji.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	nextEvent(t, w, "notes.txt.biji.json", OpWrite)

	if err := os.Remove(filepath.Join(root, "notes.txt.biji.json")); err != nil {
		t.Fatal(err)
	}
	nextEvent(t, w, "notes.txt.biji.json", OpRemove)
}

func TestSidecarWatcher_FollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root)

	dir := filepath.Join(root, "trip", "day1")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	// Give the watcher a moment to add the new directories.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "a.jpg.biji.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	nextEvent(t, w, "trip/day1/a.jpg.biji.json", OpWrite)
}

func TestSidecarWatcher_StopClosesChannels(t *testing.T) {
	root := t.TempDir()
	tree, err := bijifs.NewOSFilesystemManager(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	w, err := NewSidecarWatcher(tree)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Start(); err == nil {
		t.Error("second Start() expected error")
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if _, ok := <-w.Events(); ok {
		t.Error("Events() still open after Stop()")
	}
}
