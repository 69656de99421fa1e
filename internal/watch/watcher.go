// Package watch re-synchronizes the index when sidecars change on disk.
package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"biji-go/internal/biji"
)

// EventOp represents the type of sidecar change.
type EventOp int

const (
	// OpWrite indicates a sidecar was created or rewritten.
	OpWrite EventOp = iota
	// OpRemove indicates a sidecar was deleted or moved away.
	OpRemove
)

// String returns a human-readable representation of the operation.
func (op EventOp) String() string {
	switch op {
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Event is a change to one sidecar.
type Event struct {
	// Path is the sidecar path relative to the tracked root.
	Path string
	Op   EventOp
}

// Tree is the part of the filesystem manager the watcher needs.
type Tree interface {
	Root() string
	Dirs() ([]string, error)
	Ignored(rel string, isDir bool) bool
}

// SidecarWatcher watches every directory of the tracked tree and reports
// sidecar changes. fsnotify watches are not recursive, so directories created
// while running are added as they appear.
type SidecarWatcher struct {
	tree    Tree
	watcher *fsnotify.Watcher
	events  chan Event
	errors  chan error
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewSidecarWatcher creates a watcher for tree. It emits nothing until Start.
func NewSidecarWatcher(tree Tree) (*SidecarWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &SidecarWatcher{
		tree:    tree,
		watcher: watcher,
		events:  make(chan Event, 100),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Start adds every directory of the tree and begins processing events.
func (sw *SidecarWatcher) Start() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.running {
		return errors.New("watcher already running")
	}

	dirs, err := sw.tree.Dirs()
	if err != nil {
		return fmt.Errorf("listing directories: %w", err)
	}
	for _, d := range dirs {
		if err := sw.watcher.Add(d); err != nil {
			return fmt.Errorf("failed to watch %s: %w", d, err)
		}
	}

	sw.running = true
	sw.wg.Add(1)
	go sw.processEvents()
	return nil
}

// Stop closes the underlying watcher and waits for the event loop to exit.
// Both channels are closed afterwards.
func (sw *SidecarWatcher) Stop() error {
	sw.mu.Lock()
	if !sw.running {
		sw.mu.Unlock()
		return sw.watcher.Close()
	}
	sw.running = false
	sw.mu.Unlock()

	close(sw.done)
	err := sw.watcher.Close()
	sw.wg.Wait()

	close(sw.events)
	close(sw.errors)

	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// Events returns the channel of sidecar changes.
func (sw *SidecarWatcher) Events() <-chan Event {
	return sw.events
}

// Errors returns the channel of watch errors.
func (sw *SidecarWatcher) Errors() <-chan error {
	return sw.errors
}

func (sw *SidecarWatcher) processEvents() {
	defer sw.wg.Done()

	for {
		select {
		case <-sw.done:
			return

		case ev, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			for _, e := range sw.convert(ev) {
				if !sw.emit(e) {
					return
				}
			}

		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			select {
			case sw.errors <- err:
			case <-sw.done:
				return
			default:
				// Drop errors nobody is reading.
			}
		}
	}
}

func (sw *SidecarWatcher) emit(e Event) bool {
	select {
	case sw.events <- e:
		return true
	case <-sw.done:
		return false
	}
}

// convert turns one fsnotify event into sidecar events. A new directory is
// watched and any sidecars already inside it are reported, since they may
// have been written before the watch was added.
func (sw *SidecarWatcher) convert(ev fsnotify.Event) []Event {
	rel, ok := sw.relative(ev.Name)
	if !ok {
		return nil
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if sw.tree.Ignored(rel, true) {
				return nil
			}
			return sw.addTree(ev.Name)
		}
	}

	if !strings.HasSuffix(rel, biji.SidecarSuffix) || sw.tree.Ignored(rel, false) {
		return nil
	}

	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		return []Event{{Path: rel, Op: OpWrite}}
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return []Event{{Path: rel, Op: OpRemove}}
	}
	return nil
}

func (sw *SidecarWatcher) addTree(dir string) []Event {
	var found []Event
	filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, ok := sw.relative(p)
		if !ok {
			return nil
		}
		if d.IsDir() {
			if sw.tree.Ignored(rel, true) {
				return filepath.SkipDir
			}
			if err := sw.watcher.Add(p); err != nil {
				sw.reportError(fmt.Errorf("failed to watch %s: %w", p, err))
			}
			return nil
		}
		if strings.HasSuffix(rel, biji.SidecarSuffix) && !sw.tree.Ignored(rel, false) {
			found = append(found, Event{Path: rel, Op: OpWrite})
		}
		return nil
	})
	return found
}

func (sw *SidecarWatcher) reportError(err error) {
	select {
	case sw.errors <- err:
	default:
	}
}

func (sw *SidecarWatcher) relative(p string) (string, bool) {
	rel, err := filepath.Rel(sw.tree.Root(), p)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}
