package testutil

import (
	"testing"

	"biji-go/internal/biji"
	"biji-go/internal/database"
)

// NewTestIndex creates a migrated in-memory index.
// The index is automatically closed when the test completes.
func NewTestIndex(t *testing.T, clock biji.Clock) *database.SQLiteIndex {
	t.Helper()

	idx, err := database.NewMemoryIndex(clock)
	if err != nil {
		t.Fatalf("failed to create index: %v", err)
	}

	t.Cleanup(func() {
		idx.Close()
	})

	return idx
}

// Env bundles the collaborators most biji tests need.
type Env struct {
	FS         *MockFilesystemManager
	Clock      *StubClock
	Index      *database.SQLiteIndex
	Sidecars   *biji.SidecarStore
	Reconciler *biji.Reconciler
	Tags       *biji.TagManager
}

// NewEnv wires a mock filesystem, a fixed clock, and an in-memory index.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	fsmgr := NewMockFilesystemManager()
	clock := FixedClock()
	idx := NewTestIndex(t, clock)
	logger := biji.NewNopLogger()

	sidecars := biji.NewSidecarStore(fsmgr, NewStubMIMEResolver(), clock, logger)
	reconciler := biji.NewReconciler(sidecars, idx, fsmgr, logger)
	return &Env{
		FS:         fsmgr,
		Clock:      clock,
		Index:      idx,
		Sidecars:   sidecars,
		Reconciler: reconciler,
		Tags:       biji.NewTagManager(sidecars, idx, reconciler, logger),
	}
}
