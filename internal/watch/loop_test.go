package watch

import (
	"context"
	"errors"
	"testing"
	"time"

	"biji-go/internal/biji"
)

type fakeSyncer struct {
	calls chan struct{}
	err   error
}

func newFakeSyncer() *fakeSyncer {
	return &fakeSyncer{calls: make(chan struct{}, 10)}
}

func (f *fakeSyncer) Sync() (*biji.Report, *biji.Resolution, error) {
	f.calls <- struct{}{}
	if f.err != nil {
		return nil, nil, f.err
	}
	return &biji.Report{}, &biji.Resolution{}, nil
}

func waitForSync(t *testing.T, s *fakeSyncer, what string) {
	t.Helper()
	select {
	case <-s.calls:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s sync", what)
	}
}

func TestLoop_DebouncesBursts(t *testing.T) {
	syncer := newFakeSyncer()
	loop := NewLoop(syncer, 50*time.Millisecond, biji.NewNopLogger())

	events := make(chan Event)
	errs := make(chan error)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx, events, errs) }()

	waitForSync(t, syncer, "startup")

	for i := 0; i < 5; i++ {
		events <- Event{Path: "a.txt.biji.json", Op: OpWrite}
	}
	waitForSync(t, syncer, "debounced")

	select {
	case <-syncer.calls:
		t.Error("burst of events caused more than one sync")
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestLoop_SurvivesSyncErrors(t *testing.T) {
	syncer := newFakeSyncer()
	syncer.err = errors.New("index locked")
	loop := NewLoop(syncer, 10*time.Millisecond, biji.NewNopLogger())

	events := make(chan Event)
	errs := make(chan error, 1)
	done := make(chan error, 1)
	go func() { done <- loop.Run(context.Background(), events, errs) }()

	waitForSync(t, syncer, "startup")
	errs <- errors.New("queue overflow")
	events <- Event{Path: "b.txt.biji.json", Op: OpRemove}
	waitForSync(t, syncer, "post-error")

	close(events)
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v, want nil after events closed", err)
	}
}

func TestEventOp_String(t *testing.T) {
	if OpWrite.String() != "write" || OpRemove.String() != "remove" || EventOp(9).String() != "unknown" {
		t.Error("EventOp.String() returned unexpected names")
	}
}
