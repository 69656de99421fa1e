package biji_test

import (
	"encoding/json"
	"reflect"
	"testing"

	"biji-go/internal/testutil"
)

// writeSidecar stores a hand-written sidecar for p.
func writeSidecar(t *testing.T, env *testutil.Env, p string, fields map[string]any) {
	t.Helper()
	data, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("marshal sidecar: %v", err)
	}
	env.FS.AddFile(p+".biji.json", data)
}

func assertStrings(t *testing.T, what string, got, want []string) {
	t.Helper()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("%s = %v, want %v", what, got, want)
	}
}

// assertLinksMatchSidecars checks that every file's index links equal the
// tags in its sidecar.
func assertLinksMatchSidecars(t *testing.T, env *testutil.Env, files ...string) {
	t.Helper()
	for _, f := range files {
		rec, err := env.Sidecars.Load(f)
		if err != nil {
			t.Fatalf("Load(%s) error = %v", f, err)
		}
		linked, err := env.Index.TagsForFile(f)
		if err != nil {
			t.Fatalf("TagsForFile(%s) error = %v", f, err)
		}
		assertStrings(t, "TagsForFile("+f+")", linked, rec.Tags)
	}
}
