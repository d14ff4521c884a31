package walker

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eargollo/storagescan/internal/entry"
)

func writeTestTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("setup: %v", err)
		}
	}
	must(os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0644))
	must(os.WriteFile(filepath.Join(root, "b.log"), []byte("b"), 0644))
	must(os.MkdirAll(filepath.Join(root, "d"), 0755))
	must(os.WriteFile(filepath.Join(root, "d", "c.py"), []byte("c"), 0644))
	return root
}

func collect(t *testing.T, root string, opts Options) ([]entry.Entry, *Stats) {
	t.Helper()
	out := make(chan entry.Entry, 1000)
	stats := &Stats{}
	errCh := make(chan error, 1)
	go func() {
		errCh <- Walk(context.Background(), root, opts, out, stats)
		close(out)
	}()
	var entries []entry.Entry
	for e := range out {
		entries = append(entries, e)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Walk: %v", err)
	}
	return entries, stats
}

func TestWalk_basicTree(t *testing.T) {
	root := writeTestTree(t)
	entries, stats := collect(t, root, Options{NumThreads: 4})

	// root + a.txt + b.log + d + d/c.py = 5
	if len(entries) != 5 {
		t.Fatalf("got %d entries, want 5: %+v", len(entries), entries)
	}
	if stats.Files.Load() != 3 {
		t.Errorf("Files = %d, want 3", stats.Files.Load())
	}
	if stats.Bytes.Load() != 3 {
		t.Errorf("Bytes = %d, want 3", stats.Bytes.Load())
	}
}

func TestWalk_maxDepthCutoff(t *testing.T) {
	root := writeTestTree(t)
	if err := os.MkdirAll(filepath.Join(root, "d", "sub"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "d", "sub", "e.txt"), []byte("e"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	depth := uint32(2)
	entries, stats := collect(t, root, Options{NumThreads: 2, MaxDepth: &depth})

	for _, e := range entries {
		if e.Path == filepath.Join(root, "d", "sub", "e.txt") {
			t.Fatalf("e.txt (depth 3) must not be emitted with max_depth=2")
		}
	}
	if stats.Files.Load() != 3 {
		t.Errorf("Files = %d, want 3 (e.txt excluded)", stats.Files.Load())
	}
	foundSub := false
	for _, e := range entries {
		if e.Path == filepath.Join(root, "d", "sub") {
			foundSub = true
		}
	}
	if !foundSub {
		t.Errorf("d/sub (depth 2) should be emitted with max_depth=2")
	}
}

func TestWalk_maxDepthZeroOnlyRoot(t *testing.T) {
	root := writeTestTree(t)
	depth := uint32(0)
	entries, _ := collect(t, root, Options{NumThreads: 2, MaxDepth: &depth})
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1 (root only)", len(entries))
	}
	if entries[0].Depth != 0 {
		t.Errorf("expected root entry at depth 0, got %+v", entries[0])
	}
}

func TestWalk_resumeSkipsCompletedTopLevelDirs(t *testing.T) {
	root := writeTestTree(t)
	entries, stats := collect(t, root, Options{NumThreads: 2, Skip: map[string]bool{"d": true}})

	for _, e := range entries {
		if e.TopLevelDir == "d" {
			t.Fatalf("entry from skipped top-level dir %q was emitted: %+v", "d", e)
		}
	}
	if stats.Skipped.Load() == 0 {
		t.Errorf("Skipped counter should be nonzero when a top-level dir is skipped")
	}
}

func TestWalk_symlinkEmittedNotTraversedByDefault(t *testing.T) {
	root := t.TempDir()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("setup: %v", err)
		}
	}
	must(os.MkdirAll(filepath.Join(root, "real"), 0755))
	must(os.WriteFile(filepath.Join(root, "real", "f.txt"), []byte("x"), 0644))
	must(os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "link")))

	entries, _ := collect(t, root, Options{NumThreads: 2})

	linkSeen := false
	for _, e := range entries {
		if e.Path == filepath.Join(root, "link") {
			linkSeen = true
		}
		if strings.HasPrefix(e.Path, filepath.Join(root, "link")+string(filepath.Separator)) {
			t.Fatalf("entry under non-followed symlink: %q", e.Path)
		}
	}
	if !linkSeen {
		t.Error("symlink itself should be emitted as an entry")
	}
}

func TestWalk_followSymlinksDetectsCycleToRoot(t *testing.T) {
	root := t.TempDir()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("setup: %v", err)
		}
	}
	must(os.MkdirAll(filepath.Join(root, "A"), 0755))
	must(os.WriteFile(filepath.Join(root, "A", "f.txt"), []byte("x"), 0644))
	must(os.Symlink(root, filepath.Join(root, "A", "loop")))

	entries, stats := collect(t, root, Options{NumThreads: 2, FollowSymlinks: true})

	// root, A, A/f.txt, A/loop; the loop back to root must not be entered.
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4: %+v", len(entries), entries)
	}
	if stats.Errors.Load() != 0 {
		t.Errorf("Errors = %d, want 0 (a cycle is not an I/O error)", stats.Errors.Load())
	}
}

func TestWalk_emptyRootYieldsOnlyRoot(t *testing.T) {
	root := t.TempDir()
	entries, _ := collect(t, root, Options{NumThreads: 2})
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1 (root)", len(entries))
	}
}

func TestWalk_parallelDeterminismOfContentSet(t *testing.T) {
	root := writeTestTree(t)

	seq, _ := collect(t, root, Options{NumThreads: 1})
	par, _ := collect(t, root, Options{NumThreads: 8})

	toSet := func(es []entry.Entry) map[string]bool {
		m := make(map[string]bool, len(es))
		for _, e := range es {
			m[e.Path] = true
		}
		return m
	}
	seqSet, parSet := toSet(seq), toSet(par)
	if len(seqSet) != len(parSet) {
		t.Fatalf("entry set sizes differ: %d vs %d", len(seqSet), len(parSet))
	}
	for p := range seqSet {
		if !parSet[p] {
			t.Errorf("path %q present with 1 thread but missing with 8", p)
		}
	}
}
