package watch

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestShouldIgnoreWatchPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want bool
	}{
		{"/repo/.git/index.lock", true},
		{"/repo/.git/refs/heads/main.LOCK", true},
		{"/repo/.git/fsmonitor.ipc", true},
		{"/repo/.git/index", false},
		{"/repo/.git/refs/heads/main", false},
	}
	for _, tt := range tests {
		if got := shouldIgnoreWatchPath(tt.name); got != tt.want {
			t.Fatalf("shouldIgnoreWatchPath(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestWatchPaths(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for _, dir := range []string{".git/refs/heads/feature", ".git/refs/tags", ".git/objects"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatalf("MkdirAll() error = %v", err)
		}
	}
	got, err := watchPaths(root)
	if err != nil {
		t.Fatalf("watchPaths() error = %v", err)
	}
	want := []string{
		filepath.Join(root, ".git"),
		filepath.Join(root, ".git", "refs"),
		filepath.Join(root, ".git", "refs", "heads"),
		filepath.Join(root, ".git", "refs", "heads", "feature"),
		filepath.Join(root, ".git", "refs", "tags"),
	}
	if !slices.Equal(got, want) {
		t.Fatalf("watchPaths() = %v, want %v", got, want)
	}

	plain := t.TempDir()
	got, err = watchPaths(plain)
	if err != nil || !slices.Equal(got, []string{plain}) {
		t.Fatalf("watchPaths(no .git) = %v, %v", got, err)
	}
}

func TestNilTrackerPoll(t *testing.T) {
	t.Parallel()

	var tr *Tracker
	if changed, gen := tr.Poll(); changed || gen != 0 {
		t.Fatalf("Poll() = %v, %d", changed, gen)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestTrackerPoll(t *testing.T) {
	t.Parallel()

	tr := &Tracker{}
	if changed, _ := tr.Poll(); changed {
		t.Fatal("Poll() reported a change before any event")
	}
	tr.bump()
	tr.bump()
	if changed, gen := tr.Poll(); !changed || gen != 2 {
		t.Fatalf("Poll() = %v, %d, want true, 2", changed, gen)
	}
	if changed, gen := tr.Poll(); changed || gen != 2 {
		t.Fatalf("second Poll() = %v, %d, want false, 2", changed, gen)
	}
}

func TestTrackerSeesRefUpdate(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	heads := filepath.Join(root, ".git", "refs", "heads")
	if err := os.MkdirAll(heads, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	tr, err := New(root, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = tr.Close() })

	if err := os.WriteFile(filepath.Join(heads, "main"), []byte("0000\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for tr.Generation() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("tracker did not observe the ref update")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if changed, _ := tr.Poll(); !changed {
		t.Fatal("Poll() = false after an update")
	}
}
