package backend

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/thiagokokada/git-explorer/internal/testrepo"
)

func openTestNative(t *testing.T, r *testrepo.Repo) *native {
	t.Helper()
	n, err := openNative(r.Dir)
	if err != nil {
		t.Fatalf("openNative() error = %v", err)
	}
	t.Cleanup(func() { _ = n.Close() })
	return n
}

func drain(t *testing.T, stream LogStream) []string {
	t.Helper()
	defer stream.Close()
	var out []string
	for {
		c, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		out = append(out, c.Hash)
	}
}

func assertOrder(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("walk = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("walk[%d] = %s, want %s (walk=%v)", i, got[i], want[i], got)
		}
	}
}

// mergeRepo builds R <- F (feature) and R <- M1 <- M (main, merging F).
func mergeRepo(t *testing.T) (r *testrepo.Repo, root, feature, mainTip, merge string) {
	t.Helper()
	r = testrepo.New(t)
	r.Write("README.md", "hello\n")
	root = r.Commit("root")
	r.Branch("feature", root)
	r.Checkout("feature")
	r.Write("feature.txt", "feature\n")
	feature = r.Commit("feature work")
	r.Checkout("main")
	r.Write("main.txt", "main\n")
	mainTip = r.Commit("main work")
	merge = r.Commit("merge feature", mainTip, feature)
	return r, root, feature, mainTip, merge
}

func TestWalkTopologicalThenTime(t *testing.T) {
	t.Parallel()

	r, root, feature, mainTip, merge := mergeRepo(t)
	n := openTestNative(t, r)

	stream, err := n.Walk(WalkOptions{Roots: []string{merge}})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	assertOrder(t, drain(t, stream), merge, mainTip, feature, root)
}

func TestWalkFirstParentAndReverse(t *testing.T) {
	t.Parallel()

	r, root, _, mainTip, merge := mergeRepo(t)
	n := openTestNative(t, r)

	stream, err := n.Walk(WalkOptions{Roots: []string{merge}, FirstParent: true, Reverse: true})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	assertOrder(t, drain(t, stream), root, mainTip, merge)
}

func TestWalkMultipleRootsDeduplicates(t *testing.T) {
	t.Parallel()

	r, root, feature, mainTip, merge := mergeRepo(t)
	n := openTestNative(t, r)

	stream, err := n.Walk(WalkOptions{Roots: []string{feature, merge, feature}})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	assertOrder(t, drain(t, stream), merge, mainTip, feature, root)
}

func TestWalkUnknownRoot(t *testing.T) {
	t.Parallel()

	r := testrepo.New(t)
	r.Write("a.txt", "a\n")
	r.Commit("root")
	n := openTestNative(t, r)

	_, err := n.Walk(WalkOptions{Roots: []string{"0123456789012345678901234567890123456789"}})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Walk() error = %v, want ErrNotFound", err)
	}
}

func TestStashIDsReadsReflog(t *testing.T) {
	t.Parallel()

	r := testrepo.New(t)
	r.Write("a.txt", "a\n")
	head := r.Commit("root")
	older := r.DanglingCommit("WIP older", head, head)
	newer := r.DanglingCommit("WIP newer", head, head)
	r.Stash(older, newer)
	n := openTestNative(t, r)

	ids, err := n.StashIDs()
	if err != nil {
		t.Fatalf("StashIDs() error = %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("StashIDs() = %v, want 2 entries", ids)
	}
	for _, want := range []string{older, newer} {
		if _, ok := ids[want]; !ok {
			t.Fatalf("StashIDs() missing %s", want)
		}
	}
}

func TestStashIDsWithoutStash(t *testing.T) {
	t.Parallel()

	r := testrepo.New(t)
	r.Write("a.txt", "a\n")
	r.Commit("root")
	n := openTestNative(t, r)

	ids, err := n.StashIDs()
	if err != nil {
		t.Fatalf("StashIDs() error = %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("StashIDs() = %v, want empty", ids)
	}
}

func TestListRefsPeelsTags(t *testing.T) {
	t.Parallel()

	r := testrepo.New(t)
	r.Write("a.txt", "a\n")
	head := r.Commit("root")
	r.Tag("v1", head, false)
	r.Tag("v2", head, true)
	r.Branch("dev", head)
	n := openTestNative(t, r)

	refs, err := n.ListRefs()
	if err != nil {
		t.Fatalf("ListRefs() error = %v", err)
	}
	assertHasRef(t, refs, Ref{Hash: head, Kind: RefKindBranch, Name: "main"})
	assertHasRef(t, refs, Ref{Hash: head, Kind: RefKindBranch, Name: "dev"})
	assertHasRef(t, refs, Ref{Hash: head, Kind: RefKindTag, Name: "v1"})
	assertHasRef(t, refs, Ref{Hash: head, Kind: RefKindTag, Name: "v2"})
}

func TestHeadState(t *testing.T) {
	t.Parallel()

	r := testrepo.New(t)
	n := openTestNative(t, r)
	if _, _, ok, err := n.HeadState(); err != nil || ok {
		t.Fatalf("HeadState() on empty repo = ok %v, err %v", ok, err)
	}

	r.Write("a.txt", "a\n")
	head := r.Commit("root")
	hash, name, ok, err := n.HeadState()
	if err != nil {
		t.Fatalf("HeadState() error = %v", err)
	}
	if !ok || hash != head || name != "main" {
		t.Fatalf("HeadState() = %s %s %v, want %s main true", hash, name, ok, head)
	}
}

func TestDiffTrees(t *testing.T) {
	t.Parallel()

	r := testrepo.New(t)
	r.Write("keep.txt", "keep\n")
	r.Write("old-name.txt", "a file with enough content to be detected as a rename\n")
	r.Write("gone.txt", "bye\n")
	first := r.Commit("first")
	r.Write("keep.txt", "changed\n")
	r.Remove("old-name.txt")
	r.Write("new-name.txt", "a file with enough content to be detected as a rename\n")
	r.Remove("gone.txt")
	r.Write("added.txt", "new\n")
	second := r.Commit("second")
	n := openTestNative(t, r)

	c1, err := n.Commit(first)
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	c2, err := n.Commit(second)
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	changes, err := n.DiffTrees(c1.TreeHash, c2.TreeHash)
	if err != nil {
		t.Fatalf("DiffTrees() error = %v", err)
	}
	want := map[FileChange]bool{
		{Action: ChangeModified, From: "keep.txt", To: "keep.txt"}:        false,
		{Action: ChangeRenamed, From: "old-name.txt", To: "new-name.txt"}: false,
		{Action: ChangeDeleted, From: "gone.txt"}:                         false,
		{Action: ChangeAdded, To: "added.txt"}:                            false,
	}
	for _, ch := range changes {
		if _, ok := want[ch]; !ok {
			t.Fatalf("unexpected change %+v (all=%+v)", ch, changes)
		}
		want[ch] = true
	}
	for ch, seen := range want {
		if !seen {
			t.Fatalf("missing change %+v (all=%+v)", ch, changes)
		}
	}

	rootChanges, err := n.DiffTrees("", c1.TreeHash)
	if err != nil {
		t.Fatalf("DiffTrees() from empty error = %v", err)
	}
	if len(rootChanges) != 3 {
		t.Fatalf("DiffTrees() from empty = %+v, want 3 additions", rootChanges)
	}
	for _, ch := range rootChanges {
		if ch.Action != ChangeAdded {
			t.Fatalf("unexpected root change %+v", ch)
		}
	}
}

func TestNativeBlame(t *testing.T) {
	t.Parallel()

	r := testrepo.New(t)
	r.Write("a.txt", "one\ntwo\nthree\n")
	root := r.Commit("root")
	r.Write("a.txt", "one\nTWO\nthree\n")
	middle := r.Commit("middle")
	r.Write("a.txt", "one\nTWO\nTHREE\n")
	tip := r.Commit("tip")
	n := openTestNative(t, r)

	tests := []struct {
		name string
		opts BlameOptions
		want []string
	}{
		{
			name: "full_history",
			opts: BlameOptions{Path: "a.txt", Newest: tip},
			want: []string{root, middle, tip},
		},
		{
			name: "oldest_bound",
			opts: BlameOptions{Path: "a.txt", Newest: tip, Oldest: middle},
			want: []string{middle, middle, tip},
		},
		{
			name: "first_parent_preview",
			opts: BlameOptions{Path: "a.txt", Newest: tip, Oldest: middle, FirstParent: true},
			want: []string{middle, middle, tip},
		},
		{
			name: "preview_of_middle",
			opts: BlameOptions{Path: "a.txt", Newest: middle, Oldest: root, FirstParent: true},
			want: []string{root, middle, root},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Blame(tt.opts)
			if err != nil {
				t.Fatalf("Blame() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Blame() returned %d lines, want %d", len(got), len(tt.want))
			}
			for i, line := range got {
				if line.CommitHash != tt.want[i] {
					t.Fatalf("line %d attributed to %s, want %s", i+1, line.CommitHash, tt.want[i])
				}
				if line.Author.Name != "Avery" || line.Author.Email != "avery@example.com" {
					t.Fatalf("line %d author = %+v", i+1, line.Author)
				}
			}
		})
	}
}

func TestSplitLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
	}{
		{in: "", want: 0},
		{in: "\n", want: 1},
		{in: "a", want: 1},
		{in: "a\n", want: 1},
		{in: "a\nb", want: 2},
		{in: "a\n\nb\n", want: 3},
	}
	for _, tt := range tests {
		if got := SplitLines(tt.in); len(got) != tt.want {
			t.Fatalf("SplitLines(%q) = %q, want %d lines", tt.in, got, tt.want)
		}
	}
}

func TestParseReflog(t *testing.T) {
	t.Parallel()

	const (
		zero = "0000000000000000000000000000000000000000"
		a    = "1111111111111111111111111111111111111111"
		b    = "2222222222222222222222222222222222222222"
	)
	in := zero + " " + a + " Avery <avery@example.com> 1700000000 +0000\tWIP on main: one\n" +
		a + " " + b + " Avery <avery@example.com> 1700000001 +0000\tWIP on main: two\n"
	got, err := parseReflog(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parseReflog() error = %v", err)
	}
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Fatalf("parseReflog() = %v", got)
	}

	if _, err := parseReflog(strings.NewReader("garbage\n")); err == nil {
		t.Fatal("expected error for malformed reflog")
	}
}
