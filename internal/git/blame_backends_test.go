package git

import (
	"errors"
	"os/exec"
	"slices"
	"testing"

	gitbackend "github.com/thiagokokada/git-explorer/internal/git/backend"
	"github.com/thiagokokada/git-explorer/internal/testrepo"
)

// blameHistory builds R <- C <- D <- E on main. C rewrites line 2 of a.txt and
// adds line 3, D rewrites line 3 only, E renames notes.txt to moved.txt.
func blameHistory(t *testing.T) (r *testrepo.Repo, root, c, d, e string) {
	t.Helper()
	r = testrepo.New(t)
	r.Write("a.txt", "one\ntwo\n")
	r.Write("notes.txt", "first note that is long enough\nsecond note that is long enough\nthird note that is long enough\n")
	root = r.Commit("root")
	r.Write("a.txt", "one\nTWO\nthree\n")
	c = r.Commit("change two")
	r.Write("a.txt", "one\nTWO\nTHREE\n")
	d = r.Commit("change three")
	r.Remove("notes.txt")
	r.Write("moved.txt", "first note that is long enough\nsecond note that is long enough\nthird note that is long enough\n")
	e = r.Commit("rename notes")
	return r, root, c, d, e
}

func TestBlameAcrossBackends(t *testing.T) {
	t.Parallel()

	r, root, c, d, e := blameHistory(t)
	kinds := []gitbackend.Kind{gitbackend.KindNative}
	if _, err := exec.LookPath("git"); err == nil {
		kinds = append(kinds, gitbackend.KindGitCLI)
	} else {
		t.Log("git executable not found, only checking the native backend")
	}

	tests := []struct {
		name   string
		params BlameParams
		want   []string
	}{
		{name: "full", params: BlameParams{Rev: d, Path: "a.txt"}, want: []string{root, c, d}},
		{name: "preview", params: BlameParams{Rev: d, Path: "a.txt", Preview: true}, want: []string{c, c, d}},
		{name: "preview_root", params: BlameParams{Rev: root, Path: "a.txt", Preview: true}, want: []string{root, root}},
		{name: "since_self", params: BlameParams{Rev: c, Path: "a.txt", SinceRev: c}, want: []string{c, c, c}},
		{name: "since_parent", params: BlameParams{Rev: d, Path: "a.txt", SinceRev: c}, want: []string{c, c, d}},
		{name: "since_root", params: BlameParams{Rev: c, Path: "a.txt", SinceRev: root}, want: []string{root, c, c}},
		{name: "renamed", params: BlameParams{Rev: e, Path: "moved.txt"}, want: []string{root, root, root}},
	}
	for _, kind := range kinds {
		svc, err := Open(r.Dir, kind)
		if err != nil {
			t.Fatalf("Open(%s) error = %v", kind, err)
		}
		t.Cleanup(func() { _ = svc.Close() })

		for _, tt := range tests {
			t.Run(string(kind)+"/"+tt.name, func(t *testing.T) {
				res, err := svc.Blame(tt.params)
				if err != nil {
					t.Fatalf("Blame() error = %v", err)
				}
				if got := blameCommitIDs(res); !slices.Equal(got, tt.want) {
					t.Fatalf("Blame() commits = %v, want %v", got, tt.want)
				}
				for _, l := range res.Lines {
					if _, ok := res.Commits[l.CommitID]; !ok {
						t.Fatalf("line %d references unknown commit %s", l.LineNo, l.CommitID)
					}
				}
			})
		}

		t.Run(string(kind)+"/since_descendant", func(t *testing.T) {
			_, err := svc.Blame(BlameParams{Rev: c, Path: "a.txt", SinceRev: d})
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("Blame() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestBlameSinceSelfSkipsBackend(t *testing.T) {
	t.Parallel()

	fake := blameBackend("x\ny\n", nil)
	fake.blameFunc = nil
	svc := NewWithBackend(fake)

	res, err := svc.Blame(BlameParams{Rev: "main", Path: "f.txt", SinceRev: "main"})
	if err != nil {
		t.Fatalf("Blame() error = %v", err)
	}
	if got := blameCommitIDs(res); !slices.Equal(got, []string{"c1", "c1"}) {
		t.Fatalf("Blame() commits = %v, want every line on c1", got)
	}
	if len(res.Commits) != 1 {
		t.Fatalf("len(commits) = %d, want 1", len(res.Commits))
	}
}

func TestBlameSinceOutsideHistory(t *testing.T) {
	t.Parallel()

	fake := blameBackend("x\n", nil)
	fake.blameFunc = nil
	fake.listRefsFunc = func() ([]gitbackend.Ref, error) {
		return []gitbackend.Ref{
			{Hash: "c1", Kind: gitbackend.RefKindBranch, Name: "main"},
			{Hash: "c9", Kind: gitbackend.RefKindBranch, Name: "other"},
		}, nil
	}
	var asked [2]string
	fake.isAncestorFunc = func(ancestor, descendant string) (bool, error) {
		asked = [2]string{ancestor, descendant}
		return false, nil
	}
	svc := NewWithBackend(fake)

	if _, err := svc.Blame(BlameParams{Rev: "main", Path: "f.txt", SinceRev: "other"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Blame() error = %v, want ErrNotFound", err)
	}
	if asked != [2]string{"c9", "c1"} {
		t.Fatalf("IsAncestor(%s, %s), want (c9, c1)", asked[0], asked[1])
	}
}
