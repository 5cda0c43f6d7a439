package git

import (
	"errors"
	"slices"
	"testing"

	gitbackend "github.com/thiagokokada/git-explorer/internal/git/backend"
	"github.com/thiagokokada/git-explorer/internal/identity"
	"github.com/thiagokokada/git-explorer/internal/testrepo"
)

func blameCommitIDs(res *BlameResult) []string {
	ids := make([]string, 0, len(res.Lines))
	for _, l := range res.Lines {
		ids = append(ids, l.CommitID)
	}
	return ids
}

func TestBlameUnchangedFile(t *testing.T) {
	t.Parallel()

	r, root, _, b := linearRepo(t)
	svc := openTestService(t, r)

	res, err := svc.Blame(BlameParams{Rev: b, Path: "a.txt"})
	if err != nil {
		t.Fatalf("Blame() error = %v", err)
	}
	if res.FileName != "a.txt" {
		t.Fatalf("fileName = %q, want a.txt", res.FileName)
	}
	if len(res.Lines) != 2 {
		t.Fatalf("len(lines) = %d, want 2", len(res.Lines))
	}
	for i, want := range []string{"one", "two"} {
		l := res.Lines[i]
		if l.LineNo != i+1 || l.CommitID != root || l.Content != want {
			t.Fatalf("lines[%d] = %+v", i, l)
		}
	}
	if len(res.Commits) != 1 {
		t.Fatalf("len(commits) = %d, want 1", len(res.Commits))
	}
	got := res.Commits[root]
	want := BlameCommit{CommitID: root, AuthorID: identity.ID("Avery", "avery@example.com"), Timestamp: testrepo.Epoch.Unix()}
	if got != want {
		t.Fatalf("commits[root] = %+v, want %+v", got, want)
	}
}

func TestBlameModes(t *testing.T) {
	t.Parallel()

	r := testrepo.New(t)
	r.Write("a.txt", "one\ntwo\n")
	root := r.Commit("root")
	r.Write("a.txt", "one\nTWO\nthree\n")
	c := r.Commit("change")
	svc := openTestService(t, r)

	tests := []struct {
		name   string
		params BlameParams
		want   []string
	}{
		{name: "full", params: BlameParams{Rev: "main", Path: "a.txt"}, want: []string{root, c, c}},
		{name: "preview", params: BlameParams{Rev: c, Path: "a.txt", Preview: true}, want: []string{root, c, c}},
		{name: "since_self", params: BlameParams{Rev: c, Path: "a.txt", SinceRev: c}, want: []string{c, c, c}},
		{name: "since_root", params: BlameParams{Rev: c, Path: "a.txt", SinceRev: root}, want: []string{root, c, c}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
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
}

func TestBlameRejectsNonFiles(t *testing.T) {
	t.Parallel()

	r := testrepo.New(t)
	r.Write("dir/main.go", "package main\n")
	r.Write("empty.txt", "")
	r.Commit("root")
	svc := openTestService(t, r)

	for _, p := range []string{"dir", "missing.txt", "dir/missing.go", ""} {
		if _, err := svc.Blame(BlameParams{Rev: "main", Path: p}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Blame(%q) error = %v, want ErrNotFound", p, err)
		}
	}
	if _, err := svc.Blame(BlameParams{Rev: "nope", Path: "empty.txt"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Blame() error = %v, want ErrNotFound", err)
	}

	res, err := svc.Blame(BlameParams{Rev: "main", Path: "empty.txt"})
	if err != nil {
		t.Fatalf("Blame() error = %v", err)
	}
	if len(res.Lines) != 0 || len(res.Commits) != 0 {
		t.Fatalf("Blame() = %+v, want empty result", res)
	}
}

func blameBackend(content string, lines []gitbackend.BlameLine) *fakeBackend {
	return &fakeBackend{
		listRefsFunc: func() ([]gitbackend.Ref, error) {
			return []gitbackend.Ref{{Hash: "c1", Kind: gitbackend.RefKindBranch, Name: "main"}}, nil
		},
		commitFunc: func(hash string) (*gitbackend.Commit, error) {
			return &gitbackend.Commit{Hash: hash, TreeHash: "t1", ParentHashes: []string{"c0"}}, nil
		},
		treeFunc: func(string) ([]gitbackend.TreeEntry, error) {
			return []gitbackend.TreeEntry{{Name: "f.txt", Hash: "b1", Kind: gitbackend.EntryFile}}, nil
		},
		blobFunc: func(string) ([]byte, error) {
			return []byte(content), nil
		},
		blameFunc: func(gitbackend.BlameOptions) ([]gitbackend.BlameLine, error) {
			return lines, nil
		},
	}
}

func TestBlameLineCountMismatch(t *testing.T) {
	t.Parallel()

	fake := blameBackend("x\ny\n", []gitbackend.BlameLine{{CommitHash: "c1"}})
	svc := NewWithBackend(fake)

	if _, err := svc.Blame(BlameParams{Rev: "main", Path: "f.txt"}); !errors.Is(err, ErrInvariant) {
		t.Fatalf("Blame() error = %v, want ErrInvariant", err)
	}
}

func TestBlamePreviewOptions(t *testing.T) {
	t.Parallel()

	fake := blameBackend("x\r\n", []gitbackend.BlameLine{{CommitHash: "c1"}})
	svc := NewWithBackend(fake)

	res, err := svc.Blame(BlameParams{Rev: "main", Path: "f.txt", Preview: true})
	if err != nil {
		t.Fatalf("Blame() error = %v", err)
	}
	want := gitbackend.BlameOptions{Path: "f.txt", Newest: "c1", Oldest: "c0", FirstParent: true}
	if fake.lastBlame != want {
		t.Fatalf("blame options = %+v, want %+v", fake.lastBlame, want)
	}
	if res.Lines[0].Content != "x" {
		t.Fatalf("content = %q, want %q", res.Lines[0].Content, "x")
	}
}
