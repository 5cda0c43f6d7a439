package git

import (
	"errors"
	"io"
	"testing"
	"time"

	gitbackend "github.com/thiagokokada/git-explorer/internal/git/backend"
	"github.com/thiagokokada/git-explorer/internal/testrepo"
)

type fakeBackend struct {
	repoPath string

	stashIDsFunc        func() (map[string]struct{}, error)
	walkFunc            func(opts gitbackend.WalkOptions) (gitbackend.LogStream, error)
	headStateFunc       func() (hash string, headName string, ok bool, err error)
	listRefsFunc        func() ([]gitbackend.Ref, error)
	remotesFunc         func() ([]gitbackend.Remote, error)
	resolveRevisionFunc func(rev string) (string, error)
	commitFunc          func(hash string) (*gitbackend.Commit, error)
	isAncestorFunc      func(ancestor, descendant string) (bool, error)
	treeFunc            func(hash string) ([]gitbackend.TreeEntry, error)
	diffTreesFunc       func(from, to string) ([]gitbackend.FileChange, error)
	blameFunc           func(opts gitbackend.BlameOptions) ([]gitbackend.BlameLine, error)
	blobFunc            func(hash string) ([]byte, error)

	lastWalk  gitbackend.WalkOptions
	lastBlame gitbackend.BlameOptions
	closed    bool
}

func (f *fakeBackend) RepoPath() string { return f.repoPath }

func (f *fakeBackend) StashIDs() (map[string]struct{}, error) {
	if f.stashIDsFunc != nil {
		return f.stashIDsFunc()
	}
	return map[string]struct{}{}, nil
}

func (f *fakeBackend) Walk(opts gitbackend.WalkOptions) (gitbackend.LogStream, error) {
	f.lastWalk = opts
	if f.walkFunc != nil {
		return f.walkFunc(opts)
	}
	return nil, errors.New("unexpected Walk call")
}

func (f *fakeBackend) HeadState() (hash string, headName string, ok bool, err error) {
	if f.headStateFunc != nil {
		return f.headStateFunc()
	}
	return "", "", false, errors.New("unexpected HeadState call")
}

func (f *fakeBackend) ListRefs() ([]gitbackend.Ref, error) {
	if f.listRefsFunc != nil {
		return f.listRefsFunc()
	}
	return nil, errors.New("unexpected ListRefs call")
}

func (f *fakeBackend) Remotes() ([]gitbackend.Remote, error) {
	if f.remotesFunc != nil {
		return f.remotesFunc()
	}
	return nil, errors.New("unexpected Remotes call")
}

func (f *fakeBackend) ResolveRevision(rev string) (string, error) {
	if f.resolveRevisionFunc != nil {
		return f.resolveRevisionFunc(rev)
	}
	return "", errors.New("unexpected ResolveRevision call")
}

func (f *fakeBackend) Commit(hash string) (*gitbackend.Commit, error) {
	if f.commitFunc != nil {
		return f.commitFunc(hash)
	}
	return nil, errors.New("unexpected Commit call")
}

func (f *fakeBackend) Tree(hash string) ([]gitbackend.TreeEntry, error) {
	if f.treeFunc != nil {
		return f.treeFunc(hash)
	}
	return nil, errors.New("unexpected Tree call")
}

func (f *fakeBackend) DiffTrees(from, to string) ([]gitbackend.FileChange, error) {
	if f.diffTreesFunc != nil {
		return f.diffTreesFunc(from, to)
	}
	return nil, errors.New("unexpected DiffTrees call")
}

func (f *fakeBackend) IsAncestor(ancestor, descendant string) (bool, error) {
	if f.isAncestorFunc != nil {
		return f.isAncestorFunc(ancestor, descendant)
	}
	return false, errors.New("unexpected IsAncestor call")
}

func (f *fakeBackend) Blame(opts gitbackend.BlameOptions) ([]gitbackend.BlameLine, error) {
	f.lastBlame = opts
	if f.blameFunc != nil {
		return f.blameFunc(opts)
	}
	return nil, errors.New("unexpected Blame call")
}

func (f *fakeBackend) Blob(hash string) ([]byte, error) {
	if f.blobFunc != nil {
		return f.blobFunc(hash)
	}
	return nil, errors.New("unexpected Blob call")
}

func (f *fakeBackend) Close() error {
	f.closed = true
	return nil
}

type fakeLogStream struct {
	commits []*gitbackend.Commit
	err     error
	closed  bool
}

func (s *fakeLogStream) Next() (*gitbackend.Commit, error) {
	if len(s.commits) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	c := s.commits[0]
	s.commits = s.commits[1:]
	return c, nil
}

func (s *fakeLogStream) Close() error {
	s.closed = true
	return nil
}

// openTestService opens r with the go-git backend.
func openTestService(t *testing.T, r *testrepo.Repo) *Service {
	t.Helper()
	b, err := gitbackend.OpenNative(r.Dir)
	if err != nil {
		t.Fatalf("OpenNative() error = %v", err)
	}
	svc := NewWithBackend(b)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

// linearRepo builds main: R <- A <- B and returns the three commit ids.
func linearRepo(t *testing.T) (r *testrepo.Repo, root, a, b string) {
	t.Helper()
	r = testrepo.New(t)
	r.Write("a.txt", "one\ntwo\n")
	root = r.Commit("root")
	r.Write("b.txt", "bee\n")
	a = r.Commit("add b")
	r.Write("c.txt", "sea\n")
	b = r.Commit("add c")
	return r, root, a, b
}

func unix(ts int64) time.Time {
	return time.Unix(ts, 0).UTC()
}
