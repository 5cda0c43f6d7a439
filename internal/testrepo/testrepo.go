// Package testrepo builds small on-disk repositories for tests.
package testrepo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Epoch is the author time of the first commit; every later commit is one
// hour newer than the previous one.
var Epoch = time.Date(2024, time.January, 2, 10, 0, 0, 0, time.UTC)

type Repo struct {
	t    testing.TB
	Dir  string
	Repo *git.Repository

	Name  string
	Email string

	commits int
}

func New(t testing.TB) *Repo {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.Main},
	})
	if err != nil {
		t.Fatalf("PlainInit() error = %v", err)
	}
	return &Repo{t: t, Dir: dir, Repo: repo, Name: "Avery", Email: "avery@example.com"}
}

func (r *Repo) worktree() *git.Worktree {
	r.t.Helper()
	wt, err := r.Repo.Worktree()
	if err != nil {
		r.t.Fatalf("Worktree() error = %v", err)
	}
	return wt
}

func (r *Repo) Write(path, content string) {
	r.t.Helper()
	full := filepath.Join(r.Dir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		r.t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		r.t.Fatalf("WriteFile() error = %v", err)
	}
}

func (r *Repo) Remove(path string) {
	r.t.Helper()
	if err := os.Remove(filepath.Join(r.Dir, filepath.FromSlash(path))); err != nil {
		r.t.Fatalf("Remove() error = %v", err)
	}
}

// NextTime is the timestamp the next commit will carry.
func (r *Repo) NextTime() time.Time {
	return Epoch.Add(time.Duration(r.commits) * time.Hour)
}

// Commit stages every change in the worktree and commits it on HEAD.
func (r *Repo) Commit(msg string, parents ...string) string {
	r.t.Helper()
	wt := r.worktree()
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		r.t.Fatalf("Add() error = %v", err)
	}
	opts := &git.CommitOptions{
		Author:            r.signature(),
		AllowEmptyCommits: true,
	}
	for _, p := range parents {
		opts.Parents = append(opts.Parents, plumbing.NewHash(p))
	}
	hash, err := wt.Commit(msg, opts)
	if err != nil {
		r.t.Fatalf("Commit() error = %v", err)
	}
	return hash.String()
}

func (r *Repo) signature() *object.Signature {
	when := r.NextTime()
	r.commits++
	return &object.Signature{Name: r.Name, Email: r.Email, When: when}
}

// DanglingCommit writes a commit object reusing the tree of base without
// moving any reference.
func (r *Repo) DanglingCommit(msg string, base string, parents ...string) string {
	r.t.Helper()
	baseCommit, err := r.Repo.CommitObject(plumbing.NewHash(base))
	if err != nil {
		r.t.Fatalf("CommitObject() error = %v", err)
	}
	sig := r.signature()
	c := &object.Commit{
		Author:    *sig,
		Committer: *sig,
		Message:   msg,
		TreeHash:  baseCommit.TreeHash,
	}
	for _, p := range parents {
		c.ParentHashes = append(c.ParentHashes, plumbing.NewHash(p))
	}
	obj := r.Repo.Storer.NewEncodedObject()
	if err := c.Encode(obj); err != nil {
		r.t.Fatalf("Encode() error = %v", err)
	}
	hash, err := r.Repo.Storer.SetEncodedObject(obj)
	if err != nil {
		r.t.Fatalf("SetEncodedObject() error = %v", err)
	}
	return hash.String()
}

func (r *Repo) SetRef(name, hash string) {
	r.t.Helper()
	ref := plumbing.NewHashReference(plumbing.ReferenceName(name), plumbing.NewHash(hash))
	if err := r.Repo.Storer.SetReference(ref); err != nil {
		r.t.Fatalf("SetReference() error = %v", err)
	}
}

func (r *Repo) Branch(name, hash string) {
	r.t.Helper()
	r.SetRef(plumbing.NewBranchReferenceName(name).String(), hash)
}

// Checkout switches HEAD and the worktree to an existing branch.
func (r *Repo) Checkout(branch string) {
	r.t.Helper()
	err := r.worktree().Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Force:  true,
	})
	if err != nil {
		r.t.Fatalf("Checkout() error = %v", err)
	}
}

func (r *Repo) Tag(name, hash string, annotated bool) {
	r.t.Helper()
	var opts *git.CreateTagOptions
	if annotated {
		opts = &git.CreateTagOptions{Tagger: r.signature(), Message: name}
	}
	if _, err := r.Repo.CreateTag(name, plumbing.NewHash(hash), opts); err != nil {
		r.t.Fatalf("CreateTag() error = %v", err)
	}
}

// Stash records entries the way `git stash` does: refs/stash points at the
// newest one and the reflog lists all of them, oldest first.
func (r *Repo) Stash(entries ...string) {
	r.t.Helper()
	if len(entries) == 0 {
		return
	}
	r.SetRef("refs/stash", entries[len(entries)-1])
	var b strings.Builder
	prev := plumbing.ZeroHash.String()
	for i, hash := range entries {
		fmt.Fprintf(&b, "%s %s %s <%s> %d +0000\tWIP on main: %d\n",
			prev, hash, r.Name, r.Email, Epoch.Unix()+int64(i), i)
		prev = hash
	}
	logPath := filepath.Join(r.Dir, ".git", "logs", "refs", "stash")
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		r.t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(logPath, []byte(b.String()), 0o644); err != nil {
		r.t.Fatalf("WriteFile() error = %v", err)
	}
}
