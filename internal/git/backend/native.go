package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

type native struct {
	repo *gitlib.Repository
	path string

	// shallow commits are reported without parents so walks stay closed.
	shallow map[plumbing.Hash]struct{}
}

// OpenNative opens the repository containing repoPath using go-git only.
func OpenNative(repoPath string) (Backend, error) {
	return openNative(repoPath)
}

func openNative(repoPath string) (*native, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	repo, err := gitlib.PlainOpenWithOptions(abs, &gitlib.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	root := abs
	if wt, err := repo.Worktree(); err == nil {
		root = wt.Filesystem.Root()
	}
	n := &native{repo: repo, path: root, shallow: map[plumbing.Hash]struct{}{}}
	shallow, err := repo.Storer.Shallow()
	if err != nil {
		return nil, fmt.Errorf("read shallow commits: %w", err)
	}
	for _, h := range shallow {
		n.shallow[h] = struct{}{}
	}
	slog.Debug("repository opened", slog.String("path", root), slog.Int("shallow", len(shallow)))
	return n, nil
}

func (n *native) RepoPath() string {
	if n == nil {
		return ""
	}
	return n.path
}

func (n *native) Close() error {
	if closer, ok := n.repo.Storer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (n *native) HeadState() (hash string, headName string, ok bool, err error) {
	ref, err := n.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", "", false, nil
		}
		return "", "", false, fmt.Errorf("resolve HEAD: %w", err)
	}
	headName = "HEAD"
	if ref.Name().IsBranch() {
		headName = ref.Name().Short()
	}
	return ref.Hash().String(), headName, true, nil
}

func (n *native) ListRefs() ([]Ref, error) {
	iter, err := n.repo.References()
	if err != nil {
		return nil, fmt.Errorf("list references: %w", err)
	}
	defer iter.Close()
	var refs []Ref
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		name := ref.Name()
		if name == plumbing.HEAD {
			return nil
		}
		r := Ref{Hash: ref.Hash().String(), Name: name.Short(), Full: name.String()}
		switch {
		case name.IsBranch():
			r.Kind = RefKindBranch
		case name.IsRemote():
			r.Kind = RefKindRemoteBranch
		case name.IsTag():
			peeled, ok := n.peelTagCommitHash(ref.Hash())
			if !ok {
				slog.Debug("skipping tag without commit target", slog.String("tag", r.Name))
				return nil
			}
			r.Kind = RefKindTag
			r.Hash = peeled.String()
		case name == stashRefName:
			r.Kind = RefKindStash
		default:
			r.Kind = RefKindOther
		}
		refs = append(refs, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list references: %w", err)
	}
	return refs, nil
}

func (n *native) peelTagCommitHash(hash plumbing.Hash) (plumbing.Hash, bool) {
	if hash == plumbing.ZeroHash {
		return plumbing.ZeroHash, false
	}
	// Lightweight tags point directly at a commit; annotated tags point at a tag object.
	if _, err := n.repo.CommitObject(hash); err == nil {
		return hash, true
	}
	cur := hash
	for range 8 {
		tag, err := n.repo.TagObject(cur)
		if err != nil {
			return plumbing.ZeroHash, false
		}
		switch tag.TargetType {
		case plumbing.CommitObject:
			return tag.Target, true
		case plumbing.TagObject:
			cur = tag.Target
		default:
			return plumbing.ZeroHash, false
		}
	}
	return plumbing.ZeroHash, false
}

func (n *native) Remotes() ([]Remote, error) {
	remotes, err := n.repo.Remotes()
	if err != nil {
		return nil, fmt.Errorf("list remotes: %w", err)
	}
	out := make([]Remote, 0, len(remotes))
	for _, r := range remotes {
		cfg := r.Config()
		remote := Remote{Name: cfg.Name}
		if len(cfg.URLs) > 0 {
			remote.URL = cfg.URLs[0]
		}
		out = append(out, remote)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (n *native) ResolveRevision(rev string) (string, error) {
	if rev == "" {
		return "", fmt.Errorf("%w: empty revision", ErrNotFound)
	}
	h, err := n.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return "", fmt.Errorf("%w: revision %q: %v", ErrNotFound, rev, err)
	}
	return h.String(), nil
}

func (n *native) Commit(hash string) (*Commit, error) {
	c, err := n.commitObject(hash)
	if err != nil {
		return nil, err
	}
	return n.toCommit(c), nil
}

func (n *native) commitObject(hash string) (*object.Commit, error) {
	if !plumbing.IsHash(hash) {
		return nil, fmt.Errorf("%w: commit %q", ErrNotFound, hash)
	}
	c, err := n.repo.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: commit %s", ErrNotFound, hash)
		}
		return nil, fmt.Errorf("read commit %s: %w", hash, err)
	}
	return c, nil
}

func (n *native) toCommit(c *object.Commit) *Commit {
	var parents []string
	if _, shallow := n.shallow[c.Hash]; !shallow {
		parents = make([]string, 0, len(c.ParentHashes))
		for _, p := range c.ParentHashes {
			parents = append(parents, p.String())
		}
	}
	return &Commit{
		Hash:         c.Hash.String(),
		TreeHash:     c.TreeHash.String(),
		ParentHashes: parents,
		Author:       toSignature(c.Author),
		Committer:    toSignature(c.Committer),
		Message:      c.Message,
	}
}

func toSignature(sig object.Signature) Signature {
	return Signature{Name: sig.Name, Email: sig.Email, When: sig.When}
}

func (n *native) Tree(hash string) ([]TreeEntry, error) {
	tree, err := n.treeObject(hash)
	if err != nil {
		return nil, err
	}
	entries := make([]TreeEntry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		entries = append(entries, TreeEntry{Name: e.Name, Hash: e.Hash.String(), Kind: entryKind(e.Mode)})
	}
	return entries, nil
}

func (n *native) treeObject(hash string) (*object.Tree, error) {
	if !plumbing.IsHash(hash) {
		return nil, fmt.Errorf("%w: tree %q", ErrNotFound, hash)
	}
	tree, err := n.repo.TreeObject(plumbing.NewHash(hash))
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: tree %s", ErrNotFound, hash)
		}
		return nil, fmt.Errorf("read tree %s: %w", hash, err)
	}
	return tree, nil
}

func entryKind(mode filemode.FileMode) EntryKind {
	switch mode {
	case filemode.Dir:
		return EntryDir
	case filemode.Submodule:
		return EntrySubmodule
	case filemode.Symlink:
		return EntrySymlink
	case filemode.Executable:
		return EntryExecutable
	default:
		return EntryFile
	}
}

func (n *native) DiffTrees(fromTree, toTree string) ([]FileChange, error) {
	var from, to *object.Tree
	var err error
	if fromTree != "" {
		if from, err = n.treeObject(fromTree); err != nil {
			return nil, err
		}
	}
	if toTree != "" {
		if to, err = n.treeObject(toTree); err != nil {
			return nil, err
		}
	}
	changes, err := object.DiffTreeWithOptions(context.Background(), from, to, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}
	out := make([]FileChange, 0, len(changes))
	for _, ch := range changes {
		action, err := ch.Action()
		if err != nil {
			return nil, fmt.Errorf("diff trees: %w", err)
		}
		switch action {
		case merkletrie.Insert:
			out = append(out, FileChange{Action: ChangeAdded, To: ch.To.Name})
		case merkletrie.Delete:
			out = append(out, FileChange{Action: ChangeDeleted, From: ch.From.Name})
		case merkletrie.Modify:
			if ch.From.Name != ch.To.Name {
				out = append(out, FileChange{Action: ChangeRenamed, From: ch.From.Name, To: ch.To.Name})
				continue
			}
			out = append(out, FileChange{Action: ChangeModified, From: ch.From.Name, To: ch.To.Name})
		}
	}
	return out, nil
}

func (n *native) Blob(hash string) ([]byte, error) {
	if !plumbing.IsHash(hash) {
		return nil, fmt.Errorf("%w: blob %q", ErrNotFound, hash)
	}
	blob, err := n.repo.BlobObject(plumbing.NewHash(hash))
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: blob %s", ErrNotFound, hash)
		}
		return nil, fmt.Errorf("read blob %s: %w", hash, err)
	}
	r, err := blob.Reader()
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", hash, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", hash, err)
	}
	return data, nil
}
