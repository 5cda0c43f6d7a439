package backend

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pmezard/go-difflib/difflib"
)

// SplitLines splits file content the way blame counts lines: a trailing
// newline does not start an extra empty line.
func SplitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func (n *native) Blame(opts BlameOptions) ([]BlameLine, error) {
	newest, err := n.commitObject(opts.Newest)
	if err != nil {
		return nil, err
	}
	if err := n.checkOldest(opts); err != nil {
		return nil, err
	}
	if opts.FirstParent && opts.Oldest != "" && len(newest.ParentHashes) > 0 &&
		newest.ParentHashes[0].String() == opts.Oldest {
		return n.blameAgainstParent(newest, opts.Path)
	}

	res, err := gitlib.Blame(newest, opts.Path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: %s at %s", ErrNotFound, opts.Path, opts.Newest)
		}
		return nil, fmt.Errorf("blame %s: %w", opts.Path, err)
	}
	sigs := newSignatureCache(n)
	clamp, err := n.ancestorClamp(opts.Oldest)
	if err != nil {
		return nil, err
	}
	out := make([]BlameLine, 0, len(res.Lines))
	for _, line := range res.Lines {
		hash := line.Hash.String()
		if clamp != nil {
			if hash, err = clamp(hash); err != nil {
				return nil, err
			}
		}
		sig, err := sigs.get(hash)
		if err != nil {
			return nil, err
		}
		out = append(out, BlameLine{CommitHash: hash, Author: sig})
	}
	return out, nil
}

// blameAgainstParent attributes unchanged lines to the first parent and every
// inserted or replaced line to the commit itself.
func (n *native) blameAgainstParent(newest *object.Commit, path string) ([]BlameLine, error) {
	target, err := fileLines(newest, path)
	if err != nil {
		return nil, err
	}
	parent, err := newest.Parent(0)
	if err != nil {
		return nil, fmt.Errorf("read first parent of %s: %w", newest.Hash, err)
	}
	base, err := fileLines(parent, path)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	newestLine := BlameLine{CommitHash: newest.Hash.String(), Author: toSignature(newest.Author)}
	parentLine := BlameLine{CommitHash: parent.Hash.String(), Author: toSignature(parent.Author)}
	out := make([]BlameLine, len(target))
	for i := range out {
		out[i] = newestLine
	}
	matcher := difflib.NewMatcher(base, target)
	for _, op := range matcher.GetOpCodes() {
		if op.Tag != 'e' {
			continue
		}
		for j := op.J1; j < op.J2; j++ {
			out[j] = parentLine
		}
	}
	slog.Debug("first-parent blame",
		slog.String("path", path),
		slog.String("commit", newest.Hash.String()),
		slog.Int("lines", len(out)),
	)
	return out, nil
}

func fileLines(c *object.Commit, path string) ([]string, error) {
	f, err := c.File(path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: %s at %s", ErrNotFound, path, c.Hash)
		}
		return nil, fmt.Errorf("read %s at %s: %w", path, c.Hash, err)
	}
	content, err := f.Contents()
	if err != nil {
		return nil, fmt.Errorf("read %s at %s: %w", path, c.Hash, err)
	}
	return SplitLines(content), nil
}

func (n *native) IsAncestor(ancestor, descendant string) (bool, error) {
	a, err := n.commitObject(ancestor)
	if err != nil {
		return false, err
	}
	d, err := n.commitObject(descendant)
	if err != nil {
		return false, err
	}
	ok, err := a.IsAncestor(d)
	if err != nil {
		return false, fmt.Errorf("check ancestry of %s: %w", ancestor, err)
	}
	return ok, nil
}

// checkOldest rejects a lower bound outside the history of opts.Newest.
func (n *native) checkOldest(opts BlameOptions) error {
	if opts.Oldest == "" || opts.Oldest == opts.Newest {
		return nil
	}
	ok, err := n.IsAncestor(opts.Oldest, opts.Newest)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s is not in the history of %s", ErrNotFound, opts.Oldest, opts.Newest)
	}
	return nil
}

// ancestorClamp maps every commit that oldest already contains onto oldest, so
// history before the lower bound collapses into a single boundary commit.
func (n *native) ancestorClamp(oldest string) (func(string) (string, error), error) {
	if oldest == "" {
		return nil, nil
	}
	bound, err := n.commitObject(oldest)
	if err != nil {
		return nil, err
	}
	known := map[string]bool{oldest: true}
	return func(hash string) (string, error) {
		contained, ok := known[hash]
		if !ok {
			c, err := n.commitObject(hash)
			if err != nil {
				return "", err
			}
			contained, err = c.IsAncestor(bound)
			if err != nil {
				return "", fmt.Errorf("check ancestry of %s: %w", hash, err)
			}
			known[hash] = contained
		}
		if contained {
			return oldest, nil
		}
		return hash, nil
	}, nil
}

type signatureCache struct {
	n    *native
	sigs map[string]Signature
}

func newSignatureCache(n *native) *signatureCache {
	return &signatureCache{n: n, sigs: map[string]Signature{}}
}

func (c *signatureCache) get(hash string) (Signature, error) {
	if sig, ok := c.sigs[hash]; ok {
		return sig, nil
	}
	commit, err := c.n.commitObject(hash)
	if err != nil {
		return Signature{}, err
	}
	sig := toSignature(commit.Author)
	c.sigs[hash] = sig
	return sig, nil
}
