package git

import (
	"fmt"
	"log/slog"
	"path"
	"strings"

	gitbackend "github.com/thiagokokada/git-explorer/internal/git/backend"
	"github.com/thiagokokada/git-explorer/internal/identity"
)

type BlameParams struct {
	Rev  string
	Path string
	// Preview restricts attribution to what Rev itself changed on top of its
	// first parent.
	Preview bool
	// SinceRev is an explicit lower bound; older lines are attributed to it.
	SinceRev string
}

// Blame attributes every line of Path at Rev to a commit.
func (s *Service) Blame(p BlameParams) (*BlameResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	newest, err := s.resolveRevisionLocked(p.Rev)
	if err != nil {
		return nil, err
	}
	commit, err := s.backend.Commit(newest)
	if err != nil {
		return nil, fmt.Errorf("read commit: %w", err)
	}
	entry, err := s.lookupPath(commit.TreeHash, p.Path)
	if err != nil {
		return nil, err
	}
	if entry.Kind == gitbackend.EntryDir || entry.Kind == gitbackend.EntrySubmodule {
		return nil, fmt.Errorf("%w: %s is not a file", ErrNotFound, p.Path)
	}
	content, err := s.backend.Blob(entry.Hash)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p.Path, err)
	}

	res := &BlameResult{
		FileName: path.Base(p.Path),
		Commits:  map[string]BlameCommit{},
		Lines:    []BlameLine{},
	}
	lines := gitbackend.SplitLines(string(content))
	if len(lines) == 0 {
		return res, nil
	}

	opts := gitbackend.BlameOptions{Path: p.Path, Newest: newest}
	switch {
	case p.Preview:
		opts.FirstParent = true
		if len(commit.ParentHashes) > 0 {
			opts.Oldest = commit.ParentHashes[0]
		}
	case p.SinceRev != "":
		if opts.Oldest, err = s.resolveRevisionLocked(p.SinceRev); err != nil {
			return nil, err
		}
		if opts.Oldest != newest {
			ok, err := s.backend.IsAncestor(opts.Oldest, newest)
			if err != nil {
				return nil, fmt.Errorf("check %s: %w", p.SinceRev, err)
			}
			if !ok {
				return nil, fmt.Errorf("%w: %s is not in the history of %s", ErrNotFound, p.SinceRev, p.Rev)
			}
		}
	}
	var attributions []gitbackend.BlameLine
	if opts.Oldest == newest {
		// Nothing is newer than the bound: every line belongs to it.
		attributions = make([]gitbackend.BlameLine, len(lines))
		for i := range attributions {
			attributions[i] = gitbackend.BlameLine{CommitHash: newest, Author: commit.Author}
		}
	} else if attributions, err = s.backend.Blame(opts); err != nil {
		return nil, fmt.Errorf("blame %s: %w", p.Path, err)
	}
	if len(attributions) != len(lines) {
		return nil, fmt.Errorf("%w: blame of %s attributed %d of %d lines", ErrInvariant, p.Path, len(attributions), len(lines))
	}

	for i, line := range lines {
		attr := attributions[i]
		if attr.CommitHash == "" {
			return nil, fmt.Errorf("%w: line %d of %s has no commit", ErrInvariant, i+1, p.Path)
		}
		if _, ok := res.Commits[attr.CommitHash]; !ok {
			res.Commits[attr.CommitHash] = BlameCommit{
				CommitID:  attr.CommitHash,
				AuthorID:  identity.ID(attr.Author.Name, attr.Author.Email),
				Timestamp: attr.Author.When.Unix(),
			}
		}
		res.Lines = append(res.Lines, BlameLine{LineNo: i + 1, CommitID: attr.CommitHash, Content: strings.TrimSuffix(line, "\r")})
	}
	slog.Debug("blame",
		slog.String("path", p.Path),
		slog.String("rev", newest),
		slog.String("oldest", opts.Oldest),
		slog.Int("lines", len(res.Lines)),
		slog.Int("commits", len(res.Commits)),
	)
	return res, nil
}
