package git

import (
	"fmt"

	gitbackend "github.com/thiagokokada/git-explorer/internal/git/backend"
	"github.com/thiagokokada/git-explorer/internal/identity"
)

// GetCommit returns the commit rev resolves to, with its changed files.
func (s *Service) GetCommit(rev string) (*Commit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash, err := s.resolveRevisionLocked(rev)
	if err != nil {
		return nil, err
	}
	return s.commitDetailLocked(hash)
}

// StreamCommits emits every commit reachable from a ref, stash entries aside,
// in history order.
func (s *Service) StreamCommits(emit func(*Commit) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stash, err := s.backend.StashIDs()
	if err != nil {
		return fmt.Errorf("list stash entries: %w", err)
	}
	roots, err := s.historyRoots(stash)
	if err != nil {
		return fmt.Errorf("list refs: %w", err)
	}
	return s.walk(gitbackend.WalkOptions{Roots: roots}, func(c *gitbackend.Commit) (bool, error) {
		if _, ok := stash[c.Hash]; ok {
			return true, nil
		}
		detail, err := s.commitDetail(c)
		if err != nil {
			return false, err
		}
		return true, emit(detail)
	})
}

func (s *Service) commitDetailLocked(hash string) (*Commit, error) {
	c, err := s.backend.Commit(hash)
	if err != nil {
		return nil, fmt.Errorf("read commit: %w", err)
	}
	return s.commitDetail(c)
}

// commitDetail lists the files changed against every parent. A root commit
// adds all of its files.
func (s *Service) commitDetail(c *gitbackend.Commit) (*Commit, error) {
	files, err := s.changedFiles(c)
	if err != nil {
		return nil, err
	}
	parents := append([]string{}, c.ParentHashes...)
	return &Commit{
		Oid:       c.Hash,
		AuthorID:  identity.ID(c.Author.Name, c.Author.Email),
		Message:   c.Message,
		Timestamp: c.Timestamp(),
		Parents:   parents,
		Files:     files,
	}, nil
}

func (s *Service) changedFiles(c *gitbackend.Commit) (CommitFiles, error) {
	files := CommitFiles{Added: []string{}, Modified: []string{}, Deleted: []string{}, Renamed: [][2]string{}}
	bases := []string{""}
	if len(c.ParentHashes) > 0 {
		bases = bases[:0]
		for _, p := range c.ParentHashes {
			parent, err := s.backend.Commit(p)
			if err != nil {
				return files, fmt.Errorf("read parent %s: %w", p, err)
			}
			bases = append(bases, parent.TreeHash)
		}
	}

	seen := map[gitbackend.FileChange]struct{}{}
	for _, base := range bases {
		changes, err := s.backend.DiffTrees(base, c.TreeHash)
		if err != nil {
			return files, fmt.Errorf("diff commit %s: %w", c.Hash, err)
		}
		for _, ch := range changes {
			if _, ok := seen[ch]; ok {
				continue
			}
			seen[ch] = struct{}{}
			switch ch.Action {
			case gitbackend.ChangeAdded:
				files.Added = append(files.Added, ch.To)
			case gitbackend.ChangeModified:
				files.Modified = append(files.Modified, ch.To)
			case gitbackend.ChangeDeleted:
				files.Deleted = append(files.Deleted, ch.From)
			case gitbackend.ChangeRenamed:
				files.Renamed = append(files.Renamed, [2]string{ch.From, ch.To})
			}
		}
	}
	return files, nil
}
