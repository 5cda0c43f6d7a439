package git

import (
	"errors"
	"fmt"
	"strings"

	gitbackend "github.com/thiagokokada/git-explorer/internal/git/backend"
)

// ResolveRevision resolves a revision as a tag, then a local branch, then any
// commit id or revision expression the backend understands.
func (s *Service) ResolveRevision(rev string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveRevisionLocked(rev)
}

// IsValidRevision reports whether rev resolves to a commit. Only backend
// failures are errors.
func (s *Service) IsValidRevision(rev string) (bool, error) {
	_, err := s.ResolveRevision(rev)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Service) resolveRevisionLocked(rev string) (string, error) {
	rev = strings.TrimSpace(rev)
	if rev == "" {
		return "", fmt.Errorf("%w: empty revision", ErrNotFound)
	}
	refs, err := s.backend.ListRefs()
	if err != nil {
		return "", fmt.Errorf("list refs: %w", err)
	}
	if ref, ok := findRef(refs, gitbackend.RefKindTag, rev); ok {
		return ref.Hash, nil
	}
	if ref, ok := findRef(refs, gitbackend.RefKindBranch, rev); ok {
		return ref.Hash, nil
	}
	hash, err := s.backend.ResolveRevision(rev)
	if err != nil {
		return "", fmt.Errorf("resolve revision %q: %w", rev, err)
	}
	// Expressions may name trees or blobs; only commits are revisions here.
	if _, err := s.backend.Commit(hash); err != nil {
		return "", fmt.Errorf("resolve revision %q: %w", rev, err)
	}
	return hash, nil
}

// resolveRefLocked resolves a full reference name (refs/...) or falls back to
// resolveRevisionLocked for short names.
func (s *Service) resolveRefLocked(name string) (string, error) {
	name = strings.TrimSpace(name)
	if !strings.HasPrefix(name, "refs/") {
		return s.resolveRevisionLocked(name)
	}
	refs, err := s.backend.ListRefs()
	if err != nil {
		return "", fmt.Errorf("list refs: %w", err)
	}
	for _, ref := range refs {
		if ref.Full == name {
			return ref.Hash, nil
		}
	}
	return "", fmt.Errorf("%w: ref %q", ErrNotFound, name)
}

// ResolveRefPair resolves both refs to commits. Their ancestry is not checked.
func (s *Service) ResolveRefPair(startRef, endRef string) (CommitRange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	since, err := s.resolveRefLocked(startRef)
	if err != nil {
		return CommitRange{}, err
	}
	until, err := s.resolveRefLocked(endRef)
	if err != nil {
		return CommitRange{}, err
	}
	return CommitRange{SinceCommitID: since, UntilCommitID: until}, nil
}

// ResolveTimeRange walks a branch newest first. The until bound is the first
// commit not newer than end. The since bound is the commit walked right before
// the first commit older than start, so it is the oldest commit still inside
// the range; when the walk runs out it is the last commit visited.
func (s *Service) ResolveTimeRange(branch string, start, end int64) (CommitRange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolveTimeRangeLocked(branch, start, end)
}

func (s *Service) resolveTimeRangeLocked(branch string, start, end int64) (CommitRange, error) {
	tip, err := s.branchTip(branch)
	if err != nil {
		return CommitRange{}, err
	}
	var res CommitRange
	var previous string
	err = s.walk(gitbackend.WalkOptions{Roots: []string{tip}}, func(c *gitbackend.Commit) (bool, error) {
		ts := c.Timestamp()
		if res.UntilCommitID == "" && ts <= end {
			res.UntilCommitID = c.Hash
		}
		if res.SinceCommitID == "" && ts < start {
			res.SinceCommitID = previous
		}
		previous = c.Hash
		return res.SinceCommitID == "" || res.UntilCommitID == "", nil
	})
	if err != nil {
		return CommitRange{}, err
	}
	if res.SinceCommitID == "" {
		res.SinceCommitID = previous
	}
	return res, nil
}

// ResolveTimeRangeCommits is ResolveTimeRange with the bound commits attached.
func (s *Service) ResolveTimeRangeCommits(branch string, start, end int64) (CommitRange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.resolveTimeRangeLocked(branch, start, end)
	if err != nil {
		return CommitRange{}, err
	}
	if res.SinceCommitID != "" {
		if res.SinceCommit, err = s.commitDetailLocked(res.SinceCommitID); err != nil {
			return CommitRange{}, err
		}
	}
	if res.UntilCommitID != "" {
		if res.UntilCommit, err = s.commitDetailLocked(res.UntilCommitID); err != nil {
			return CommitRange{}, err
		}
	}
	return res, nil
}

// BranchRange spans a branch from its oldest reachable commit to its tip.
func (s *Service) BranchRange(branch string) (CommitRange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tip, err := s.branchTip(branch)
	if err != nil {
		return CommitRange{}, err
	}
	res := CommitRange{UntilCommitID: tip}
	err = s.walk(gitbackend.WalkOptions{Roots: []string{tip}, Reverse: true}, func(c *gitbackend.Commit) (bool, error) {
		res.SinceCommitID = c.Hash
		return false, nil
	})
	if err != nil {
		return CommitRange{}, err
	}
	return res, nil
}
