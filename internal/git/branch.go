package git

import (
	"fmt"

	gitbackend "github.com/thiagokokada/git-explorer/internal/git/backend"
)

// LocalBranchNames returns the sorted local branch names.
func (s *Service) LocalBranchNames() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	refs, err := s.backend.ListRefs()
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	return refNames(refs, gitbackend.RefKindBranch), nil
}

// branchTip resolves a local branch name to its tip commit.
func (s *Service) branchTip(branch string) (string, error) {
	refs, err := s.backend.ListRefs()
	if err != nil {
		return "", fmt.Errorf("list branches: %w", err)
	}
	ref, ok := findRef(refs, gitbackend.RefKindBranch, branch)
	if !ok {
		return "", fmt.Errorf("%w: branch %q", ErrNotFound, branch)
	}
	return ref.Hash, nil
}
