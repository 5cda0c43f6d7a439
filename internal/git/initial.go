package git

import (
	"fmt"

	gitbackend "github.com/thiagokokada/git-explorer/internal/git/backend"
)

// InitialData summarizes the repository for a client that just connected.
// An unborn HEAD yields no commits and "HEAD" as the branch.
func (s *Service) InitialData() (*InitialData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := &InitialData{CurrentBranch: "HEAD", Remotes: []Remote{}}
	head, headName, ok, err := s.backend.HeadState()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	if ok {
		if headName != "" {
			res.CurrentBranch = headName
		}
		if res.LastCommit, err = s.commitDetailLocked(head); err != nil {
			return nil, err
		}
		var first string
		err = s.walk(gitbackend.WalkOptions{Roots: []string{head}, Reverse: true}, func(c *gitbackend.Commit) (bool, error) {
			first = c.Hash
			return false, nil
		})
		if err != nil {
			return nil, err
		}
		if res.FirstCommit, err = s.commitDetailLocked(first); err != nil {
			return nil, err
		}
	}

	remotes, err := s.backend.Remotes()
	if err != nil {
		return nil, fmt.Errorf("list remotes: %w", err)
	}
	for _, r := range remotes {
		res.Remotes = append(res.Remotes, Remote{Name: r.Name, URL: r.URL})
	}
	refs, err := s.backend.ListRefs()
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	res.Branches = refNames(refs, gitbackend.RefKindBranch)
	res.Tags = refNames(refs, gitbackend.RefKindTag)
	return res, nil
}
