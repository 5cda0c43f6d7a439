package git

import (
	"fmt"

	gitbackend "github.com/thiagokokada/git-explorer/internal/git/backend"
	"github.com/thiagokokada/git-explorer/internal/identity"
)

// Authors lists the distinct authors of HEAD's history, oldest first, with the
// number of commits each one authored.
func (s *Service) Authors() ([]Author, error) {
	var authors []*Author
	byID := map[string]*Author{}
	err := s.visitAuthors(func(a Author, first bool) error {
		if first {
			author := a
			byID[a.ID] = &author
			authors = append(authors, &author)
		}
		byID[a.ID].NumCommits++
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]Author, 0, len(authors))
	for _, a := range authors {
		out = append(out, *a)
	}
	return out, nil
}

// StreamAuthors emits every author the first time they appear in HEAD's
// history, oldest first.
func (s *Service) StreamAuthors(emit func(Author) error) error {
	return s.visitAuthors(func(a Author, first bool) error {
		if !first {
			return nil
		}
		return emit(a)
	})
}

func (s *Service) visitAuthors(fn func(a Author, first bool) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	head, _, ok, err := s.backend.HeadState()
	if err != nil {
		return fmt.Errorf("resolve HEAD: %w", err)
	}
	if !ok {
		return nil
	}
	seen := map[string]struct{}{}
	return s.walk(gitbackend.WalkOptions{Roots: []string{head}, Reverse: true}, func(c *gitbackend.Commit) (bool, error) {
		a := Author{
			ID:           identity.ID(c.Author.Name, c.Author.Email),
			Name:         c.Author.Name,
			Email:        c.Author.Email,
			GravatarHash: identity.GravatarHash(c.Author.Email),
		}
		_, known := seen[a.ID]
		seen[a.ID] = struct{}{}
		return true, fn(a, !known)
	})
}
