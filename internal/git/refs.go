package git

import (
	"slices"
	"strings"

	gitbackend "github.com/thiagokokada/git-explorer/internal/git/backend"
)

// refNames returns the sorted, deduplicated short names of refs of one kind.
func refNames(refs []gitbackend.Ref, kind gitbackend.RefKind) []string {
	seen := make(map[string]struct{}, len(refs))
	names := []string{}
	for _, ref := range refs {
		if ref.Kind != kind {
			continue
		}
		name := strings.TrimSpace(ref.Name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func findRef(refs []gitbackend.Ref, kind gitbackend.RefKind, name string) (gitbackend.Ref, bool) {
	for _, ref := range refs {
		if ref.Kind == kind && ref.Name == name {
			return ref, true
		}
	}
	return gitbackend.Ref{}, false
}

// historyRoots lists the tips a full-history walk starts from: every ref
// except the stash, plus a detached HEAD.
func (s *Service) historyRoots(stash map[string]struct{}) ([]string, error) {
	refs, err := s.backend.ListRefs()
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	var roots []string
	add := func(hash string) {
		if hash == "" {
			return
		}
		if _, ok := stash[hash]; ok {
			return
		}
		if _, ok := seen[hash]; ok {
			return
		}
		seen[hash] = struct{}{}
		roots = append(roots, hash)
	}
	headHash, _, ok, err := s.backend.HeadState()
	if err != nil {
		return nil, err
	}
	if ok {
		add(headHash)
	}
	for _, ref := range refs {
		if ref.Kind == gitbackend.RefKindStash {
			continue
		}
		add(ref.Hash)
	}
	return roots, nil
}
