package git

import (
	"fmt"
	"strings"

	gitbackend "github.com/thiagokokada/git-explorer/internal/git/backend"
)

// FileTree returns the tree of rev as nested nodes, in tree order.
func (s *Service) FileTree(rev string) ([]*TreeNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	root, err := s.rootTree(rev)
	if err != nil {
		return nil, err
	}
	return s.buildTree(root)
}

func (s *Service) buildTree(treeHash string) ([]*TreeNode, error) {
	entries, err := s.backend.Tree(treeHash)
	if err != nil {
		return nil, fmt.Errorf("read tree: %w", err)
	}
	nodes := make([]*TreeNode, 0, len(entries))
	for _, e := range entries {
		node := &TreeNode{Name: e.Name, Kind: entryKind(e)}
		if e.IsDir() {
			if node.Children, err = s.buildTree(e.Hash); err != nil {
				return nil, err
			}
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// StreamFileTree emits the tree of rev one entry at a time. Siblings are listed
// before any of them is descended into; a directory gets a loading=true event
// when listed and a loading=false event once its subtree is done. The root
// closes last, with an empty path.
func (s *Service) StreamFileTree(rev string, emit func(TreeEvent) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	root, err := s.rootTree(rev)
	if err != nil {
		return err
	}
	return s.streamTree(root, []string{}, emit)
}

func (s *Service) streamTree(treeHash string, prefix []string, emit func(TreeEvent) error) error {
	entries, err := s.backend.Tree(treeHash)
	if err != nil {
		return fmt.Errorf("read tree: %w", err)
	}
	type subtree struct {
		path []string
		hash string
	}
	var subtrees []subtree
	for _, e := range entries {
		path := append(append(make([]string, 0, len(prefix)+1), prefix...), e.Name)
		ev := TreeEvent{Path: path, Kind: entryKind(e)}
		if e.IsDir() {
			ev.Loading = boolPtr(true)
			subtrees = append(subtrees, subtree{path: path, hash: e.Hash})
		}
		if err := emit(ev); err != nil {
			return err
		}
	}
	for _, st := range subtrees {
		if err := s.streamTree(st.hash, st.path, emit); err != nil {
			return err
		}
	}
	return emit(TreeEvent{Path: prefix, Kind: KindFolder, Loading: boolPtr(false)})
}

func boolPtr(v bool) *bool { return &v }

func entryKind(e gitbackend.TreeEntry) FileKind {
	switch e.Kind {
	case gitbackend.EntryDir:
		return KindFolder
	case gitbackend.EntrySubmodule:
		return KindSubmodule
	default:
		return ClassifyFile(e.Name)
	}
}

func (s *Service) rootTree(rev string) (string, error) {
	hash, err := s.resolveRevisionLocked(rev)
	if err != nil {
		return "", err
	}
	c, err := s.backend.Commit(hash)
	if err != nil {
		return "", fmt.Errorf("read commit: %w", err)
	}
	return c.TreeHash, nil
}

// lookupPath finds the entry at a slash-separated path below treeHash.
func (s *Service) lookupPath(treeHash, path string) (gitbackend.TreeEntry, error) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 1 && segments[0] == "" {
		return gitbackend.TreeEntry{}, fmt.Errorf("%w: empty path", ErrNotFound)
	}
	current := gitbackend.TreeEntry{Hash: treeHash, Kind: gitbackend.EntryDir}
	for _, seg := range segments {
		if !current.IsDir() {
			return gitbackend.TreeEntry{}, fmt.Errorf("%w: path %q", ErrNotFound, path)
		}
		entries, err := s.backend.Tree(current.Hash)
		if err != nil {
			return gitbackend.TreeEntry{}, fmt.Errorf("read tree: %w", err)
		}
		found := false
		for _, e := range entries {
			if e.Name == seg {
				current, found = e, true
				break
			}
		}
		if !found {
			return gitbackend.TreeEntry{}, fmt.Errorf("%w: path %q", ErrNotFound, path)
		}
	}
	return current, nil
}
