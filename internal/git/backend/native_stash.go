package backend

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

const stashRefName = plumbing.ReferenceName("refs/stash")

// StashIDs returns every stash entry, not only the one refs/stash points at.
// Older entries only live in the stash reflog.
func (n *native) StashIDs() (map[string]struct{}, error) {
	ids := make(map[string]struct{})
	ref, err := n.repo.Reference(stashRefName, true)
	switch {
	case errors.Is(err, plumbing.ErrReferenceNotFound):
		return ids, nil
	case err != nil:
		return nil, fmt.Errorf("read stash ref: %w", err)
	}
	ids[ref.Hash().String()] = struct{}{}

	storage, ok := n.repo.Storer.(*filesystem.Storage)
	if !ok {
		return ids, nil
	}
	entries, err := readReflog(storage.Filesystem(), "logs/"+stashRefName.String())
	if err != nil {
		return nil, fmt.Errorf("read stash reflog: %w", err)
	}
	for _, hash := range entries {
		ids[hash] = struct{}{}
	}
	return ids, nil
}

// readReflog returns the new-value hash of every reflog line, oldest first.
func readReflog(fs billy.Filesystem, name string) ([]string, error) {
	f, err := fs.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return parseReflog(f)
}

func parseReflog(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || !plumbing.IsHash(fields[1]) {
			return nil, fmt.Errorf("unexpected reflog line: %q", line)
		}
		if isZeroHash(fields[1]) {
			continue
		}
		out = append(out, fields[1])
	}
	return out, scanner.Err()
}
