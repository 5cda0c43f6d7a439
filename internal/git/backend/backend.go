package backend

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrNotFound is returned when a requested object, reference or path does not exist.
var ErrNotFound = errors.New("not found")

// Backend abstracts access to repository data.
//
// The default implementation reads the repository with go-git. The CLI variant
// reuses it and only shells out to the git executable for blame, which needs
// copy and move detection across files.
type Backend interface {
	RepoPath() string

	// StashIDs returns the commit ids of every stash entry.
	StashIDs() (map[string]struct{}, error)
	// Walk visits commits reachable from opts.Roots in topological order, ties
	// broken by commit time, newest first (unless opts.Reverse).
	Walk(opts WalkOptions) (LogStream, error)

	HeadState() (hash string, headName string, ok bool, err error)
	ListRefs() ([]Ref, error)
	Remotes() ([]Remote, error)
	ResolveRevision(rev string) (string, error)

	Commit(hash string) (*Commit, error)
	// IsAncestor reports whether ancestor is reachable from descendant. Every
	// commit is its own ancestor.
	IsAncestor(ancestor, descendant string) (bool, error)
	Tree(hash string) ([]TreeEntry, error)
	// DiffTrees lists file changes between two trees. An empty fromTree means the empty tree.
	DiffTrees(fromTree, toTree string) ([]FileChange, error)
	// Blame returns one attribution per line of the file at opts.Newest.
	Blame(opts BlameOptions) ([]BlameLine, error)
	Blob(hash string) ([]byte, error)

	Close() error
}

// LogStream yields commits in walk order. Next returns io.EOF once exhausted.
type LogStream interface {
	Next() (*Commit, error)
	Close() error
}

type Kind string

const (
	KindNative Kind = "native"
	KindGitCLI Kind = "gitcli"
	KindAuto   Kind = "auto"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindAuto, nil
	case KindNative, KindGitCLI, KindAuto:
		return k, nil
	default:
		return "", fmt.Errorf("unknown backend %q (want native, gitcli or auto)", s)
	}
}

// Open opens the repository at path with the requested backend kind. Auto
// prefers the CLI blame when a recent enough git executable is available.
func Open(path string, kind Kind) (Backend, error) {
	switch kind {
	case KindNative:
		return OpenNative(path)
	case KindGitCLI:
		return OpenCLI(path)
	case KindAuto, "":
		if err := ensureMinGitVersion(); err != nil {
			slog.Debug("git executable unavailable, using native blame", slog.Any("error", err))
			return OpenNative(path)
		}
		return OpenCLI(path)
	default:
		return nil, fmt.Errorf("unknown backend %q", kind)
	}
}
