package git

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	gitbackend "github.com/thiagokokada/git-explorer/internal/git/backend"
)

var (
	// ErrNotFound reports an unresolvable revision, branch, ref, tag or path.
	ErrNotFound = gitbackend.ErrNotFound
	// ErrInvariant reports a broken internal assumption. It fails the request
	// that hit it and nothing else.
	ErrInvariant = errors.New("invariant violation")
)

// maxMessageRunes bounds the first-line message carried by graph nodes.
const maxMessageRunes = 120

type Service struct {
	// mu serializes backend access; at most one traversal runs at a time.
	mu sync.Mutex

	backend gitbackend.Backend
}

// Open opens the repository at repoPath with the given backend kind.
func Open(repoPath string, kind gitbackend.Kind) (*Service, error) {
	b, err := gitbackend.Open(repoPath, kind)
	if err != nil {
		return nil, err
	}
	return NewWithBackend(b), nil
}

func NewWithBackend(b gitbackend.Backend) *Service {
	return &Service{backend: b}
}

func (s *Service) RepoPath() string {
	if s == nil || s.backend == nil {
		return ""
	}
	return s.backend.RepoPath()
}

func (s *Service) Close() error {
	if s == nil || s.backend == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Close()
}

// walk streams commits to fn until the stream ends or fn returns false.
// The caller must hold s.mu.
func (s *Service) walk(opts gitbackend.WalkOptions, fn func(*gitbackend.Commit) (bool, error)) error {
	if len(opts.Roots) == 0 {
		return nil
	}
	stream, err := s.backend.Walk(opts)
	if err != nil {
		return fmt.Errorf("walk history: %w", err)
	}
	defer func() {
		if err := stream.Close(); err != nil {
			slog.Debug("log stream close", slog.Any("error", err))
		}
	}()
	for {
		c, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("walk history: %w", err)
		}
		more, err := fn(c)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// firstLine returns the commit subject, trimmed to maxMessageRunes.
func firstLine(message string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(message), "\n")
	line = strings.TrimRight(line, "\r")
	if r := []rune(line); len(r) > maxMessageRunes {
		line = string(r[:maxMessageRunes])
	}
	return line
}
