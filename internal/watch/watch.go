// Package watch tracks changes to a repository's git directory.
package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/thiagokokada/git-explorer/internal/debounce"
)

const DefaultDelay = 350 * time.Millisecond

// Tracker counts debounced bursts of filesystem activity in a repository.
// A nil *Tracker reports no changes.
type Tracker struct {
	generation atomic.Uint64
	polled     atomic.Uint64

	watcher  *fsnotify.Watcher
	debounce *debounce.Debouncer

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New starts watching the git directory of the repository rooted at repoPath.
func New(repoPath string, delay time.Duration) (*Tracker, error) {
	if delay <= 0 {
		delay = DefaultDelay
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	paths, err := watchPaths(repoPath)
	if err != nil {
		return nil, errors.Join(err, watcher.Close())
	}
	for _, path := range paths {
		slog.Debug("adding path to FS watcher", slog.String("path", path))
		if err := watcher.Add(path); err != nil {
			err := errors.Join(err, watcher.Close())
			return nil, fmt.Errorf("watch %s: %w", path, err)
		}
	}
	t := &Tracker{
		watcher: watcher,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	t.debounce = debounce.New(delay, t.bump)
	go t.loop()
	return t, nil
}

func (t *Tracker) bump() {
	gen := t.generation.Add(1)
	slog.Debug("repository changed", slog.Uint64("generation", gen))
}

// Generation is the number of change bursts seen so far.
func (t *Tracker) Generation() uint64 {
	if t == nil {
		return 0
	}
	return t.generation.Load()
}

// Poll reports whether the generation advanced since the previous Poll.
func (t *Tracker) Poll() (changed bool, generation uint64) {
	if t == nil {
		return false, 0
	}
	generation = t.generation.Load()
	previous := t.polled.Swap(generation)
	return generation != previous, generation
}

func (t *Tracker) Close() error {
	if t == nil {
		return nil
	}
	var err error
	t.stopOnce.Do(func() {
		close(t.stopCh)
		t.debounce.Stop()
		err = t.watcher.Close()
		<-t.doneCh
	})
	return err
}

func (t *Tracker) loop() {
	defer close(t.doneCh)
	for {
		select {
		case <-t.stopCh:
			return
		case ev, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if shouldIgnoreWatchPath(ev.Name) {
				continue
			}
			slog.Debug("fsnotify event",
				slog.String("op", ev.Op.String()),
				slog.String("path", ev.Name),
			)
			if ev.Op&fsnotify.Create != 0 {
				t.addIfRefDir(ev.Name)
			}
			t.debounce.Trigger()
		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("fsnotify error", slog.Any("error", err))
		}
	}
}

// addIfRefDir follows new directories under refs/, such as a branch namespace
// created after the watcher started.
func (t *Tracker) addIfRefDir(name string) {
	if !strings.Contains(filepath.ToSlash(name), "/refs/") {
		return
	}
	info, err := os.Stat(name)
	if err != nil || !info.IsDir() {
		return
	}
	if err := t.watcher.Add(name); err != nil {
		slog.Debug("watch new ref directory", slog.String("path", name), slog.Any("error", err))
	}
}

// watchPaths lists the git directory and every directory below refs/, since
// fsnotify is not recursive. Worktrees with a .git file are watched at their
// root.
func watchPaths(root string) ([]string, error) {
	if root == "" {
		return nil, errors.New("empty repository path")
	}
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return []string{root}, nil
	}
	paths := []string{gitDir}
	refs := filepath.Join(gitDir, "refs")
	err = filepath.WalkDir(refs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list ref directories: %w", err)
	}
	return paths, nil
}

func shouldIgnoreWatchPath(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".lock" || ext == ".ipc" {
		return true
	}
	return false
}
