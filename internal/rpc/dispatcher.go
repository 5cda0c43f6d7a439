package rpc

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/thiagokokada/git-explorer/internal/git"
)

const maxLineBytes = 16 << 20

var (
	errNoRepository = errors.New("no repository open")
	errShutdown     = errors.New("session is shutting down")
)

// Tracker reports repository changes for has_changes.
type Tracker interface {
	Poll() (changed bool, generation uint64)
	Close() error
}

type (
	OpenFunc  func(path string) (*git.Service, error)
	WatchFunc func(repoPath string) (Tracker, error)
)

type Options struct {
	// Open opens a repository for open_repository. Defaults to git.Open with
	// the auto backend.
	Open OpenFunc
	// Watch starts change tracking for an opened repository. Nil disables it.
	Watch WatchFunc
}

// Dispatcher routes decoded requests to the engine. It is not safe for
// concurrent use; hosts with several producers go through a Queue.
type Dispatcher struct {
	open  OpenFunc
	watch WatchFunc

	svc     *git.Service
	tracker Tracker

	shutdown     atomic.Bool
	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

func NewDispatcher(opts Options) *Dispatcher {
	if opts.Open == nil {
		opts.Open = func(path string) (*git.Service, error) {
			return git.Open(path, "")
		}
	}
	return &Dispatcher{open: opts.Open, watch: opts.Watch, shutdownCh: make(chan struct{})}
}

// SetService installs an already opened repository, replacing the current one.
func (d *Dispatcher) SetService(svc *git.Service) {
	d.closeRepository()
	d.svc = svc
	if svc == nil || d.watch == nil {
		return
	}
	tracker, err := d.watch(svc.RepoPath())
	if err != nil {
		slog.Warn("change tracking disabled", slog.String("repo", svc.RepoPath()), slog.Any("error", err))
		return
	}
	d.tracker = tracker
}

// OpenRepository opens path and makes it the session repository. The current
// repository is kept when opening fails.
func (d *Dispatcher) OpenRepository(path string) error {
	svc, err := d.open(path)
	if err != nil {
		return fmt.Errorf("open repository %s: %w", path, err)
	}
	d.SetService(svc)
	slog.Info("repository opened", slog.String("path", svc.RepoPath()))
	return nil
}

func (d *Dispatcher) closeRepository() {
	if d.tracker != nil {
		if err := d.tracker.Close(); err != nil {
			slog.Error("tracker close", slog.Any("error", err))
		}
		d.tracker = nil
	}
	if d.svc != nil {
		if err := d.svc.Close(); err != nil {
			slog.Error("repository close", slog.Any("error", err))
		}
		d.svc = nil
	}
}

func (d *Dispatcher) Close() error {
	d.closeRepository()
	return nil
}

// ShuttingDown reports whether a shutdown request was handled.
func (d *Dispatcher) ShuttingDown() bool {
	return d.shutdown.Load()
}

// Done is closed once a shutdown request was handled.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.shutdownCh
}

func (d *Dispatcher) markShutdown() {
	d.shutdown.Store(true)
	d.shutdownOnce.Do(func() { close(d.shutdownCh) })
}

// Serve emits the ready frame and handles one request per line of r until r
// ends or a shutdown request was handled.
func (d *Dispatcher) Serve(r io.Reader, sink Sink) error {
	if err := sink.Send(ReadyFrame{Ready: true}); err != nil {
		return fmt.Errorf("send ready frame: %w", err)
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for !d.ShuttingDown() && scanner.Scan() {
		if err := d.Handle(scanner.Bytes(), sink); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read requests: %w", err)
	}
	return nil
}

// Handle runs the request in line and reports its outcome to sink. Failures
// of the request become an error frame; only a failing sink is returned.
func (d *Dispatcher) Handle(line []byte, sink Sink) error {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}
	req, m, err := decodeRequest(line)
	if err != nil {
		slog.Debug("rejected request", slog.Any("error", err))
		return sendError(sink, err)
	}
	start := time.Now()
	err = d.call(req, m, sink)
	slog.Debug("request",
		slog.String("method", req.Method),
		slog.Duration("elapsed", time.Since(start)),
		slog.Bool("ok", err == nil),
	)
	if err != nil {
		return sendError(sink, err)
	}
	return nil
}

func (d *Dispatcher) call(req Request, m method, sink Sink) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("handler panic",
				slog.String("method", req.Method),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("%w: %s: %v", git.ErrInvariant, req.Method, r)
		}
	}()
	if m.needsRepo && d.svc == nil {
		return errNoRepository
	}
	return m.call(d, req.Params, sink)
}

func decodeRequest(line []byte) (Request, method, error) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return req, method{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if req.Method == "" {
		return req, method{}, fmt.Errorf("%w: missing method", ErrDecode)
	}
	m, ok := methods[req.Method]
	if !ok {
		return req, method{}, fmt.Errorf("%w: unknown method %q", ErrDecode, req.Method)
	}
	return req, m, nil
}

// decodeParams fills v from raw. Absent or null params leave v untouched.
func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: params: %v", ErrDecode, err)
	}
	return nil
}
