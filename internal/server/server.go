// Package server carries the JSON protocol over WebSocket connections. Every
// text message is one request; each response frame is one text message.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/thiagokokada/git-explorer/internal/rpc"
)

const (
	queueSize       = 64
	shutdownTimeout = 5 * time.Second
	writeTimeout    = 30 * time.Second
)

type Server struct {
	queue    *rpc.Queue
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[string]*websocket.Conn
}

func New(queue *rpc.Queue) *Server {
	return &Server{
		queue: queue,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     allowedOrigin,
		},
		conns: map[string]*websocket.Conn{},
	}
}

// allowedOrigin accepts non-browser clients and pages served from loopback or
// from the host being dialed.
func allowedOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Host == r.Host {
		return true
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// wsSink serializes writes to one connection; frames of queued requests and
// rejections may come from different goroutines.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSink) Send(frame any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return s.conn.WriteJSON(frame)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade", slog.Any("error", err))
		return
	}
	id := uuid.NewString()[:8]
	log := slog.With(slog.String("conn", id))
	s.track(id, conn)
	defer func() {
		s.untrack(id)
		if err := conn.Close(); err != nil {
			log.Debug("websocket close", slog.Any("error", err))
		}
	}()
	log.Info("client connected", slog.String("remote", r.RemoteAddr))

	sink := &wsSink{conn: conn}
	if err := sink.Send(rpc.ReadyFrame{Ready: true}); err != nil {
		log.Error("send ready frame", slog.Any("error", err))
		return
	}
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("websocket read", slog.Any("error", err))
			}
			log.Info("client disconnected")
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		for line := range bytes.SplitSeq(msg, []byte("\n")) {
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			s.queue.Submit(line, sink)
		}
	}
}

func (s *Server) track(id string, conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[id] = conn
}

func (s *Server) untrack(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, id)
}

// closeAll closes every connection; http.Server.Shutdown leaves hijacked
// connections alone.
func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, conn := range s.conns {
		if err := conn.Close(); err != nil {
			slog.Debug("websocket close", slog.String("conn", id), slog.Any("error", err))
		}
	}
}

// ListenAndServe serves d on addr until a client requests shutdown.
func ListenAndServe(addr string, d *rpc.Dispatcher) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return Serve(ln, d)
}

func Serve(ln net.Listener, d *rpc.Dispatcher) error {
	q := rpc.NewQueue(d, queueSize)
	defer q.Close()
	s := New(q)
	srv := &http.Server{Handler: s, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	slog.Info("listening", slog.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		return err
	case <-d.Done():
	}
	// Let the worker finish answering the shutdown request first.
	q.Close()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	shutdownErr := srv.Shutdown(ctx)
	s.closeAll()
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Join(err, shutdownErr)
	}
	return shutdownErr
}
