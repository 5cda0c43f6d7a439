// Package rpc implements the newline-delimited JSON protocol spoken with the
// front end: one request per line, one or more response frames per request.
package rpc

import (
	"encoding/json"
	"errors"
	"io"
	"sync"
)

// ErrDecode marks a request line that could not be decoded or routed. The
// session continues after reporting it.
var ErrDecode = errors.New("decode request")

type Request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// DataFrame carries one result. End marks the last frame of a response.
type DataFrame struct {
	Data any  `json:"data"`
	End  bool `json:"end,omitempty"`
}

type ErrorFrame struct {
	Error string `json:"error"`
}

type ReadyFrame struct {
	Ready bool `json:"ready"`
}

// Sink receives the frames of one request.
type Sink interface {
	Send(frame any) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(frame any) error

func (f SinkFunc) Send(frame any) error { return f(frame) }

type writerSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewWriterSink writes every frame as one JSON line to w.
func NewWriterSink(w io.Writer) Sink {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &writerSink{enc: enc}
}

func (s *writerSink) Send(frame any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(frame)
}

func sendData(sink Sink, v any) error {
	return sink.Send(DataFrame{Data: v})
}

func sendEnd(sink Sink, v any) error {
	return sink.Send(DataFrame{Data: v, End: true})
}

func sendError(sink Sink, err error) error {
	return sink.Send(ErrorFrame{Error: err.Error()})
}
