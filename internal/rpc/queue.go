package rpc

import (
	"log/slog"
	"sync"
)

type job struct {
	line []byte
	sink Sink
}

// Queue feeds requests from any number of producers to a Dispatcher through a
// single worker, so each request runs to completion before the next starts.
type Queue struct {
	d    *Dispatcher
	jobs chan job

	// mu guards closed; Submit holds it for reading while it enqueues.
	mu     sync.RWMutex
	closed bool

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewQueue(d *Dispatcher, size int) *Queue {
	q := &Queue{
		d:    d,
		jobs: make(chan job, size),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

// Submit enqueues line; its frames go to sink. After shutdown the request is
// rejected with an error frame.
func (q *Queue) Submit(line []byte, sink Sink) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed || q.d.ShuttingDown() {
		q.reject(sink)
		return
	}
	j := job{line: append([]byte(nil), line...), sink: sink}
	select {
	case q.jobs <- j:
	case <-q.stop:
		q.reject(sink)
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		select {
		case <-q.stop:
			q.drain()
			return
		case j := <-q.jobs:
			if q.d.ShuttingDown() {
				q.reject(j.sink)
				continue
			}
			if err := q.d.Handle(j.line, j.sink); err != nil {
				slog.Debug("response not delivered", slog.Any("error", err))
			}
		}
	}
}

func (q *Queue) drain() {
	for {
		select {
		case j := <-q.jobs:
			q.reject(j.sink)
		default:
			return
		}
	}
}

func (q *Queue) reject(sink Sink) {
	if err := sendError(sink, errShutdown); err != nil {
		slog.Debug("rejection not delivered", slog.Any("error", err))
	}
}

// Close stops the worker once the running job returns. Queued jobs are
// rejected, including any that raced with Close.
func (q *Queue) Close() {
	q.stopOnce.Do(func() { close(q.stop) })
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	<-q.done
	q.drain()
}
