// Package synchronizer pairs the n-th arrival on two independent input
// ports and hands the pair to a callback, sequentially, on one internal
// worker. Each port is fed through its own unbuffered channel, so a send
// blocks until the worker is ready to pair it — the same rendezvous
// property a zero-capacity channel gives for free.
package synchronizer

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/nonblocking/syncprim/internal/telemetry"
)

// ErrClosed is returned by DataFromFirstPort/DataFromSecondPort once the
// Synchronizer has been closed.
var ErrClosed = errors.New("synchronizer: closed")

// Option configures a Synchronizer at construction.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger attaches a logger used to report recovered panics from process.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Synchronizer[A, B] feeds two one-way entry points into a single worker
// that pairs the n-th value received on each port, in arrival order per
// port, and invokes process(a, b) sequentially.
type Synchronizer[A, B any] struct {
	mu         sync.Mutex
	closed     bool
	stop       chan struct{}
	ch1        chan A
	ch2        chan B
	workerDone chan struct{}
}

// New constructs a Synchronizer and starts its pairing worker.
func New[A, B any](process func(A, B), opts ...Option) *Synchronizer[A, B] {
	o := options{logger: telemetry.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	s := &Synchronizer[A, B]{
		stop:       make(chan struct{}),
		ch1:        make(chan A),
		ch2:        make(chan B),
		workerDone: make(chan struct{}),
	}
	go s.run(process, o.logger)
	return s
}

// DataFromFirstPort feeds value into the first port. It blocks until the
// worker is ready to pair it with the next value from the second port, or
// until ctx is done, or until the Synchronizer is closed.
func (s *Synchronizer[A, B]) DataFromFirstPort(ctx context.Context, value A) error {
	select {
	case s.ch1 <- value:
		return nil
	case <-s.stop:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DataFromSecondPort feeds value into the second port, with the same
// blocking and cancellation semantics as DataFromFirstPort.
func (s *Synchronizer[A, B]) DataFromSecondPort(ctx context.Context, value B) error {
	select {
	case s.ch2 <- value:
		return nil
	case <-s.stop:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the pairing worker, unblocking any port send currently in
// progress, and waits for the worker to exit.
func (s *Synchronizer[A, B]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.stop)
	s.mu.Unlock()
	<-s.workerDone
}

func (s *Synchronizer[A, B]) run(process func(A, B), log *zap.Logger) {
	defer close(s.workerDone)
	for {
		var v1 A
		select {
		case v1 = <-s.ch1:
		case <-s.stop:
			return
		}

		var v2 B
		select {
		case v2 = <-s.ch2:
		case <-s.stop:
			return
		}

		invoke(log, process, v1, v2)
	}
}

func invoke[A, B any](log *zap.Logger, process func(A, B), a A, b B) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("synchronizer: recovered panic from process", zap.Any("panic", r))
		}
	}()
	process(a, b)
}
