// Package looper implements a single-worker message loop: Send enqueues
// messages for sequential, in-order processing by one internal goroutine,
// which runs cleanup exactly once after draining on Close.
package looper

import (
	"sync"

	"go.uber.org/zap"

	"github.com/nonblocking/syncprim/internal/gate"
	"github.com/nonblocking/syncprim/internal/telemetry"
)

// Option configures a Looper at construction.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger attaches a logger used to report recovered panics from
// process or cleanup.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Looper[M] runs process(m) sequentially, in FIFO order, for every message
// sent to it, then runs cleanup exactly once when closed. Send never
// blocks: the inbox is an unbounded, mutex-guarded queue rather than a
// fixed-capacity channel.
type Looper[M any] struct {
	mu     sync.Mutex
	wake   *gate.Gate
	queue  []M
	closed bool
	done   chan struct{}
}

// New constructs a Looper and starts its worker goroutine.
func New[M any](process func(M), cleanup func(), opts ...Option) *Looper[M] {
	o := options{logger: telemetry.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	l := &Looper[M]{
		wake: gate.New(),
		done: make(chan struct{}),
	}
	go l.run(process, cleanup, o.logger)
	return l
}

// Send enqueues msg for processing in FIFO order. It never blocks; a
// Looper that has already been closed silently drops msg, since there is
// no worker left to process it.
func (l *Looper[M]) Send(msg M) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, msg)
	l.mu.Unlock()
	l.wake.Broadcast()
}

// Close stops accepting new messages, drains whatever is pending, runs
// cleanup exactly once, and blocks until the worker has exited.
func (l *Looper[M]) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()
	l.wake.Broadcast()
	<-l.done
}

func (l *Looper[M]) run(process func(M), cleanup func(), log *zap.Logger) {
	defer close(l.done)
	defer safeCall(log, cleanup)

	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			if l.closed {
				l.mu.Unlock()
				return
			}
			waitCh := l.wake.Chan()
			l.mu.Unlock()
			<-waitCh
			continue
		}
		m := l.queue[0]
		l.queue = l.queue[1:]
		l.mu.Unlock()

		safeProcess(log, process, m)
	}
}

func safeProcess[M any](log *zap.Logger, process func(M), m M) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("looper: recovered panic from process", zap.Any("panic", r))
		}
	}()
	process(m)
}

func safeCall(log *zap.Logger, cleanup func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("looper: recovered panic from cleanup", zap.Any("panic", r))
		}
	}()
	cleanup()
}
