// Package delayedexecutor schedules zero-argument, single-run tasks to
// execute no earlier than a requested delay. One worker goroutine owns a
// time-ordered min-heap and runs each task outside the lock, isolating
// panics so a bad task cannot poison the worker.
//
// The worker goroutine runs until Close is called; an executor that is
// never closed leaks it.
package delayedexecutor

import (
	"container/heap"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nonblocking/syncprim/internal/telemetry"
)

type task struct {
	fn  func()
	at  time.Time
	seq uint64
}

type taskHeap []task

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].at.Equal(h[j].at) {
		return h[i].seq < h[j].seq
	}
	return h[i].at.Before(h[j].at)
}
func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x any)   { *h = append(*h, x.(task)) }
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// Option configures a DelayedExecutor at construction.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger attaches a logger used to report recovered task panics.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// DelayedExecutor runs submitted tasks at or after their scheduled time.
type DelayedExecutor struct {
	mu      sync.Mutex
	cond    *sync.Cond
	heap    taskHeap
	seq     uint64
	closed  bool
	wg      sync.WaitGroup
	log     *zap.Logger
}

// New constructs a DelayedExecutor and starts its worker goroutine.
func New(opts ...Option) *DelayedExecutor {
	o := options{logger: telemetry.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	e := &DelayedExecutor{log: o.logger}
	e.cond = sync.NewCond(&e.mu)
	e.wg.Add(1)
	go e.run()
	return e
}

// Execute schedules fn to run no earlier than delay from now. It returns
// false without scheduling anything if the executor is closed.
func (e *DelayedExecutor) Execute(fn func(), delay time.Duration) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	heap.Push(&e.heap, task{fn: fn, at: time.Now().Add(delay), seq: e.seq})
	e.seq++
	e.cond.Broadcast()
	return true
}

// ExecuteNow schedules fn to run as soon as the worker is free, with no
// minimum delay.
func (e *DelayedExecutor) ExecuteNow(fn func()) bool {
	return e.Execute(fn, 0)
}

// Close marks the executor closed. If dropPending is true, all unexecuted
// tasks are discarded; otherwise they are left for the worker to run, in
// scheduled order, as it drains and exits.
func (e *DelayedExecutor) Close(dropPending bool) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	if dropPending {
		e.heap = nil
	}
	e.mu.Unlock()
	e.cond.Broadcast()
}

// Wait blocks until the worker goroutine has exited — that is, until
// Close has been called and, if tasks were not dropped, every pending
// task has run. Callers that never intend to drop pending work should
// call Close(false) followed by Wait instead of relying on a finalizer,
// since Go offers no deterministic destructor.
func (e *DelayedExecutor) Wait() {
	e.wg.Wait()
}

func (e *DelayedExecutor) run() {
	defer e.wg.Done()
	e.mu.Lock()
	for {
		for len(e.heap) == 0 && !e.closed {
			e.cond.Wait()
		}

		if len(e.heap) == 0 && e.closed {
			e.mu.Unlock()
			return
		}

		next := e.heap[0]
		if e.closed {
			// Draining: run every remaining task in scheduled order,
			// sleeping to each one's time, without holding the lock.
			e.mu.Unlock()
			e.sleepUntil(next.at)
			e.mu.Lock()
			if len(e.heap) > 0 && e.heap[0].seq == next.seq {
				heap.Pop(&e.heap)
				e.mu.Unlock()
				e.invoke(next.fn)
				e.mu.Lock()
			}
			continue
		}

		now := time.Now()
		if next.at.After(now) {
			timer := time.AfterFunc(next.at.Sub(now), func() {
				e.mu.Lock()
				e.cond.Broadcast()
				e.mu.Unlock()
			})
			e.cond.Wait()
			timer.Stop()
			continue
		}

		heap.Pop(&e.heap)
		e.mu.Unlock()
		e.invoke(next.fn)
		e.mu.Lock()
	}
}

func (e *DelayedExecutor) sleepUntil(at time.Time) {
	if d := time.Until(at); d > 0 {
		time.Sleep(d)
	}
}

func (e *DelayedExecutor) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("delayedexecutor: recovered task panic", zap.Any("panic", r))
		}
	}()
	fn()
}
