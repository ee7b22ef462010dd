// Package countdownlatch implements a one-shot, non-cyclic latch: callers
// block in Await until the counter reaches zero, after which the latch
// stays released forever.
package countdownlatch

import (
	"context"
	"errors"
	"sync"

	"github.com/nonblocking/syncprim/internal/gate"
)

// ErrInvalidCount is returned by New when count < 0.
var ErrInvalidCount = errors.New("countdownlatch: count must be >= 0")

// CountDownLatch releases all waiters once its counter reaches zero.
type CountDownLatch struct {
	mu    sync.Mutex
	wake  *gate.Gate
	count int
}

// New constructs a CountDownLatch starting at count.
func New(count int) (*CountDownLatch, error) {
	if count < 0 {
		return nil, ErrInvalidCount
	}
	return &CountDownLatch{wake: gate.New(), count: count}, nil
}

// CountDown decrements the counter, never below zero. When it reaches
// zero, every current and future Await call returns immediately.
func (l *CountDownLatch) CountDown() {
	l.mu.Lock()
	if l.count == 0 {
		l.mu.Unlock()
		return
	}
	l.count--
	reached := l.count == 0
	l.mu.Unlock()
	if reached {
		l.wake.Broadcast()
	}
}

// Await blocks until the counter reaches zero, or ctx is done first.
func (l *CountDownLatch) Await(ctx context.Context) error {
	for {
		l.mu.Lock()
		if l.count == 0 {
			l.mu.Unlock()
			return nil
		}
		waitCh := l.wake.Chan()
		l.mu.Unlock()
		select {
		case <-waitCh:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Count returns the current counter value.
func (l *CountDownLatch) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}
