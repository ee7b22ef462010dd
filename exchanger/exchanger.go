// Package exchanger implements a rendezvous point where exactly two
// concurrent callers swap values, paired in arrival order. The design
// mirrors a classic two-slot exchanger: one slot for the first arrival's
// offer, one for the second's reply, so that only one handoff is ever in
// flight at a time and a third caller waits for the pair ahead of it to
// finish before starting a new one.
package exchanger

import (
	"context"
	"errors"
	"sync"

	"github.com/nonblocking/syncprim/internal/gate"
)

// ErrClosed is returned by Exchange once the Exchanger has been closed.
var ErrClosed = errors.New("exchanger: closed")

// Exchanger[T] pairs two concurrent Exchange calls and swaps their values.
type Exchanger[T any] struct {
	mu     sync.Mutex
	wake   *gate.Gate
	closed bool

	firstSet  bool
	first     T
	secondSet bool
	second    T
}

// New constructs an open Exchanger.
func New[T any]() *Exchanger[T] {
	return &Exchanger[T]{wake: gate.New()}
}

// Exchange blocks until another caller also calls Exchange, then returns
// the other caller's value. It returns an error if ctx is done, or if the
// Exchanger is closed before a partner arrives.
func (e *Exchanger[T]) Exchange(ctx context.Context, value T) (T, error) {
	var zero T

	e.mu.Lock()
	// A new handoff may only start once the previous one's reply slot has
	// been fully drained.
	for e.secondSet {
		waitCh := e.wake.Chan()
		e.mu.Unlock()
		select {
		case <-waitCh:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
		e.mu.Lock()
	}
	if e.closed {
		e.mu.Unlock()
		return zero, ErrClosed
	}

	if e.firstSet {
		// We are second: consume the first caller's offer and hand back
		// ours, completing the handoff.
		result := e.first
		e.second = value
		e.secondSet = true
		e.mu.Unlock()
		e.wake.Broadcast()
		return result, nil
	}

	// We are first: offer our value and wait for a partner's reply.
	e.first = value
	e.firstSet = true
	e.wake.Broadcast()

	cancelled := false
	for !e.secondSet && !e.closed && !cancelled {
		waitCh := e.wake.Chan()
		e.mu.Unlock()
		select {
		case <-waitCh:
		case <-ctx.Done():
			cancelled = true
		}
		e.mu.Lock()
	}

	if cancelled && !e.secondSet {
		e.firstSet = false
		e.mu.Unlock()
		e.wake.Broadcast()
		return zero, ctx.Err()
	}
	if !e.secondSet {
		e.firstSet = false
		e.mu.Unlock()
		e.wake.Broadcast()
		return zero, ErrClosed
	}
	result := e.second
	e.firstSet = false
	e.secondSet = false
	e.mu.Unlock()
	e.wake.Broadcast()
	return result, nil
}

// Close unblocks any caller currently parked without a partner.
func (e *Exchanger[T]) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()
	e.wake.Broadcast()
}
