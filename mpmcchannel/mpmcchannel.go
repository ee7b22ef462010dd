// Package mpmcchannel implements a bounded, multi-producer multi-consumer
// FIFO channel backed by a monitor (mutex + broadcast gate) rather than a
// native Go channel, so that Shutdown can drain buffered elements to
// consumers before any consumer observes the closed state, per
// spec.md §4.3.
package mpmcchannel

import (
	"context"
	"sync"

	"github.com/nonblocking/syncprim/internal/gate"
)

// MpMcChannel is a bounded FIFO queue safe for concurrent senders and
// receivers.
type MpMcChannel[T any] struct {
	mu       sync.Mutex
	wakeSend *gate.Gate
	wakeRecv *gate.Gate
	buf      []T
	capacity int
	closed   bool
}

// New constructs a channel with the given capacity. Capacity <= 0 is
// treated as 1, since a zero-capacity bounded channel can never hold an
// element for Send/Recv to hand off through this monitor design.
func New[T any](capacity int) *MpMcChannel[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &MpMcChannel[T]{
		wakeSend: gate.New(),
		wakeRecv: gate.New(),
		capacity: capacity,
	}
}

// Send blocks until there is room in the channel, then enqueues e. It
// returns false if the channel is, or becomes while waiting, closed; it
// never returns false after actually enqueuing e.
func (c *MpMcChannel[T]) Send(ctx context.Context, e T) bool {
	c.mu.Lock()
	for {
		if c.closed {
			c.mu.Unlock()
			return false
		}
		if len(c.buf) < c.capacity {
			c.buf = append(c.buf, e)
			c.mu.Unlock()
			c.wakeRecv.Broadcast()
			return true
		}
		waitCh := c.wakeSend.Chan()
		c.mu.Unlock()
		select {
		case <-waitCh:
		case <-ctx.Done():
			return false
		}
		c.mu.Lock()
	}
}

// Recv blocks until an element is available, then returns the oldest one.
// It returns (zero, false) once the channel is closed and empty.
func (c *MpMcChannel[T]) Recv(ctx context.Context) (T, bool) {
	c.mu.Lock()
	for {
		if len(c.buf) > 0 {
			v := c.buf[0]
			c.buf = c.buf[1:]
			c.mu.Unlock()
			c.wakeSend.Broadcast()
			return v, true
		}
		if c.closed {
			c.mu.Unlock()
			var zero T
			return zero, false
		}
		waitCh := c.wakeRecv.Chan()
		c.mu.Unlock()
		select {
		case <-waitCh:
		case <-ctx.Done():
			var zero T
			return zero, false
		}
		c.mu.Lock()
	}
}

// Shutdown marks the channel closed. It is idempotent; buffered elements
// remain available to Recv until drained, after which Recv reports the
// empty marker. Blocked Send calls return false immediately.
func (c *MpMcChannel[T]) Shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.wakeSend.Broadcast()
	c.wakeRecv.Broadcast()
}

// Len reports the number of currently buffered elements.
func (c *MpMcChannel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buf)
}
