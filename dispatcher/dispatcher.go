// Package dispatcher implements broadcast fan-out: every message handed to
// a Dispatcher is cloned and delivered, in order, to every Subscription
// active at the moment of dispatch. It generalizes the teacher service's
// subpub.SubPub (one bus, many per-subject subscriber queues, one
// delivery goroutine per subscriber) to a single generic broadcast
// channel with no subject routing, per this module's Dispatcher contract.
package dispatcher

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nonblocking/syncprim/internal/gate"
	"github.com/nonblocking/syncprim/internal/telemetry"
)

// ErrClosed is returned by Dispatch once the Dispatcher has been closed.
var ErrClosed = errors.New("dispatcher: closed")

// Cloner is implemented by message types dispatched through a
// Dispatcher[T]; Clone must return an independent copy so that mutation by
// one subscriber cannot be observed by another.
type Cloner[T any] interface {
	Clone() T
}

// FuncCloner adapts any value of type T into a Cloner[T] given a clone
// function, for message types that should not be made to implement
// Clone themselves (e.g. a plain struct shared with other packages).
type FuncCloner[T any] struct {
	Value T
	Fn    func(T) T
}

// Clone returns Fn(Value), satisfying Cloner[FuncCloner[T]].
func (f FuncCloner[T]) Clone() FuncCloner[T] {
	return FuncCloner[T]{Value: f.Fn(f.Value), Fn: f.Fn}
}

// Option configures a Dispatcher at construction.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger attaches a logger used for best-effort diagnostic events
// (e.g. delivery to a dead subscription). The library never logs by
// default.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Dispatcher fans a stream of clonable messages out to every active
// Subscription. The zero value is not usable; construct with New.
type Dispatcher[T Cloner[T]] struct {
	mu     sync.Mutex
	subs   map[uuid.UUID]*inbox[T]
	closed bool
	log    *zap.Logger
}

// New constructs an open Dispatcher.
func New[T Cloner[T]](opts ...Option) *Dispatcher[T] {
	o := options{logger: telemetry.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Dispatcher[T]{
		subs: make(map[uuid.UUID]*inbox[T]),
		log:  o.logger,
	}
}

// inbox is the per-subscription FIFO queue; it is owned jointly: the
// Dispatcher holds the send-side reference (in subs), the Subscription
// holds the read-side reference. Either side closing only affects its own
// half, matching the cyclic-lifetime design in spec.md §9.
type inbox[T any] struct {
	mu     sync.Mutex
	queue  []T
	closed bool
	wake   *gate.Gate
}

func (b *inbox[T]) push(v T) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}
	b.queue = append(b.queue, v)
	b.mu.Unlock()
	b.wake.Broadcast()
	return true
}

func (b *inbox[T]) close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()
	b.wake.Broadcast()
}

// Subscription is an independent reader over a Dispatcher's broadcast
// stream. Unsubscribe removes it from the dispatch set silently; it is
// never observed by other subscriptions. Dropping the last reference
// without calling Unsubscribe does not remove it: the Dispatcher keeps
// appending to its inbox until the Dispatcher is closed.
type Subscription[T Cloner[T]] struct {
	id     uuid.UUID
	parent *Dispatcher[T]
	box    *inbox[T]
	once   sync.Once
}

// Subscribe registers a new Subscription. A message Dispatched after
// Subscribe returns is guaranteed to be observed by it; one dispatched
// strictly before is not, since subscribing and dispatching share the
// same Dispatcher lock.
func (d *Dispatcher[T]) Subscribe() *Subscription[T] {
	d.mu.Lock()
	defer d.mu.Unlock()

	box := &inbox[T]{wake: gate.New()}
	id := uuid.New()
	if !d.closed {
		d.subs[id] = box
	} else {
		box.closed = true
	}
	return &Subscription[T]{id: id, parent: d, box: box}
}

// Dispatch clones msg into every currently active subscription's inbox.
// Delivery to a subscription whose inbox has already been closed (by
// Unsubscribe racing with Dispatch) is silently skipped; Dispatch never
// panics and never blocks on a slow reader beyond appending to its queue.
func (d *Dispatcher[T]) Dispatch(msg T) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	boxes := make([]*inbox[T], 0, len(d.subs))
	for _, b := range d.subs {
		boxes = append(boxes, b)
	}
	d.mu.Unlock()

	for _, b := range boxes {
		if !b.push(msg.Clone()) {
			d.log.Debug("dispatcher: skipped delivery to a closed subscription")
		}
	}
	return nil
}

// Close marks the Dispatcher destroyed. Already-delivered-but-unread
// messages remain readable from each Subscription; Read returns the empty
// marker only once a subscription's own queue is drained.
func (d *Dispatcher[T]) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	boxes := make([]*inbox[T], 0, len(d.subs))
	for _, b := range d.subs {
		boxes = append(boxes, b)
	}
	d.subs = nil
	d.mu.Unlock()

	for _, b := range boxes {
		b.close()
	}
}

// Read blocks for the oldest unread message. It returns (zero, false) when
// the Dispatcher has been closed and this subscription's inbox is empty,
// or when ctx is done first.
func (s *Subscription[T]) Read(ctx context.Context) (T, bool) {
	for {
		s.box.mu.Lock()
		if len(s.box.queue) > 0 {
			v := s.box.queue[0]
			s.box.queue = s.box.queue[1:]
			s.box.mu.Unlock()
			return v, true
		}
		if s.box.closed {
			s.box.mu.Unlock()
			var zero T
			return zero, false
		}
		waitCh := s.box.wake.Chan()
		s.box.mu.Unlock()

		select {
		case <-waitCh:
		case <-ctx.Done():
			var zero T
			return zero, false
		}
	}
}

// Unsubscribe removes this subscription from the dispatch set and wakes
// any blocked Read with the empty marker. It is idempotent and safe to
// call even after the Dispatcher has been closed.
func (s *Subscription[T]) Unsubscribe() {
	s.once.Do(func() {
		s.parent.mu.Lock()
		delete(s.parent.subs, s.id)
		s.parent.mu.Unlock()
		s.box.close()
	})
}
