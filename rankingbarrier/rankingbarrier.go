// Package rankingbarrier implements a cyclic barrier that, in addition to
// releasing exactly N concurrent callers together, hands each of them a
// unique rank matching their arrival order within the current cycle.
package rankingbarrier

import (
	"context"
	"errors"
	"sync"

	"github.com/nonblocking/syncprim/internal/gate"
)

// ErrInvalidSize is returned by New when n < 2.
var ErrInvalidSize = errors.New("rankingbarrier: n must be >= 2")

type phase int

const (
	fill phase = iota
	drain
)

// RankingBarrier is a reusable N-party rendezvous. Every Wait call blocks
// until N concurrent callers have arrived; all N are then released
// together, each with a distinct rank in 1..N matching arrival order.
type RankingBarrier struct {
	mu    sync.Mutex
	wake  *gate.Gate
	n     int
	phase phase

	arrived  int // ranks handed out so far in the current Fill phase
	released int // callers that have observed their release in Drain
}

// New constructs a RankingBarrier for exactly n participants per cycle.
func New(n int) (*RankingBarrier, error) {
	if n < 2 {
		return nil, ErrInvalidSize
	}
	return &RankingBarrier{
		wake: gate.New(),
		n:    n,
	}, nil
}

// Wait blocks until N concurrent callers (across however many cycles it
// takes to accumulate them, since a caller that arrives during Drain must
// wait for the next Fill) have arrived, then returns this caller's rank
// for the cycle it was released in.
func (b *RankingBarrier) Wait(ctx context.Context) (int, error) {
	b.mu.Lock()
	for b.phase == drain {
		// Arrived during another cycle's Drain: must not leak into the
		// next Fill until this Drain has fully released everyone.
		waitCh := b.wake.Chan()
		b.mu.Unlock()
		select {
		case <-waitCh:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
		b.mu.Lock()
	}

	b.arrived++
	myRank := b.arrived

	if b.arrived == b.n {
		b.phase = drain
		b.wake.Broadcast()
	} else {
		for b.phase == fill {
			waitCh := b.wake.Chan()
			b.mu.Unlock()
			select {
			case <-waitCh:
			case <-ctx.Done():
				// Best-effort: a caller that gives up mid-fill still counted
				// towards arrived; there is no partial-cycle rollback in this
				// design, matching "no cancellation tokens" in spec.md §5.
				return 0, ctx.Err()
			}
			b.mu.Lock()
		}
	}

	b.released++
	if b.released == b.n {
		b.phase = fill
		b.arrived = 0
		b.released = 0
		b.wake.Broadcast()
	}
	b.mu.Unlock()

	return myRank, nil
}
