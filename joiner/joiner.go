// Package joiner implements an N-way rendezvous that collects one
// (key, value) pair from each of N concurrent callers and hands every
// caller the complete round's map once all N have supplied.
package joiner

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nonblocking/syncprim/internal/gate"
	"github.com/nonblocking/syncprim/internal/telemetry"
)

// ErrInvalidSize is returned by New when n < 1.
var ErrInvalidSize = errors.New("joiner: n must be >= 1")

type phase int

const (
	accepting phase = iota
	publishing
	resetting
)

// Option configures a Joiner at construction.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger attaches a logger used to report each completed round,
// tagged with a per-round identity for correlation in debugging output.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Joiner[K, V] pairs exactly N concurrent Supply calls per round.
type Joiner[K comparable, V any] struct {
	mu      sync.Mutex
	wake    *gate.Gate
	n       int
	phase   phase
	log     *zap.Logger
	roundID uuid.UUID

	round  map[K]V
	left   int // remaining callers expected in Accepting
	copied int // callers that have read the published map, in Publishing
}

// New constructs a Joiner requiring n concurrent Supply calls per round.
func New[K comparable, V any](n int, opts ...Option) (*Joiner[K, V], error) {
	if n < 1 {
		return nil, ErrInvalidSize
	}
	o := options{logger: telemetry.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Joiner[K, V]{
		wake:    gate.New(),
		n:       n,
		round:   make(map[K]V, n),
		left:    n,
		log:     o.logger,
		roundID: uuid.New(),
	}, nil
}

// Supply blocks until N concurrent Supply calls (including this one) are
// active in the same round, then returns a copy of that round's complete
// (key, value) map. Duplicate keys within a round overwrite rather than
// hang; the implementation never blocks indefinitely on a duplicate.
func (j *Joiner[K, V]) Supply(ctx context.Context, key K, value V) (map[K]V, error) {
	j.mu.Lock()
	for j.phase != accepting {
		waitCh := j.wake.Chan()
		j.mu.Unlock()
		select {
		case <-waitCh:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		j.mu.Lock()
	}

	j.round[key] = value
	j.left--

	if j.left > 0 {
		for j.phase == accepting {
			waitCh := j.wake.Chan()
			j.mu.Unlock()
			select {
			case <-waitCh:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			j.mu.Lock()
		}
	} else {
		j.phase = publishing
		j.log.Debug("joiner: round filled", zap.String("round_id", j.roundID.String()), zap.Int("size", len(j.round)))
		j.wake.Broadcast()
	}

	result := make(map[K]V, len(j.round))
	for k, v := range j.round {
		result[k] = v
	}

	j.copied++
	if j.copied == j.n {
		j.phase = resetting
		j.round = make(map[K]V, j.n)
		j.left = j.n
		j.copied = 0
		j.roundID = uuid.New()
		j.phase = accepting
		j.wake.Broadcast()
	}
	j.mu.Unlock()

	return result, nil
}
