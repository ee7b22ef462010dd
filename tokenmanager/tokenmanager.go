// Package tokenmanager caches a single token, refreshing it on expiry and
// ensuring at most one acquisition is ever in flight at a time. It is
// built directly on golang.org/x/sync/singleflight, the idiomatic Go
// answer to the "single-flight" contract the spec's glossary names.
package tokenmanager

import (
	"context"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"
)

// AcquireFunc fetches a fresh token and its expiry instant.
type AcquireFunc[T any] func(ctx context.Context) (T, time.Time, error)

// TokenManager caches a token of type T until it expires, single-flighting
// concurrent refreshes through the same acquisition.
type TokenManager[T any] struct {
	mu      sync.Mutex
	valid   bool
	token   T
	expiry  time.Time
	acquire AcquireFunc[T]
	group   singleflight.Group
}

// New constructs a TokenManager backed by acquire.
func New[T any](acquire AcquireFunc[T]) *TokenManager[T] {
	return &TokenManager[T]{acquire: acquire}
}

// Get returns a currently-valid token, acquiring (or waiting on an
// in-flight acquisition of) one if necessary.
func (m *TokenManager[T]) Get(ctx context.Context) (T, error) {
	m.mu.Lock()
	if m.valid && m.expiry.After(time.Now()) {
		tok := m.token
		m.mu.Unlock()
		return tok, nil
	}
	m.mu.Unlock()

	v, err, _ := m.group.Do("token", func() (any, error) {
		tok, expiry, err := m.acquire(ctx)
		if err != nil {
			m.mu.Lock()
			m.valid = false
			m.mu.Unlock()
			var zero T
			return zero, err
		}
		if !expiry.After(time.Now()) {
			m.mu.Lock()
			m.valid = false
			m.mu.Unlock()
			var zero T
			return zero, errExpiredOnArrival
		}
		m.mu.Lock()
		m.valid = true
		m.token = tok
		m.expiry = expiry
		m.mu.Unlock()
		return tok, nil
	})
	if err != nil {
		var zero T
		// A caller whose own context expired while riding someone else's
		// in-flight acquisition deserves both reasons, not just whichever
		// singleflight happened to return first.
		if ctxErr := ctx.Err(); ctxErr != nil && ctxErr != err {
			return zero, multierr.Append(err, ctxErr)
		}
		return zero, err
	}
	return v.(T), nil
}

// TryGet returns the cached token without ever triggering an acquisition.
// It reports false if no token is cached or the cached one has expired.
func (m *TokenManager[T]) TryGet() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.valid && m.expiry.After(time.Now()) {
		return m.token, true
	}
	var zero T
	return zero, false
}

var errExpiredOnArrival = tokenExpiredError{}

type tokenExpiredError struct{}

func (tokenExpiredError) Error() string {
	return "tokenmanager: acquired token is already expired"
}
