// Package executionlimiter bounds how many callers may run inside a
// callback concurrently. A caller beyond the cap waits without burning
// CPU until a slot frees up.
package executionlimiter

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// ErrInvalidCapacity is returned by New when capacity is not positive.
var ErrInvalidCapacity = errors.New("executionlimiter: capacity must be >= 1")

// PanicError wraps a value recovered from a panic raised inside f.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("executionlimiter: execution panicked: %v", e.Value)
}

// ExecutionLimiter caps the number of callers concurrently inside
// Execute's callback at a fixed capacity.
type ExecutionLimiter struct {
	sem *semaphore.Weighted
}

// New constructs an ExecutionLimiter that admits at most capacity
// concurrent executions.
func New(capacity int64) (*ExecutionLimiter, error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}
	return &ExecutionLimiter{sem: semaphore.NewWeighted(capacity)}, nil
}

// Execute runs f under the concurrency cap, blocking until a slot is
// available or ctx is done. A panic inside f is recovered and returned
// as a *PanicError; the slot is always released.
func (l *ExecutionLimiter) Execute(ctx context.Context, f func()) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)

	return invoke(f)
}

func invoke(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	f()
	return nil
}
