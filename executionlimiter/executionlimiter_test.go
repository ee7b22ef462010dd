package executionlimiter_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonblocking/syncprim/executionlimiter"
)

func TestExecutionLimiter_RejectsInvalidCapacity(t *testing.T) {
	_, err := executionlimiter.New(0)
	assert.ErrorIs(t, err, executionlimiter.ErrInvalidCapacity)
}

func TestExecutionLimiter_NeverExceedsCapacity(t *testing.T) {
	l, err := executionlimiter.New(3)
	require.NoError(t, err)

	var inFlight int32
	var maxSeen int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.Execute(context.Background(), func() {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					m := atomic.LoadInt32(&maxSeen)
					if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, int(atomic.LoadInt32(&maxSeen)), 3)
}

func TestExecutionLimiter_PanicIsRecoveredAndSlotReleased(t *testing.T) {
	l, err := executionlimiter.New(1)
	require.NoError(t, err)

	err = l.Execute(context.Background(), func() { panic("boom") })
	require.Error(t, err)
	var panicErr *executionlimiter.PanicError
	assert.ErrorAs(t, err, &panicErr)

	ran := false
	err = l.Execute(context.Background(), func() { ran = true })
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestExecutionLimiter_ExecuteUnblocksOnContextCancel(t *testing.T) {
	l, err := executionlimiter.New(1)
	require.NoError(t, err)

	release := make(chan struct{})
	go func() {
		_ = l.Execute(context.Background(), func() { <-release })
	}()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err = l.Execute(ctx, func() {})
	assert.Error(t, err)
	close(release)
}
