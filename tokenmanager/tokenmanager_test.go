package tokenmanager_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonblocking/syncprim/tokenmanager"
)

func TestTokenManager_SingleFlight(t *testing.T) {
	var calls int32
	mgr := tokenmanager.New[string](func(ctx context.Context) (string, time.Time, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(100 * time.Millisecond)
		return "tok", time.Now().Add(time.Second), nil
	})

	var wg sync.WaitGroup
	results := make([]string, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := mgr.Get(context.Background())
			require.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, calls)
	for _, r := range results {
		assert.Equal(t, "tok", r)
	}
}

func TestTokenManager_ExpiryTriggersReacquire(t *testing.T) {
	var calls int32
	mgr := tokenmanager.New[string](func(ctx context.Context) (string, time.Time, error) {
		atomic.AddInt32(&calls, 1)
		return "tok", time.Now().Add(30 * time.Millisecond), nil
	})

	v1, err := mgr.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", v1)

	time.Sleep(50 * time.Millisecond)

	v2, err := mgr.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", v2)
	assert.EqualValues(t, 2, calls)
}

func TestTokenManager_AcquisitionFailureReturnsToEmpty(t *testing.T) {
	var calls int32
	mgr := tokenmanager.New[string](func(ctx context.Context) (string, time.Time, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			return "", time.Time{}, assert.AnError
		}
		return "tok", time.Now().Add(time.Second), nil
	})

	_, err := mgr.Get(context.Background())
	assert.Error(t, err)

	v, err := mgr.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", v)
}

func TestTokenManager_CombinesAcquisitionErrorWithOwnCancellation(t *testing.T) {
	release := make(chan struct{})
	mgr := tokenmanager.New[string](func(ctx context.Context) (string, time.Time, error) {
		<-release
		return "", time.Time{}, assert.AnError
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := mgr.Get(ctx)
		done <- err
	}()

	cancel()
	close(release)

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, assert.AnError)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Get did not return after acquisition failed and context was cancelled")
	}
}

func TestTokenManager_TryGetNeverAcquires(t *testing.T) {
	var calls int32
	mgr := tokenmanager.New[string](func(ctx context.Context) (string, time.Time, error) {
		atomic.AddInt32(&calls, 1)
		return "tok", time.Now().Add(time.Second), nil
	})

	_, ok := mgr.TryGet()
	assert.False(t, ok)
	assert.EqualValues(t, 0, calls)

	_, err := mgr.Get(context.Background())
	require.NoError(t, err)

	v, ok := mgr.TryGet()
	assert.True(t, ok)
	assert.Equal(t, "tok", v)
}
