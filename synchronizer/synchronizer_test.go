package synchronizer_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonblocking/syncprim/synchronizer"
)

type pair struct {
	a, b int
}

func TestSynchronizer_PairsInArrivalOrderPerPort(t *testing.T) {
	var mu sync.Mutex
	var got []pair
	s := synchronizer.New[int, int](func(a, b int) {
		mu.Lock()
		got = append(got, pair{a, b})
		mu.Unlock()
	})
	defer s.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.DataFromFirstPort(ctx, i))
		require.NoError(t, s.DataFromSecondPort(ctx, i+100))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 5
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for i, p := range got {
		assert.Equal(t, i, p.a)
		assert.Equal(t, i+100, p.b)
	}
}

func TestSynchronizer_PortsPairIndependentlyOfSendOrder(t *testing.T) {
	result := make(chan pair, 1)
	s := synchronizer.New[string, string](func(a, b string) {
		result <- pair{}
		_ = a
		_ = b
	})
	defer s.Close()

	ctx := context.Background()
	done := make(chan struct{})
	go func() {
		_ = s.DataFromSecondPort(ctx, "b")
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("second-port send completed before a first-port value arrived")
	case <-time.After(30 * time.Millisecond):
	}

	require.NoError(t, s.DataFromFirstPort(ctx, "a"))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second-port send never completed once a first-port value arrived")
	}
}

func TestSynchronizer_DataFromFirstPortUnblocksOnClose(t *testing.T) {
	s := synchronizer.New[int, int](func(a, b int) {})
	done := make(chan error, 1)
	go func() { done <- s.DataFromFirstPort(context.Background(), 1) }()

	time.Sleep(30 * time.Millisecond)
	s.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, synchronizer.ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("DataFromFirstPort did not unblock on Close")
	}
}

func TestSynchronizer_UnblocksOnContextCancel(t *testing.T) {
	s := synchronizer.New[int, int](func(a, b int) {})
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.DataFromFirstPort(ctx, 1) }()
	cancel()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("DataFromFirstPort did not unblock on context cancel")
	}
}
