package looper_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nonblocking/syncprim/internal/synctest"
	"github.com/nonblocking/syncprim/looper"
)

func TestLooper_ProcessesInFIFOOrder(t *testing.T) {
	var mu sync.Mutex
	var got []int
	l := looper.New[int](func(m int) {
		mu.Lock()
		got = append(got, m)
		mu.Unlock()
	}, func() {})

	for i := 0; i < 5; i++ {
		l.Send(i)
	}
	l.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestLooper_CleanupRunsExactlyOnce(t *testing.T) {
	var cleanups int
	l := looper.New[int](func(m int) {}, func() { cleanups++ })
	l.Send(1)
	l.Close()
	l.Close()
	assert.Equal(t, 1, cleanups)
}

func TestLooper_PanicInProcessDoesNotKillWorker(t *testing.T) {
	var processed []int
	var mu sync.Mutex
	l := looper.New[int](func(m int) {
		if m == 1 {
			panic("boom")
		}
		mu.Lock()
		processed = append(processed, m)
		mu.Unlock()
	}, func() {})

	l.Send(1)
	l.Send(2)
	l.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{2}, processed)
}

func TestLooper_DropSafe(t *testing.T) {
	synctest.AssertNoGoroutineLeak(t, func() {
		l := looper.New[int](func(m int) {}, func() {})
		l.Close()
	})
}

func TestLooper_SendDoesNotBlock(t *testing.T) {
	block := make(chan struct{})
	l := looper.New[int](func(m int) { <-block }, func() {})
	defer func() { close(block); l.Close() }()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			l.Send(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Send blocked while the worker was busy")
	}
}
