package rankingbarrier_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonblocking/syncprim/rankingbarrier"
)

func TestNew_RejectsSmallN(t *testing.T) {
	_, err := rankingbarrier.New(1)
	assert.ErrorIs(t, err, rankingbarrier.ErrInvalidSize)
}

func runCycle(t *testing.T, b *rankingbarrier.RankingBarrier, n int) []int {
	t.Helper()
	var wg sync.WaitGroup
	ranks := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := b.Wait(context.Background())
			require.NoError(t, err)
			ranks[i] = r
		}(i)
	}
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cycle did not complete")
	}
	return ranks
}

func TestRankingBarrier_ReleasesAllWithUniqueRanks(t *testing.T) {
	b, err := rankingbarrier.New(3)
	require.NoError(t, err)

	ranks := runCycle(t, b, 3)
	sort.Ints(ranks)
	assert.Equal(t, []int{1, 2, 3}, ranks)
}

func TestRankingBarrier_CyclesIndependently(t *testing.T) {
	b, err := rankingbarrier.New(3)
	require.NoError(t, err)

	first := runCycle(t, b, 3)
	second := runCycle(t, b, 3)
	sort.Ints(first)
	sort.Ints(second)
	assert.Equal(t, []int{1, 2, 3}, first)
	assert.Equal(t, []int{1, 2, 3}, second)
}

func TestRankingBarrier_BlocksUntilNArrive(t *testing.T) {
	b, err := rankingbarrier.New(2)
	require.NoError(t, err)

	released := make(chan int, 1)
	go func() {
		r, err := b.Wait(context.Background())
		require.NoError(t, err)
		released <- r
	}()

	select {
	case <-released:
		t.Fatal("single caller must not be released")
	case <-time.After(50 * time.Millisecond):
	}

	r2, err := b.Wait(context.Background())
	require.NoError(t, err)
	r1 := <-released
	got := []int{r1, r2}
	sort.Ints(got)
	assert.Equal(t, []int{1, 2}, got)
}
