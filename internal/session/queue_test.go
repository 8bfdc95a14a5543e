package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueKeepsSubmissionOrderPerIdentity(t *testing.T) {
	q := NewQueue()
	var mu sync.Mutex
	got := map[int64][]int{}

	for i := 0; i < 20; i++ {
		for _, id := range []int64{1, 2} {
			require.NoError(t, q.Submit(id, func() {
				// Earlier tasks sleep longer.
				time.Sleep(time.Duration(20-i) * 100 * time.Microsecond)
				mu.Lock()
				got[id] = append(got[id], i)
				mu.Unlock()
			}))
		}
	}
	q.Wait()

	want := make([]int, 20)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got[1])
	assert.Equal(t, want, got[2])
	assert.Zero(t, q.Len())
}

func TestQueueRunsIdentitiesConcurrently(t *testing.T) {
	q := NewQueue()
	release := make(chan struct{})
	require.NoError(t, q.Submit(1, func() { <-release }))

	done := make(chan struct{})
	require.NoError(t, q.Submit(2, func() { close(done) }))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("a blocked identity must not hold up others")
	}

	close(release)
	q.Wait()
}

func TestQueueCloseDrainsAndRejects(t *testing.T) {
	q := NewQueue()
	ran := 0
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Submit(7, func() {
			time.Sleep(time.Millisecond)
			ran++
		}))
	}
	q.Close()
	assert.Equal(t, 3, ran)
	assert.ErrorIs(t, q.Submit(7, func() {}), ErrQueueClosed)
}
