package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAdminSessionLifecycle(t *testing.T) {
	m := NewMemory()
	assert.Equal(t, Idle, m.Admin(1))

	m.SetAdmin(1, Searching())
	assert.Equal(t, ModeSearching, m.Admin(1).Mode)

	m.SetAdmin(1, Chatting(1001))
	assert.Equal(t, Admin{Mode: ModeChatting, Target: 1001}, m.Admin(1))
	assert.Equal(t, Idle, m.Admin(2), "sessions are per identity")

	m.SetAdmin(1, Idle)
	assert.Equal(t, Idle, m.Admin(1))
	assert.Empty(t, m.admins)
}

func TestHelpFlag(t *testing.T) {
	m := NewMemory()
	assert.False(t, m.HelpPending(7))
	m.SetHelpPending(7)
	assert.True(t, m.HelpPending(7))
	assert.False(t, m.HelpPending(8))
	m.ClearHelp(7)
	assert.False(t, m.HelpPending(7))
}

func TestLockSerializesSameIdentity(t *testing.T) {
	m := NewMemory()
	unlock := m.Lock(1)

	acquired := make(chan struct{})
	go func() {
		u := m.Lock(1)
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock on the same identity must wait")
	case <-time.After(20 * time.Millisecond):
	}

	other := make(chan struct{})
	go func() {
		u := m.Lock(2)
		close(other)
		u()
	}()
	select {
	case <-other:
	case <-time.After(time.Second):
		t.Fatal("other identities must not be blocked")
	}

	unlock()
	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock was not released")
	}
}

func TestLockEntriesAreReleased(t *testing.T) {
	m := NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			m.Lock(id % 5)()
		}(int64(i))
	}
	wg.Wait()
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	assert.Empty(t, m.locks)
}
