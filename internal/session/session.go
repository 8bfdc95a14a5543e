// Package session keeps the process-local conversation state of each participant.
// Nothing here survives a restart.
package session

import "sync"

// Mode is the relay state of an admin.
type Mode string

const (
	ModeIdle      Mode = "idle"
	ModeSearching Mode = "searching"
	ModeChatting  Mode = "chatting"
)

// Admin is the session of one admin. Target is set only in ModeChatting.
type Admin struct {
	Mode   Mode
	Target int64
}

// Idle is the zero session.
var Idle = Admin{Mode: ModeIdle}

// Chatting returns a session relaying to target.
func Chatting(target int64) Admin { return Admin{Mode: ModeChatting, Target: target} }

// Searching returns a session awaiting a search query.
func Searching() Admin { return Admin{Mode: ModeSearching} }

// Store holds admin sessions and user help flags keyed by identity.
type Store interface {
	Admin(id int64) Admin
	SetAdmin(id int64, s Admin)
	ClearAdmin(id int64)

	HelpPending(id int64) bool
	SetHelpPending(id int64)
	ClearHelp(id int64)

	// Lock serializes the caller against other holders of the same identity.
	// The returned func releases it.
	Lock(id int64) (unlock func())
}

// Memory is the in-process Store.
type Memory struct {
	mu     sync.RWMutex
	admins map[int64]Admin
	help   map[int64]struct{}

	locksMu sync.Mutex
	locks   map[int64]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

var _ Store = (*Memory)(nil)

// NewMemory constructs an empty store.
func NewMemory() *Memory {
	return &Memory{
		admins: make(map[int64]Admin),
		help:   make(map[int64]struct{}),
		locks:  make(map[int64]*keyLock),
	}
}

// Admin returns the session for id, or Idle.
func (m *Memory) Admin(id int64) Admin {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.admins[id]; ok {
		return s
	}
	return Idle
}

// SetAdmin replaces the session for id. Setting Idle clears it.
func (m *Memory) SetAdmin(id int64, s Admin) {
	if s.Mode == ModeIdle || s.Mode == "" {
		m.ClearAdmin(id)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admins[id] = s
}

func (m *Memory) ClearAdmin(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.admins, id)
}

func (m *Memory) HelpPending(id int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.help[id]
	return ok
}

func (m *Memory) SetHelpPending(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.help[id] = struct{}{}
}

func (m *Memory) ClearHelp(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.help, id)
}

// Lock acquires the per-identity mutex. Entries are dropped once no caller holds or waits on them.
func (m *Memory) Lock(id int64) func() {
	m.locksMu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &keyLock{}
		m.locks[id] = l
	}
	l.refs++
	m.locksMu.Unlock()

	l.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			m.locksMu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(m.locks, id)
			}
			m.locksMu.Unlock()
		})
	}
}
