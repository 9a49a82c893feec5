package service

import (
	"sync"

	"github.com/google/uuid"
)

// userLocks serializes recommendation generation per user. Entries are
// refcounted and removed once the last holder releases, so the map does not
// grow with the user population.
type userLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{
		locks: make(map[uuid.UUID]*userLock),
	}
}

func (l *userLocks) Lock(userID uuid.UUID) {
	l.mu.Lock()
	entry, ok := l.locks[userID]
	if !ok {
		entry = &userLock{}
		l.locks[userID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
}

func (l *userLocks) Unlock(userID uuid.UUID) {
	l.mu.Lock()
	entry := l.locks[userID]
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, userID)
	}
	l.mu.Unlock()

	entry.mu.Unlock()
}
