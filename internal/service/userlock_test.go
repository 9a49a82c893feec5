package service

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestUserLocks_MutualExclusion(t *testing.T) {
	locks := newUserLocks()
	userID := uuid.New()

	counter := 0
	var wg sync.WaitGroup
	const workers = 50

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			locks.Lock(userID)
			defer locks.Unlock(userID)
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestUserLocks_IndependentUsers(t *testing.T) {
	locks := newUserLocks()
	first := uuid.New()
	second := uuid.New()

	locks.Lock(first)

	// A different user's lock must not block.
	done := make(chan struct{})
	go func() {
		locks.Lock(second)
		locks.Unlock(second)
		close(done)
	}()
	<-done

	locks.Unlock(first)
}

func TestUserLocks_EntriesReleased(t *testing.T) {
	locks := newUserLocks()
	userID := uuid.New()

	locks.Lock(userID)
	locks.Unlock(userID)

	locks.mu.Lock()
	defer locks.mu.Unlock()
	assert.Empty(t, locks.locks)
}
