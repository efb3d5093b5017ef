package middleware

import "sync"

// UserLocks serializes operations per user. Quota consumption and
// weight/hold updates are read-modify-write sequences, so no two
// requests from the same user may interleave; different users never
// contend.
type UserLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewUserLocks creates an empty lock registry
func NewUserLocks() *UserLocks {
	return &UserLocks{locks: make(map[int64]*sync.Mutex)}
}

// Lock acquires the lock for a user, creating it on first use
func (u *UserLocks) Lock(userID int64) {
	u.mu.Lock()
	lock, exists := u.locks[userID]
	if !exists {
		lock = &sync.Mutex{}
		u.locks[userID] = lock
	}
	u.mu.Unlock()

	lock.Lock()
}

// Unlock releases the lock for a user
func (u *UserLocks) Unlock(userID int64) {
	u.mu.Lock()
	lock := u.locks[userID]
	u.mu.Unlock()

	if lock != nil {
		lock.Unlock()
	}
}
