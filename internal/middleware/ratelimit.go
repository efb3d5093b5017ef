package middleware

import (
	"sync"
	"time"

	"github.com/gunther-tgbot-go/internal/config"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RateLimiter guards against request bursts. A user who keeps sending
// faster than the allowed interval gets a temporary ban that doubles on
// every further attempt, up to the configured maximum.
type RateLimiter interface {
	Allow(userID int64) bool
	BanRemaining(userID int64) (time.Duration, bool)
	NotifyOnce(userID int64) bool
	Reset(userID int64)
}

type userEntry struct {
	limiter  *rate.Limiter
	bannedAt time.Time
	banFor   time.Duration
	notified bool
}

// UserRateLimiter implements per-user burst banning
type UserRateLimiter struct {
	enabled    bool
	users      map[int64]*userEntry
	mu         sync.Mutex
	interval   time.Duration
	burst      int
	initialBan time.Duration
	maxBan     time.Duration
	logger     *logrus.Logger
	now        func() time.Time
}

// NewRateLimiter creates a rate limiter. maxBan is the admin-set ban
// ceiling from the system limits.
func NewRateLimiter(cfg *config.Config, maxBan time.Duration, logger *logrus.Logger) *UserRateLimiter {
	rl := &UserRateLimiter{
		enabled:    cfg.RateLimit.Enabled,
		users:      make(map[int64]*userEntry),
		interval:   cfg.RateLimit.MinInterval,
		burst:      cfg.RateLimit.Burst,
		initialBan: cfg.RateLimit.InitialBanTime,
		maxBan:     maxBan,
		logger:     logger,
		now:        time.Now,
	}
	if rl.initialBan > rl.maxBan {
		rl.initialBan = rl.maxBan
	}
	return rl
}

// SetNowFunc overrides the clock, for tests
func (r *UserRateLimiter) SetNowFunc(now func() time.Time) {
	r.now = now
}

// Allow checks whether a user's message should be processed. A denied
// message while banned extends the ban.
func (r *UserRateLimiter) Allow(userID int64) bool {
	if !r.enabled {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.getEntry(userID)

	if entry.banFor > 0 {
		if r.now().Sub(entry.bannedAt) < entry.banFor {
			// Still banned; punish the attempt by doubling the window
			doubled := entry.banFor * 2
			if doubled > r.maxBan {
				doubled = r.maxBan
			}
			entry.banFor = doubled
			return false
		}
		// Ban expired, release the user
		entry.banFor = 0
		entry.notified = false
	}

	if entry.limiter.AllowN(r.now(), 1) {
		return true
	}

	entry.bannedAt = r.now()
	entry.banFor = r.initialBan

	r.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"ban_for": entry.banFor,
	}).Warn("User banned for bursting")

	return false
}

// BanRemaining reports how long a user stays banned, if at all
func (r *UserRateLimiter) BanRemaining(userID int64) (time.Duration, bool) {
	if !r.enabled {
		return 0, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.users[userID]
	if !exists || entry.banFor == 0 {
		return 0, false
	}

	remaining := entry.banFor - r.now().Sub(entry.bannedAt)
	if remaining <= 0 {
		return 0, false
	}
	return remaining, true
}

// NotifyOnce returns true the first time it is called during a ban, so
// the user gets exactly one ban notice per ban window
func (r *UserRateLimiter) NotifyOnce(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.users[userID]
	if !exists || entry.banFor == 0 || entry.notified {
		return false
	}
	entry.notified = true
	return true
}

// Reset clears all limiter state for a user
func (r *UserRateLimiter) Reset(userID int64) {
	r.mu.Lock()
	delete(r.users, userID)
	r.mu.Unlock()
}

// getEntry gets or creates limiter state for a user. Caller holds the lock.
func (r *UserRateLimiter) getEntry(userID int64) *userEntry {
	entry, exists := r.users[userID]
	if !exists {
		entry = &userEntry{
			limiter: rate.NewLimiter(rate.Every(r.interval), r.burst),
		}
		r.users[userID] = entry
	}
	return entry
}
