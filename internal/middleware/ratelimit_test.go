package middleware

import (
	"testing"
	"time"

	"github.com/gunther-tgbot-go/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, maxBan time.Duration) (*UserRateLimiter, *time.Time) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	cfg := &config.Config{}
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.MinInterval = time.Second
	cfg.RateLimit.Burst = 1
	cfg.RateLimit.InitialBanTime = 5 * time.Second

	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(cfg, maxBan, logger)
	rl.SetNowFunc(func() time.Time { return now })
	return rl, &now
}

func TestAllowBansBursts(t *testing.T) {
	rl, now := newTestLimiter(t, 3*time.Minute)

	assert.True(t, rl.Allow(1))
	assert.False(t, rl.Allow(1))

	remaining, banned := rl.BanRemaining(1)
	require.True(t, banned)
	assert.Equal(t, 5*time.Second, remaining)

	// The ban expires and the user is released
	*now = now.Add(11 * time.Second)
	assert.True(t, rl.Allow(1))
}

func TestBanDoublesOnAttemptsWhileBanned(t *testing.T) {
	rl, now := newTestLimiter(t, 3*time.Minute)

	assert.True(t, rl.Allow(1))
	assert.False(t, rl.Allow(1)) // banned for 5s

	assert.False(t, rl.Allow(1)) // 10s
	assert.False(t, rl.Allow(1)) // 20s

	remaining, banned := rl.BanRemaining(1)
	require.True(t, banned)
	assert.Equal(t, 20*time.Second, remaining)

	// Still banned where the original window would have ended
	*now = now.Add(6 * time.Second)
	_, banned = rl.BanRemaining(1)
	assert.True(t, banned)
}

func TestBanIsCapped(t *testing.T) {
	rl, _ := newTestLimiter(t, 8*time.Second)

	assert.True(t, rl.Allow(1))
	for i := 0; i < 10; i++ {
		assert.False(t, rl.Allow(1))
	}

	remaining, banned := rl.BanRemaining(1)
	require.True(t, banned)
	assert.Equal(t, 8*time.Second, remaining)
}

func TestNotifyOncePerBanWindow(t *testing.T) {
	rl, now := newTestLimiter(t, 3*time.Minute)

	assert.False(t, rl.NotifyOnce(1)) // not banned yet

	rl.Allow(1)
	rl.Allow(1)

	assert.True(t, rl.NotifyOnce(1))
	assert.False(t, rl.NotifyOnce(1))

	// A new ban window notifies again
	*now = now.Add(time.Minute)
	require.True(t, rl.Allow(1))
	require.False(t, rl.Allow(1))
	assert.True(t, rl.NotifyOnce(1))
}

func TestDisabledLimiterAllowsEverything(t *testing.T) {
	logger := logrus.New()
	cfg := &config.Config{}
	cfg.RateLimit.Enabled = false

	rl := NewRateLimiter(cfg, time.Minute, logger)
	for i := 0; i < 100; i++ {
		assert.True(t, rl.Allow(1))
	}
}

func TestResetClearsBan(t *testing.T) {
	rl, _ := newTestLimiter(t, 3*time.Minute)

	assert.True(t, rl.Allow(1))
	assert.False(t, rl.Allow(1))

	rl.Reset(1)

	_, banned := rl.BanRemaining(1)
	assert.False(t, banned)
	assert.True(t, rl.Allow(1))
}

func TestUsersAreIndependent(t *testing.T) {
	rl, _ := newTestLimiter(t, 3*time.Minute)

	assert.True(t, rl.Allow(1))
	assert.False(t, rl.Allow(1))

	assert.True(t, rl.Allow(2))
}
