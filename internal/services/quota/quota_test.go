package quota

import (
	"context"
	"testing"
	"time"

	"github.com/gunther-tgbot-go/internal/models"
	"github.com/gunther-tgbot-go/internal/services/storage"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBans struct {
	banned bool
}

func (f *fakeBans) BanRemaining(userID int64) (time.Duration, bool) {
	if f.banned {
		return time.Minute, true
	}
	return 0, false
}

func newTestManager(t *testing.T, bans BanChecker) (*Manager, *storage.MemoryStore) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	store := storage.NewMemoryStore(logger)
	m := NewManager(store, bans, logger)
	m.SetNowFunc(func() time.Time {
		return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	})
	return m, store
}

func TestAdmitResetsAndCommitDecrements(t *testing.T) {
	m, store := newTestManager(t, nil)
	ctx := context.Background()

	user := models.NewUser(1)
	user.APIDayQuotaLimit = 2
	user.APIDayQuota = 0
	require.NoError(t, store.SaveUser(ctx, user))

	// First contact of the day restores the budget
	require.NoError(t, m.Admit(ctx, user))
	assert.Equal(t, 2, user.APIDayQuota)

	require.NoError(t, m.Commit(ctx, user))
	assert.Equal(t, 1, user.APIDayQuota)

	require.NoError(t, m.Admit(ctx, user))
	require.NoError(t, m.Commit(ctx, user))
	assert.Equal(t, 0, user.APIDayQuota)

	err := m.Admit(ctx, user)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, 0, user.APIDayQuota)

	// The persisted user matches the in-memory one
	saved, err := store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, saved.APIDayQuota)
}

func TestResetIsIdempotentWithinADay(t *testing.T) {
	m, store := newTestManager(t, nil)
	ctx := context.Background()

	user := models.NewUser(1)
	user.APIDayQuotaLimit = 5
	require.NoError(t, store.SaveUser(ctx, user))

	require.NoError(t, m.ResetIfNeeded(ctx, user))
	require.NoError(t, m.Commit(ctx, user))
	assert.Equal(t, 4, user.APIDayQuota)

	// Re-checking the same day must not refill the budget
	require.NoError(t, m.ResetIfNeeded(ctx, user))
	assert.Equal(t, 4, user.APIDayQuota)

	// The next local day does
	m.SetNowFunc(func() time.Time {
		return time.Date(2024, 5, 11, 0, 30, 0, 0, time.UTC)
	})
	require.NoError(t, m.ResetIfNeeded(ctx, user))
	assert.Equal(t, 5, user.APIDayQuota)
}

func TestResetFollowsUserTimezone(t *testing.T) {
	m, store := newTestManager(t, nil)
	ctx := context.Background()

	user := models.NewUser(1)
	user.TZOffset = 13 // 12:00 UTC is already May 11 locally
	require.NoError(t, store.SaveUser(ctx, user))

	require.NoError(t, m.ResetIfNeeded(ctx, user))
	assert.Equal(t, time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC), user.QuotaResetOn)
}

func TestAdmitDeniesBannedUser(t *testing.T) {
	bans := &fakeBans{banned: true}
	m, store := newTestManager(t, bans)
	ctx := context.Background()

	user := models.NewUser(1)
	require.NoError(t, store.SaveUser(ctx, user))

	err := m.Admit(ctx, user)
	assert.ErrorIs(t, err, ErrBanned)

	bans.banned = false
	assert.NoError(t, m.Admit(ctx, user))
}
