package translator

import (
	"context"
	"testing"
	"time"

	"github.com/gunther-tgbot-go/internal/config"
	"github.com/gunther-tgbot-go/internal/middleware"
	"github.com/gunther-tgbot-go/internal/models"
	"github.com/gunther-tgbot-go/internal/services/cache"
	"github.com/gunther-tgbot-go/internal/services/quota"
	"github.com/gunther-tgbot-go/internal/services/storage"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	result string
	err    error
	calls  int
}

func (f *fakeProvider) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.result, nil
}

func newTestResolver(t *testing.T, provider *fakeProvider) (*Resolver, *storage.MemoryStore) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	store := storage.NewMemoryStore(logger)

	cfg := &config.Config{}
	cfg.Cache.Enabled = true
	cfg.Cache.Type = "memory"
	shared, err := cache.NewService(cfg, logger)
	require.NoError(t, err)

	quotaManager := quota.NewManager(store, nil, logger)
	quotaManager.SetNowFunc(func() time.Time {
		return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	})

	providers := NewRegistry("gapi")
	providers.Register("gapi", provider)

	return NewResolver(store, shared, quotaManager, providers, middleware.NewMetrics(), logger), store
}

func testUser(t *testing.T, store storage.Store, id int64) *models.User {
	t.Helper()
	user := models.NewUser(id)
	user.State = models.StateNext
	require.NoError(t, store.SaveUser(context.Background(), user))
	return user
}

func TestResolveRemoteThenHistory(t *testing.T) {
	provider := &fakeProvider{result: "собака"}
	r, store := newTestResolver(t, provider)
	ctx := context.Background()
	user := testUser(t, store, 1)

	trans, err := r.Resolve(ctx, user, " Dog ", "en", "ru")
	require.NoError(t, err)
	assert.Equal(t, "dog", trans.Text)
	assert.Equal(t, "собака", trans.Trans)
	assert.Equal(t, models.OriginRemote, trans.Origin)
	assert.Equal(t, 1, trans.Occurs)
	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, 99, user.APIDayQuota)

	// The repeat comes out of history for free and bumps the counters
	trans, err = r.Resolve(ctx, user, "dog", "en", "ru")
	require.NoError(t, err)
	assert.Equal(t, models.OriginHistory, trans.Origin)
	assert.Equal(t, 2, trans.Occurs)
	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, 99, user.APIDayQuota)

	rec, err := store.GetHistoryRecord(ctx, user.ID, "dog", "en", "ru")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 1, rec.Weight)
	assert.Equal(t, 3, rec.Hold)
}

func TestResolveSharedCacheAcrossUsers(t *testing.T) {
	provider := &fakeProvider{result: "собака"}
	r, store := newTestResolver(t, provider)
	ctx := context.Background()

	first := testUser(t, store, 1)
	second := testUser(t, store, 2)

	_, err := r.Resolve(ctx, first, "dog", "en", "ru")
	require.NoError(t, err)
	require.Equal(t, 1, provider.calls)

	// The second user rides the first user's provider call
	trans, err := r.Resolve(ctx, second, "dog", "en", "ru")
	require.NoError(t, err)
	assert.Equal(t, models.OriginSharedCache, trans.Origin)
	assert.Equal(t, 1, trans.Occurs)
	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, 100, second.APIDayQuota)

	rec, err := store.GetHistoryRecord(ctx, second.ID, "dog", "en", "ru")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 0, rec.Weight)
}

func TestResolveProviderFailureLeavesNoState(t *testing.T) {
	provider := &fakeProvider{err: ErrProviderUnavailable}
	r, store := newTestResolver(t, provider)
	ctx := context.Background()
	user := testUser(t, store, 1)

	_, err := r.Resolve(ctx, user, "dog", "en", "ru")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, 100, user.APIDayQuota)

	rec, err := store.GetHistoryRecord(ctx, user.ID, "dog", "en", "ru")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestResolveEchoedTranslationRejected(t *testing.T) {
	provider := &fakeProvider{result: "dog"}
	r, store := newTestResolver(t, provider)
	ctx := context.Background()
	user := testUser(t, store, 1)

	_, err := r.Resolve(ctx, user, "dog", "en", "ru")
	assert.ErrorIs(t, err, ErrNoTranslation)
	assert.Equal(t, 100, user.APIDayQuota)

	rec, err := store.GetHistoryRecord(ctx, user.ID, "dog", "en", "ru")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestResolveQuotaExhausted(t *testing.T) {
	provider := &fakeProvider{result: "собака"}
	r, store := newTestResolver(t, provider)
	ctx := context.Background()

	user := testUser(t, store, 1)
	user.APIDayQuotaLimit = 0
	user.APIDayQuota = 0

	_, err := r.Resolve(ctx, user, "dog", "en", "ru")
	assert.ErrorIs(t, err, quota.ErrQuotaExceeded)
	assert.Equal(t, 0, provider.calls)
}

func TestResolveRejectsJunkInput(t *testing.T) {
	provider := &fakeProvider{result: "собака"}
	r, store := newTestResolver(t, provider)
	ctx := context.Background()
	user := testUser(t, store, 1)

	_, err := r.Resolve(ctx, user, "12345", "en", "ru")
	assert.ErrorIs(t, err, ErrInputRejected)
	assert.Equal(t, 0, provider.calls)
}

func TestResolveUnknownLanguage(t *testing.T) {
	provider := &fakeProvider{result: "hund"}
	r, store := newTestResolver(t, provider)
	ctx := context.Background()
	user := testUser(t, store, 1)

	_, err := r.Resolve(ctx, user, "dog", "en", "xx")
	assert.ErrorIs(t, err, ErrUnknownLang)
	assert.Equal(t, 0, provider.calls)
}
