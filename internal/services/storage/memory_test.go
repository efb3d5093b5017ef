package storage

import (
	"context"
	"testing"
	"time"

	"github.com/gunther-tgbot-go/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewMemoryStore(logger)
}

func TestUserRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	missing, err := store.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, missing)

	user := models.NewUser(1)
	user.NativeLang = "de"
	require.NoError(t, store.SaveUser(ctx, user))

	loaded, err := store.GetUser(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "de", loaded.NativeLang)

	// The store hands out copies, not shared state
	loaded.NativeLang = "fr"
	again, err := store.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "de", again.NativeLang)
}

func TestUpsertHistoryRecord(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := &models.HistoryRecord{
		UserID: 1, Text: "dog", TextLang: "en", Trans: "собака", TransLang: "ru",
		Occurs: 1, CreatedOn: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.UpsertHistoryRecord(ctx, rec))
	assert.NotZero(t, rec.ID)
	firstID := rec.ID

	// Updating the same pair keeps identity and creation time
	rec.Occurs = 2
	rec.Weight = 1
	require.NoError(t, store.UpsertHistoryRecord(ctx, rec))
	assert.Equal(t, firstID, rec.ID)

	loaded, err := store.GetHistoryRecord(ctx, 1, "dog", "en", "ru")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 2, loaded.Occurs)
	assert.Equal(t, 1, loaded.Weight)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), loaded.CreatedOn)

	count, err := store.CountHistory(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Same text under a different pair is a separate record
	other := &models.HistoryRecord{
		UserID: 1, Text: "dog", TextLang: "en", Trans: "hund", TransLang: "de", Occurs: 1,
	}
	require.NoError(t, store.UpsertHistoryRecord(ctx, other))
	assert.NotEqual(t, firstID, other.ID)

	count, err = store.CountHistory(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestListHistoryOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	records := []*models.HistoryRecord{
		{UserID: 1, Text: "a", TextLang: "en", Trans: "а", TransLang: "ru", Weight: 1, CreatedOn: base},
		{UserID: 1, Text: "b", TextLang: "en", Trans: "б", TransLang: "ru", Weight: 5, CreatedOn: base.Add(time.Hour)},
		{UserID: 1, Text: "c", TextLang: "en", Trans: "ц", TransLang: "ru", Weight: 5, CreatedOn: base.Add(2 * time.Hour)},
		{UserID: 1, Text: "d", TextLang: "en", Trans: "д", TransLang: "ru", Weight: 0, CreatedOn: base.Add(3 * time.Hour)},
	}
	for _, rec := range records {
		require.NoError(t, store.UpsertHistoryRecord(ctx, rec))
	}

	listed, err := store.ListHistory(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, listed, 4)
	assert.Equal(t, "b", listed[0].Text)
	assert.Equal(t, "c", listed[1].Text)
	assert.Equal(t, "a", listed[2].Text)
	assert.Equal(t, "d", listed[3].Text)

	limited, err := store.ListHistory(ctx, 1, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	// TopWeighted drops the zero-weight tail
	top, err := store.TopWeighted(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "b", top[0].Text)
}

func TestQuizConfigRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	missing, err := store.GetQuizConfig(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, missing)

	cfg := models.NewQuizConfig(1)
	cfg.IsEnabled = true
	cfg.Questions = 12
	require.NoError(t, store.SaveQuizConfig(ctx, cfg))

	loaded, err := store.GetQuizConfig(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, loaded.IsEnabled)
	assert.Equal(t, 12, loaded.Questions)
	assert.Equal(t, "evenspread", loaded.Algo)
}

func TestSystemLimitsDefaultsAndOverride(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	limits, err := store.GetSystemLimits(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, limits.MaxWordCount)
	assert.Equal(t, 192, limits.MaxTextLen)
	assert.Equal(t, 9, limits.LeftHour)
	assert.Equal(t, 21, limits.RightHour)

	limits.MaxWordCount = 7
	require.NoError(t, store.SaveSystemLimits(ctx, limits))

	reloaded, err := store.GetSystemLimits(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, reloaded.MaxWordCount)
}

func TestLanguageTable(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	langs, err := store.ListLanguages(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, langs)

	en, err := store.GetLanguage(ctx, "en")
	require.NoError(t, err)
	require.NotNil(t, en)
	assert.Equal(t, "English", en.FullName)
	assert.Equal(t, "en", en.GCode)

	unknown, err := store.GetLanguage(ctx, "xx")
	require.NoError(t, err)
	assert.Nil(t, unknown)
}
