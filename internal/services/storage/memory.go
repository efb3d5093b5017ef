package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gunther-tgbot-go/internal/models"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// MemoryStore implements Store in process memory. Used for development
// and tests; it mirrors the SQLite ordering and copy semantics so the
// two backends are interchangeable.
type MemoryStore struct {
	users   *cache.Cache
	quizzes *cache.Cache
	langs   []models.Language
	limits  models.SystemLimits

	mu      sync.Mutex
	history map[int64][]models.HistoryRecord
	nextID  int64
	logger  *logrus.Logger
}

// NewMemoryStore creates an empty in-memory store with default limits
// and the built-in language table
func NewMemoryStore(logger *logrus.Logger) *MemoryStore {
	return &MemoryStore{
		users:   cache.New(cache.NoExpiration, cache.NoExpiration),
		quizzes: cache.New(cache.NoExpiration, cache.NoExpiration),
		langs: []models.Language{
			{Lang: "en", FullName: "English", GCode: "en"},
			{Lang: "ru", FullName: "Russian", GCode: "ru"},
			{Lang: "de", FullName: "German", GCode: "de"},
			{Lang: "fr", FullName: "French", GCode: "fr"},
			{Lang: "es", FullName: "Spanish", GCode: "es"},
		},
		limits:  *models.DefaultSystemLimits(),
		history: make(map[int64][]models.HistoryRecord),
		logger:  logger,
	}
}

func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	if val, found := m.users.Get(fmt.Sprintf("user:%d", id)); found {
		u := val.(models.User)
		return &u, nil
	}
	return nil, nil
}

func (m *MemoryStore) SaveUser(ctx context.Context, user *models.User) error {
	user.UpdatedOn = time.Now().UTC()
	m.users.Set(fmt.Sprintf("user:%d", user.ID), *user, cache.NoExpiration)
	return nil
}

func (m *MemoryStore) GetHistoryRecord(ctx context.Context, userID int64, text, textLang, transLang string) (*models.HistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.history[userID] {
		rec := m.history[userID][i]
		if rec.Text == text && rec.TextLang == textLang && rec.TransLang == transLang {
			return &rec, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) ListHistory(ctx context.Context, userID int64, limit int) ([]*models.HistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sorted(userID, limit, false), nil
}

func (m *MemoryStore) CountHistory(ctx context.Context, userID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.history[userID]), nil
}

func (m *MemoryStore) TopWeighted(ctx context.Context, userID int64, limit int) ([]*models.HistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sorted(userID, limit, true), nil
}

// sorted returns copies ordered by weight desc, created_on asc,
// matching the SQLite queries. Caller holds the lock.
func (m *MemoryStore) sorted(userID int64, limit int, onlyWeighted bool) []*models.HistoryRecord {
	var records []*models.HistoryRecord
	for i := range m.history[userID] {
		rec := m.history[userID][i]
		if onlyWeighted && rec.Weight == 0 {
			continue
		}
		records = append(records, &rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Weight != records[j].Weight {
			return records[i].Weight > records[j].Weight
		}
		return records[i].CreatedOn.Before(records[j].CreatedOn)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records
}

func (m *MemoryStore) UpsertHistoryRecord(ctx context.Context, rec *models.HistoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := m.history[rec.UserID]
	for i := range records {
		if records[i].Text == rec.Text && records[i].TextLang == rec.TextLang && records[i].TransLang == rec.TransLang {
			rec.ID = records[i].ID
			rec.CreatedOn = records[i].CreatedOn
			records[i] = *rec
			return nil
		}
	}

	m.nextID++
	rec.ID = m.nextID
	if rec.CreatedOn.IsZero() {
		rec.CreatedOn = time.Now().UTC()
	}
	m.history[rec.UserID] = append(records, *rec)
	return nil
}

func (m *MemoryStore) GetQuizConfig(ctx context.Context, userID int64) (*models.QuizConfig, error) {
	if val, found := m.quizzes.Get(fmt.Sprintf("quiz:%d", userID)); found {
		cfg := val.(models.QuizConfig)
		return &cfg, nil
	}
	return nil, nil
}

func (m *MemoryStore) SaveQuizConfig(ctx context.Context, cfg *models.QuizConfig) error {
	m.quizzes.Set(fmt.Sprintf("quiz:%d", cfg.UserID), *cfg, cache.NoExpiration)
	return nil
}

func (m *MemoryStore) GetSystemLimits(ctx context.Context) (*models.SystemLimits, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	limits := m.limits
	return &limits, nil
}

func (m *MemoryStore) SaveSystemLimits(ctx context.Context, limits *models.SystemLimits) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.limits = *limits
	return nil
}

func (m *MemoryStore) ListLanguages(ctx context.Context) ([]models.Language, error) {
	langs := make([]models.Language, len(m.langs))
	copy(langs, m.langs)
	return langs, nil
}

func (m *MemoryStore) GetLanguage(ctx context.Context, code string) (*models.Language, error) {
	for _, l := range m.langs {
		if l.Lang == code {
			lang := l
			return &lang, nil
		}
	}
	return nil, nil
}
