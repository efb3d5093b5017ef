package storage

import (
	"context"
	"fmt"

	"github.com/gunther-tgbot-go/internal/config"
	"github.com/gunther-tgbot-go/internal/models"
	"github.com/sirupsen/logrus"
)

// Store defines the durable storage operations. The store is the single
// source of truth; lookups return nil (not an error) when a row is absent.
type Store interface {
	// User operations
	GetUser(ctx context.Context, id int64) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error

	// History operations
	GetHistoryRecord(ctx context.Context, userID int64, text, textLang, transLang string) (*models.HistoryRecord, error)
	ListHistory(ctx context.Context, userID int64, limit int) ([]*models.HistoryRecord, error)
	CountHistory(ctx context.Context, userID int64) (int, error)
	TopWeighted(ctx context.Context, userID int64, limit int) ([]*models.HistoryRecord, error)
	UpsertHistoryRecord(ctx context.Context, rec *models.HistoryRecord) error

	// Quiz configuration
	GetQuizConfig(ctx context.Context, userID int64) (*models.QuizConfig, error)
	SaveQuizConfig(ctx context.Context, cfg *models.QuizConfig) error

	// Global limits and language table
	GetSystemLimits(ctx context.Context) (*models.SystemLimits, error)
	SaveSystemLimits(ctx context.Context, limits *models.SystemLimits) error
	ListLanguages(ctx context.Context) ([]models.Language, error)
	GetLanguage(ctx context.Context, code string) (*models.Language, error)

	Close() error
}

// NewStore creates the storage backend selected by configuration
func NewStore(cfg *config.Config, logger *logrus.Logger) (Store, error) {
	switch cfg.Storage.Type {
	case "sqlite":
		return NewSQLiteStore(cfg.Storage.SQLite.Path, logger)
	case "memory":
		return NewMemoryStore(logger), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}
}
