package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gunther-tgbot-go/internal/models"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // registers the sqlite driver
)

// SQLiteStore implements Store on a local SQLite database
type SQLiteStore struct {
	conn   *sql.DB
	logger *logrus.Logger
}

// NewSQLiteStore opens the database and ensures the schema is up to date
func NewSQLiteStore(dsn string, logger *logrus.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{conn: db, logger: logger}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var (
		u       models.User
		resetOn sql.NullTime
	)
	err := s.conn.QueryRowContext(ctx, `
		SELECT id, state, native_lang, trans_lang, tz_offset,
		       api_day_quota, api_day_quota_limit, algo, quota_reset_on,
		       created_on, updated_on
		FROM users WHERE id = ?
	`, id).Scan(
		&u.ID, &u.State, &u.NativeLang, &u.TransLang, &u.TZOffset,
		&u.APIDayQuota, &u.APIDayQuotaLimit, &u.Algo, &resetOn,
		&u.CreatedOn, &u.UpdatedOn,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	if resetOn.Valid {
		u.QuotaResetOn = resetOn.Time
	}
	return &u, nil
}

func (s *SQLiteStore) SaveUser(ctx context.Context, user *models.User) error {
	user.UpdatedOn = time.Now().UTC()
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO users (id, state, native_lang, trans_lang, tz_offset,
		                   api_day_quota, api_day_quota_limit, algo, quota_reset_on,
		                   created_on, updated_on)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			state = excluded.state,
			native_lang = excluded.native_lang,
			trans_lang = excluded.trans_lang,
			tz_offset = excluded.tz_offset,
			api_day_quota = excluded.api_day_quota,
			api_day_quota_limit = excluded.api_day_quota_limit,
			algo = excluded.algo,
			quota_reset_on = excluded.quota_reset_on,
			updated_on = excluded.updated_on
	`,
		user.ID, user.State, user.NativeLang, user.TransLang, user.TZOffset,
		user.APIDayQuota, user.APIDayQuotaLimit, user.Algo, nullTime(user.QuotaResetOn),
		user.CreatedOn, user.UpdatedOn,
	)
	if err != nil {
		return fmt.Errorf("failed to save user %d: %w", user.ID, err)
	}
	return nil
}

const historyColumns = `id, user_id, text, text_lang, trans, trans_lang,
	occurs, weight, appears, hold, created_on, last_appear`

func (s *SQLiteStore) GetHistoryRecord(ctx context.Context, userID int64, text, textLang, transLang string) (*models.HistoryRecord, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT `+historyColumns+`
		FROM content
		WHERE user_id = ? AND text = ? AND text_lang = ? AND trans_lang = ?
	`, userID, text, textLang, transLang)

	rec, err := scanHistory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get history record: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) ListHistory(ctx context.Context, userID int64, limit int) ([]*models.HistoryRecord, error) {
	if limit <= 0 {
		limit = -1 // no limit
	}
	rows, err := s.conn.QueryContext(ctx, `
		SELECT `+historyColumns+`
		FROM content
		WHERE user_id = ?
		ORDER BY weight DESC, created_on ASC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history for user %d: %w", userID, err)
	}
	defer rows.Close()

	return collectHistory(rows)
}

func (s *SQLiteStore) CountHistory(ctx context.Context, userID int64) (int, error) {
	var count int
	err := s.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM content WHERE user_id = ?
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count history for user %d: %w", userID, err)
	}
	return count, nil
}

func (s *SQLiteStore) TopWeighted(ctx context.Context, userID int64, limit int) ([]*models.HistoryRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.conn.QueryContext(ctx, `
		SELECT `+historyColumns+`
		FROM content
		WHERE user_id = ? AND weight > 0
		ORDER BY weight DESC, created_on ASC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top records for user %d: %w", userID, err)
	}
	defer rows.Close()

	return collectHistory(rows)
}

func (s *SQLiteStore) UpsertHistoryRecord(ctx context.Context, rec *models.HistoryRecord) error {
	res, err := s.conn.ExecContext(ctx, `
		UPDATE content
		SET trans = ?, occurs = ?, weight = ?, appears = ?, hold = ?, last_appear = ?
		WHERE user_id = ? AND text = ? AND text_lang = ? AND trans_lang = ?
	`,
		rec.Trans, rec.Occurs, rec.Weight, rec.Appears, rec.Hold, nullTime(rec.LastAppear),
		rec.UserID, rec.Text, rec.TextLang, rec.TransLang,
	)
	if err != nil {
		return fmt.Errorf("failed to update history record: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	if rec.CreatedOn.IsZero() {
		rec.CreatedOn = time.Now().UTC()
	}

	res, err = s.conn.ExecContext(ctx, `
		INSERT INTO content (user_id, text, text_lang, trans, trans_lang,
		                     occurs, weight, appears, hold, created_on, last_appear)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.UserID, rec.Text, rec.TextLang, rec.Trans, rec.TransLang,
		rec.Occurs, rec.Weight, rec.Appears, rec.Hold, rec.CreatedOn, nullTime(rec.LastAppear),
	)
	if err != nil {
		return fmt.Errorf("failed to insert history record: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}
	return nil
}

func (s *SQLiteStore) GetQuizConfig(ctx context.Context, userID int64) (*models.QuizConfig, error) {
	var (
		cfg      models.QuizConfig
		quizedOn sql.NullTime
	)
	err := s.conn.QueryRowContext(ctx, `
		SELECT user_id, algo, revoke, questions, is_enabled, corrects, mistakes, quized_on
		FROM quiz WHERE user_id = ?
	`, userID).Scan(
		&cfg.UserID, &cfg.Algo, &cfg.Revoke, &cfg.Questions,
		&cfg.IsEnabled, &cfg.Corrects, &cfg.Mistakes, &quizedOn,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz config for user %d: %w", userID, err)
	}
	if quizedOn.Valid {
		cfg.QuizedOn = quizedOn.Time
	}
	return &cfg, nil
}

func (s *SQLiteStore) SaveQuizConfig(ctx context.Context, cfg *models.QuizConfig) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO quiz (user_id, algo, revoke, questions, is_enabled, corrects, mistakes, quized_on)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			algo = excluded.algo,
			revoke = excluded.revoke,
			questions = excluded.questions,
			is_enabled = excluded.is_enabled,
			corrects = excluded.corrects,
			mistakes = excluded.mistakes,
			quized_on = excluded.quized_on
	`,
		cfg.UserID, cfg.Algo, cfg.Revoke, cfg.Questions,
		cfg.IsEnabled, cfg.Corrects, cfg.Mistakes, nullTime(cfg.QuizedOn),
	)
	if err != nil {
		return fmt.Errorf("failed to save quiz config for user %d: %w", cfg.UserID, err)
	}
	return nil
}

func (s *SQLiteStore) GetSystemLimits(ctx context.Context) (*models.SystemLimits, error) {
	var l models.SystemLimits
	err := s.conn.QueryRowContext(ctx, `
		SELECT max_word_count, max_word_len, max_text_len,
		       min_questions, max_questions, polling_interval,
		       quiz_query_limit, user_ban_time_mins, left_hour, right_hour
		FROM systems WHERE id = 0
	`).Scan(
		&l.MaxWordCount, &l.MaxWordLen, &l.MaxTextLen,
		&l.MinQuestions, &l.MaxQuestions, &l.PollingInterval,
		&l.QuizQueryLimit, &l.UserBanTimeMins, &l.LeftHour, &l.RightHour,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get system limits: %w", err)
	}
	return &l, nil
}

func (s *SQLiteStore) SaveSystemLimits(ctx context.Context, limits *models.SystemLimits) error {
	_, err := s.conn.ExecContext(ctx, `
		UPDATE systems
		SET max_word_count = ?, max_word_len = ?, max_text_len = ?,
		    min_questions = ?, max_questions = ?, polling_interval = ?,
		    quiz_query_limit = ?, user_ban_time_mins = ?, left_hour = ?, right_hour = ?
		WHERE id = 0
	`,
		limits.MaxWordCount, limits.MaxWordLen, limits.MaxTextLen,
		limits.MinQuestions, limits.MaxQuestions, limits.PollingInterval,
		limits.QuizQueryLimit, limits.UserBanTimeMins, limits.LeftHour, limits.RightHour,
	)
	if err != nil {
		return fmt.Errorf("failed to save system limits: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListLanguages(ctx context.Context) ([]models.Language, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT lang, full_name, gcode FROM langs ORDER BY full_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list languages: %w", err)
	}
	defer rows.Close()

	var langs []models.Language
	for rows.Next() {
		var l models.Language
		if err := rows.Scan(&l.Lang, &l.FullName, &l.GCode); err != nil {
			return nil, fmt.Errorf("failed to scan language row: %w", err)
		}
		langs = append(langs, l)
	}
	return langs, rows.Err()
}

func (s *SQLiteStore) GetLanguage(ctx context.Context, code string) (*models.Language, error) {
	var l models.Language
	err := s.conn.QueryRowContext(ctx, `
		SELECT lang, full_name, gcode FROM langs WHERE lang = ?
	`, code).Scan(&l.Lang, &l.FullName, &l.GCode)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get language %s: %w", code, err)
	}
	return &l, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanHistory(row rowScanner) (*models.HistoryRecord, error) {
	var (
		rec        models.HistoryRecord
		lastAppear sql.NullTime
	)
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.Text, &rec.TextLang, &rec.Trans, &rec.TransLang,
		&rec.Occurs, &rec.Weight, &rec.Appears, &rec.Hold, &rec.CreatedOn, &lastAppear,
	)
	if err != nil {
		return nil, err
	}
	if lastAppear.Valid {
		rec.LastAppear = lastAppear.Time
	}
	return &rec, nil
}

func collectHistory(rows *sql.Rows) ([]*models.HistoryRecord, error) {
	var records []*models.HistoryRecord
	for rows.Next() {
		rec, err := scanHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
