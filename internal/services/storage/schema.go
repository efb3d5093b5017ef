package storage

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY,
    state INTEGER NOT NULL DEFAULT 0,
    native_lang TEXT NOT NULL DEFAULT 'ru',
    trans_lang TEXT NOT NULL DEFAULT 'en',
    tz_offset INTEGER NOT NULL DEFAULT 0,
    api_day_quota INTEGER NOT NULL DEFAULT 100,
    api_day_quota_limit INTEGER NOT NULL DEFAULT 100,
    algo TEXT NOT NULL DEFAULT 'gapi',
    quota_reset_on DATETIME,
    created_on DATETIME NOT NULL,
    updated_on DATETIME NOT NULL,

    CHECK (api_day_quota >= 0 AND api_day_quota <= api_day_quota_limit)
);

CREATE TABLE IF NOT EXISTS content (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL,
    text TEXT NOT NULL,
    text_lang TEXT NOT NULL,
    trans TEXT NOT NULL,
    trans_lang TEXT NOT NULL,
    occurs INTEGER NOT NULL DEFAULT 0,
    weight INTEGER NOT NULL DEFAULT 0,
    appears INTEGER NOT NULL DEFAULT 0,
    hold INTEGER NOT NULL DEFAULT 0,
    created_on DATETIME NOT NULL,
    last_appear DATETIME,

    UNIQUE (user_id, text, text_lang, trans_lang),
    FOREIGN KEY (user_id) REFERENCES users(id),
    CHECK (weight >= 0 AND hold >= 0)
);

CREATE INDEX IF NOT EXISTS idx_content_user_weight ON content (user_id, weight DESC);

CREATE TABLE IF NOT EXISTS quiz (
    user_id INTEGER PRIMARY KEY,
    algo TEXT NOT NULL DEFAULT 'evenspread',
    revoke INTEGER NOT NULL DEFAULT 3,
    questions INTEGER NOT NULL DEFAULT 15,
    is_enabled INTEGER NOT NULL DEFAULT 0,
    corrects INTEGER NOT NULL DEFAULT 0,
    mistakes INTEGER NOT NULL DEFAULT 0,
    quized_on DATETIME,

    FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS systems (
    id INTEGER PRIMARY KEY CHECK (id = 0),
    max_word_count INTEGER NOT NULL DEFAULT 5,
    max_word_len INTEGER NOT NULL DEFAULT 32,
    max_text_len INTEGER NOT NULL DEFAULT 192,
    min_questions INTEGER NOT NULL DEFAULT 10,
    max_questions INTEGER NOT NULL DEFAULT 20,
    polling_interval INTEGER NOT NULL DEFAULT 180,
    quiz_query_limit INTEGER NOT NULL DEFAULT 1000,
    user_ban_time_mins INTEGER NOT NULL DEFAULT 3,
    left_hour INTEGER NOT NULL DEFAULT 9,
    right_hour INTEGER NOT NULL DEFAULT 21,

    CHECK (min_questions <= max_questions),
    CHECK (left_hour <= right_hour)
);

CREATE TABLE IF NOT EXISTS langs (
    lang TEXT PRIMARY KEY,
    full_name TEXT NOT NULL,
    gcode TEXT NOT NULL
);

INSERT OR IGNORE INTO systems (id) VALUES (0);

INSERT OR IGNORE INTO langs (lang, full_name, gcode) VALUES
    ('en', 'English', 'en'),
    ('ru', 'Russian', 'ru'),
    ('de', 'German', 'de'),
    ('fr', 'French', 'fr'),
    ('es', 'Spanish', 'es'),
    ('it', 'Italian', 'it'),
    ('pt', 'Portuguese', 'pt'),
    ('zh', 'Chinese', 'zh-CN');
`
