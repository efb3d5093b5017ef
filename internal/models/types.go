package models

import (
	"time"
)

// UserState is the bot conversation state for a user.
type UserState int

const (
	StateInit UserState = iota
	StateNext
	StateAwaitTimezone
	StateAwaitQuestions
	StateQuiz
)

// User represents a bot user and their translation settings
type User struct {
	ID               int64
	State            UserState
	NativeLang       string
	TransLang        string
	TZOffset         int
	APIDayQuota      int
	APIDayQuotaLimit int
	Algo             string // translation provider id
	QuotaResetOn     time.Time
	CreatedOn        time.Time
	UpdatedOn        time.Time
}

// HistoryRecord is a user's previously resolved translation pair
// with quiz-relevant counters.
//
// Occurs counts how many times the user requested this text.
// Weight is the quiz priority; it rises on repeats and mistakes and is
// zeroed only through the hold mechanism.
// Hold is a countdown set to the user's revoke ceiling whenever weight
// rises; reaching zero zeroes the weight.
// Appears counts quiz appearances as a question (not as a distractor).
type HistoryRecord struct {
	ID         int64
	UserID     int64
	Text       string
	TextLang   string
	Trans      string
	TransLang  string
	Occurs     int
	Weight     int
	Appears    int
	Hold       int
	CreatedOn  time.Time
	LastAppear time.Time // zero when never shown in a quiz
}

// QuizConfig represents per-user quiz settings and counters
type QuizConfig struct {
	UserID    int64
	Algo      string // selection algorithm id
	Revoke    int    // hold ceiling
	Questions int    // target count per session
	IsEnabled bool
	Corrects  int
	Mistakes  int
	QuizedOn  time.Time // date of the last accepted session, zero if never
}

// SystemLimits holds global admin-set limits
type SystemLimits struct {
	MaxWordCount    int
	MaxWordLen      int
	MaxTextLen      int
	MinQuestions    int
	MaxQuestions    int
	PollingInterval int // minutes between quiz offer ticks
	QuizQueryLimit  int // history fetch limit per selection query
	UserBanTimeMins int // maximum burst-ban duration
	LeftHour        int // offer window [LeftHour, RightHour)
	RightHour       int
}

// Language maps a language code to its display name and the code the
// remote provider understands.
type Language struct {
	Lang     string
	FullName string
	GCode    string
}

// Origin identifies which tier satisfied a resolution.
type Origin string

const (
	OriginHistory     Origin = "history"
	OriginSharedCache Origin = "shared_cache"
	OriginRemote      Origin = "remote"
)

// Translation is the result of a resolver lookup
type Translation struct {
	Text      string
	TextLang  string
	Trans     string
	TransLang string
	Occurs    int
	Origin    Origin
}

// Question is a single 4-option quiz question built from a history record
type Question struct {
	Text         string
	Lang         string
	Options      []*HistoryRecord
	OptionsLang  string
	CorrectIndex int
	Record       *HistoryRecord
}

// OptionText returns the display text of option i in the question's
// answer language. Options may face either direction of the pair.
func (q *Question) OptionText(i int) string {
	opt := q.Options[i]
	if q.OptionsLang == opt.TextLang {
		return opt.Text
	}
	return opt.Trans
}

// NewUser creates a user with first-contact defaults
func NewUser(id int64) *User {
	now := time.Now().UTC()
	return &User{
		ID:               id,
		State:            StateInit,
		NativeLang:       "ru",
		TransLang:        "en",
		APIDayQuota:      100,
		APIDayQuotaLimit: 100,
		Algo:             "gapi",
		CreatedOn:        now,
		UpdatedOn:        now,
	}
}

// NewQuizConfig creates quiz settings with defaults
func NewQuizConfig(userID int64) *QuizConfig {
	return &QuizConfig{
		UserID:    userID,
		Algo:      "evenspread",
		Revoke:    3,
		Questions: 15,
	}
}

// DefaultSystemLimits returns the limits used until an admin overrides them
func DefaultSystemLimits() *SystemLimits {
	return &SystemLimits{
		MaxWordCount:    5,
		MaxWordLen:      32,
		MaxTextLen:      192,
		MinQuestions:    10,
		MaxQuestions:    20,
		PollingInterval: 180,
		QuizQueryLimit:  1000,
		UserBanTimeMins: 3,
		LeftHour:        9,
		RightHour:       21,
	}
}
