package quiz

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/gunther-tgbot-go/internal/middleware"
	"github.com/gunther-tgbot-go/internal/models"
	"github.com/gunther-tgbot-go/internal/services/storage"
	"github.com/gunther-tgbot-go/pkg/localtime"
	"github.com/sirupsen/logrus"
)

// MinHistoryForQuiz is the smallest history that can back a 4-option
// question: one target plus three distractors.
const MinHistoryForQuiz = 4

var (
	// ErrInsufficientHistory means the user enabled quiz mode too early
	ErrInsufficientHistory = errors.New("not enough history records for quiz mode")

	// ErrQuizDisabled means quiz mode is off for the user
	ErrQuizDisabled = errors.New("quiz mode is disabled")

	// ErrNoQuestions means the history could not fill a session
	ErrNoQuestions = errors.New("could not build any questions")
)

// Session is an in-flight quiz for one user
type Session struct {
	UserID    int64
	Questions []*models.Question
	Index     int
	Corrects  int
	Mistakes  int
}

// Next returns the next unanswered question, or nil when the session
// is over
func (s *Session) Next() *models.Question {
	if s.Index >= len(s.Questions) {
		return nil
	}
	q := s.Questions[s.Index]
	s.Index++
	return q
}

// Current returns the question waiting for an answer
func (s *Session) Current() *models.Question {
	if s.Index == 0 || s.Index > len(s.Questions) {
		return nil
	}
	return s.Questions[s.Index-1]
}

// Total returns the number of questions in the session
func (s *Session) Total() int {
	return len(s.Questions)
}

// Scheduler runs the per-user quiz state machine: within the daily
// offer window it proposes a quiz at most once per local calendar day,
// and on acceptance builds and drives a question session.
type Scheduler struct {
	store     storage.Store
	selectors *SelectorRegistry
	builder   *Builder
	metrics   *middleware.Metrics
	logger    *logrus.Logger
	now       func() time.Time

	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewScheduler creates a quiz scheduler
func NewScheduler(store storage.Store, metrics *middleware.Metrics, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		store:     store,
		selectors: NewSelectorRegistry(),
		builder:   NewBuilder(rand.New(rand.NewSource(time.Now().UnixNano()))),
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		sessions:  make(map[int64]*Session),
	}
}

// SetNowFunc overrides the clock, for tests
func (s *Scheduler) SetNowFunc(now func() time.Time) {
	s.now = now
}

// SetBuilder overrides the question builder, for deterministic tests
func (s *Scheduler) SetBuilder(b *Builder) {
	s.builder = b
}

// Enable turns quiz mode on. The user needs at least four history
// records, otherwise no question could ever be built.
func (s *Scheduler) Enable(ctx context.Context, user *models.User, questions int) error {
	count, err := s.store.CountHistory(ctx, user.ID)
	if err != nil {
		return err
	}
	if count < MinHistoryForQuiz {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientHistory, count, MinHistoryForQuiz)
	}

	cfg, err := s.config(ctx, user.ID)
	if err != nil {
		return err
	}

	cfg.Questions = questions
	cfg.IsEnabled = true

	return s.store.SaveQuizConfig(ctx, cfg)
}

// Disable turns quiz mode off and drops any in-flight session
func (s *Scheduler) Disable(ctx context.Context, user *models.User) error {
	cfg, err := s.config(ctx, user.ID)
	if err != nil {
		return err
	}

	cfg.IsEnabled = false
	if err := s.store.SaveQuizConfig(ctx, cfg); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.sessions, user.ID)
	s.mu.Unlock()

	return nil
}

// IsEnabled reports whether quiz mode is on for the user
func (s *Scheduler) IsEnabled(ctx context.Context, userID int64) (bool, error) {
	cfg, err := s.store.GetQuizConfig(ctx, userID)
	if err != nil {
		return false, err
	}
	return cfg != nil && cfg.IsEnabled, nil
}

// SwitchAlgo toggles between the two built-in selection algorithms and
// returns the new id
func (s *Scheduler) SwitchAlgo(ctx context.Context, user *models.User) (string, error) {
	cfg, err := s.config(ctx, user.ID)
	if err != nil {
		return "", err
	}

	if cfg.Algo == "maxweight" {
		cfg.Algo = "evenspread"
	} else {
		cfg.Algo = "maxweight"
	}

	if err := s.store.SaveQuizConfig(ctx, cfg); err != nil {
		return "", err
	}
	return cfg.Algo, nil
}

// ShouldOffer decides whether to propose a quiz to the user right now.
// True at most once per local calendar day, only inside the offer
// window, and only while no session is running. Safe to call on every
// tick: re-checking after quized_on is set is a no-op.
func (s *Scheduler) ShouldOffer(ctx context.Context, user *models.User) (bool, error) {
	cfg, err := s.store.GetQuizConfig(ctx, user.ID)
	if err != nil {
		return false, err
	}
	if cfg == nil || !cfg.IsEnabled {
		return false, nil
	}

	limits, err := s.store.GetSystemLimits(ctx)
	if err != nil {
		return false, err
	}

	local := localtime.At(s.now(), user.TZOffset)
	if !localtime.InWindow(local, limits.LeftHour, limits.RightHour) {
		return false, nil
	}

	if !cfg.QuizedOn.IsZero() && localtime.SameDay(cfg.QuizedOn, localtime.Day(local)) {
		return false, nil
	}

	s.mu.Lock()
	_, active := s.sessions[user.ID]
	s.mu.Unlock()

	return !active, nil
}

// StartSession accepts the day's offer: marks the day as quizzed first,
// so an abandoned session is never re-offered, then builds the
// question queue
func (s *Scheduler) StartSession(ctx context.Context, user *models.User) (*Session, error) {
	cfg, err := s.store.GetQuizConfig(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if cfg == nil || !cfg.IsEnabled {
		return nil, ErrQuizDisabled
	}

	limits, err := s.store.GetSystemLimits(ctx)
	if err != nil {
		return nil, err
	}

	// Mark the day before building anything
	cfg.QuizedOn = localtime.DayAt(s.now(), user.TZOffset)
	if err := s.store.SaveQuizConfig(ctx, cfg); err != nil {
		return nil, err
	}

	history, err := s.store.ListHistory(ctx, user.ID, limits.QuizQueryLimit)
	if err != nil {
		return nil, err
	}

	count := cfg.Questions
	if count > limits.MaxQuestions {
		count = limits.MaxQuestions
	}
	if count < limits.MinQuestions {
		count = limits.MinQuestions
	}
	if count > len(history) {
		count = len(history)
	}

	// QuizedOn was just set to the user's local day; selection judges
	// last_appear recency against the same day
	targets := s.selectors.Get(cfg.Algo).Select(history, count, cfg.QuizedOn)
	questions := s.builder.Build(targets, history, count)
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	session := &Session{UserID: user.ID, Questions: questions}

	s.mu.Lock()
	s.sessions[user.ID] = session
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"user_id":   user.ID,
		"questions": len(questions),
		"algo":      cfg.Algo,
	}).Info("Quiz session started")

	return session, nil
}

// Abandon drops the user's in-flight session, if any, and reports
// whether there was one. The day stays marked as quizzed, so walking
// away from a session does not earn a second offer.
func (s *Scheduler) Abandon(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[userID]; !ok {
		return false
	}
	delete(s.sessions, userID)
	return true
}

// ActiveSession returns the user's running session, if any
func (s *Scheduler) ActiveSession(userID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[userID]
}

// Answer applies the user's choice for the session's current question.
// A mistake raises the weight of the asked record and of the chosen
// wrong option's backing record; a correct answer works the hold down.
// Returns whether the answer was correct and whether the session ended.
func (s *Scheduler) Answer(ctx context.Context, user *models.User, chosen int) (correct, done bool, err error) {
	s.mu.Lock()
	session := s.sessions[user.ID]
	s.mu.Unlock()

	if session == nil {
		return false, false, ErrQuizDisabled
	}

	q := session.Current()
	if q == nil {
		return false, false, ErrNoQuestions
	}

	cfg, err := s.config(ctx, user.ID)
	if err != nil {
		return false, false, err
	}

	rec := q.Record
	correct = chosen == q.CorrectIndex

	if correct {
		cfg.Corrects++
		session.Corrects++
		Correct(rec)
		s.metrics.RecordQuizAnswer("correct")
	} else {
		cfg.Mistakes++
		session.Mistakes++
		Repeat(rec, cfg.Revoke)
		s.metrics.RecordQuizAnswer("mistake")

		// The chosen wrong option's record was confused with the asked
		// one; penalize it too
		if chosen >= 0 && chosen < len(q.Options) {
			distractor := q.Options[chosen]
			if distractor.ID != rec.ID {
				Repeat(distractor, cfg.Revoke)
				if err := s.store.UpsertHistoryRecord(ctx, distractor); err != nil {
					return false, false, err
				}
			}
		}
	}

	MarkShown(rec, localtime.DayAt(s.now(), user.TZOffset))

	if err := s.store.UpsertHistoryRecord(ctx, rec); err != nil {
		return false, false, err
	}
	if err := s.store.SaveQuizConfig(ctx, cfg); err != nil {
		return false, false, err
	}

	done = session.Index >= len(session.Questions)
	if done {
		s.mu.Lock()
		delete(s.sessions, user.ID)
		s.mu.Unlock()

		s.logger.WithFields(logrus.Fields{
			"user_id":  user.ID,
			"corrects": session.Corrects,
			"mistakes": session.Mistakes,
		}).Info("Quiz session finished")
	}

	return correct, done, nil
}

// config loads the user's quiz settings, creating defaults on first use
func (s *Scheduler) config(ctx context.Context, userID int64) (*models.QuizConfig, error) {
	cfg, err := s.store.GetQuizConfig(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = models.NewQuizConfig(userID)
		if err := s.store.SaveQuizConfig(ctx, cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
