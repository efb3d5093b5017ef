package handlers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gunther-tgbot-go/internal/config"
	"github.com/gunther-tgbot-go/internal/i18n"
	"github.com/gunther-tgbot-go/internal/middleware"
	"github.com/gunther-tgbot-go/internal/models"
	"github.com/gunther-tgbot-go/internal/services/quiz"
	"github.com/gunther-tgbot-go/internal/services/storage"
	"github.com/gunther-tgbot-go/pkg/logger"
	"github.com/sirupsen/logrus"
)

// QuizHandler delivers quiz sessions over Telegram quiz polls and runs
// the daily offer loop. Questions go out as native quiz polls, so the
// client shows correctness on its own; answers come back as poll
// answer updates, matched to the session through the poll id.
type QuizHandler struct {
	config    *config.Config
	bot       *tgbotapi.BotAPI
	storage   storage.Store
	scheduler *quiz.Scheduler
	locks     *middleware.UserLocks
	metrics   *middleware.Metrics
	localizer *i18n.Localizer
	logger    *logrus.Logger

	mu     sync.Mutex
	active map[int64]int64  // user id -> chat id, seen since boot
	offers map[int64]int    // user id -> last unanswered offer message id
	polls  map[string]int64 // telegram poll id -> user id
}

// NewQuizHandler creates a new quiz handler
func NewQuizHandler(
	cfg *config.Config,
	bot *tgbotapi.BotAPI,
	store storage.Store,
	scheduler *quiz.Scheduler,
	locks *middleware.UserLocks,
	metrics *middleware.Metrics,
	localizer *i18n.Localizer,
	logger *logrus.Logger,
) *QuizHandler {
	return &QuizHandler{
		config:    cfg,
		bot:       bot,
		storage:   store,
		scheduler: scheduler,
		locks:     locks,
		metrics:   metrics,
		localizer: localizer,
		logger:    logger,
		active:    make(map[int64]int64),
		offers:    make(map[int64]int),
		polls:     make(map[string]int64),
	}
}

// Track remembers a user's chat so the offer loop can reach them
func (h *QuizHandler) Track(userID, chatID int64) {
	h.mu.Lock()
	h.active[userID] = chatID
	h.mu.Unlock()
}

// RunOfferLoop periodically walks tracked users and offers a quiz to
// everyone eligible right now. Ticks are idempotent: ShouldOffer keeps
// returning false once the day is marked.
func (h *QuizHandler) RunOfferLoop(ctx context.Context) {
	interval := h.pollingInterval(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.logger.WithField("interval", interval).Info("Quiz offer loop started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.offerTick(ctx)
		}
	}
}

func (h *QuizHandler) pollingInterval(ctx context.Context) time.Duration {
	limits, err := h.storage.GetSystemLimits(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load system limits, using defaults")
		limits = models.DefaultSystemLimits()
	}
	return time.Duration(limits.PollingInterval) * time.Minute
}

func (h *QuizHandler) offerTick(ctx context.Context) {
	h.mu.Lock()
	candidates := make(map[int64]int64, len(h.active))
	for userID, chatID := range h.active {
		candidates[userID] = chatID
	}
	h.mu.Unlock()

	for userID, chatID := range candidates {
		h.locks.Lock(userID)
		h.tryOffer(ctx, userID, chatID)
		h.locks.Unlock(userID)
	}
}

// tryOffer sends the daily offer to one user. Caller holds the user lock.
func (h *QuizHandler) tryOffer(ctx context.Context, userID, chatID int64) {
	user, err := h.storage.GetUser(ctx, userID)
	if err != nil || user == nil {
		return
	}
	if user.State != models.StateNext {
		return
	}

	offer, err := h.scheduler.ShouldOffer(ctx, user)
	if err != nil {
		logger.WithUser(h.logger, userID).WithError(err).Error("Offer check failed")
		return
	}
	if !offer {
		return
	}

	// A stale unanswered offer only clutters the chat, replace it
	h.mu.Lock()
	prev := h.offers[userID]
	h.mu.Unlock()
	if prev != 0 {
		h.bot.Request(tgbotapi.NewDeleteMessage(chatID, prev))
	}

	lang := user.NativeLang
	msg := tgbotapi.NewMessage(chatID, h.localizer.Get(lang, i18n.MsgAreYouReady, nil))
	msg.ReplyMarkup = h.offerKeyboard(lang)

	sent, err := h.bot.Send(msg)
	if err != nil {
		logger.WithUser(h.logger, userID).WithError(err).Error("Failed to send quiz offer")
		return
	}

	h.mu.Lock()
	h.offers[userID] = sent.MessageID
	h.mu.Unlock()

	h.metrics.RecordQuizOffer()
}

func (h *QuizHandler) offerKeyboard(lang string) tgbotapi.InlineKeyboardMarkup {
	labels := strings.Fields(h.localizer.Get(lang, i18n.MsgYesNo, nil))
	yes, no := "Yes", "No"
	if len(labels) == 2 {
		yes, no = labels[0], labels[1]
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(yes, "quiz_yes"),
			tgbotapi.NewInlineKeyboardButtonData(no, "quiz_no"),
		),
	)
}

// ClearOffer forgets the pending offer message for a user
func (h *QuizHandler) ClearOffer(userID int64) {
	h.mu.Lock()
	delete(h.offers, userID)
	h.mu.Unlock()
}

// StartQuiz begins a session and sends the first question. Caller
// holds the user lock.
func (h *QuizHandler) StartQuiz(ctx context.Context, user *models.User, chatID int64) error {
	lang := user.NativeLang

	session, err := h.scheduler.StartSession(ctx, user)
	if err != nil {
		switch {
		case errors.Is(err, quiz.ErrQuizDisabled):
			return h.sendText(chatID, lang, i18n.MsgWrongGo, nil)
		case errors.Is(err, quiz.ErrNoQuestions):
			return h.sendText(chatID, lang, i18n.MsgEmptyQuiz, nil)
		default:
			logger.WithUser(h.logger, user.ID).WithError(err).Error("Failed to start quiz")
			return h.sendText(chatID, lang, i18n.MsgSomethingWrong, nil)
		}
	}

	user.State = models.StateQuiz
	if err := h.storage.SaveUser(ctx, user); err != nil {
		return err
	}

	return h.sendQuestion(user, chatID, session)
}

// sendQuestion advances the session and delivers the next question as
// a quiz poll
func (h *QuizHandler) sendQuestion(user *models.User, chatID int64, session *quiz.Session) error {
	q := session.Next()
	if q == nil {
		return nil
	}

	text := h.localizer.Get(user.NativeLang, i18n.MsgQuizQuestion, map[string]interface{}{
		"Number": session.Index,
		"Total":  session.Total(),
		"Text":   q.Text,
	})

	options := make([]string, len(q.Options))
	for i := range q.Options {
		options[i] = q.OptionText(i)
	}

	poll := tgbotapi.NewPoll(chatID, text, options...)
	poll.Type = "quiz"
	poll.CorrectOptionID = int64(q.CorrectIndex)
	poll.IsAnonymous = false

	sent, err := h.bot.Send(poll)
	if err != nil {
		logger.WithUser(h.logger, user.ID).WithError(err).Error("Failed to send quiz question")
		return err
	}

	if sent.Poll != nil {
		h.mu.Lock()
		h.polls[sent.Poll.ID] = user.ID
		h.mu.Unlock()
	}

	return nil
}

// HandlePollAnswer applies a quiz poll vote to the user's session
func (h *QuizHandler) HandlePollAnswer(ctx context.Context, answer *tgbotapi.PollAnswer) error {
	if len(answer.OptionIDs) == 0 {
		// Retracted vote
		return nil
	}

	h.mu.Lock()
	userID, known := h.polls[answer.PollID]
	if known {
		delete(h.polls, answer.PollID)
	}
	chatID := h.active[userID]
	h.mu.Unlock()

	if !known || answer.User.ID != userID || chatID == 0 {
		return nil
	}

	h.locks.Lock(userID)
	defer h.locks.Unlock(userID)

	user, err := h.storage.GetUser(ctx, userID)
	if err != nil || user == nil {
		return err
	}

	session := h.scheduler.ActiveSession(userID)
	if session == nil {
		return nil
	}

	_, done, err := h.scheduler.Answer(ctx, user, answer.OptionIDs[0])
	if err != nil {
		logger.WithUser(h.logger, userID).WithError(err).Error("Failed to apply quiz answer")
		return err
	}

	if !done {
		return h.sendQuestion(user, chatID, session)
	}

	user.State = models.StateNext
	if err := h.storage.SaveUser(ctx, user); err != nil {
		return err
	}

	return h.sendText(chatID, user.NativeLang, i18n.MsgFinishQuiz, map[string]interface{}{
		"Corrects": session.Corrects,
		"Mistakes": session.Mistakes,
	})
}

func (h *QuizHandler) sendText(chatID int64, lang, messageID string, data map[string]interface{}) error {
	msg := tgbotapi.NewMessage(chatID, h.localizer.Get(lang, messageID, data))
	_, err := h.bot.Send(msg)
	return err
}
