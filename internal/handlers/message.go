package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gunther-tgbot-go/internal/config"
	"github.com/gunther-tgbot-go/internal/i18n"
	"github.com/gunther-tgbot-go/internal/middleware"
	"github.com/gunther-tgbot-go/internal/models"
	"github.com/gunther-tgbot-go/internal/services/quiz"
	"github.com/gunther-tgbot-go/internal/services/quota"
	"github.com/gunther-tgbot-go/internal/services/storage"
	"github.com/gunther-tgbot-go/internal/services/translator"
	"github.com/gunther-tgbot-go/pkg/localtime"
	"github.com/gunther-tgbot-go/pkg/logger"
	"github.com/gunther-tgbot-go/pkg/markdown"
	"github.com/sirupsen/logrus"
)

// MessageHandler handles regular messages: translation requests plus
// the short setup dialogs routed by conversation state
type MessageHandler struct {
	config      *config.Config
	bot         *tgbotapi.BotAPI
	storage     storage.Store
	resolver    *translator.Resolver
	scheduler   *quiz.Scheduler
	quiz        *QuizHandler
	rateLimiter middleware.RateLimiter
	locks       *middleware.UserLocks
	metrics     *middleware.Metrics
	localizer   *i18n.Localizer
	logger      *logrus.Logger
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(
	cfg *config.Config,
	bot *tgbotapi.BotAPI,
	store storage.Store,
	resolver *translator.Resolver,
	scheduler *quiz.Scheduler,
	quizHandler *QuizHandler,
	rateLimiter middleware.RateLimiter,
	locks *middleware.UserLocks,
	metrics *middleware.Metrics,
	localizer *i18n.Localizer,
	logger *logrus.Logger,
) *MessageHandler {
	return &MessageHandler{
		config:      cfg,
		bot:         bot,
		storage:     store,
		resolver:    resolver,
		scheduler:   scheduler,
		quiz:        quizHandler,
		rateLimiter: rateLimiter,
		locks:       locks,
		metrics:     metrics,
		localizer:   localizer,
		logger:      logger,
	}
}

// HandleMessage processes regular messages
func (h *MessageHandler) HandleMessage(ctx context.Context, update *tgbotapi.Update) error {
	if update.Message == nil || update.Message.IsCommand() || update.Message.Text == "" {
		return nil
	}

	// Ignore bot's own messages
	if update.Message.From.ID == h.bot.Self.ID {
		return nil
	}

	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID
	text := update.Message.Text

	h.locks.Lock(userID)
	defer h.locks.Unlock(userID)

	user, err := getOrCreateUser(ctx, h.storage, h.scheduler, userID)
	if err != nil {
		return err
	}
	h.quiz.Track(userID, chatID)

	if !h.rateLimiter.Allow(userID) {
		// One notice per ban window; silence after that starves the burst
		if h.rateLimiter.NotifyOnce(userID) {
			return h.reply(chatID, user.NativeLang, i18n.MsgRateLimit, nil)
		}
		return nil
	}

	switch user.State {
	case models.StateInit:
		return h.reply(chatID, user.NativeLang, i18n.MsgChooseLang, nil)
	case models.StateAwaitTimezone:
		return h.handleTimezone(ctx, user, chatID, text)
	case models.StateAwaitQuestions:
		return h.handleQuestions(ctx, user, chatID, text)
	case models.StateQuiz:
		// Free text mid-quiz abandons the session; the day stays
		// marked, and the text is served as a translation request
		h.scheduler.Abandon(user.ID)
		user.State = models.StateNext
		if err := h.storage.SaveUser(ctx, user); err != nil {
			return err
		}
		return h.handleTranslation(ctx, user, chatID, text)
	default:
		return h.handleTranslation(ctx, user, chatID, text)
	}
}

// handleTimezone parses the timezone offset step of the quiz dialog
func (h *MessageHandler) handleTimezone(ctx context.Context, user *models.User, chatID int64, text string) error {
	lang := user.NativeLang

	offset, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || !localtime.ValidOffset(offset) {
		return h.reply(chatID, lang, i18n.MsgWrongTimezone, nil)
	}

	user.TZOffset = offset
	user.State = models.StateAwaitQuestions
	if err := h.storage.SaveUser(ctx, user); err != nil {
		return err
	}

	limits, err := h.storage.GetSystemLimits(ctx)
	if err != nil {
		return err
	}

	return h.reply(chatID, lang, i18n.MsgAskQuestions, map[string]interface{}{
		"Min": limits.MinQuestions,
		"Max": limits.MaxQuestions,
	})
}

// handleQuestions parses the question count step and enables quiz mode
func (h *MessageHandler) handleQuestions(ctx context.Context, user *models.User, chatID int64, text string) error {
	lang := user.NativeLang

	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return h.reply(chatID, lang, i18n.MsgWrongQuestions, nil)
	}

	limits, err := h.storage.GetSystemLimits(ctx)
	if err != nil {
		return err
	}
	if n < limits.MinQuestions || n > limits.MaxQuestions {
		return h.reply(chatID, lang, i18n.MsgWrongQNValue, map[string]interface{}{
			"Min": limits.MinQuestions,
			"Max": limits.MaxQuestions,
		})
	}

	if err := h.scheduler.Enable(ctx, user, n); err != nil {
		if errors.Is(err, quiz.ErrInsufficientHistory) {
			user.State = models.StateNext
			if saveErr := h.storage.SaveUser(ctx, user); saveErr != nil {
				return saveErr
			}
			return h.reply(chatID, lang, i18n.MsgTooFewRecords, map[string]interface{}{
				"Min": quiz.MinHistoryForQuiz,
			})
		}
		return err
	}

	user.State = models.StateNext
	if err := h.storage.SaveUser(ctx, user); err != nil {
		return err
	}

	return h.reply(chatID, lang, i18n.MsgQuizEnabled, nil)
}

// handleTranslation resolves the text through the tiered lookup and
// reports the result or a user-facing denial
func (h *MessageHandler) handleTranslation(ctx context.Context, user *models.User, chatID int64, text string) error {
	lang := user.NativeLang

	trans, err := h.resolver.Resolve(ctx, user, text, user.TransLang, user.NativeLang)
	if err != nil {
		return h.replyResolveError(ctx, user, chatID, err)
	}

	data := map[string]interface{}{
		"Text":  markdown.EscapeText(trans.Text),
		"Lang":  trans.TextLang,
		"Trans": markdown.EscapeText(trans.Trans),
		"Tries": trans.Occurs,
	}

	msgID := i18n.MsgTransFirst
	if trans.Occurs > 1 {
		msgID = i18n.MsgTransAgain
	}

	logger.WithUser(h.logger, user.ID).WithFields(logrus.Fields{
		"origin": trans.Origin,
		"occurs": trans.Occurs,
	}).Debug("Translation resolved")

	return h.reply(chatID, lang, msgID, data)
}

// replyResolveError maps resolver errors onto localized replies
func (h *MessageHandler) replyResolveError(ctx context.Context, user *models.User, chatID int64, err error) error {
	lang := user.NativeLang

	limits, limitsErr := h.storage.GetSystemLimits(ctx)
	if limitsErr != nil {
		limits = models.DefaultSystemLimits()
	}

	switch {
	case errors.Is(err, translator.ErrTextTooLong):
		return h.reply(chatID, lang, i18n.MsgTextTooLong, map[string]interface{}{"Limit": limits.MaxTextLen})
	case errors.Is(err, translator.ErrTooManyWords):
		return h.reply(chatID, lang, i18n.MsgTooManyWords, map[string]interface{}{"Limit": limits.MaxWordCount})
	case errors.Is(err, translator.ErrWordTooLong):
		return h.reply(chatID, lang, i18n.MsgWordTooLong, map[string]interface{}{"Limit": limits.MaxWordLen})
	case errors.Is(err, translator.ErrInputRejected):
		return h.reply(chatID, lang, i18n.MsgBadInput, nil)
	case errors.Is(err, quota.ErrQuotaExceeded):
		return h.reply(chatID, lang, i18n.MsgQuotaExceeded, map[string]interface{}{"Limit": user.APIDayQuotaLimit})
	case errors.Is(err, quota.ErrBanned):
		return h.reply(chatID, lang, i18n.MsgRateLimit, nil)
	case errors.Is(err, translator.ErrNoTranslation):
		return h.reply(chatID, lang, i18n.MsgNoTranslation, nil)
	case errors.Is(err, translator.ErrProviderUnavailable):
		return h.reply(chatID, lang, i18n.MsgProviderDown, nil)
	default:
		logger.WithUser(h.logger, user.ID).WithError(err).Error("Translation failed")
		return h.reply(chatID, lang, i18n.MsgSomethingWrong, nil)
	}
}

// reply sends a localized markdown message rendered as Telegram HTML
func (h *MessageHandler) reply(chatID int64, lang, messageID string, data map[string]interface{}) error {
	text := h.localizer.Get(lang, messageID, data)

	msg := tgbotapi.NewMessage(chatID, markdown.ToTelegramHTML(text))
	msg.ParseMode = "HTML"

	if _, err := h.bot.Send(msg); err != nil {
		h.logger.WithError(err).Warn("Failed to send HTML message, trying plain text")
		msg.ParseMode = ""
		msg.Text = text
		if _, err := h.bot.Send(msg); err != nil {
			return err
		}
	}
	return nil
}
