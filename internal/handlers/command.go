package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gunther-tgbot-go/internal/config"
	"github.com/gunther-tgbot-go/internal/i18n"
	"github.com/gunther-tgbot-go/internal/middleware"
	"github.com/gunther-tgbot-go/internal/models"
	"github.com/gunther-tgbot-go/internal/services/quiz"
	"github.com/gunther-tgbot-go/internal/services/storage"
	"github.com/gunther-tgbot-go/pkg/markdown"
	"github.com/sirupsen/logrus"
)

// CommandHandler handles telegram commands and inline keyboard callbacks
type CommandHandler struct {
	bot         *tgbotapi.BotAPI
	config      *config.Config
	storage     storage.Store
	scheduler   *quiz.Scheduler
	quiz        *QuizHandler
	rateLimiter middleware.RateLimiter
	locks       *middleware.UserLocks
	localizer   *i18n.Localizer
	logger      *logrus.Logger
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(
	bot *tgbotapi.BotAPI,
	cfg *config.Config,
	store storage.Store,
	scheduler *quiz.Scheduler,
	quizHandler *QuizHandler,
	rateLimiter middleware.RateLimiter,
	locks *middleware.UserLocks,
	localizer *i18n.Localizer,
	logger *logrus.Logger,
) *CommandHandler {
	return &CommandHandler{
		bot:         bot,
		config:      cfg,
		storage:     store,
		scheduler:   scheduler,
		quiz:        quizHandler,
		rateLimiter: rateLimiter,
		locks:       locks,
		localizer:   localizer,
		logger:      logger,
	}
}

// HandleCommand processes telegram commands
func (h *CommandHandler) HandleCommand(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	userID := message.From.ID

	h.locks.Lock(userID)
	defer h.locks.Unlock(userID)

	user, err := getOrCreateUser(ctx, h.storage, h.scheduler, userID)
	if err != nil {
		return err
	}
	h.quiz.Track(userID, chatID)

	lang := user.NativeLang

	switch message.Command() {
	case "start":
		return h.handleStart(ctx, user, chatID, message.CommandArguments())
	case "config":
		return h.handleConfig(ctx, user, chatID)
	case "quiz":
		return h.handleQuizToggle(ctx, user, chatID)
	case "go":
		return h.handleGo(ctx, user, chatID)
	case "switch":
		return h.handleSwitch(ctx, user, chatID)
	case "top10":
		return h.handleTop10(ctx, user, chatID)
	default:
		return h.reply(chatID, lang, i18n.MsgWrongCmd, nil)
	}
}

// handleStart begins first-time setup with the language keyboards. An
// optional argument preselects the native language.
func (h *CommandHandler) handleStart(ctx context.Context, user *models.User, chatID int64, arg string) error {
	// A fresh start wipes any leftover ban state
	h.rateLimiter.Reset(user.ID)

	if user.State != models.StateInit {
		return h.reply(chatID, user.NativeLang, i18n.MsgWrongStart, nil)
	}

	arg = strings.ToLower(strings.TrimSpace(arg))
	if arg != "" {
		if known, err := h.storage.GetLanguage(ctx, arg); err == nil && known != nil {
			user.NativeLang = known.Lang
			if err := h.storage.SaveUser(ctx, user); err != nil {
				return err
			}
			return h.sendLanguageKeyboard(ctx, user, chatID, i18n.MsgTransLang, "trans_lang", user.NativeLang)
		}
	}

	return h.sendLanguageKeyboard(ctx, user, chatID, i18n.MsgNativeLang, "native_lang", "")
}

// handleConfig re-runs the language selection for an established user
func (h *CommandHandler) handleConfig(ctx context.Context, user *models.User, chatID int64) error {
	if user.State != models.StateNext {
		return h.reply(chatID, user.NativeLang, i18n.MsgWrongConfig, nil)
	}
	return h.sendLanguageKeyboard(ctx, user, chatID, i18n.MsgNativeLang, "native_lang", "")
}

// handleQuizToggle turns quiz mode off, or starts the enable dialog:
// timezone first, question count next, enabled at the end
func (h *CommandHandler) handleQuizToggle(ctx context.Context, user *models.User, chatID int64) error {
	lang := user.NativeLang

	if user.State != models.StateNext {
		return h.reply(chatID, lang, i18n.MsgWrongQuiz, nil)
	}

	enabled, err := h.scheduler.IsEnabled(ctx, user.ID)
	if err != nil {
		return err
	}

	if enabled {
		if err := h.scheduler.Disable(ctx, user); err != nil {
			return err
		}
		return h.reply(chatID, lang, i18n.MsgQuizDisabled, nil)
	}

	count, err := h.storage.CountHistory(ctx, user.ID)
	if err != nil {
		return err
	}
	if count < quiz.MinHistoryForQuiz {
		return h.reply(chatID, lang, i18n.MsgTooFewRecords, map[string]interface{}{
			"Min": quiz.MinHistoryForQuiz,
		})
	}

	user.State = models.StateAwaitTimezone
	if err := h.storage.SaveUser(ctx, user); err != nil {
		return err
	}

	return h.reply(chatID, lang, i18n.MsgAskTimezone, nil)
}

// handleGo starts a quiz session immediately, outside the offer flow
func (h *CommandHandler) handleGo(ctx context.Context, user *models.User, chatID int64) error {
	if user.State != models.StateNext {
		return h.reply(chatID, user.NativeLang, i18n.MsgWrongGo, nil)
	}
	return h.quiz.StartQuiz(ctx, user, chatID)
}

// handleSwitch toggles the question selection algorithm
func (h *CommandHandler) handleSwitch(ctx context.Context, user *models.User, chatID int64) error {
	algo, err := h.scheduler.SwitchAlgo(ctx, user)
	if err != nil {
		return err
	}

	h.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"algo":    algo,
	}).Info("Quiz algorithm switched")

	return h.reply(chatID, user.NativeLang, i18n.MsgSwitched, nil)
}

// handleTop10 lists the user's heaviest records
func (h *CommandHandler) handleTop10(ctx context.Context, user *models.User, chatID int64) error {
	lang := user.NativeLang

	records, err := h.storage.TopWeighted(ctx, user.ID, 10)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return h.reply(chatID, lang, i18n.MsgEmptyTopTen, nil)
	}

	var lines []string
	for _, rec := range records {
		lastAppear := "-"
		if !rec.LastAppear.IsZero() {
			lastAppear = rec.LastAppear.Format("2006-01-02")
		}
		lines = append(lines, h.localizer.Get(lang, i18n.MsgTopTen, map[string]interface{}{
			"Text":       markdown.EscapeText(rec.Text),
			"TextLang":   rec.TextLang,
			"Trans":      markdown.EscapeText(rec.Trans),
			"TransLang":  rec.TransLang,
			"Weight":     rec.Weight,
			"Hold":       rec.Hold,
			"LastAppear": lastAppear,
		}))
	}

	return h.send(chatID, strings.Join(lines, "\n\n"))
}

// HandleCallbackQuery processes inline keyboard callbacks
func (h *CommandHandler) HandleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if callback.Message == nil {
		return nil
	}

	userID := callback.From.ID
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID

	// Dismiss the client-side loading state
	h.bot.Request(tgbotapi.NewCallback(callback.ID, ""))

	h.locks.Lock(userID)
	defer h.locks.Unlock(userID)

	user, err := getOrCreateUser(ctx, h.storage, h.scheduler, userID)
	if err != nil {
		return err
	}
	h.quiz.Track(userID, chatID)

	switch {
	case strings.HasPrefix(callback.Data, "native_lang:"):
		return h.handleNativeLang(ctx, user, chatID, messageID, strings.TrimPrefix(callback.Data, "native_lang:"))
	case strings.HasPrefix(callback.Data, "trans_lang:"):
		return h.handleTransLang(ctx, user, chatID, messageID, strings.TrimPrefix(callback.Data, "trans_lang:"))
	case callback.Data == "quiz_yes":
		return h.handleQuizAccept(ctx, user, chatID, messageID)
	case callback.Data == "quiz_no":
		return h.handleQuizDecline(ctx, user, chatID, messageID)
	}

	return nil
}

// handleNativeLang stores the picked native language and moves on to
// the learning language keyboard
func (h *CommandHandler) handleNativeLang(ctx context.Context, user *models.User, chatID int64, messageID int, code string) error {
	known, err := h.storage.GetLanguage(ctx, code)
	if err != nil {
		return err
	}
	if known == nil {
		return nil
	}

	user.NativeLang = known.Lang
	if err := h.storage.SaveUser(ctx, user); err != nil {
		return err
	}

	keyboard, err := h.languageKeyboard(ctx, "trans_lang", user.NativeLang)
	if err != nil {
		return err
	}

	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID,
		h.localizer.Get(user.NativeLang, i18n.MsgTransLang, nil), keyboard)
	_, err = h.bot.Send(edit)
	return err
}

// handleTransLang stores the learning language and completes setup
func (h *CommandHandler) handleTransLang(ctx context.Context, user *models.User, chatID int64, messageID int, code string) error {
	known, err := h.storage.GetLanguage(ctx, code)
	if err != nil {
		return err
	}
	if known == nil || known.Lang == user.NativeLang {
		return nil
	}

	user.TransLang = known.Lang
	user.State = models.StateNext
	if err := h.storage.SaveUser(ctx, user); err != nil {
		return err
	}

	edit := tgbotapi.NewEditMessageText(chatID, messageID,
		h.localizer.Get(user.NativeLang, i18n.MsgFinishLang, nil))
	_, err = h.bot.Send(edit)
	return err
}

// handleQuizAccept starts the offered session in place of the offer
func (h *CommandHandler) handleQuizAccept(ctx context.Context, user *models.User, chatID int64, messageID int) error {
	h.quiz.ClearOffer(user.ID)
	h.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID))

	if user.State != models.StateNext {
		return nil
	}
	return h.quiz.StartQuiz(ctx, user, chatID)
}

// handleQuizDecline acknowledges a declined offer. The day stays
// unmarked, so the loop will ask again later in the window.
func (h *CommandHandler) handleQuizDecline(ctx context.Context, user *models.User, chatID int64, messageID int) error {
	h.quiz.ClearOffer(user.ID)

	edit := tgbotapi.NewEditMessageText(chatID, messageID,
		h.localizer.Get(user.NativeLang, i18n.MsgNextTime, nil))
	_, err := h.bot.Send(edit)
	return err
}

// sendLanguageKeyboard sends a fresh language picker message
func (h *CommandHandler) sendLanguageKeyboard(ctx context.Context, user *models.User, chatID int64, messageID, action, exclude string) error {
	keyboard, err := h.languageKeyboard(ctx, action, exclude)
	if err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, h.localizer.Get(user.NativeLang, messageID, nil))
	msg.ReplyMarkup = keyboard
	_, err = h.bot.Send(msg)
	return err
}

// languageKeyboard builds an inline keyboard over the language table,
// two buttons per row
func (h *CommandHandler) languageKeyboard(ctx context.Context, action, exclude string) (tgbotapi.InlineKeyboardMarkup, error) {
	languages, err := h.storage.ListLanguages(ctx)
	if err != nil {
		return tgbotapi.InlineKeyboardMarkup{}, err
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, l := range languages {
		if l.Lang == exclude {
			continue
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(l.FullName, fmt.Sprintf("%s:%s", action, l.Lang)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...), nil
}

// reply sends a localized markdown message rendered as Telegram HTML
func (h *CommandHandler) reply(chatID int64, lang, messageID string, data map[string]interface{}) error {
	return h.send(chatID, h.localizer.Get(lang, messageID, data))
}

func (h *CommandHandler) send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, markdown.ToTelegramHTML(text))
	msg.ParseMode = "HTML"

	if _, err := h.bot.Send(msg); err != nil {
		// HTML parsing can fail on odd user text, fall back to plain
		h.logger.WithError(err).Warn("Failed to send HTML message, trying plain text")
		msg.ParseMode = ""
		msg.Text = text
		if _, err := h.bot.Send(msg); err != nil {
			return err
		}
	}
	return nil
}
