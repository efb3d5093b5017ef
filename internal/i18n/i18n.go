package i18n

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/gunther-tgbot-go/internal/config"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// Localizer manages internationalization
type Localizer struct {
	bundle          *i18n.Bundle
	defaultLanguage string
	localizers      map[string]*i18n.Localizer
}

// NewLocalizer creates a new localizer
func NewLocalizer(cfg *config.I18nConfig) (*Localizer, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	for _, lang := range cfg.Languages {
		path := filepath.Join(cfg.Directory, fmt.Sprintf("%s.json", lang))
		if _, err := bundle.LoadMessageFile(path); err != nil {
			return nil, fmt.Errorf("failed to load language file %s: %w", lang, err)
		}
	}

	localizers := make(map[string]*i18n.Localizer)
	for _, lang := range cfg.Languages {
		localizers[lang] = i18n.NewLocalizer(bundle, lang)
	}

	return &Localizer{
		bundle:          bundle,
		defaultLanguage: cfg.DefaultLanguage,
		localizers:      localizers,
	}, nil
}

// Get returns a localized message
func (l *Localizer) Get(lang, messageID string, data map[string]interface{}) string {
	localizer, exists := l.localizers[lang]
	if !exists {
		localizer = l.localizers[l.defaultLanguage]
	}

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID // Fallback to message ID
	}

	return msg
}

// Message IDs
const (
	MsgChooseLang      = "choose_lang"
	MsgNativeLang      = "native_lang"
	MsgTransLang       = "trans_lang"
	MsgFinishLang      = "finish_lang"
	MsgWrongStart      = "wrong_start"
	MsgWrongConfig     = "wrong_config"
	MsgWrongQuiz       = "wrong_quiz"
	MsgWrongGo         = "wrong_go"
	MsgWrongCmd        = "wrong_cmd"
	MsgTransFirst      = "trans_first"
	MsgTransAgain      = "trans_again"
	MsgTextTooLong     = "text_too_long"
	MsgTooManyWords    = "too_many_words"
	MsgWordTooLong     = "word_too_long"
	MsgBadInput        = "bad_input"
	MsgQuotaExceeded   = "quota_exceeded"
	MsgNoTranslation   = "no_translation"
	MsgProviderDown    = "provider_down"
	MsgRateLimit       = "rate_limit"
	MsgAskTimezone     = "ask_timezone"
	MsgWrongTimezone   = "wrong_timezone"
	MsgAskQuestions    = "ask_questions"
	MsgWrongQuestions  = "wrong_questions"
	MsgWrongQNValue    = "wrong_qn_value"
	MsgQuizEnabled     = "quiz_enabled"
	MsgQuizDisabled    = "quiz_disabled"
	MsgTooFewRecords   = "too_few_records"
	MsgAreYouReady     = "are_u_ready"
	MsgYesNo           = "yes_no"
	MsgNextTime        = "next_time"
	MsgEmptyQuiz       = "empty_quiz"
	MsgQuizQuestion    = "quiz_question"
	MsgFinishQuiz      = "finish_quiz"
	MsgSwitched        = "switched"
	MsgTopTen          = "top_ten"
	MsgEmptyTopTen     = "empty_top_ten"
	MsgSomethingWrong  = "something_wrong"
)
