package translator

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gunther-tgbot-go/internal/models"
)

var (
	// A word made entirely of digits, punctuation or symbols
	reJunkWord = regexp.MustCompile(`^[\d\pP\pS]+$`)
	// A word starting with something that is not a letter or digit
	reJunkStart = regexp.MustCompile(`^[^\p{L}\d]`)
)

// Normalize trims and case-folds text so identical requests map to one
// history record and one shared-cache entry
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Validate checks normalized text against the system limits. It has no
// side effects; a rejection leaves no state behind.
func Validate(text string, limits *models.SystemLimits) error {
	if text == "" {
		return ErrBadCharacters
	}
	if utf8.RuneCountInString(text) > limits.MaxTextLen {
		return ErrTextTooLong
	}

	words := strings.Fields(text)
	if len(words) > limits.MaxWordCount {
		return ErrTooManyWords
	}

	for _, word := range words {
		if utf8.RuneCountInString(word) > limits.MaxWordLen {
			return ErrWordTooLong
		}
		if reJunkWord.MatchString(word) || reJunkStart.MatchString(word) {
			return ErrBadCharacters
		}
	}

	return nil
}
