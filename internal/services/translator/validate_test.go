package translator

import (
	"strings"
	"testing"

	"github.com/gunther-tgbot-go/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "dog house", Normalize("  Dog House \n"))
	assert.Equal(t, "привет", Normalize("ПРИВЕТ"))
}

func TestValidate(t *testing.T) {
	limits := models.DefaultSystemLimits()

	tests := []struct {
		name string
		text string
		want error
	}{
		{"single word", "dog", nil},
		{"phrase", "dog house", nil},
		{"cyrillic", "собака", nil},
		{"hyphenated", "well-known", nil},
		{"word with digits", "dog2", nil},
		{"too long text", strings.Repeat("a", limits.MaxTextLen+1), ErrTextTooLong},
		{"too many words", "one two three four five six", ErrTooManyWords},
		{"word too long", strings.Repeat("a", limits.MaxWordLen+1), ErrWordTooLong},
		{"empty", "", ErrBadCharacters},
		{"digits only", "12345", ErrBadCharacters},
		{"punctuation only", "?!...", ErrBadCharacters},
		{"leading symbol", "-dog", ErrBadCharacters},
		{"junk among words", "dog !!! house", ErrBadCharacters},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.text, limits)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
				assert.ErrorIs(t, err, ErrInputRejected)
			}
		})
	}
}
