package quiz

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/gunther-tgbot-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPool(n int) []*models.HistoryRecord {
	pool := make([]*models.HistoryRecord, n)
	for i := 0; i < n; i++ {
		pool[i] = &models.HistoryRecord{
			ID:        int64(i + 1),
			UserID:    1,
			Text:      fmt.Sprintf("word%d", i),
			TextLang:  "en",
			Trans:     fmt.Sprintf("слово%d", i),
			TransLang: "ru",
		}
	}
	return pool
}

func TestBuildProducesFourDistinctOptions(t *testing.T) {
	b := NewBuilder(rand.New(rand.NewSource(1)))
	pool := testPool(6)

	questions := b.Build(pool[:3], pool, 3)
	require.Len(t, questions, 3)

	for _, q := range questions {
		require.Len(t, q.Options, 4)

		seen := make(map[string]bool)
		for i := range q.Options {
			text := q.OptionText(i)
			assert.False(t, seen[text], "duplicate option %q", text)
			seen[text] = true
		}

		// The correct option is backed by the asked record
		assert.Equal(t, q.Record.ID, q.Options[q.CorrectIndex].ID)
	}
}

func TestBuildQuestionFacesOneDirection(t *testing.T) {
	b := NewBuilder(rand.New(rand.NewSource(7)))
	pool := testPool(8)

	questions := b.Build(pool, pool, len(pool))
	require.NotEmpty(t, questions)

	for _, q := range questions {
		if q.Text == q.Record.Text {
			assert.Equal(t, q.Record.TextLang, q.Lang)
			assert.Equal(t, q.Record.TransLang, q.OptionsLang)
			assert.Equal(t, q.Record.Trans, q.OptionText(q.CorrectIndex))
		} else {
			assert.Equal(t, q.Record.Trans, q.Text)
			assert.Equal(t, q.Record.TransLang, q.Lang)
			assert.Equal(t, q.Record.TextLang, q.OptionsLang)
			assert.Equal(t, q.Record.Text, q.OptionText(q.CorrectIndex))
		}
	}
}

func TestBuildSkipsTargetsWithoutDistractors(t *testing.T) {
	b := NewBuilder(rand.New(rand.NewSource(1)))

	// Two records can never supply three distractors
	pool := testPool(2)
	questions := b.Build(pool, pool, 2)
	assert.Empty(t, questions)
}

func TestBuildIgnoresOtherLanguagePairs(t *testing.T) {
	b := NewBuilder(rand.New(rand.NewSource(1)))

	pool := testPool(4)
	pool[3].TextLang = "de"

	// Only three same-pair records remain, two distractors each
	questions := b.Build(pool[:1], pool, 1)
	assert.Empty(t, questions)
}

func TestBuildRejectsDuplicateTranslations(t *testing.T) {
	b := NewBuilder(rand.New(rand.NewSource(1)))

	pool := testPool(4)
	pool[2].Trans = pool[1].Trans

	questions := b.Build(pool[:1], pool, 1)
	// One candidate collapses into another, leaving two distractors
	if len(questions) == 1 && questions[0].Text == questions[0].Record.Text {
		t.Fatalf("expected no forward question with duplicate translations")
	}
}
