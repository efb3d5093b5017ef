package quiz

import (
	"math/rand"

	"github.com/gunther-tgbot-go/internal/models"
)

// optionCount is the number of answers per question: the correct one
// plus three distractors.
const optionCount = 4

// Builder turns selected history records into 4-option questions,
// drawing distractors from the rest of the user's history.
type Builder struct {
	rng *rand.Rand
}

// NewBuilder creates a question builder with the given random source
func NewBuilder(rng *rand.Rand) *Builder {
	return &Builder{rng: rng}
}

// Build creates up to count questions from targets, using pool for
// distractors. Targets without three distinct same-pair distractors are
// skipped. Roughly a quarter of the questions face the reverse
// direction (translation shown, source texts as options).
func (b *Builder) Build(targets, pool []*models.HistoryRecord, count int) []*models.Question {
	var questions []*models.Question

	for _, target := range targets {
		if len(questions) == count {
			break
		}

		flip := b.rng.Intn(4) == 3
		if q := b.question(target, pool, flip); q != nil {
			questions = append(questions, q)
		}
	}

	return questions
}

// question builds one question for target, or nil when the pool cannot
// supply three distinct distractors
func (b *Builder) question(target *models.HistoryRecord, pool []*models.HistoryRecord, flip bool) *models.Question {
	answer := func(rec *models.HistoryRecord) string {
		if flip {
			return rec.Text
		}
		return rec.Trans
	}

	// Candidates share the language pair and never duplicate an option
	// text already taken. Compare by fields, never by identity: two
	// records can carry the same translation.
	seen := map[string]bool{answer(target): true}

	var candidates []*models.HistoryRecord
	for _, rec := range pool {
		if rec.TextLang != target.TextLang || rec.TransLang != target.TransLang {
			continue
		}
		if rec.UserID == target.UserID && rec.ID == target.ID {
			continue
		}
		if seen[answer(rec)] {
			continue
		}
		seen[answer(rec)] = true
		candidates = append(candidates, rec)
	}

	if len(candidates) < optionCount-1 {
		return nil
	}

	b.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	options := make([]*models.HistoryRecord, 0, optionCount)
	options = append(options, candidates[:optionCount-1]...)

	correct := b.rng.Intn(optionCount)
	options = append(options[:correct], append([]*models.HistoryRecord{target}, options[correct:]...)...)

	if flip {
		return &models.Question{
			Text:         target.Trans,
			Lang:         target.TransLang,
			Options:      options,
			OptionsLang:  target.TextLang,
			CorrectIndex: correct,
			Record:       target,
		}
	}

	return &models.Question{
		Text:         target.Text,
		Lang:         target.TextLang,
		Options:      options,
		OptionsLang:  target.TransLang,
		CorrectIndex: correct,
		Record:       target,
	}
}
