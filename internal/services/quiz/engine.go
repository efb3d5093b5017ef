package quiz

import (
	"time"

	"github.com/gunther-tgbot-go/internal/models"
)

// Weight/hold transitions. Weight never decays gradually: it collapses
// to zero only after a streak of correct answers as long as the user's
// revoke ceiling, so a single lucky guess cannot clear a record.

// Repeat applies the transition for a repeated request, a wrong answer
// on this record, or this record being the chosen wrong distractor:
// the weight rises and the hold countdown restarts at the ceiling.
func Repeat(rec *models.HistoryRecord, revoke int) {
	rec.Weight++
	rec.Hold = revoke
}

// Correct applies the transition for a correct answer on this record.
// A record already at weight zero stays there.
func Correct(rec *models.HistoryRecord) {
	if rec.Weight == 0 {
		return
	}
	if rec.Hold > 0 {
		rec.Hold--
	}
	if rec.Hold == 0 {
		rec.Weight = 0
	}
}

// MarkShown records a quiz appearance as a question. Distractor-only
// appearances do not count.
func MarkShown(rec *models.HistoryRecord, day time.Time) {
	rec.Appears++
	rec.LastAppear = day
}
