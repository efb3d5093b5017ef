package quiz

import (
	"testing"
	"time"

	"github.com/gunther-tgbot-go/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestRepeat(t *testing.T) {
	rec := &models.HistoryRecord{}

	Repeat(rec, 3)
	assert.Equal(t, 1, rec.Weight)
	assert.Equal(t, 3, rec.Hold)

	// A repeat mid-countdown restarts the hold
	rec.Hold = 1
	Repeat(rec, 3)
	assert.Equal(t, 2, rec.Weight)
	assert.Equal(t, 3, rec.Hold)
}

func TestCorrectWorksHoldDownToZero(t *testing.T) {
	rec := &models.HistoryRecord{Weight: 2, Hold: 3}

	Correct(rec)
	assert.Equal(t, 2, rec.Weight)
	assert.Equal(t, 2, rec.Hold)

	Correct(rec)
	assert.Equal(t, 2, rec.Weight)
	assert.Equal(t, 1, rec.Hold)

	// The last correct in the streak collapses the weight
	Correct(rec)
	assert.Equal(t, 0, rec.Weight)
	assert.Equal(t, 0, rec.Hold)
}

func TestCorrectAtZeroWeightIsNoOp(t *testing.T) {
	rec := &models.HistoryRecord{Weight: 0, Hold: 0}

	Correct(rec)
	assert.Equal(t, 0, rec.Weight)
	assert.Equal(t, 0, rec.Hold)
}

func TestMarkShown(t *testing.T) {
	rec := &models.HistoryRecord{}
	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	MarkShown(rec, day)
	assert.Equal(t, 1, rec.Appears)
	assert.Equal(t, day, rec.LastAppear)

	MarkShown(rec, day.AddDate(0, 0, 1))
	assert.Equal(t, 2, rec.Appears)
	assert.Equal(t, day.AddDate(0, 0, 1), rec.LastAppear)
}
