package quiz

import (
	"sort"
	"time"

	"github.com/gunther-tgbot-go/internal/models"
	"github.com/gunther-tgbot-go/pkg/localtime"
)

// Selector orders and picks history records to turn into questions.
// Selection is read-only and deterministic for a given history snapshot;
// weight/hold mutation happens only when answers come in. today is the
// user's local calendar day, the same day last_appear is written in.
type Selector interface {
	Select(history []*models.HistoryRecord, count int, today time.Time) []*models.HistoryRecord
}

// SelectorRegistry holds the available selection algorithms keyed by
// the id stored on the quiz config
type SelectorRegistry struct {
	selectors map[string]Selector
	fallback  string
}

// NewSelectorRegistry creates a registry with the built-in algorithms
func NewSelectorRegistry() *SelectorRegistry {
	r := &SelectorRegistry{
		selectors: make(map[string]Selector),
		fallback:  "maxweight",
	}
	r.Register("maxweight", &MaxWeight{})
	r.Register("evenspread", &EvenSpread{})
	return r
}

// Register adds a selector under an id
func (r *SelectorRegistry) Register(id string, s Selector) {
	r.selectors[id] = s
}

// Get returns the selector for an id, falling back to maxweight when
// the id is unknown
func (r *SelectorRegistry) Get(id string) Selector {
	if s, ok := r.selectors[id]; ok {
		return s
	}
	return r.selectors[r.fallback]
}

// MaxWeight picks the heaviest records first: weight descending, ties
// broken by creation time ascending so the oldest problem surfaces first.
type MaxWeight struct{}

func (m *MaxWeight) Select(history []*models.HistoryRecord, count int, _ time.Time) []*models.HistoryRecord {
	selected := make([]*models.HistoryRecord, len(history))
	copy(selected, history)

	sort.SliceStable(selected, func(i, j int) bool {
		if selected[i].Weight != selected[j].Weight {
			return selected[i].Weight > selected[j].Weight
		}
		return selected[i].CreatedOn.Before(selected[j].CreatedOn)
	})

	if len(selected) > count {
		selected = selected[:count]
	}
	return selected
}

// EvenSpread rotates exposure across the weighted set: records that
// already appeared today or yesterday drop behind everything else, so
// repeated sessions do not keep surfacing the same top-weight records.
// Recency is judged against the caller's local day, not UTC.
type EvenSpread struct{}

func (e *EvenSpread) Select(history []*models.HistoryRecord, count int, today time.Time) []*models.HistoryRecord {
	cutoff := localtime.Day(today).AddDate(0, 0, -1)

	recent := func(rec *models.HistoryRecord) bool {
		return !rec.LastAppear.IsZero() && !localtime.Day(rec.LastAppear).Before(cutoff)
	}

	selected := make([]*models.HistoryRecord, len(history))
	copy(selected, history)

	sort.SliceStable(selected, func(i, j int) bool {
		ri, rj := recent(selected[i]), recent(selected[j])
		if ri != rj {
			return !ri
		}
		if selected[i].Weight != selected[j].Weight {
			return selected[i].Weight > selected[j].Weight
		}
		if !selected[i].LastAppear.Equal(selected[j].LastAppear) {
			return selected[i].LastAppear.Before(selected[j].LastAppear)
		}
		return selected[i].CreatedOn.Before(selected[j].CreatedOn)
	})

	if len(selected) > count {
		selected = selected[:count]
	}
	return selected
}
