package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gunther-tgbot-go/internal/models"
	"github.com/gunther-tgbot-go/internal/services/storage"
	"github.com/gunther-tgbot-go/pkg/localtime"
	"github.com/sirupsen/logrus"
)

var (
	// ErrQuotaExceeded means the user spent their daily provider budget
	ErrQuotaExceeded = errors.New("daily translation quota exceeded")

	// ErrBanned means the user is inside a temporary burst-ban window
	ErrBanned = errors.New("user is temporarily banned")
)

// BanChecker reports whether a user is currently banned for bursting.
// Implemented by the rate-limit middleware.
type BanChecker interface {
	BanRemaining(userID int64) (time.Duration, bool)
}

// Manager tracks the per-user daily provider-call budget. Admission is
// two-phase: Admit validates the budget without side effects, Commit
// persists the decrement once the provider call actually happened.
// History and shared-cache hits never touch the budget.
type Manager struct {
	store  storage.Store
	bans   BanChecker
	logger *logrus.Logger
	now    func() time.Time
}

// NewManager creates a quota manager
func NewManager(store storage.Store, bans BanChecker, logger *logrus.Logger) *Manager {
	return &Manager{
		store:  store,
		bans:   bans,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the clock, for tests
func (m *Manager) SetNowFunc(now func() time.Time) {
	m.now = now
}

// ResetIfNeeded restores the quota to its ceiling once per local
// calendar day. Computed lazily on access instead of a midnight sweep,
// so a missed tick can never skip a reset. Idempotent: resetting an
// already-reset user is a no-op.
func (m *Manager) ResetIfNeeded(ctx context.Context, user *models.User) error {
	today := localtime.DayAt(m.now(), user.TZOffset)
	if !user.QuotaResetOn.IsZero() && !today.After(localtime.Day(user.QuotaResetOn)) {
		return nil
	}

	user.APIDayQuota = user.APIDayQuotaLimit
	user.QuotaResetOn = today

	if err := m.store.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("failed to persist quota reset: %w", err)
	}

	m.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"quota":   user.APIDayQuota,
	}).Debug("Daily quota reset")

	return nil
}

// Admit checks whether a provider call is allowed for the user.
// Returns ErrBanned or ErrQuotaExceeded on denial; no state changes.
func (m *Manager) Admit(ctx context.Context, user *models.User) error {
	if m.bans != nil {
		if remaining, banned := m.bans.BanRemaining(user.ID); banned {
			return fmt.Errorf("%w: %s remaining", ErrBanned, remaining.Round(time.Second))
		}
	}

	if err := m.ResetIfNeeded(ctx, user); err != nil {
		return err
	}

	if user.APIDayQuota <= 0 {
		return fmt.Errorf("%w: daily limit %d", ErrQuotaExceeded, user.APIDayQuotaLimit)
	}

	return nil
}

// Commit decrements the budget after a successful provider call and
// persists the new value. The quota can never go below zero; callers
// serialize per user, so Admit followed by Commit cannot interleave
// with another request from the same user.
func (m *Manager) Commit(ctx context.Context, user *models.User) error {
	if user.APIDayQuota <= 0 {
		return fmt.Errorf("%w: daily limit %d", ErrQuotaExceeded, user.APIDayQuotaLimit)
	}

	user.APIDayQuota--

	if err := m.store.SaveUser(ctx, user); err != nil {
		user.APIDayQuota++
		return fmt.Errorf("failed to persist quota decrement: %w", err)
	}

	return nil
}
