package translator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gunther-tgbot-go/internal/middleware"
	"github.com/gunther-tgbot-go/internal/models"
	"github.com/gunther-tgbot-go/internal/services/cache"
	"github.com/gunther-tgbot-go/internal/services/quiz"
	"github.com/gunther-tgbot-go/internal/services/quota"
	"github.com/gunther-tgbot-go/internal/services/storage"
	"github.com/sirupsen/logrus"
)

// Resolver answers translation requests through a tiered lookup:
// per-user history, then the shared cache, then the remote provider.
// The order amortizes provider cost across all users while keeping
// personal repeat detection free. Only the provider tier consumes quota.
type Resolver struct {
	store     storage.Store
	cache     cache.Service
	quota     *quota.Manager
	providers *Registry
	metrics   *middleware.Metrics
	logger    *logrus.Logger
	now       func() time.Time
}

// NewResolver creates a translation resolver
func NewResolver(
	store storage.Store,
	cacheService cache.Service,
	quotaManager *quota.Manager,
	providers *Registry,
	metrics *middleware.Metrics,
	logger *logrus.Logger,
) *Resolver {
	return &Resolver{
		store:     store,
		cache:     cacheService,
		quota:     quotaManager,
		providers: providers,
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Resolve translates text from sourceLang to targetLang for the user.
// Callers hold the user's lock; the whole lookup-update sequence runs
// serialized per user.
func (r *Resolver) Resolve(ctx context.Context, user *models.User, text, sourceLang, targetLang string) (*models.Translation, error) {
	text = Normalize(text)

	limits, err := r.store.GetSystemLimits(ctx)
	if err != nil {
		return nil, err
	}

	if err := Validate(text, limits); err != nil {
		r.metrics.RecordRejection("input")
		return nil, err
	}

	// Tier 1: the user already resolved this exact request
	rec, err := r.store.GetHistoryRecord(ctx, user.ID, text, sourceLang, targetLang)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		rec.Occurs++
		quiz.Repeat(rec, r.revoke(ctx, user.ID))

		if err := r.store.UpsertHistoryRecord(ctx, rec); err != nil {
			return nil, err
		}

		r.metrics.RecordResolution(string(models.OriginHistory))
		return result(rec, models.OriginHistory), nil
	}

	// Tier 2: another user already paid for this translation
	if trans, found := r.cache.Get(ctx, sourceLang, targetLang, text); found {
		rec = r.newRecord(user.ID, text, sourceLang, trans, targetLang)

		if err := r.store.UpsertHistoryRecord(ctx, rec); err != nil {
			return nil, err
		}

		r.metrics.RecordResolution(string(models.OriginSharedCache))
		return result(rec, models.OriginSharedCache), nil
	}

	// Tier 3: remote provider, quota permitting
	if err := r.quota.Admit(ctx, user); err != nil {
		switch {
		case errors.Is(err, quota.ErrBanned):
			r.metrics.RecordQuotaDenied("banned")
		case errors.Is(err, quota.ErrQuotaExceeded):
			r.metrics.RecordQuotaDenied("exhausted")
		}
		return nil, err
	}

	trans, err := r.callProvider(ctx, user, text, sourceLang, targetLang)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Put(ctx, sourceLang, targetLang, text, trans); err != nil {
		// The cache is advisory; losing a write only costs a future call
		r.logger.WithError(err).Warn("Failed to update shared cache")
	}

	rec = r.newRecord(user.ID, text, sourceLang, trans, targetLang)
	if err := r.store.UpsertHistoryRecord(ctx, rec); err != nil {
		return nil, err
	}

	if err := r.quota.Commit(ctx, user); err != nil {
		return nil, err
	}

	r.metrics.RecordResolution(string(models.OriginRemote))

	r.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"source":  sourceLang,
		"target":  targetLang,
		"quota":   user.APIDayQuota,
	}).Info("Translated via remote provider")

	return result(rec, models.OriginRemote), nil
}

// callProvider performs the single remote call for this request
func (r *Resolver) callProvider(ctx context.Context, user *models.User, text, sourceLang, targetLang string) (string, error) {
	srcCode, err := r.providerCode(ctx, sourceLang)
	if err != nil {
		return "", err
	}
	dstCode, err := r.providerCode(ctx, targetLang)
	if err != nil {
		return "", err
	}

	provider := r.providers.Get(user.Algo)

	start := r.now()
	trans, err := provider.Translate(ctx, text, srcCode, dstCode)
	if err != nil {
		r.metrics.RecordProviderRequest(user.Algo, "error", r.now().Sub(start))
		return "", err
	}
	r.metrics.RecordProviderRequest(user.Algo, "success", r.now().Sub(start))

	trans = strings.ToLower(strings.TrimSpace(trans))
	if trans == "" || trans == text {
		// The provider echoing the input back means it had nothing to offer
		return "", ErrNoTranslation
	}

	return trans, nil
}

// providerCode maps a language code to the code the provider expects
func (r *Resolver) providerCode(ctx context.Context, lang string) (string, error) {
	l, err := r.store.GetLanguage(ctx, lang)
	if err != nil {
		return "", err
	}
	if l == nil {
		return "", ErrUnknownLang
	}
	return l.GCode, nil
}

// revoke reads the user's hold ceiling, defaulting when quiz mode was
// never configured
func (r *Resolver) revoke(ctx context.Context, userID int64) int {
	cfg, err := r.store.GetQuizConfig(ctx, userID)
	if err != nil || cfg == nil {
		return models.NewQuizConfig(userID).Revoke
	}
	return cfg.Revoke
}

func (r *Resolver) newRecord(userID int64, text, textLang, trans, transLang string) *models.HistoryRecord {
	return &models.HistoryRecord{
		UserID:    userID,
		Text:      text,
		TextLang:  textLang,
		Trans:     trans,
		TransLang: transLang,
		Occurs:    1,
		CreatedOn: r.now(),
	}
}

func result(rec *models.HistoryRecord, origin models.Origin) *models.Translation {
	return &models.Translation{
		Text:      rec.Text,
		TextLang:  rec.TextLang,
		Trans:     rec.Trans,
		TransLang: rec.TransLang,
		Occurs:    rec.Occurs,
		Origin:    origin,
	}
}
