package translator

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors surfaced at the request boundary. All of them are
// recoverable; none leave partial state behind. The specific input
// errors wrap ErrInputRejected, so callers may match either level.
var (
	// ErrInputRejected means the text failed the system limits
	ErrInputRejected = errors.New("input rejected")

	ErrTextTooLong   = fmt.Errorf("%w: text too long", ErrInputRejected)
	ErrTooManyWords  = fmt.Errorf("%w: too many words", ErrInputRejected)
	ErrWordTooLong   = fmt.Errorf("%w: word too long", ErrInputRejected)
	ErrBadCharacters = fmt.Errorf("%w: unsupported characters", ErrInputRejected)
	ErrUnknownLang   = fmt.Errorf("%w: unknown language code", ErrInputRejected)

	ErrNoTranslation = errors.New("provider returned no usable translation")

	// ErrProviderUnavailable means the remote call failed; safe to retry later
	ErrProviderUnavailable = errors.New("translation provider unavailable")
)

// Provider translates text between two languages, identified by
// provider-specific codes. A provider returns exactly one translation
// per request; this is a design constraint carried to any future
// implementation.
type Provider interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// Registry holds the available providers keyed by the id stored on the
// user record. Adding a provider means implementing Provider and
// registering it here; nothing else changes.
type Registry struct {
	providers map[string]Provider
	fallback  string
}

// NewRegistry creates a provider registry with the given fallback id
func NewRegistry(fallback string) *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		fallback:  fallback,
	}
}

// Register adds a provider under an id
func (r *Registry) Register(id string, p Provider) {
	r.providers[id] = p
}

// Get returns the provider for an id, falling back to the default when
// the id is unknown
func (r *Registry) Get(id string) Provider {
	if p, ok := r.providers[id]; ok {
		return p
	}
	return r.providers[r.fallback]
}
