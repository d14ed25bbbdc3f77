// Package provider defines the time-source contract and its implementations.
//
// A provider discovers the next and previous interesting instants for one
// named external phenomenon, typically by scraping a public page. Providers
// report absence as an ok=false result rather than an error so callers can
// fall back gracefully.
package provider

import (
	"context"
	"net/http"
	"sort"
	"time"

	apperrors "github.com/hubdash/hubdash/internal/errors"
)

// DefaultPlausibleWindowMaxHours bounds the [previous, next] span a provider
// considers one contiguous event unless it overrides the cap.
const DefaultPlausibleWindowMaxHours = 72

// Provider is a pluggable source of upcoming and previous event instants.
type Provider interface {
	// ID returns the stable identifier used in widget settings and as the
	// cache key.
	ID() string
	// Next returns the next interesting instant at or after now, or ok=false
	// when none could be determined.
	Next(ctx context.Context, now time.Time) (time.Time, bool)
	// Previous returns the most recent qualifying instant strictly before
	// now, or ok=false.
	Previous(ctx context.Context, now time.Time) (time.Time, bool)
	// Tentative reports whether the provider's dates may still change.
	Tentative() bool
	// Confidence grades reliability of the reported dates, 0..100.
	Confidence() int
	// SourceURL names the document the dates were derived from, if any.
	SourceURL() string
	// ValidUntil returns the instant at which a cached result should be
	// considered stale regardless of the generic staleness window.
	ValidUntil(ctx context.Context, now time.Time) (time.Time, bool)
	// PlausibleWindowMaxHours caps the [previous, next] span accepted as one
	// contiguous event.
	PlausibleWindowMaxHours() int64
}

// Defaults supplies the optional provider capabilities. Implementations embed
// it and override only what they can answer.
type Defaults struct{}

func (Defaults) Previous(context.Context, time.Time) (time.Time, bool)   { return time.Time{}, false }
func (Defaults) Tentative() bool                                         { return false }
func (Defaults) Confidence() int                                         { return 100 }
func (Defaults) SourceURL() string                                       { return "" }
func (Defaults) ValidUntil(context.Context, time.Time) (time.Time, bool) { return time.Time{}, false }
func (Defaults) PlausibleWindowMaxHours() int64                          { return DefaultPlausibleWindowMaxHours }

// Registry maps stable provider ids to implementations. It is built once at
// startup; there is no dynamic registration.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry wires the known providers with shared infrastructure.
func NewRegistry(client *http.Client, zone *time.Location) *Registry {
	return NewRegistryWith(
		NewTrippelTrumf(client, zone),
		NewDNBSupertilbud(client, zone),
	)
}

// NewRegistryWith builds a registry from explicit providers.
func NewRegistryWith(providers ...Provider) *Registry {
	byID := make(map[string]Provider, len(providers))
	for _, p := range providers {
		if p == nil {
			continue
		}
		byID[p.ID()] = p
	}
	return &Registry{providers: byID}
}

// Get returns a provider by id or an unknown-provider error.
func (r *Registry) Get(id string) (Provider, error) {
	if r != nil {
		if p, ok := r.providers[id]; ok {
			return p, nil
		}
	}
	return nil, apperrors.Errorf(apperrors.KindUnknownProvider, "unknown provider: %s", id)
}

// IDs returns the registered provider ids in stable order.
func (r *Registry) IDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
