// Package resolver resolves provider instants through an override-aware,
// freshness-aware persistent cache.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hubdash/hubdash/internal/services/countdown/domain"
	"github.com/hubdash/hubdash/internal/services/countdown/provider"
	"github.com/hubdash/hubdash/internal/services/countdown/storage"
)

// defaultStaleAfter is the freshness window used when a provider supplies no
// valid-until bound.
const defaultStaleAfter = 14 * 24 * time.Hour

// providerSource is the registry surface the resolver needs.
type providerSource interface {
	Get(id string) (provider.Provider, error)
}

// Resolver applies the resolution order per provider id: admin override, then
// fresh cache, then a provider fetch followed by a cache upsert. It is the
// only component that reads or writes the provider cache.
type Resolver struct {
	cache      storage.ProviderCacheStore
	providers  providerSource
	staleAfter time.Duration
	flight     singleflight.Group
}

// Option adjusts resolver policy.
type Option func(*Resolver)

// WithStaleAfter overrides the generic staleness window.
func WithStaleAfter(window time.Duration) Option {
	return func(r *Resolver) {
		if window > 0 {
			r.staleAfter = window
		}
	}
}

// New creates a resolver over the given cache store and provider registry.
func New(cache storage.ProviderCacheStore, providers providerSource, opts ...Option) *Resolver {
	r := &Resolver{
		cache:      cache,
		providers:  providers,
		staleAfter: defaultStaleAfter,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveProvider resolves the next and previous instants for a provider at
// the given reference time.
func (r *Resolver) ResolveProvider(ctx context.Context, providerID string, now time.Time) (domain.ResolvedPair, error) {
	cached, err := r.cache.FindProviderCache(ctx, providerID)
	haveCached := err == nil
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return domain.ResolvedPair{}, fmt.Errorf("find provider cache: %w", err)
	}

	// 1) Admin override wins unconditionally.
	if haveCached && cached.ManualOverrideNextAt != nil {
		log.Printf("resolver: using admin override provider=%s next=%v previous=%v",
			providerID, cached.ManualOverrideNextAt, cached.PreviousAt)
		return domain.ResolvedPair{Next: cached.ManualOverrideNextAt, Previous: cached.PreviousAt}, nil
	}

	// 2) Fresh cache.
	if haveCached && r.isFresh(cached, now) {
		log.Printf("resolver: using fresh cache provider=%s next=%v previous=%v fetched_at=%v",
			providerID, cached.NextAt, cached.PreviousAt, cached.FetchedAt)
		return domain.ResolvedPair{Next: cached.NextAt, Previous: cached.PreviousAt}, nil
	}

	// 3) Fetch once, upsert, return. Concurrent stale resolutions for the
	// same provider share one flight.
	p, err := r.providers.Get(providerID)
	if err != nil {
		return domain.ResolvedPair{}, err
	}

	result, err, _ := r.flight.Do(providerID, func() (any, error) {
		return r.fetchAndPersist(ctx, p, now)
	})
	if err != nil {
		return domain.ResolvedPair{}, err
	}
	return result.(domain.ResolvedPair), nil
}

// PlausibleSpanCapHours exposes the provider-specific maximum plausible
// window span in hours.
func (r *Resolver) PlausibleSpanCapHours(providerID string) (int64, error) {
	p, err := r.providers.Get(providerID)
	if err != nil {
		return 0, err
	}
	return p.PlausibleWindowMaxHours(), nil
}

func (r *Resolver) fetchAndPersist(ctx context.Context, p provider.Provider, now time.Time) (domain.ResolvedPair, error) {
	pair := domain.ResolvedPair{}
	if next, ok := p.Next(ctx, now); ok {
		pair.Next = &next
	}
	if previous, ok := p.Previous(ctx, now); ok {
		pair.Previous = &previous
	}

	// A dead caller deadline means the empty pair is a fetch failure, not a
	// provider answer; report no data and leave the cache row alone.
	if err := ctx.Err(); err != nil {
		log.Printf("resolver: fetch abandoned provider=%s: %v", p.ID(), err)
		return domain.ResolvedPair{}, nil
	}

	// A fully empty answer carries nothing worth caching and would only
	// clobber the last known instants, so skip the write.
	if pair.Next == nil && pair.Previous == nil {
		log.Printf("resolver: no data provider=%s", p.ID())
		return pair, nil
	}

	log.Printf("resolver: fetched provider=%s next=%v previous=%v", p.ID(), pair.Next, pair.Previous)

	row := storage.ProviderCacheRow{
		ProviderID: p.ID(),
		NextAt:     pair.Next,
		PreviousAt: pair.Previous,
		Tentative:  p.Tentative(),
		Confidence: p.Confidence(),
		SourceURL:  p.SourceURL(),
		FetchedAt:  now,
	}
	if validUntil, ok := p.ValidUntil(ctx, now); ok {
		row.ValidUntil = &validUntil
	}
	if err := r.cache.UpsertProviderCache(ctx, row); err != nil {
		return domain.ResolvedPair{}, fmt.Errorf("upsert provider cache: %w", err)
	}
	return pair, nil
}

// isFresh reports whether a cached row may be reused. A provider-supplied
// valid-until bound is authoritative; otherwise the cached next instant must
// still lie ahead and the fetch must be younger than the staleness window.
func (r *Resolver) isFresh(cached storage.ProviderCacheRow, now time.Time) bool {
	if cached.ValidUntil != nil {
		if cached.NextAt == nil {
			return false
		}
		return now.Before(*cached.ValidUntil)
	}
	if cached.NextAt == nil {
		return false
	}
	if !cached.NextAt.After(now) {
		return false
	}
	return now.Sub(cached.FetchedAt) < r.staleAfter
}
