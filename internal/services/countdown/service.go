// Package countdown resolves dashboard countdown widgets to concrete
// next/previous instants.
package countdown

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	apperrors "github.com/hubdash/hubdash/internal/errors"
	"github.com/hubdash/hubdash/internal/services/countdown/domain"
	"github.com/hubdash/hubdash/internal/services/countdown/resolver"
	"github.com/hubdash/hubdash/internal/services/countdown/storage"
)

// Result is a resolved countdown: the reference instant, the bounding event
// instants when known, and whether the event is considered ongoing.
type Result struct {
	Now      time.Time
	Next     *time.Time
	Previous *time.Time
	Ongoing  bool
}

// ProviderResolver is the resolver surface the service needs.
type ProviderResolver interface {
	ResolveProvider(ctx context.Context, providerID string, now time.Time) (domain.ResolvedPair, error)
	PlausibleSpanCapHours(providerID string) (int64, error)
}

var _ ProviderResolver = (*resolver.Resolver)(nil)

// Service resolves countdown widgets for their owners. It dispatches on the
// widget's configured source kind and never fails for configuration problems;
// only a missing widget or an unknown provider id surface as errors.
type Service struct {
	widgets  storage.WidgetStore
	resolver ProviderResolver
	zone     *time.Location
	capHours int64
	now      func() time.Time
}

// ServiceOption adjusts service policy.
type ServiceOption func(*Service)

// WithDefaultCapHours overrides the plausible-span cap used for non-provider
// sources and as the fallback for unknown provider caps.
func WithDefaultCapHours(hours int64) ServiceOption {
	return func(s *Service) {
		if hours > 0 {
			s.capHours = hours
		}
	}
}

// WithClock fixes the reference-time source, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a countdown service. zone is the calendar zone for
// monthly rules; nil falls back to UTC.
func NewService(widgets storage.WidgetStore, r ProviderResolver, zone *time.Location, opts ...ServiceOption) *Service {
	if zone == nil {
		zone = time.UTC
	}
	s := &Service{
		widgets:  widgets,
		resolver: r,
		zone:     zone,
		capHours: domain.DefaultPlausibleCapHours,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve resolves the countdown widget instanceID owned by userID at the
// service's current time.
func (s *Service) Resolve(ctx context.Context, userID, instanceID string) (Result, error) {
	now := s.now()

	widget, err := s.widgets.GetUserWidget(ctx, userID, instanceID)
	if errors.Is(err, storage.ErrNotFound) {
		return Result{}, apperrors.Errorf(apperrors.KindNotFound, "widget %s not found", instanceID)
	}
	if err != nil {
		return Result{}, fmt.Errorf("load widget: %w", err)
	}

	settings := domain.ParseSettings(widget.Settings)
	pair, capHours, err := s.resolvePair(ctx, settings, now)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Now:      now,
		Next:     pair.Next,
		Previous: pair.Previous,
		Ongoing:  domain.Ongoing(now, pair, capHours),
	}, nil
}

// ResolveProvider resolves a provider's instants directly, outside any widget.
func (s *Service) ResolveProvider(ctx context.Context, providerID string) (Result, error) {
	now := s.now()
	pair, err := s.resolver.ResolveProvider(ctx, providerID, now)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Now:      now,
		Next:     pair.Next,
		Previous: pair.Previous,
		Ongoing:  domain.Ongoing(now, pair, s.providerCapHours(providerID)),
	}, nil
}

func (s *Service) resolvePair(ctx context.Context, settings domain.Settings, now time.Time) (domain.ResolvedPair, int64, error) {
	switch settings.Kind {
	case domain.SourceFixedDate:
		target := settings.TargetAt
		return domain.ResolvedPair{Next: &target}, s.capHours, nil
	case domain.SourceMonthlyRule:
		pair := domain.ResolvedPair{}
		if next, ok := domain.NextMonthlyOccurrence(now, settings.Monthly, s.zone); ok {
			pair.Next = &next
		}
		return pair, s.capHours, nil
	case domain.SourceProvider:
		pair, err := s.resolver.ResolveProvider(ctx, settings.ProviderID, now)
		if err != nil {
			return domain.ResolvedPair{}, 0, err
		}
		return pair, s.providerCapHours(settings.ProviderID), nil
	default:
		// Unrecognized settings resolve to an empty countdown.
		return domain.ResolvedPair{}, s.capHours, nil
	}
}

// providerCapHours looks up the provider-specific plausible-span cap, falling
// back to the service default when the provider is unknown.
func (s *Service) providerCapHours(providerID string) int64 {
	hours, err := s.resolver.PlausibleSpanCapHours(providerID)
	if err != nil {
		log.Printf("countdown: plausible cap lookup failed provider=%s: %v", providerID, err)
		return s.capHours
	}
	return hours
}
