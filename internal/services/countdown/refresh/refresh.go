// Package refresh proactively warms the provider cache on a cron schedule.
package refresh

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hubdash/hubdash/internal/services/countdown/domain"
)

// ProviderLister enumerates the registered provider ids.
type ProviderLister interface {
	IDs() []string
}

// Warmer resolves one provider, refreshing its cache row as a side effect.
type Warmer interface {
	ResolveProvider(ctx context.Context, providerID string, now time.Time) (domain.ResolvedPair, error)
}

// Job periodically resolves every registered provider so widget reads hit a
// warm cache. One slow or failing provider never blocks the others' warm-up.
type Job struct {
	schedule  cron.Schedule
	expr      string
	providers ProviderLister
	warmer    Warmer
	now       func() time.Time
}

// NewJob parses a standard five-field cron expression and builds the warm-up
// job.
func NewJob(expr string, providers ProviderLister, warmer Warmer) (*Job, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse refresh schedule %q: %w", expr, err)
	}
	return &Job{
		schedule:  schedule,
		expr:      expr,
		providers: providers,
		warmer:    warmer,
		now:       time.Now,
	}, nil
}

// Run blocks, warming all providers at each schedule tick, until ctx ends.
func (j *Job) Run(ctx context.Context) error {
	log.Printf("refresh: schedule %q active for %d providers", j.expr, len(j.providers.IDs()))
	for {
		next := j.schedule.Next(j.now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		j.WarmAll(ctx)
	}
}

// WarmAll resolves every registered provider once, logging and skipping
// failures.
func (j *Job) WarmAll(ctx context.Context) {
	for _, providerID := range j.providers.IDs() {
		if ctx.Err() != nil {
			return
		}
		if _, err := j.warmer.ResolveProvider(ctx, providerID, j.now()); err != nil {
			log.Printf("refresh: warm failed provider=%s: %v", providerID, err)
			continue
		}
		log.Printf("refresh: warmed provider=%s", providerID)
	}
}
