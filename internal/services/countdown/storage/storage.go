// Package storage defines persistence contracts for countdown service state.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// UserWidget stores one dashboard widget owned by a user. Settings is an
// opaque JSON blob interpreted at resolution time.
type UserWidget struct {
	UserID     string
	InstanceID string
	Kind       string
	Title      string
	Settings   json.RawMessage
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ProviderCacheRow stores the last resolved instants for one provider along
// with freshness metadata and an optional administrative override.
type ProviderCacheRow struct {
	ProviderID           string
	NextAt               *time.Time
	PreviousAt           *time.Time
	Tentative            bool
	Confidence           int
	SourceURL            string
	FetchedAt            time.Time
	ValidUntil           *time.Time
	ManualOverrideNextAt *time.Time
	ManualOverrideReason string
}

// WidgetStore persists user widget records.
type WidgetStore interface {
	CreateUserWidget(ctx context.Context, widget UserWidget) error
	// GetUserWidget returns ErrNotFound when the instance does not exist or
	// is not owned by userID.
	GetUserWidget(ctx context.Context, userID, instanceID string) (UserWidget, error)
}

// ProviderCacheStore persists provider cache rows.
//
// UpsertProviderCache is the automatic write path: it inserts or replaces the
// provider-fetched columns and must never assign the manual override columns.
// SetManualOverride and ClearManualOverride form the administrative write
// path, limited to the override columns of an existing or new row.
type ProviderCacheStore interface {
	FindProviderCache(ctx context.Context, providerID string) (ProviderCacheRow, error)
	UpsertProviderCache(ctx context.Context, row ProviderCacheRow) error
	SetManualOverride(ctx context.Context, providerID string, nextAt time.Time, reason string) error
	ClearManualOverride(ctx context.Context, providerID string) error
}
