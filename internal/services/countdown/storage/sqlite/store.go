// Package sqlite provides a SQLite-backed countdown storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hubdash/hubdash/internal/platform/storage/sqlitemigrate"
	"github.com/hubdash/hubdash/internal/services/countdown/storage"
	"github.com/hubdash/hubdash/internal/services/countdown/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists countdown state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite countdown store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func toMillisPtr(value *time.Time) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*value), Valid: true}
}

func fromMillisPtr(value sql.NullInt64) *time.Time {
	if !value.Valid {
		return nil
	}
	at := fromMillis(value.Int64)
	return &at
}

// CreateUserWidget inserts one widget record.
func (s *Store) CreateUserWidget(ctx context.Context, widget storage.UserWidget) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	userID := strings.TrimSpace(widget.UserID)
	instanceID := strings.TrimSpace(widget.InstanceID)
	kind := strings.TrimSpace(widget.Kind)
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if instanceID == "" {
		return fmt.Errorf("instance id is required")
	}
	if kind == "" {
		return fmt.Errorf("widget kind is required")
	}
	settings := widget.Settings
	if len(settings) == 0 {
		settings = []byte("{}")
	}
	createdAt := widget.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := widget.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO user_widgets (
		   user_id,
		   instance_id,
		   kind,
		   title,
		   settings,
		   created_at,
		   updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID,
		instanceID,
		kind,
		strings.TrimSpace(widget.Title),
		string(settings),
		toMillis(createdAt),
		toMillis(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert user widget: %w", err)
	}
	return nil
}

// GetUserWidget returns one widget owned by userID.
func (s *Store) GetUserWidget(ctx context.Context, userID, instanceID string) (storage.UserWidget, error) {
	if err := ctx.Err(); err != nil {
		return storage.UserWidget{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.UserWidget{}, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	instanceID = strings.TrimSpace(instanceID)
	if userID == "" {
		return storage.UserWidget{}, fmt.Errorf("user id is required")
	}
	if instanceID == "" {
		return storage.UserWidget{}, fmt.Errorf("instance id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT user_id, instance_id, kind, title, settings, created_at, updated_at
		 FROM user_widgets
		 WHERE user_id = ? AND instance_id = ?`,
		userID,
		instanceID,
	)

	var widget storage.UserWidget
	var settings string
	var createdAt, updatedAt int64
	err := row.Scan(
		&widget.UserID,
		&widget.InstanceID,
		&widget.Kind,
		&widget.Title,
		&settings,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.UserWidget{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.UserWidget{}, fmt.Errorf("scan user widget: %w", err)
	}
	widget.Settings = []byte(settings)
	widget.CreatedAt = fromMillis(createdAt)
	widget.UpdatedAt = fromMillis(updatedAt)
	return widget, nil
}

// FindProviderCache returns the cache row for a provider id.
func (s *Store) FindProviderCache(ctx context.Context, providerID string) (storage.ProviderCacheRow, error) {
	if err := ctx.Err(); err != nil {
		return storage.ProviderCacheRow{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ProviderCacheRow{}, fmt.Errorf("storage is not configured")
	}
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return storage.ProviderCacheRow{}, fmt.Errorf("provider id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT provider_id, next_at, previous_at, tentative, confidence, source_url,
		        fetched_at, valid_until, manual_override_next_at, manual_override_reason
		 FROM countdown_provider_cache
		 WHERE provider_id = ?`,
		providerID,
	)

	var cached storage.ProviderCacheRow
	var nextAt, previousAt, validUntil, overrideNextAt sql.NullInt64
	var tentative int
	var fetchedAt int64
	err := row.Scan(
		&cached.ProviderID,
		&nextAt,
		&previousAt,
		&tentative,
		&cached.Confidence,
		&cached.SourceURL,
		&fetchedAt,
		&validUntil,
		&overrideNextAt,
		&cached.ManualOverrideReason,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ProviderCacheRow{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.ProviderCacheRow{}, fmt.Errorf("scan provider cache: %w", err)
	}
	cached.NextAt = fromMillisPtr(nextAt)
	cached.PreviousAt = fromMillisPtr(previousAt)
	cached.Tentative = tentative != 0
	cached.FetchedAt = fromMillis(fetchedAt)
	cached.ValidUntil = fromMillisPtr(validUntil)
	cached.ManualOverrideNextAt = fromMillisPtr(overrideNextAt)
	return cached, nil
}

// UpsertProviderCache inserts or replaces the provider-fetched columns of a
// cache row. The manual override columns are never assigned on this path, so
// an administrative override survives every automatic refresh.
func (s *Store) UpsertProviderCache(ctx context.Context, row storage.ProviderCacheRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	providerID := strings.TrimSpace(row.ProviderID)
	if providerID == "" {
		return fmt.Errorf("provider id is required")
	}
	if row.Confidence < 0 || row.Confidence > 100 {
		return fmt.Errorf("confidence must be in range 0..100")
	}
	tentative := 0
	if row.Tentative {
		tentative = 1
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO countdown_provider_cache (
		   provider_id, next_at, previous_at, tentative, confidence, source_url, fetched_at, valid_until
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (provider_id) DO UPDATE SET
		   next_at = excluded.next_at,
		   previous_at = excluded.previous_at,
		   tentative = excluded.tentative,
		   confidence = excluded.confidence,
		   source_url = excluded.source_url,
		   fetched_at = excluded.fetched_at,
		   valid_until = excluded.valid_until`,
		providerID,
		toMillisPtr(row.NextAt),
		toMillisPtr(row.PreviousAt),
		tentative,
		row.Confidence,
		strings.TrimSpace(row.SourceURL),
		toMillis(row.FetchedAt),
		toMillisPtr(row.ValidUntil),
	)
	if err != nil {
		return fmt.Errorf("upsert provider cache: %w", err)
	}
	return nil
}

// SetManualOverride assigns the administrative override columns for a
// provider, creating the row when no fetch has happened yet.
func (s *Store) SetManualOverride(ctx context.Context, providerID string, nextAt time.Time, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return fmt.Errorf("provider id is required")
	}
	if nextAt.IsZero() {
		return fmt.Errorf("override instant is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO countdown_provider_cache (
		   provider_id, fetched_at, manual_override_next_at, manual_override_reason
		 ) VALUES (?, ?, ?, ?)
		 ON CONFLICT (provider_id) DO UPDATE SET
		   manual_override_next_at = excluded.manual_override_next_at,
		   manual_override_reason = excluded.manual_override_reason`,
		providerID,
		toMillis(time.Now()),
		toMillis(nextAt),
		strings.TrimSpace(reason),
	)
	if err != nil {
		return fmt.Errorf("set manual override: %w", err)
	}
	return nil
}

// ClearManualOverride removes the administrative override for a provider.
// Clearing a provider without a row is a no-op.
func (s *Store) ClearManualOverride(ctx context.Context, providerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	providerID = strings.TrimSpace(providerID)
	if providerID == "" {
		return fmt.Errorf("provider id is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE countdown_provider_cache
		 SET manual_override_next_at = NULL, manual_override_reason = ''
		 WHERE provider_id = ?`,
		providerID,
	)
	if err != nil {
		return fmt.Errorf("clear manual override: %w", err)
	}
	return nil
}
