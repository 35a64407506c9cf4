// Package storage defines the persistence interfaces and their implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"promo_engine/internal/model"
)

// ErrConflict is returned by Insert when a promotion with the same ID already exists.
var ErrConflict = errors.New("promotion already exists")

// RecordStore persists accepted promotions.
type RecordStore interface {
	Exists(ctx context.Context, id string) (bool, error)
	// Insert stores p only if no row with p.ID exists, otherwise it returns ErrConflict.
	// p.CapturedAt is assigned by the store.
	Insert(ctx context.Context, p *model.Promotion) error
	ListRecent(ctx context.Context, limit int, titleQuery string) ([]model.Promotion, error)
	DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// FilterStore holds the global monitoring rules.
type FilterStore interface {
	// CurrentFilters returns an empty config when no row exists.
	CurrentFilters(ctx context.Context) (model.FilterConfig, error)
	EnsureFilterConfig(ctx context.Context, defaults model.FilterConfig) error
	SaveFilterConfig(ctx context.Context, cfg model.FilterConfig) error
}

// Storage is the interface for all persistence operations.
type Storage interface {
	RecordStore
	FilterStore
	Close() error
}
