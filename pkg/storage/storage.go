// Package storage persists settings and fetched schedule snapshots.
package storage

import (
	"context"
	"errors"

	"github.com/hdowatch/hdowatch/pkg/types"
)

// ErrScheduleNotCached is returned when no schedule snapshot has been
// persisted yet. Callers fall back to fetching from the distributor.
var ErrScheduleNotCached = errors.New("no cached schedule")

// Database defines the interface for persisting data and retrieving settings.
type Database interface {
	// Settings
	GetSettings(ctx context.Context) (types.Settings, int, error)
	SetSettings(ctx context.Context, settings types.Settings, version int) error

	// Schedule snapshots
	// GetCachedSchedule returns the most recently persisted snapshot or
	// ErrScheduleNotCached.
	GetCachedSchedule(ctx context.Context) (types.CachedSchedule, error)
	PutCachedSchedule(ctx context.Context, snapshot types.CachedSchedule) error

	// Lifecycle
	Close() error
}
