// Package history persists the events of every run in an append-only SQLite
// store and projects them into run summaries.
package history

import (
	"context"
	"time"
)

// Store persists and retrieves run events.
type Store interface {
	// Append adds a new event to the store.
	Append(ctx context.Context, e *Event) error

	// GetByRunID retrieves all events of one run in append order.
	GetByRunID(ctx context.Context, runID string) ([]*Event, error)

	// GetRange retrieves events recorded within a time range.
	GetRange(ctx context.Context, start, end time.Time) ([]*Event, error)

	// Close releases resources.
	Close() error
}
