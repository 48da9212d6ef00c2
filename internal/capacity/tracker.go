// Package capacity enforces per-slot occupancy limits. A slot is one
// (date+location label, time label) pair; its reservation count is
// incremented atomically and never decremented (no cancellation path).
package capacity

import "context"

// Tracker reserves places in slots up to a fixed maximum.
type Tracker interface {
	// TryReserve increments the slot's count and returns true if the
	// current count is below the maximum; returns false without mutation
	// when the slot is full. The check-and-increment is atomic under
	// concurrent callers.
	TryReserve(ctx context.Context, dateLabel, timeLabel string) (bool, error)

	// Reserved returns the current count for a slot (zero for untouched slots).
	Reserved(ctx context.Context, dateLabel, timeLabel string) (int, error)
}
