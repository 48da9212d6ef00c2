package capacity

import (
	"context"
	"sync"
)

type slotKey struct {
	date string
	time string
}

// MemoryTracker keeps slot counts in process memory. Counts reset on
// restart; use the Postgres tracker when durability matters.
type MemoryTracker struct {
	mu    sync.Mutex
	max   int
	slots map[slotKey]int
}

// NewMemoryTracker creates a tracker allowing max reservations per slot.
func NewMemoryTracker(max int) *MemoryTracker {
	return &MemoryTracker{max: max, slots: make(map[slotKey]int)}
}

// TryReserve atomically increments the slot count if below the maximum.
func (t *MemoryTracker) TryReserve(ctx context.Context, dateLabel, timeLabel string) (bool, error) {
	key := slotKey{date: dateLabel, time: timeLabel}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.slots[key] >= t.max {
		return false, nil
	}
	t.slots[key]++
	return true, nil
}

// Reserved returns the current count for a slot.
func (t *MemoryTracker) Reserved(ctx context.Context, dateLabel, timeLabel string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.slots[slotKey{date: dateLabel, time: timeLabel}], nil
}
