package capacity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresTracker keeps slot counts in the slot_reservations table.
// Concurrent reservations serialize on the row, so the count cannot
// exceed the maximum even across bot instances.
type PostgresTracker struct {
	pool *pgxpool.Pool
	max  int
}

// NewPostgresTracker creates a tracker backed by Postgres.
func NewPostgresTracker(pool *pgxpool.Pool, max int) *PostgresTracker {
	return &PostgresTracker{pool: pool, max: max}
}

// TryReserve performs the check-and-increment as one conditional upsert.
// The DO UPDATE takes a row lock, so two racing transactions cannot both
// read the same count.
func (t *PostgresTracker) TryReserve(ctx context.Context, dateLabel, timeLabel string) (bool, error) {
	// The insert branch writes reserved = 1 unconditionally, so a
	// non-positive maximum has to be rejected before touching the row.
	if t.max < 1 {
		return false, nil
	}
	const q = `INSERT INTO slot_reservations (date_label, time_label, reserved)
		VALUES ($1, $2, 1)
		ON CONFLICT (date_label, time_label) DO UPDATE
		SET reserved = slot_reservations.reserved + 1, updated_at = NOW()
		WHERE slot_reservations.reserved < $3
		RETURNING reserved`
	var reserved int
	err := t.pool.QueryRow(ctx, q, dateLabel, timeLabel, t.max).Scan(&reserved)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil // WHERE clause rejected the update: slot full
	}
	if err != nil {
		return false, fmt.Errorf("reserve slot: %w", err)
	}
	return true, nil
}

// Reserved returns the current count for a slot (zero if never reserved).
func (t *PostgresTracker) Reserved(ctx context.Context, dateLabel, timeLabel string) (int, error) {
	const q = `SELECT reserved FROM slot_reservations WHERE date_label = $1 AND time_label = $2`
	var reserved int
	err := t.pool.QueryRow(ctx, q, dateLabel, timeLabel).Scan(&reserved)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read slot count: %w", err)
	}
	return reserved, nil
}
