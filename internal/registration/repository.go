package registration

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a registration does not exist.
var ErrNotFound = errors.New("registration not found")

// Repository handles registration persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a registration row.
func (r *Repository) Create(ctx context.Context, reg *Registration) error {
	const q = `INSERT INTO registrations (id, full_name, contact, date_label, time_label, allergy_note, proof_key, proof_url, proof_file_id)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, q,
		reg.FullName, reg.Contact, reg.DateLabel, reg.TimeLabel,
		reg.AllergyNote, reg.ProofKey, reg.ProofURL, reg.ProofFileID,
	).Scan(&reg.ID, &reg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

// GetByID returns a registration by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Registration, error) {
	const q = `SELECT id, full_name, contact, date_label, time_label, allergy_note, proof_key, proof_url, proof_file_id, created_at
		FROM registrations WHERE id = $1`
	var reg Registration
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&reg.ID, &reg.FullName, &reg.Contact, &reg.DateLabel, &reg.TimeLabel,
		&reg.AllergyNote, &reg.ProofKey, &reg.ProofURL, &reg.ProofFileID, &reg.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return &reg, nil
}

// List returns all registrations, newest first.
func (r *Repository) List(ctx context.Context) ([]Registration, error) {
	const q = `SELECT id, full_name, contact, date_label, time_label, allergy_note, proof_key, proof_url, proof_file_id, created_at
		FROM registrations ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()
	var list []Registration
	for rows.Next() {
		var reg Registration
		if err := rows.Scan(
			&reg.ID, &reg.FullName, &reg.Contact, &reg.DateLabel, &reg.TimeLabel,
			&reg.AllergyNote, &reg.ProofKey, &reg.ProofURL, &reg.ProofFileID, &reg.CreatedAt,
		); err != nil {
			return nil, err
		}
		list = append(list, reg)
	}
	return list, rows.Err()
}

// CountBySlot returns the number of persisted registrations per slot.
func (r *Repository) CountBySlot(ctx context.Context, dateLabel, timeLabel string) (int, error) {
	const q = `SELECT COUNT(*) FROM registrations WHERE date_label = $1 AND time_label = $2`
	var n int
	if err := r.pool.QueryRow(ctx, q, dateLabel, timeLabel).Scan(&n); err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return n, nil
}
