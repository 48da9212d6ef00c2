// Package registration persists completed registrations: one row per
// confirmed booking, written exactly once by the persistence gateway.
package registration

import (
	"time"

	"github.com/google/uuid"
)

// Registration is one completed, persisted booking.
type Registration struct {
	ID          uuid.UUID `json:"id"`
	FullName    string    `json:"full_name"`
	Contact     string    `json:"contact"`
	DateLabel   string    `json:"date_label"`
	TimeLabel   string    `json:"time_label"`
	AllergyNote string    `json:"allergy_note"`
	ProofKey    string    `json:"proof_key"`      // S3 object key
	ProofURL    string    `json:"proof_url"`      // public/object URL
	ProofFileID string    `json:"proof_file_id"`  // Telegram file id, for operator forwarding
	CreatedAt   time.Time `json:"created_at"`
}
