// Package session holds in-progress registration state, keyed by
// conversation identity (chat + user).
package session

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no session exists for a key.
var ErrNotFound = errors.New("session not found")

// State is the registration flow state. Fields are collected in strict
// state order; a field is empty until its state has been passed.
type State int

const (
	StateName State = iota
	StateContact
	StateDate
	StateTime
	StateAllergies
	StateConfirm
	StatePayment
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateName:
		return "name"
	case StateContact:
		return "contact"
	case StateDate:
		return "date"
	case StateTime:
		return "time"
	case StateAllergies:
		return "allergies"
	case StateConfirm:
		return "confirm"
	case StatePayment:
		return "payment"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Attachment references an uploaded payment proof on the transport side.
// Bytes are fetched lazily by the persistence gateway.
type Attachment struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	MIMEType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

// Session is one user's in-progress registration.
type Session struct {
	ChatID      int64     `json:"chat_id"`
	UserID      int64     `json:"user_id"`
	State       State     `json:"state"`
	FullName    string    `json:"full_name"`
	Contact     string    `json:"contact"`
	DateLabel   string    `json:"date_label"`
	TimeLabel   string    `json:"time_label"`
	AllergyNote string    `json:"allergy_note"`
	TermsAgreed bool      `json:"terms_agreed"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// New returns a fresh session at the first collection state.
func New(chatID, userID int64) *Session {
	return &Session{ChatID: chatID, UserID: userID, State: StateName, UpdatedAt: time.Now()}
}

// Key returns the conversation identity for a chat+user pair.
func Key(chatID, userID int64) string {
	return fmt.Sprintf("%d:%d", chatID, userID)
}

// Key returns the session's conversation identity.
func (s *Session) Key() string {
	return Key(s.ChatID, s.UserID)
}

// Store persists in-progress sessions by conversation key.
// Implementations must enforce the configured idle TTL so abandoned
// sessions do not accumulate.
type Store interface {
	Get(ctx context.Context, key string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, key string) error
}
