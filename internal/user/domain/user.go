package domain

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	sessiondomain "tokengate/internal/session/domain"
)

var (
	ErrEmailRequired    = errors.New("email is required")
	ErrEmailInvalid     = errors.New("email is invalid")
	ErrNameRequired     = errors.New("name is required")
	ErrLastNameRequired = errors.New("last name is required")
)

// User is the owner of zero or more sessions. When returned from a session lookup,
// Sessions holds exactly the matched session.
type User struct {
	ID           string                  `json:"id"`
	Name         string                  `json:"name"`
	LastName     string                  `json:"lastName"`
	Email        string                  `json:"email"`
	PasswordHash string                  `json:"-"`
	Sessions     []sessiondomain.Session `json:"-"`
	CreatedAt    time.Time               `json:"createdAt"`
	UpdatedAt    time.Time               `json:"updatedAt"`
}

// NormalizeEmail trims, NFC-normalizes, and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(email)))
}

// Validate validates the user for persistence. Returns the first validation failure.
// Email is normalized in place.
func (u *User) Validate() error {
	u.Email = NormalizeEmail(u.Email)
	if u.Email == "" {
		return ErrEmailRequired
	}
	addr, err := mail.ParseAddress(u.Email)
	if err != nil || addr.Address != u.Email {
		return ErrEmailInvalid
	}
	if strings.TrimSpace(u.Name) == "" {
		return ErrNameRequired
	}
	if strings.TrimSpace(u.LastName) == "" {
		return ErrLastNameRequired
	}
	return nil
}
