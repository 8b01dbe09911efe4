package repository

import (
	"context"
	"errors"

	"tokengate/internal/user/domain"
)

// ErrEmailTaken is returned by Create when another user already owns the email.
var ErrEmailTaken = errors.New("email already registered")

// Repository defines persistence for users. Lookups return (nil, nil) when no user matches.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Create persists u. The user must have ID set; it is not assigned by this method.
	Create(ctx context.Context, u *domain.User) error
}
