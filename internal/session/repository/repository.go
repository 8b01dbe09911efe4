package repository

import (
	"context"
	"time"

	"tokengate/internal/session/domain"
	userdomain "tokengate/internal/user/domain"
)

// Repository defines persistence for sessions. Every call carries the request context.
type Repository interface {
	// AppendSession adds s to the user's session collection. Existing sessions are untouched.
	AppendSession(ctx context.Context, userID string, s *domain.Session) error
	// FindActiveSessionOwner returns the user owning a non-revoked session with the given hash,
	// with Sessions holding only that session. It returns (nil, nil) when nothing matches.
	FindActiveSessionOwner(ctx context.Context, sessionIDHash, userID string) (*userdomain.User, error)
	// RevokeSession sets revoked_at on the matching, not yet revoked session in one conditional write.
	// It reports true only for the call that performed the transition.
	RevokeSession(ctx context.Context, userID, sessionIDHash string, at time.Time) (bool, error)
}
