package auth

import (
	"context"
	"fmt"

	"tokengate/internal/security"
	"tokengate/internal/session/repository"
	"tokengate/internal/telemetry"
)

// Revoker invalidates sessions before their natural expiry.
type Revoker struct {
	sessions repository.Repository
	opts     options
}

func NewRevoker(sessions repository.Repository, opts ...Option) *Revoker {
	return &Revoker{sessions: sessions, opts: buildOptions(opts)}
}

// Revoke revokes the session whose raw id is sessionID. It returns true only for the call that
// flipped the session; wrong user, unknown id, and already revoked all return false.
func (r *Revoker) Revoke(ctx context.Context, userID, sessionID string) (bool, error) {
	if sessionID == "" {
		r.opts.metrics.Revocation(false)
		return false, nil
	}
	return r.RevokeHash(ctx, userID, security.HashSessionID(sessionID))
}

// RevokeHash is Revoke for a caller that only holds the stored hash, such as a resolved Identity.
func (r *Revoker) RevokeHash(ctx context.Context, userID, sessionIDHash string) (bool, error) {
	if userID == "" || sessionIDHash == "" {
		r.opts.metrics.Revocation(false)
		return false, nil
	}
	ok, err := r.sessions.RevokeSession(ctx, userID, sessionIDHash, r.opts.now().UTC())
	if err != nil {
		return false, fmt.Errorf("revoke session: %w", err)
	}
	r.opts.metrics.Revocation(ok)
	if ok {
		r.opts.emit(&telemetry.Event{Type: telemetry.EventSessionRevoked, UserID: userID, SessionIDHash: sessionIDHash})
	}
	return ok, nil
}
