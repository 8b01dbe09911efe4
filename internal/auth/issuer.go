package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"tokengate/internal/session/domain"
	"tokengate/internal/session/repository"
	"tokengate/internal/telemetry"
	userdomain "tokengate/internal/user/domain"
)

// ErrUserRequired is returned by Issue for a nil user or a user without an id.
var ErrUserRequired = errors.New("auth: user with id is required")

// IssueOptions are per-call issuance parameters. Zero TTL uses the signer default;
// nil Scopes issues an unrestricted token.
type IssueOptions struct {
	TTL    time.Duration
	Scopes []string
}

// Issuer mints a token and records exactly one new session for it.
type Issuer struct {
	signer   TokenSigner
	sessions repository.Repository
	opts     options
}

func NewIssuer(signer TokenSigner, sessions repository.Repository, opts ...Option) *Issuer {
	return &Issuer{signer: signer, sessions: sessions, opts: buildOptions(opts)}
}

// Issue signs a token for user, persists its session, and appends the session to user.Sessions.
// Nothing is appended when persistence fails.
func (i *Issuer) Issue(ctx context.Context, user *userdomain.User, opts IssueOptions) (string, error) {
	if user == nil || user.ID == "" {
		return "", ErrUserRequired
	}
	signed, err := i.signer.Sign(user.ID, opts.TTL)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	now := i.opts.now().UTC()
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("session id: %w", err)
	}
	s := domain.Session{
		ID:            id.String(),
		SessionIDHash: signed.SessionIDHash,
		ExpiresAt:     signed.ExpiresAt,
		Scopes:        normalizeScopes(opts.Scopes),
		CreatedAt:     now,
	}
	if err := i.sessions.AppendSession(ctx, user.ID, &s); err != nil {
		return "", fmt.Errorf("append session: %w", err)
	}
	user.Sessions = append(user.Sessions, s)

	i.opts.metrics.TokenIssued()
	i.opts.emit(&telemetry.Event{Type: telemetry.EventTokenIssued, UserID: user.ID, SessionIDHash: s.SessionIDHash})
	return signed.Token, nil
}
