package auth

import (
	"context"
	"time"

	userdomain "tokengate/internal/user/domain"
)

// Identity is the authenticated principal attached to a request after Accept.
type Identity struct {
	UserID        string
	SessionIDHash string
	Scopes        []string
	ExpiresAt     time.Time
	// User is the resolved owner; User.Sessions holds only the matched session.
	User *userdomain.User
}

// Result is the outcome of Validate. Exactly one of Identity or Reject is set.
type Result struct {
	Identity        *Identity
	Reject          RejectKind
	ClearCredential bool
}

// Accepted reports whether the credential was accepted.
func (r Result) Accepted() bool {
	return r.Reject == RejectNone && r.Identity != nil
}

func accept(id *Identity) Result {
	return Result{Identity: id}
}

func reject(kind RejectKind) Result {
	return Result{Reject: kind, ClearCredential: kind.ClearsCredential()}
}

type contextKey struct{ name string }

var identityKey = contextKey{"identity"}

// WithIdentity returns a context carrying id. Transport adapters call it after Accept.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the identity from ctx and true if set; otherwise nil, false.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok && id != nil
}
