package domain

import "time"

// Session is one issued credential. Only the hash of the raw session id is stored;
// the raw id lives inside the signed token.
type Session struct {
	ID            string     `json:"id"` // ULID row id; never part of a token
	SessionIDHash string     `json:"sessionIdHash"`
	ExpiresAt     time.Time  `json:"expiresAt"`
	RevokedAt     *time.Time `json:"revokedAt,omitempty"` // nil when not revoked; never cleared once set
	Scopes        []string   `json:"scopes,omitempty"`    // empty means unrestricted
	CreatedAt     time.Time  `json:"createdAt"`
}

// Revoked reports whether the session has been revoked.
func (s *Session) Revoked() bool {
	return s.RevokedAt != nil
}

// Expired reports whether the session's expiry is not after now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Active reports whether the session is neither revoked nor expired at now.
func (s *Session) Active(now time.Time) bool {
	return !s.Revoked() && !s.Expired(now)
}
