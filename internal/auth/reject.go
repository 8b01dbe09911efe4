package auth

// RejectKind classifies why a credential was refused. The zero value means accepted.
type RejectKind int

const (
	RejectNone RejectKind = iota
	// RejectMalformedCredential: no credential, several Authorization values, or a wrong scheme.
	RejectMalformedCredential
	// RejectInvalidToken: bad signature, wrong algorithm or issuer, malformed claims, or expired.
	RejectInvalidToken
	// RejectUnknownSession: the token verified but no active session matches. Deleted user,
	// revoked session, and a forged session id are deliberately indistinguishable.
	RejectUnknownSession
	// RejectInsufficientScope: the session is valid but lacks every required scope.
	RejectInsufficientScope
)

// ClearsCredential reports whether a stored credential (cookie) should be discarded.
// A scope failure keeps it: the token is still good for other operations.
func (k RejectKind) ClearsCredential() bool {
	switch k {
	case RejectMalformedCredential, RejectInvalidToken, RejectUnknownSession:
		return true
	}
	return false
}

// Unauthenticated reports whether the kind surfaces as 401 / codes.Unauthenticated.
func (k RejectKind) Unauthenticated() bool {
	return k.ClearsCredential()
}

// MessageKey is the translation key for the client-facing message.
func (k RejectKind) MessageKey() string {
	switch k {
	case RejectNone:
		return ""
	case RejectInsufficientScope:
		return "errors.forbidden"
	}
	return "errors.unauthorized"
}

func (k RejectKind) String() string {
	switch k {
	case RejectNone:
		return "none"
	case RejectMalformedCredential:
		return "malformed_credential"
	case RejectInvalidToken:
		return "invalid_token"
	case RejectUnknownSession:
		return "unknown_session"
	case RejectInsufficientScope:
		return "insufficient_scope"
	}
	return "unknown"
}
