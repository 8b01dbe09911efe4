package auth

import "strings"

const bearerScheme = "Bearer"

// Credential is what a request presents: a cookie value and every Authorization header value.
type Credential struct {
	Cookie string
	Header []string
}

// extractToken picks the token from cred. A non-empty cookie wins; otherwise there must be
// exactly one Authorization value of the form "Bearer <token>" (scheme is case-insensitive).
func extractToken(cred Credential) (string, bool) {
	if cred.Cookie != "" {
		return cred.Cookie, true
	}
	if len(cred.Header) != 1 {
		return "", false
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(cred.Header[0]), " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}
