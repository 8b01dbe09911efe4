package security

import (
	"crypto"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is the parent of every verification failure. Callers that only care
	// whether a token is usable check errors.Is(err, ErrInvalidToken).
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenMalformed is returned when the token cannot be decoded or lacks required claims.
	ErrTokenMalformed = &tokenError{msg: "token is malformed"}
	// ErrTokenExpired is returned when the token's exp is not after the verification time.
	ErrTokenExpired = &tokenError{msg: "token is expired"}
	// ErrInvalidSignature is returned for signature, algorithm, or issuer mismatches.
	ErrInvalidSignature = &tokenError{msg: "token signature is invalid"}
)

type tokenError struct{ msg string }

func (e *tokenError) Error() string        { return e.msg }
func (e *tokenError) Is(target error) bool { return target == ErrInvalidToken }

// DefaultTokenTTL is used when neither the caller nor the signer configuration sets a lifetime.
const DefaultTokenTTL = time.Hour

// SessionClaims is the JWT payload. The subject (user id) travels in "sub" and the raw
// session identifier in "jti"; both are fixed protocol claims.
type SessionClaims struct {
	jwt.RegisteredClaims
}

// SignedToken is the result of Sign. SessionID is the raw identifier and must never be persisted;
// store SessionIDHash instead.
type SignedToken struct {
	Token         string
	ExpiresAt     time.Time
	SessionID     string
	SessionIDHash string
}

// VerifiedClaims is the output of a successful Verify.
type VerifiedClaims struct {
	Subject       string
	SessionIDHash string
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

// Signer mints and verifies compact signed session tokens. It holds no session state.
type Signer struct {
	method         jwt.SigningMethod
	signKey        interface{}
	verifyKey      interface{}
	issuer         string
	ttl            time.Duration
	sessionIDBytes int
	now            func() time.Time
}

// SignerOption customizes a Signer.
type SignerOption func(*Signer)

// WithClock replaces time.Now for issuance and expiry checks.
func WithClock(now func() time.Time) SignerOption {
	return func(s *Signer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSessionIDBytes sets the number of random bytes behind each raw session id.
func WithSessionIDBytes(n int) SignerOption {
	return func(s *Signer) {
		if n > 0 {
			s.sessionIDBytes = n
		}
	}
}

// NewHMACSigner returns a Signer using HS256 with a shared secret.
func NewHMACSigner(secret []byte, issuer string, ttl time.Duration, opts ...SignerOption) (*Signer, error) {
	if len(secret) == 0 {
		return nil, ErrInvalidKey
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return newSigner(jwt.SigningMethodHS256, key, key, issuer, ttl, opts), nil
}

// NewKeyPairSigner returns a Signer using RS256 or ES256/ES384/ES512, chosen from the private key.
// Keys of any other type or curve, or a public key of a different algorithm, yield ErrInvalidKey.
func NewKeyPairSigner(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer string, ttl time.Duration, opts ...SignerOption) (*Signer, error) {
	if privateKey == nil || publicKey == nil {
		return nil, ErrInvalidKey
	}
	alg := KeyAlg(privateKey.Public())
	if alg == "" || KeyAlg(publicKey) != alg {
		return nil, ErrInvalidKey
	}
	return newSigner(jwt.GetSigningMethod(alg), privateKey, publicKey, issuer, ttl, opts), nil
}

func newSigner(method jwt.SigningMethod, signKey, verifyKey interface{}, issuer string, ttl time.Duration, opts []SignerOption) *Signer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	s := &Signer{
		method:         method,
		signKey:        signKey,
		verifyKey:      verifyKey,
		issuer:         issuer,
		ttl:            ttl,
		sessionIDBytes: DefaultSessionIDBytes,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Alg returns the JWT algorithm name used by this signer.
func (s *Signer) Alg() string {
	return s.method.Alg()
}

// Sign mints a token for subject with a fresh random session id. ttl <= 0 uses the signer default.
// Token timestamps have one-second resolution, so ExpiresAt is truncated accordingly.
func (s *Signer) Sign(subject string, ttl time.Duration) (SignedToken, error) {
	if subject == "" {
		return SignedToken{}, ErrTokenMalformed
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	sessionID, err := NewSessionID(s.sessionIDBytes)
	if err != nil {
		return SignedToken{}, err
	}
	now := s.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(ttl)
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(s.method, claims).SignedString(s.signKey)
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{
		Token:         token,
		ExpiresAt:     expiresAt,
		SessionID:     sessionID,
		SessionIDHash: HashSessionID(sessionID),
	}, nil
}

// Verify checks signature, algorithm, issuer, and expiry at the current signer time.
// The returned SessionIDHash is always recomputed from the embedded raw id.
func (s *Signer) Verify(tokenString string) (VerifiedClaims, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(s.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.verifyKey, nil
	}, parserOpts...)
	if err != nil {
		return VerifiedClaims{}, classifyJWTError(err)
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return VerifiedClaims{}, ErrTokenMalformed
	}
	if claims.Subject == "" || claims.ID == "" {
		return VerifiedClaims{}, ErrTokenMalformed
	}
	out := VerifiedClaims{
		Subject:       claims.Subject,
		SessionIDHash: HashSessionID(claims.ID),
		ExpiresAt:     claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

func classifyJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return ErrTokenMalformed
	default:
		return ErrInvalidSignature
	}
}
