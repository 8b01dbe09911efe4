package auth

import (
	"context"

	"tokengate/internal/session/repository"
	userdomain "tokengate/internal/user/domain"
)

// Signer is both halves of token handling. *security.Signer implements it.
type Signer interface {
	TokenSigner
	TokenVerifier
}

// Service is the upward contract for transport adapters and the identity service.
type Service struct {
	issuer    *Issuer
	validator *Validator
	revoker   *Revoker
}

// NewService builds an Issuer, Validator, and Revoker sharing signer, sessions, and opts.
func NewService(signer Signer, sessions repository.Repository, opts ...Option) *Service {
	return &Service{
		issuer:    NewIssuer(signer, sessions, opts...),
		validator: NewValidator(signer, sessions, opts...),
		revoker:   NewRevoker(sessions, opts...),
	}
}

// IssueToken mints a token for user and records its session.
func (s *Service) IssueToken(ctx context.Context, user *userdomain.User, opts IssueOptions) (string, error) {
	return s.issuer.Issue(ctx, user, opts)
}

// ValidateCredential runs the decision chain for cred against required.
func (s *Service) ValidateCredential(ctx context.Context, cred Credential, required []string) (Result, error) {
	return s.validator.Validate(ctx, cred, required)
}

// RevokeToken revokes the session with raw id sessionID owned by userID.
func (s *Service) RevokeToken(ctx context.Context, userID, sessionID string) (bool, error) {
	return s.revoker.Revoke(ctx, userID, sessionID)
}

// RevokeIdentity revokes the session an accepted credential resolved to.
func (s *Service) RevokeIdentity(ctx context.Context, id *Identity) (bool, error) {
	if id == nil {
		return false, nil
	}
	return s.revoker.RevokeHash(ctx, id.UserID, id.SessionIDHash)
}
