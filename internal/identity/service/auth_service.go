package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tokengate/internal/auth"
	"tokengate/internal/security"
	userdomain "tokengate/internal/user/domain"
	userrepo "tokengate/internal/user/repository"
)

// Sentinel errors for the identity service; transport adapters map them to status codes.
var (
	ErrEmailAlreadyRegistered = errors.New("User already exists")
	ErrUserNotFound           = errors.New("user not found")
	ErrWrongPassword          = errors.New("wrong password")
	ErrPasswordRequired       = errors.New("password is required")
	ErrNotAuthenticated       = errors.New("not authenticated")
)

// IsValidationError reports whether err is a client input failure from Register or Login.
func IsValidationError(err error) bool {
	return errors.Is(err, userdomain.ErrEmailRequired) ||
		errors.Is(err, userdomain.ErrEmailInvalid) ||
		errors.Is(err, userdomain.ErrNameRequired) ||
		errors.Is(err, userdomain.ErrLastNameRequired) ||
		errors.Is(err, ErrPasswordRequired)
}

// RegisterInput is the payload of Register.
type RegisterInput struct {
	Name     string `json:"name"`
	LastName string `json:"lastName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenService is the subset of *auth.Service the identity service needs.
type TokenService interface {
	IssueToken(ctx context.Context, user *userdomain.User, opts auth.IssueOptions) (string, error)
	RevokeIdentity(ctx context.Context, id *auth.Identity) (bool, error)
}

// AuthService implements password register, login, logout, and current-user lookup.
type AuthService struct {
	users  userrepo.Repository
	tokens TokenService
	hasher *security.Hasher
	ttl    time.Duration
	now    func() time.Time
}

// NewAuthService returns an AuthService. ttl <= 0 uses the signer default lifetime.
func NewAuthService(users userrepo.Repository, tokens TokenService, hasher *security.Hasher, ttl time.Duration) *AuthService {
	if hasher == nil {
		hasher = security.NewHasher(0)
	}
	return &AuthService{users: users, tokens: tokens, hasher: hasher, ttl: ttl, now: time.Now}
}

// Register creates a user with a bcrypt password hash and issues an unscoped token for it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*userdomain.User, string, error) {
	now := s.now().UTC()
	u := &userdomain.User{
		ID:        uuid.NewString(),
		Name:      in.Name,
		LastName:  in.LastName,
		Email:     in.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.Validate(); err != nil {
		return nil, "", err
	}
	if in.Password == "" {
		return nil, "", ErrPasswordRequired
	}
	existing, err := s.users.GetByEmail(ctx, u.Email)
	if err != nil {
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return nil, "", ErrEmailAlreadyRegistered
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, userrepo.ErrEmailTaken) {
			return nil, "", ErrEmailAlreadyRegistered
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}
	token, err := s.tokens.IssueToken(ctx, u, auth.IssueOptions{TTL: s.ttl})
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Login checks the password for email and issues a new token. Each login is a new session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*userdomain.User, string, error) {
	email = userdomain.NormalizeEmail(email)
	if email == "" {
		return nil, "", userdomain.ErrEmailRequired
	}
	if password == "" {
		return nil, "", ErrPasswordRequired
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}
	if u == nil {
		return nil, "", ErrUserNotFound
	}
	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			return nil, "", ErrWrongPassword
		}
		return nil, "", fmt.Errorf("compare password: %w", err)
	}
	token, err := s.tokens.IssueToken(ctx, u, auth.IssueOptions{TTL: s.ttl})
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Logout revokes the session behind id. Revoking an already revoked session is not an error.
func (s *AuthService) Logout(ctx context.Context, id *auth.Identity) error {
	if id == nil {
		return ErrNotAuthenticated
	}
	if _, err := s.tokens.RevokeIdentity(ctx, id); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// CurrentUser returns the user resolved during validation.
func (s *AuthService) CurrentUser(id *auth.Identity) (*userdomain.User, error) {
	if id == nil || id.User == nil {
		return nil, ErrNotAuthenticated
	}
	return id.User, nil
}
