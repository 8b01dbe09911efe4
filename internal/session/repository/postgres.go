package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"tokengate/internal/session/domain"
	userdomain "tokengate/internal/user/domain"
)

// ErrUserNotFound is returned by AppendSession when the owning user row does not exist.
var ErrUserNotFound = errors.New("session owner not found")

const foreignKeyViolation = "23503"

type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a session repository that uses the given pool for persistence.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// AppendSession inserts one user_sessions row. The session must have ID set.
func (r *PostgresRepository) AppendSession(ctx context.Context, userID string, s *domain.Session) error {
	scopes := s.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_sessions (id, user_id, session_id_hash, scopes, expires_at, revoked_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.ID, userID, s.SessionIDHash, scopes, s.ExpiresAt, s.RevokedAt, s.CreatedAt)
	if isPgCode(err, foreignKeyViolation) {
		return fmt.Errorf("%s: %w", userID, ErrUserNotFound)
	}
	return err
}

// FindActiveSessionOwner joins the session row to its owner. User ids are opaque TEXT.
func (r *PostgresRepository) FindActiveSessionOwner(ctx context.Context, sessionIDHash, userID string) (*userdomain.User, error) {
	var (
		u userdomain.User
		s domain.Session
	)
	err := r.pool.QueryRow(ctx, `
		SELECT
			u.id, u.name, u.last_name, u.email, u.password_hash, u.created_at, u.updated_at,
			s.id, s.session_id_hash, s.scopes, s.expires_at, s.revoked_at, s.created_at
		FROM user_sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.session_id_hash = $1
		  AND s.user_id = $2
		  AND s.revoked_at IS NULL
	`, sessionIDHash, userID).Scan(
		&u.ID, &u.Name, &u.LastName, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
		&s.ID, &s.SessionIDHash, &s.Scopes, &s.ExpiresAt, &s.RevokedAt, &s.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.Sessions = []domain.Session{s}
	return &u, nil
}

// RevokeSession is a single conditional UPDATE; concurrent callers cannot both affect the row.
func (r *PostgresRepository) RevokeSession(ctx context.Context, userID, sessionIDHash string, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE user_sessions
		SET revoked_at = $3
		WHERE user_id = $1
		  AND session_id_hash = $2
		  AND revoked_at IS NULL
	`, userID, sessionIDHash, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
