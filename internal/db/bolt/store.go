// Package bolt provides an embedded single-node user and session store backed by bbolt.
// Each user is one JSON document that embeds its sessions, so a revoke is a single
// read-modify-write inside one writable transaction.
package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	sessiondomain "tokengate/internal/session/domain"
	sessionrepo "tokengate/internal/session/repository"
	"tokengate/internal/user/domain"
	userrepo "tokengate/internal/user/repository"
)

var (
	usersBucket   = []byte("users")
	emailsBucket  = []byte("users_by_email")
	errCorruptDoc = errors.New("bolt: corrupt user document")
)

// userDoc is the stored form of a user. PasswordHash and Sessions are hidden from the
// domain type's JSON, so the document carries its own fields.
type userDoc struct {
	ID           string                  `json:"id"`
	Name         string                  `json:"name"`
	LastName     string                  `json:"lastName"`
	Email        string                  `json:"email"`
	PasswordHash string                  `json:"passwordHash"`
	Sessions     []sessiondomain.Session `json:"sessions"`
	CreatedAt    time.Time               `json:"createdAt"`
	UpdatedAt    time.Time               `json:"updatedAt"`
}

func docFromUser(u *domain.User) *userDoc {
	return &userDoc{
		ID:           u.ID,
		Name:         u.Name,
		LastName:     u.LastName,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Sessions:     append([]sessiondomain.Session(nil), u.Sessions...),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

// toUser returns the domain user. sessions replaces the embedded collection.
func (d *userDoc) toUser(sessions []sessiondomain.Session) *domain.User {
	return &domain.User{
		ID:           d.ID,
		Name:         d.Name,
		LastName:     d.LastName,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Sessions:     sessions,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// Store implements the user and session repositories on one bbolt database.
type Store struct {
	db *bbolt.DB
}

var (
	_ userrepo.Repository    = (*Store)(nil)
	_ sessionrepo.Repository = (*Store)(nil)
)

// NewStore returns a Store on db and creates its buckets.
func NewStore(db *bbolt.DB) (*Store, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{usersBucket, emailsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// Open opens (or creates) the bbolt file at path and returns a Store on it.
func Open(path string, options *bbolt.Options) (*Store, error) {
	if options == nil {
		options = &bbolt.Options{Timeout: time.Second}
	}
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	s, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping opens a read transaction; it fails once the database is closed.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(*bbolt.Tx) error { return nil })
}

func getDoc(tx *bbolt.Tx, id string) (*userDoc, error) {
	data := tx.Bucket(usersBucket).Get([]byte(id))
	if data == nil {
		return nil, nil
	}
	var doc userDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", id, errCorruptDoc)
	}
	return &doc, nil
}

func putDoc(tx *bbolt.Tx, doc *userDoc) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return tx.Bucket(usersBucket).Put([]byte(doc.ID), data)
}

// GetByID returns the user with all stored sessions, or nil if not found.
func (s *Store) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var u *domain.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		doc, err := getDoc(tx, id)
		if err != nil || doc == nil {
			return err
		}
		u = doc.toUser(doc.Sessions)
		return nil
	})
	return u, err
}

// GetByEmail resolves the email index, then loads the user. Returns nil if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var u *domain.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(emailsBucket).Get([]byte(domain.NormalizeEmail(email)))
		if id == nil {
			return nil
		}
		doc, err := getDoc(tx, string(id))
		if err != nil || doc == nil {
			return err
		}
		u = doc.toUser(doc.Sessions)
		return nil
	})
	return u, err
}

// Create stores a new user document and claims its email in the index.
func (s *Store) Create(ctx context.Context, u *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if u.ID == "" {
		return errors.New("bolt: user id is required")
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		emails := tx.Bucket(emailsBucket)
		key := []byte(domain.NormalizeEmail(u.Email))
		if emails.Get(key) != nil {
			return userrepo.ErrEmailTaken
		}
		if tx.Bucket(usersBucket).Get([]byte(u.ID)) != nil {
			return fmt.Errorf("bolt: user %s already exists", u.ID)
		}
		if err := emails.Put(key, []byte(u.ID)); err != nil {
			return err
		}
		return putDoc(tx, docFromUser(u))
	})
}

// AppendSession adds sess to the user's document.
func (s *Store) AppendSession(ctx context.Context, userID string, sess *sessiondomain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		doc, err := getDoc(tx, userID)
		if err != nil {
			return err
		}
		if doc == nil {
			return fmt.Errorf("%s: %w", userID, sessionrepo.ErrUserNotFound)
		}
		doc.Sessions = append(doc.Sessions, *sess)
		return putDoc(tx, doc)
	})
}

// FindActiveSessionOwner loads the user and keeps only the matching non-revoked session.
func (s *Store) FindActiveSessionOwner(ctx context.Context, sessionIDHash, userID string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var u *domain.User
	err := s.db.View(func(tx *bbolt.Tx) error {
		doc, err := getDoc(tx, userID)
		if err != nil || doc == nil {
			return err
		}
		if i := doc.activeSession(sessionIDHash); i >= 0 {
			u = doc.toUser([]sessiondomain.Session{doc.Sessions[i]})
		}
		return nil
	})
	return u, err
}

// RevokeSession flips revoked_at inside one writable transaction. bbolt allows a single writer
// at a time, so two concurrent calls cannot both observe the session as active.
func (s *Store) RevokeSession(ctx context.Context, userID, sessionIDHash string, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var revoked bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		doc, err := getDoc(tx, userID)
		if err != nil || doc == nil {
			return err
		}
		i := doc.activeSession(sessionIDHash)
		if i < 0 {
			return nil
		}
		at := at.UTC()
		doc.Sessions[i].RevokedAt = &at
		if err := putDoc(tx, doc); err != nil {
			return err
		}
		revoked = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return revoked, nil
}

func (d *userDoc) activeSession(hash string) int {
	for i := range d.Sessions {
		if d.Sessions[i].SessionIDHash == hash && !d.Sessions[i].Revoked() {
			return i
		}
	}
	return -1
}
