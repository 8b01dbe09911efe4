package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"tokengate/internal/security"
	"tokengate/internal/session/domain"
	userdomain "tokengate/internal/user/domain"
)

// memSessions implements repository.Repository for tests. Users own their sessions the way
// the bbolt store embeds them.
type memSessions struct {
	mu        sync.Mutex
	users     map[string]*userdomain.User
	appendErr error
	findErr   error
	revokeErr error
}

func newMemSessions(users ...*userdomain.User) *memSessions {
	m := &memSessions{users: make(map[string]*userdomain.User)}
	for _, u := range users {
		m.addUser(u)
	}
	return m
}

func (m *memSessions) AppendSession(_ context.Context, userID string, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	u, ok := m.users[userID]
	if !ok {
		return errors.New("no such user")
	}
	u.Sessions = append(u.Sessions, *s)
	return nil
}

func (m *memSessions) FindActiveSessionOwner(_ context.Context, hash, userID string) (*userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	u, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	for _, s := range u.Sessions {
		if s.SessionIDHash == hash && s.RevokedAt == nil {
			cp := *u
			cp.Sessions = []domain.Session{s}
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memSessions) RevokeSession(_ context.Context, userID, hash string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.revokeErr != nil {
		return false, m.revokeErr
	}
	u, ok := m.users[userID]
	if !ok {
		return false, nil
	}
	for i := range u.Sessions {
		if u.Sessions[i].SessionIDHash == hash && u.Sessions[i].RevokedAt == nil {
			u.Sessions[i].RevokedAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (m *memSessions) addUser(u *userdomain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	cp.Sessions = nil
	m.users[u.ID] = &cp
}

func (m *memSessions) deleteUser(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
}

func (m *memSessions) sessionCount(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		return len(u.Sessions)
	}
	return 0
}

// countingVerifier records how many times Verify is reached.
type countingVerifier struct {
	inner TokenVerifier
	calls atomic.Int32
}

func (c *countingVerifier) Verify(token string) (security.VerifiedClaims, error) {
	c.calls.Add(1)
	return c.inner.Verify(token)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type stubAuthorizer struct {
	allow bool
	err   error
}

func (s stubAuthorizer) Authorize(context.Context, []string, []string) (bool, error) {
	return s.allow, s.err
}

func testUser(id string) *userdomain.User {
	return &userdomain.User{ID: id, Name: "Ada", LastName: "Lovelace", Email: id + "@example.com"}
}

type fixture struct {
	clock    *fakeClock
	signer   *security.Signer
	store    *memSessions
	verifier *countingVerifier
	issuer   *Issuer
	val      *Validator
	revoker  *Revoker
	user     *userdomain.User
}

func newFixture(opts ...Option) *fixture {
	clock := newFakeClock()
	signer := security.NewTestSigner(clock.Now)
	user := testUser("user-1")
	store := newMemSessions(user, testUser("user-2"))
	verifier := &countingVerifier{inner: signer}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return &fixture{
		clock:    clock,
		signer:   signer,
		store:    store,
		verifier: verifier,
		issuer:   NewIssuer(signer, store, opts...),
		val:      NewValidator(verifier, store, opts...),
		revoker:  NewRevoker(store, opts...),
		user:     user,
	}
}

func bearer(token string) Credential {
	return Credential{Header: []string{"Bearer " + token}}
}
