package bolt

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sessiondomain "tokengate/internal/session/domain"
	sessionrepo "tokengate/internal/session/repository"
	"tokengate/internal/user/domain"
	userrepo "tokengate/internal/user/repository"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tokengate-test.db")
	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("could not open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func testUser(id, email string) *domain.User {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &domain.User{ID: id, Name: "Ada", LastName: "Lovelace", Email: email, PasswordHash: "hash", CreatedAt: now, UpdatedAt: now}
}

func testSession(id, hash string) *sessiondomain.Session {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &sessiondomain.Session{ID: id, SessionIDHash: hash, ExpiresAt: now.Add(time.Hour), Scopes: []string{"read"}, CreatedAt: now}
}

func TestStore_Users(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	if err := s.Create(ctx, testUser("u1", "ada@example.com")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	t.Run("GetByID", func(t *testing.T) {
		u, err := s.GetByID(ctx, "u1")
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if u == nil || u.Email != "ada@example.com" || u.PasswordHash != "hash" {
			t.Fatalf("unexpected user %+v", u)
		}
	})

	t.Run("GetByEmail normalizes", func(t *testing.T) {
		u, err := s.GetByEmail(ctx, " ADA@example.com ")
		if err != nil {
			t.Fatalf("GetByEmail failed: %v", err)
		}
		if u == nil || u.ID != "u1" {
			t.Fatalf("expected u1, got %+v", u)
		}
	})

	t.Run("missing returns nil", func(t *testing.T) {
		u, err := s.GetByID(ctx, "nope")
		if err != nil || u != nil {
			t.Errorf("GetByID(nope) = %v, %v; want nil, nil", u, err)
		}
		u, err = s.GetByEmail(ctx, "nobody@example.com")
		if err != nil || u != nil {
			t.Errorf("GetByEmail(nobody) = %v, %v; want nil, nil", u, err)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		err := s.Create(ctx, testUser("u2", "ada@example.com"))
		if !errors.Is(err, userrepo.ErrEmailTaken) {
			t.Errorf("expected ErrEmailTaken, got %v", err)
		}
		if u, _ := s.GetByID(ctx, "u2"); u != nil {
			t.Error("rejected user must not be stored")
		}
	})
}

func TestStore_Sessions(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	if err := s.Create(ctx, testUser("u1", "ada@example.com")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := s.Create(ctx, testUser("u2", "bob@example.com")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	for _, sess := range []*sessiondomain.Session{testSession("s1", "h1"), testSession("s2", "h2")} {
		if err := s.AppendSession(ctx, "u1", sess); err != nil {
			t.Fatalf("AppendSession failed: %v", err)
		}
	}

	t.Run("append keeps existing", func(t *testing.T) {
		u, err := s.GetByID(ctx, "u1")
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if len(u.Sessions) != 2 {
			t.Fatalf("expected 2 sessions, got %d", len(u.Sessions))
		}
	})

	t.Run("append to missing user", func(t *testing.T) {
		err := s.AppendSession(ctx, "ghost", testSession("s9", "h9"))
		if !errors.Is(err, sessionrepo.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("find holds only the matched session", func(t *testing.T) {
		u, err := s.FindActiveSessionOwner(ctx, "h2", "u1")
		if err != nil {
			t.Fatalf("FindActiveSessionOwner failed: %v", err)
		}
		if u == nil || len(u.Sessions) != 1 || u.Sessions[0].ID != "s2" {
			t.Fatalf("unexpected owner %+v", u)
		}
		if len(u.Sessions[0].Scopes) != 1 || u.Sessions[0].Scopes[0] != "read" {
			t.Errorf("scopes not preserved: %v", u.Sessions[0].Scopes)
		}
	})

	t.Run("find with wrong user or hash", func(t *testing.T) {
		for _, tc := range []struct{ hash, user string }{{"h1", "u2"}, {"nope", "u1"}, {"h1", "ghost"}} {
			u, err := s.FindActiveSessionOwner(ctx, tc.hash, tc.user)
			if err != nil || u != nil {
				t.Errorf("FindActiveSessionOwner(%s, %s) = %v, %v; want nil, nil", tc.hash, tc.user, u, err)
			}
		}
	})

	t.Run("revoke is terminal and idempotent", func(t *testing.T) {
		at := time.Date(2026, 1, 1, 0, 30, 0, 0, time.UTC)
		ok, err := s.RevokeSession(ctx, "u2", "h1", at)
		if err != nil || ok {
			t.Fatalf("revoke by another user = %v, %v; want false, nil", ok, err)
		}
		ok, err = s.RevokeSession(ctx, "u1", "h1", at)
		if err != nil || !ok {
			t.Fatalf("first revoke = %v, %v; want true, nil", ok, err)
		}
		ok, err = s.RevokeSession(ctx, "u1", "h1", at.Add(time.Minute))
		if err != nil || ok {
			t.Fatalf("second revoke = %v, %v; want false, nil", ok, err)
		}
		if u, _ := s.FindActiveSessionOwner(ctx, "h1", "u1"); u != nil {
			t.Error("revoked session must not resolve")
		}
		u, _ := s.GetByID(ctx, "u1")
		if got := u.Sessions[0].RevokedAt; got == nil || !got.Equal(at) {
			t.Errorf("RevokedAt = %v, want %v", got, at)
		}
		if u.Sessions[1].Revoked() {
			t.Error("sibling session must stay active")
		}
	})
}

func TestStore_ConcurrentRevoke(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	if err := s.Create(ctx, testUser("u1", "ada@example.com")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := s.AppendSession(ctx, "u1", testSession("s1", "h1")); err != nil {
		t.Fatalf("AppendSession failed: %v", err)
	}

	const workers = 16
	var (
		wg    sync.WaitGroup
		wins  atomic.Int32
		start = make(chan struct{})
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := s.RevokeSession(ctx, "u1", "h1", time.Now())
			if err != nil {
				t.Errorf("RevokeSession: %v", err)
				return
			}
			if ok {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	if got := wins.Load(); got != 1 {
		t.Fatalf("expected exactly one successful revoke, got %d", got)
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	s, path := newTestStore(t)
	if err := s.Create(ctx, testUser("u1", "ada@example.com")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := s.AppendSession(ctx, "u1", testSession("s1", "h1")); err != nil {
		t.Fatalf("AppendSession failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := Open(path, nil)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	u, err := reopened.FindActiveSessionOwner(ctx, "h1", "u1")
	if err != nil || u == nil {
		t.Fatalf("FindActiveSessionOwner after reopen = %v, %v", u, err)
	}
}

func TestStore_CanceledContext(t *testing.T) {
	s, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.RevokeSession(ctx, "u1", "h1", time.Now()); !errors.Is(err, context.Canceled) {
		t.Errorf("RevokeSession with canceled ctx: want context.Canceled, got %v", err)
	}
	if _, err := s.FindActiveSessionOwner(ctx, "h1", "u1"); !errors.Is(err, context.Canceled) {
		t.Errorf("FindActiveSessionOwner with canceled ctx: want context.Canceled, got %v", err)
	}
}

func TestStore_Ping(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Ping(context.Background()); err == nil {
		t.Error("Ping after Close should fail")
	}
}
