package cmd

import (
	"context"
	"fmt"

	"tokengate/internal/auth"
	"tokengate/internal/config"
	"tokengate/internal/db"
	"tokengate/internal/db/bolt"
	"tokengate/internal/health"
	"tokengate/internal/policy/engine"
	"tokengate/internal/security"
	sessionrepo "tokengate/internal/session/repository"
	userrepo "tokengate/internal/user/repository"
)

// stores is the configured user and session persistence.
type stores struct {
	users    userrepo.Repository
	sessions sessionrepo.Repository
	pinger   health.Pinger
	close    func()
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return &stores{
			users:    userrepo.NewPostgresRepository(pool),
			sessions: sessionrepo.NewPostgresRepository(pool),
			pinger:   pool,
			close:    pool.Close,
		}, nil
	case config.StoreBolt:
		s, err := bolt.Open(cfg.BoltPath, nil)
		if err != nil {
			return nil, fmt.Errorf("bolt: %w", err)
		}
		return &stores{
			users:    s,
			sessions: s,
			pinger:   s,
			close:    func() { _ = s.Close() },
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func newSigner(cfg *config.Config) (*security.Signer, error) {
	opt := security.WithSessionIDBytes(cfg.SessionIDBytes)
	if cfg.UsesKeyPair() {
		priv, pub, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
		if err != nil {
			return nil, fmt.Errorf("jwt keys: %w", err)
		}
		return security.NewKeyPairSigner(priv, pub, cfg.JWTIssuer, cfg.TokenTTL(), opt)
	}
	return security.NewHMACSigner([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.TokenTTL(), opt)
}

// newScopeAuthorizer returns the configured authorizer and, for OPA, its health check.
func newScopeAuthorizer(ctx context.Context, cfg *config.Config) (auth.ScopeAuthorizer, health.PolicyChecker, error) {
	if cfg.ScopePolicy != config.ScopePolicyOPA {
		return auth.BuiltinScopes{}, nil, nil
	}
	var (
		a   *engine.OPAAuthorizer
		err error
	)
	if cfg.ScopePolicyFile != "" {
		a, err = engine.NewOPAAuthorizerFromFile(ctx, cfg.ScopePolicyFile)
	} else {
		a, err = engine.NewOPAAuthorizer(ctx, engine.DefaultScopePolicy)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("scope policy: %w", err)
	}
	return a, a, nil
}
