// Package httpapi exposes register, login, current-user, and logout over HTTP with chi.
// Protected routes go through RequireAuth, which runs the token Validator.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"tokengate/internal/auth"
	"tokengate/internal/i18n"
	"tokengate/internal/identity/service"
	"tokengate/internal/metrics"
	userdomain "tokengate/internal/user/domain"
)

// CredentialValidator runs the validation chain. *auth.Service implements it.
type CredentialValidator interface {
	ValidateCredential(ctx context.Context, cred auth.Credential, required []string) (auth.Result, error)
}

// IdentityService is the account surface. *service.AuthService implements it.
type IdentityService interface {
	Register(ctx context.Context, in service.RegisterInput) (*userdomain.User, string, error)
	Login(ctx context.Context, email, password string) (*userdomain.User, string, error)
	Logout(ctx context.Context, id *auth.Identity) error
	CurrentUser(id *auth.Identity) (*userdomain.User, error)
}

// HealthChecker reports readiness. *health.Checker implements it.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// CookieConfig controls the token cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// API holds the dependencies needed by the HTTP handlers.
type API struct {
	identity   IdentityService
	validator  CredentialValidator
	translator *i18n.Translator
	cookie     CookieConfig
	metrics    *metrics.Metrics
	health     HealthChecker
}

// Option configures the API instance.
type Option func(*API)

// WithCookie sets the cookie name and Secure flag. The default name is "jwt".
func WithCookie(c CookieConfig) Option {
	return func(a *API) {
		if c.Name != "" {
			a.cookie = c
		}
	}
}

// WithMetrics mounts GET /metrics from m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *API) { a.metrics = m }
}

// WithHealth makes GET /healthz report c.
func WithHealth(c HealthChecker) Option {
	return func(a *API) { a.health = c }
}

// New creates a new API instance.
func New(identity IdentityService, validator CredentialValidator, translator *i18n.Translator, opts ...Option) *API {
	a := &API{
		identity:   identity,
		validator:  validator,
		translator: translator,
		cookie:     CookieConfig{Name: DefaultCookieName},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Router returns a chi.Router with all routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", a.Healthz)
	if a.metrics != nil {
		r.Method(http.MethodGet, "/metrics", a.metrics.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", a.Register)
		r.Post("/login", a.Login)
		r.With(a.RequireAuth()).Get("/user", a.User)
		r.With(a.RequireAuth()).Post("/logout", a.Logout)
	})
	return r
}
