package auth

import (
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"tokengate/internal/metrics"
	"tokengate/internal/security"
	"tokengate/internal/telemetry"
)

const tracerName = "tokengate/internal/auth"

// TokenSigner mints signed tokens. *security.Signer implements it.
type TokenSigner interface {
	Sign(subject string, ttl time.Duration) (security.SignedToken, error)
}

// TokenVerifier verifies signed tokens. *security.Signer implements it.
type TokenVerifier interface {
	Verify(token string) (security.VerifiedClaims, error)
}

type options struct {
	authorizer ScopeAuthorizer
	emitter    telemetry.EventEmitter
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	now        func() time.Time
}

// Option configures an Issuer, Validator, Revoker, or Service.
type Option func(*options)

// WithScopeAuthorizer replaces the built-in scope rule.
func WithScopeAuthorizer(a ScopeAuthorizer) Option {
	return func(o *options) {
		if a != nil {
			o.authorizer = a
		}
	}
}

// WithEmitter sends auth events to e (best-effort, asynchronous).
func WithEmitter(e telemetry.EventEmitter) Option {
	return func(o *options) { o.emitter = e }
}

// WithMetrics counts issuance, validation outcomes, and revocations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithClock sets the time source for created_at and revoked_at. Token expiry uses the signer's clock.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		authorizer: BuiltinScopes{},
		tracer:     otel.Tracer(tracerName),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o *options) emit(event *telemetry.Event) {
	if o.emitter == nil {
		return
	}
	event.CreatedAt = o.now().UTC()
	telemetry.EmitAsync(o.emitter, event)
}
