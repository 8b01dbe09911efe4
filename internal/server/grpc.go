package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"tokengate/internal/i18n"
	"tokengate/internal/server/interceptors"
	"tokengate/internal/telemetry"
)

// Health service methods; reachable without a credential and never emitted as telemetry.
const (
	healthCheckMethod = "/grpc.health.v1.Health/Check"
	healthWatchMethod = "/grpc.health.v1.Health/Watch"
	healthListMethod  = "/grpc.health.v1.Health/List"
)

// Deps holds the dependencies of the gRPC server.
type Deps struct {
	// Validator authenticates every non-public unary RPC. Required.
	Validator interceptors.CredentialValidator
	// Translator localizes status messages. If nil, message keys are returned.
	Translator *i18n.Translator
	// Emitter receives a grpc_request event per RPC. If nil, no events are emitted.
	Emitter telemetry.EventEmitter
	// MethodScopes maps full method names to the scopes they require.
	MethodScopes map[string][]string
	// PublicMethods are full method names reachable without a credential, in addition to health.
	PublicMethods map[string]bool
	// CookieName and CookieSecure describe the token cookie read from metadata.
	CookieName   string
	CookieSecure bool
	// Health is the health service to register. If nil, a new one reporting SERVING is used.
	Health *health.Server
}

// PublicMethods returns the health methods merged with extra.
func PublicMethods(extra map[string]bool) map[string]bool {
	out := map[string]bool{
		healthCheckMethod: true,
		healthWatchMethod: true,
		healthListMethod:  true,
	}
	for m, ok := range extra {
		if ok {
			out[m] = true
		}
	}
	return out
}

// NewGRPCServer builds a gRPC server instrumented with otelgrpc, with the auth interceptor
// followed by the telemetry interceptor, and registers the services in deps.
func NewGRPCServer(deps Deps, opts ...grpc.ServerOption) *grpc.Server {
	public := PublicMethods(deps.PublicMethods)
	base := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.AuthUnary(deps.Validator, deps.MethodScopes, public, deps.Translator,
				interceptors.WithCookie(deps.CookieName, deps.CookieSecure)),
			interceptors.TelemetryUnary(deps.Emitter, PublicMethods(nil)),
		),
	}
	s := grpc.NewServer(append(base, opts...)...)
	RegisterServices(s, deps)
	return s
}

// RegisterServices registers the gRPC services with the given server.
//
//   - grpc.health.v1.Health → deps.Health (google.golang.org/grpc/health)
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	hs := deps.Health
	if hs == nil {
		hs = health.NewServer()
	}
	healthpb.RegisterHealthServer(s, hs)
}
