package interceptors

import (
	"context"
	"log"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"tokengate/internal/auth"
	"tokengate/internal/i18n"
)

// DefaultCookieName is the token cookie read from "cookie" metadata.
const DefaultCookieName = "jwt"

// CredentialValidator runs the validation chain. *auth.Service implements it.
type CredentialValidator interface {
	ValidateCredential(ctx context.Context, cred auth.Credential, required []string) (auth.Result, error)
}

// AuthOption configures AuthUnary.
type AuthOption func(*authConfig)

type authConfig struct {
	cookieName   string
	cookieSecure bool
}

// WithCookie sets the cookie read from metadata and cleared on reject.
func WithCookie(name string, secure bool) AuthOption {
	return func(c *authConfig) {
		if name != "" {
			c.cookieName = name
		}
		c.cookieSecure = secure
	}
}

// AuthUnary returns a unary server interceptor that validates the credential from gRPC metadata
// ("authorization" and "cookie") against methodScopes[info.FullMethod] and attaches the identity
// to the context. publicMethods is the set of full method names that do not require a credential;
// a valid credential on a public method still attaches the identity.
// When the outcome says so, a "set-cookie" header expiring the cookie is sent.
func AuthUnary(validator CredentialValidator, methodScopes map[string][]string, publicMethods map[string]bool, translator *i18n.Translator, opts ...AuthOption) grpc.UnaryServerInterceptor {
	cfg := authConfig{cookieName: DefaultCookieName}
	for _, opt := range opts {
		opt(&cfg)
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		cred := credentialFromMetadata(md, cfg.cookieName)
		public := publicMethods[info.FullMethod]

		if public && cred.Cookie == "" && len(cred.Header) == 0 {
			return handler(ctx, req)
		}

		res, err := validator.ValidateCredential(ctx, cred, methodScopes[info.FullMethod])
		if err != nil {
			if public {
				return handler(ctx, req)
			}
			log.Printf("auth: validate credential for %s: %v", info.FullMethod, err)
			return nil, status.Error(codes.Internal, translate(translator, md, i18n.KeyServer))
		}
		if res.Accepted() {
			return handler(auth.WithIdentity(ctx, res.Identity), req)
		}
		if public {
			return handler(ctx, req)
		}
		if res.ClearCredential {
			if err := grpc.SetHeader(ctx, metadata.Pairs("set-cookie", expiredCookie(cfg))); err != nil {
				log.Printf("auth: set-cookie header: %v", err)
			}
		}
		code := codes.PermissionDenied
		if res.Reject.Unauthenticated() {
			code = codes.Unauthenticated
		}
		return nil, status.Error(code, translate(translator, md, res.Reject.MessageKey()))
	}
}

// credentialFromMetadata collects every authorization value and the named cookie.
func credentialFromMetadata(md metadata.MD, cookieName string) auth.Credential {
	cred := auth.Credential{Header: md.Get("authorization")}
	if cookies := md.Get("cookie"); len(cookies) > 0 {
		r := http.Request{Header: http.Header{"Cookie": cookies}}
		if c, err := r.Cookie(cookieName); err == nil {
			cred.Cookie = c.Value
		}
	}
	return cred
}

func expiredCookie(cfg authConfig) string {
	c := &http.Cookie{
		Name:     cfg.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.cookieSecure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	}
	return c.String()
}

func translate(t *i18n.Translator, md metadata.MD, key string) string {
	if t == nil {
		return key
	}
	var accept string
	if vals := md.Get("accept-language"); len(vals) > 0 {
		accept = vals[0]
	}
	return t.T(accept, key)
}
