// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreBolt     = "bolt"
)

// Scope policies.
const (
	ScopePolicyBuiltin = "builtin"
	ScopePolicyOPA     = "opa"
)

// MinSecretBytes is the shortest accepted JWT_SECRET.
const MinSecretBytes = 32

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP API listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address the gRPC server listens on (e.g. :9090).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// StoreDriver selects the user and session store: "postgres" or "bolt".
	StoreDriver string `mapstructure:"STORE_DRIVER"`
	// DatabaseURL is the Postgres DSN; required when StoreDriver is postgres.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// BoltPath is the bbolt file; used when StoreDriver is bolt.
	BoltPath string `mapstructure:"BOLT_PATH"`

	// JWTSecret is the HS256 shared secret. Ignored when a key pair is configured.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim; tokens with another issuer are rejected.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTTTL is the token lifetime (e.g. "1h").
	JWTTTL string `mapstructure:"JWT_TTL"`
	// SessionIDBytes is the number of random bytes in each raw session id (32–64).
	SessionIDBytes int `mapstructure:"SESSION_ID_BYTES"`
	// BcryptCost is the bcrypt cost factor (4–31); default 10.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	CookieName   string `mapstructure:"COOKIE_NAME"`
	CookieSecure bool   `mapstructure:"COOKIE_SECURE"`

	// ScopePolicy is "builtin" or "opa". With "opa", ScopePolicyFile optionally replaces the default Rego module.
	ScopePolicy     string `mapstructure:"SCOPE_POLICY"`
	ScopePolicyFile string `mapstructure:"SCOPE_POLICY_FILE"`

	// DefaultLanguage is used for error messages when Accept-Language matches nothing.
	DefaultLanguage string `mapstructure:"DEFAULT_LANGUAGE"`

	// Telemetry (optional). When the endpoint is empty, providers are no-ops.
	OTelEndpoint    string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelInsecure    bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OTelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := newViper()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("STORE_DRIVER", StoreBolt)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("BOLT_PATH", "tokengate.db")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "tokengate")
	v.SetDefault("JWT_TTL", "1h")
	v.SetDefault("SESSION_ID_BYTES", 40)
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("COOKIE_NAME", "jwt")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("SCOPE_POLICY", ScopePolicyBuiltin)
	v.SetDefault("SCOPE_POLICY_FILE", "")
	v.SetDefault("DEFAULT_LANGUAGE", "en")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "tokengate")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DatabaseURL returns DATABASE_URL from the environment or .env without validating the rest of
// the configuration. The migrate command uses it.
func DatabaseURL() string {
	return newViper().GetString("DATABASE_URL")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound
	v.AutomaticEnv()
	return v
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if c.GRPCAddr == "" {
		return errors.New("config: GRPC_ADDR must be set")
	}

	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL must be set when STORE_DRIVER=postgres")
		}
	case StoreBolt:
		if c.Env == "production" {
			return errors.New("config: STORE_DRIVER=bolt is not allowed when APP_ENV=production")
		}
		if c.BoltPath == "" {
			return errors.New("config: BOLT_PATH must be set when STORE_DRIVER=bolt")
		}
	default:
		return errors.New("config: STORE_DRIVER must be postgres or bolt")
	}

	hasPriv, hasPub := c.JWTPrivateKey != "", c.JWTPublicKey != ""
	switch {
	case hasPriv != hasPub:
		return errors.New("config: JWT_PRIVATE_KEY and JWT_PUBLIC_KEY must be set together")
	case !hasPriv && c.JWTSecret == "":
		return errors.New("config: JWT_SECRET or JWT_PRIVATE_KEY/JWT_PUBLIC_KEY must be set")
	case !hasPriv && len(c.JWTSecret) < MinSecretBytes:
		return errors.New("config: JWT_SECRET must be at least 32 bytes")
	}
	if d, err := time.ParseDuration(c.JWTTTL); err != nil || d <= 0 {
		return errors.New("config: JWT_TTL must be a positive duration")
	}
	if c.SessionIDBytes < 32 || c.SessionIDBytes > 64 {
		return errors.New("config: SESSION_ID_BYTES must be between 32 and 64")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if c.CookieName == "" {
		return errors.New("config: COOKIE_NAME must be set")
	}

	c.ScopePolicy = strings.ToLower(strings.TrimSpace(c.ScopePolicy))
	switch c.ScopePolicy {
	case ScopePolicyBuiltin, ScopePolicyOPA:
	default:
		return errors.New("config: SCOPE_POLICY must be builtin or opa")
	}
	return nil
}

// TokenTTL parses JWTTTL as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTTTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// UsesKeyPair reports whether tokens are signed with an asymmetric key pair instead of JWT_SECRET.
func (c *Config) UsesKeyPair() bool {
	return c.JWTPrivateKey != "" && c.JWTPublicKey != ""
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c != nil && c.Env == "production"
}
