package main

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"`
	EnvKey          string        `env:"ENV_KEY,required"`

	DatabaseURL             string        `env:"DATABASE_URL,required"`
	DatabaseMaxConns        int32         `env:"DATABASE_MAX_CONNS" envDefault:"0"`
	DatabaseMinConns        int32         `env:"DATABASE_MIN_CONNS" envDefault:"0"`
	DatabaseMaxConnLifetime time.Duration `env:"DATABASE_MAX_CONN_LIFETIME" envDefault:"0s"`
	DatabaseConnectTimeout  time.Duration `env:"DATABASE_CONNECT_TIMEOUT" envDefault:"10s"`
	BootstrapSchema         bool          `env:"BOOTSTRAP_SCHEMA" envDefault:"false"`

	AuthProvider        string        `env:"AUTH_PROVIDER" envDefault:"jwt"` // firebase | jwt | dev
	JWTSigningKey       string        `env:"JWT_SIGNING_KEY"`
	JWTIssuer           string        `env:"JWT_ISSUER" envDefault:"palmyra-sites"`
	SessionTTL          time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SessionCookie       string        `env:"SESSION_COOKIE" envDefault:"palmyra_session"`
	FirebaseCredentials string        `env:"FIREBASE_CONFIG"`
	DevProjectID        string        `env:"GCLOUD_PROJECT" envDefault:"palmyra-dev"`

	TenantOverrideEnabled bool   `env:"TENANT_OVERRIDE_ENABLED" envDefault:"false"`
	TenantOverrideHeader  string `env:"TENANT_OVERRIDE_HEADER" envDefault:"X-Tenant"`
	TenantOverrideCookie  string `env:"TENANT_OVERRIDE_COOKIE" envDefault:"X-Tenant"`

	CORSDevOrigins  []string      `env:"CORS_DEV_ORIGINS" envSeparator:","`
	DomainCacheTTL  time.Duration `env:"DOMAIN_CACHE_TTL" envDefault:"15s"`
	DomainCacheSize int           `env:"DOMAIN_CACHE_SIZE" envDefault:"4096"`
}

func (c config) isProd() bool {
	return strings.EqualFold(strings.TrimSpace(c.EnvKey), "prod")
}

// validate rejects combinations that are unsafe or cannot start.
func (c config) validate() error {
	var errs []error
	if c.TenantOverrideEnabled && c.isProd() {
		errs = append(errs, errors.New("TENANT_OVERRIDE_ENABLED must be false when ENV_KEY=prod"))
	}
	switch c.AuthProvider {
	case "jwt":
		if len(c.JWTSigningKey) < 32 {
			errs = append(errs, errors.New("JWT_SIGNING_KEY of at least 32 bytes is required when AUTH_PROVIDER=jwt"))
		}
	case "dev":
		if c.isProd() {
			errs = append(errs, errors.New("AUTH_PROVIDER=dev is not allowed when ENV_KEY=prod"))
		}
	case "firebase":
	default:
		errs = append(errs, fmt.Errorf("unsupported AUTH_PROVIDER %q (use firebase, jwt or dev)", c.AuthProvider))
	}
	if c.DomainCacheSize < 0 {
		errs = append(errs, errors.New("DOMAIN_CACHE_SIZE must not be negative"))
	}
	return errors.Join(errs...)
}
