package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Credential store backends selectable through CREDENTIAL_STORE.
const (
	StoreMongo  = "mongo"
	StoreHosted = "hosted"
	StoreMemory = "memory"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
	JWTSecret string `env:"JWT_SECRET"`

	TokenTTL      time.Duration `env:"TOKEN_TTL,      default=168h"`
	CookieMaxAge  time.Duration `env:"COOKIE_MAX_AGE, default=168h"`
	PublicBaseURL string        `env:"PUBLIC_BASE_URL, default=http://localhost:8080"`

	RequireEmailConfirmation bool   `env:"REQUIRE_EMAIL_CONFIRMATION, default=true"`
	CredentialStore          string `env:"CREDENTIAL_STORE, default=mongo"`

	Mongo  MongoConfig
	Redis  RedisConfig
	Hosted HostedAuthConfig
	SMTP   SMTPConfig
	Guard  GuardConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=patrick_travel"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

// HostedAuthConfig points at a GoTrue-compatible identity provider.
type HostedAuthConfig struct {
	URL        string `env:"HOSTED_AUTH_URL"`
	AnonKey    string `env:"HOSTED_AUTH_ANON_KEY"`
	ServiceKey string `env:"HOSTED_AUTH_SERVICE_KEY"`
}

// SMTPConfig is optional; with an empty host mail is only logged.
type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT, default=587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM, default=Patrick Travel <no-reply@patricktravel.com>"`
	Workers  int    `env:"MAIL_WORKERS, default=4"`
}

type GuardConfig struct {
	Protected []string `env:"GUARD_PROTECTED_PREFIXES, default=/visa-assistance,/study-abroad,/flight-booking,/housing,/jobs,/auth/profile,/api/applications"`
	Public    []string `env:"GUARD_PUBLIC_PREFIXES, default=/auth/login,/auth/register,/api/auth/login,/api/auth/register"`
}

// IsProduction reports whether ENV is "production".
func (c *Config) IsProduction() bool { return c.Env == "production" }

// Load reads configuration through l, or the process environment when l is nil.
func Load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if l == nil {
		l = envconfig.OsLookuper()
	}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// MustLoad is Load for main: it panics on error.
func MustLoad(ctx context.Context) *Config {
	cfg, err := Load(ctx, nil)
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.CredentialStore {
	case StoreMongo, StoreMemory:
	case StoreHosted:
		if c.Hosted.URL == "" || c.Hosted.AnonKey == "" {
			return errors.New("HOSTED_AUTH_URL and HOSTED_AUTH_ANON_KEY are required for the hosted credential store")
		}
	default:
		return fmt.Errorf("unknown CREDENTIAL_STORE %q", c.CredentialStore)
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	return nil
}
