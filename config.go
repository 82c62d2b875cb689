package auth

import (
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
)

// Config holds every runtime knob the subsystem needs. Signing keys have no
// defaults; a process without them must not start.
type Config struct {
	HTTPAddr string `env:"AUTH_HTTP_ADDR" envDefault:":3000"`
	DSN      string `env:"AUTH_DSN" envDefault:"file::memory:?cache=shared"`

	AccessSigningKey  string `env:"AUTH_ACCESS_SIGNING_KEY,required"`
	RefreshSigningKey string `env:"AUTH_REFRESH_SIGNING_KEY,required"`

	AccessTokenTTL  time.Duration `env:"AUTH_ACCESS_TOKEN_TTL" envDefault:"168h"`
	RefreshTokenTTL time.Duration `env:"AUTH_REFRESH_TOKEN_TTL" envDefault:"720h"`

	CookieExpiryDays int `env:"AUTH_COOKIE_EXPIRY_DAYS" envDefault:"7"`

	TokenIssuer   string   `env:"AUTH_TOKEN_ISSUER" envDefault:"auth"`
	TokenAudience []string `env:"AUTH_TOKEN_AUDIENCE" envSeparator:","`

	MaxLoginAttempts    int           `env:"AUTH_MAX_LOGIN_ATTEMPTS" envDefault:"5"`
	LoginCooldownPeriod time.Duration `env:"AUTH_LOGIN_COOLDOWN" envDefault:"24h"`

	HasherLimit int `env:"AUTH_HASHER_LIMIT" envDefault:"0"`

	// UseHashid derives identity IDs deterministically from the email at
	// registration instead of random UUIDs.
	UseHashid bool `env:"AUTH_USE_HASHID" envDefault:"false"`

	Debug bool `env:"AUTH_DEBUG" envDefault:"false"`
}

// LoadConfig parses the environment and validates the result. Callers treat
// any error as fatal at startup.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "failed to parse environment")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid configuration")
	}

	return cfg, nil
}

// Validate checks the parsed values for internal consistency.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.HTTPAddr, validation.Required),
		validation.Field(&c.AccessSigningKey, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.RefreshSigningKey, validation.Required, validation.Length(16, 0), validation.By(c.distinctKeys)),
		validation.Field(&c.AccessTokenTTL, validation.Required, validation.By(positiveDuration)),
		validation.Field(&c.RefreshTokenTTL, validation.Required, validation.By(positiveDuration)),
		validation.Field(&c.CookieExpiryDays, validation.Min(1)),
		validation.Field(&c.MaxLoginAttempts, validation.Min(1)),
		validation.Field(&c.LoginCooldownPeriod, validation.Required, validation.By(positiveDuration)),
	)
}

func (c *Config) distinctKeys(any) error {
	if c.AccessSigningKey == c.RefreshSigningKey {
		return errors.New("access and refresh signing keys must differ", errors.CategoryValidation)
	}
	return nil
}

func positiveDuration(value any) error {
	d, ok := value.(time.Duration)
	if !ok || d <= 0 {
		return errors.New("must be a positive duration", errors.CategoryValidation)
	}
	return nil
}
