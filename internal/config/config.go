// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// MinSecretLength is the shortest signing secret accepted outside development.
const MinSecretLength = 32

// Supported password hash algorithms.
const (
	HashBcrypt   = "bcrypt"
	HashArgon2id = "argon2id"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL    string `env:"DATABASE_URL,required"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START" envDefault:"true"`

	// Cache (Redis). Optional; only the login throttle uses it.
	RedisURL string `env:"REDIS_URL"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Identity tokens
	JWTSecret string        `env:"JWT_SECRET,required"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"30m"`
	JWTIssuer string        `env:"JWT_ISSUER" envDefault:"taskguard"`

	// Web session cookie
	SessionSecret     string        `env:"SESSION_SECRET,required"`
	SessionCookieName string        `env:"SESSION_COOKIE_NAME" envDefault:"session"`
	SessionMaxAge     time.Duration `env:"SESSION_MAX_AGE" envDefault:"336h"`

	// Password hashing
	PasswordHashAlgo string `env:"PASSWORD_HASH_ALGO" envDefault:"bcrypt"`
	BcryptCost       int    `env:"BCRYPT_COST" envDefault:"12"`
	Argon2Time       uint32 `env:"ARGON2_TIME" envDefault:"3"`
	Argon2MemoryKB   uint32 `env:"ARGON2_MEMORY_KB" envDefault:"65536"`
	Argon2Threads    uint8  `env:"ARGON2_THREADS" envDefault:"4"`

	// Login throttling
	LoginRateLimitEnabled   bool `env:"LOGIN_RATE_LIMIT_ENABLED" envDefault:"false"`
	LoginRateLimitPerMinute int  `env:"LOGIN_RATE_LIMIT_PER_MINUTE" envDefault:"10"`
	LoginRateLimitBurst     int  `env:"LOGIN_RATE_LIMIT_BURST" envDefault:"5"`

	// Set only behind a reverse proxy that overwrites X-Forwarded-For.
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS" envDefault:"false"`

	// Observability
	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	if !c.IsDevelopment() {
		if len(c.JWTSecret) < MinSecretLength {
			errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", MinSecretLength))
		}
		if len(c.SessionSecret) < MinSecretLength {
			errs = append(errs, fmt.Errorf("SESSION_SECRET must be at least %d bytes", MinSecretLength))
		}
	}

	switch c.PasswordHashAlgo {
	case HashBcrypt:
		if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
			errs = append(errs, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
		}
	case HashArgon2id:
		if c.Argon2Time == 0 || c.Argon2MemoryKB == 0 || c.Argon2Threads == 0 {
			errs = append(errs, errors.New("ARGON2_TIME, ARGON2_MEMORY_KB and ARGON2_THREADS must be positive"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown PASSWORD_HASH_ALGO %q", c.PasswordHashAlgo))
	}

	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if c.SessionMaxAge <= 0 {
		errs = append(errs, errors.New("SESSION_MAX_AGE must be positive"))
	}
	if c.LoginRateLimitEnabled && (c.LoginRateLimitPerMinute <= 0 || c.LoginRateLimitBurst <= 0) {
		errs = append(errs, errors.New("LOGIN_RATE_LIMIT_PER_MINUTE and LOGIN_RATE_LIMIT_BURST must be positive"))
	}
	if c.MaxRequestBodySize <= 0 {
		errs = append(errs, errors.New("MAX_REQUEST_BODY_SIZE must be positive"))
	}

	return errors.Join(errs...)
}

// LogValue implements slog.LogValuer. Secrets are never logged.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("env", c.AppEnv),
		slog.Int("port", c.AppPort),
		slog.String("database_url", RedactURL(c.DatabaseURL)),
		slog.String("redis_url", RedactURL(c.RedisURL)),
		slog.String("jwt_secret", redacted(c.JWTSecret)),
		slog.Duration("jwt_ttl", c.JWTTTL),
		slog.String("session_secret", redacted(c.SessionSecret)),
		slog.String("password_hash_algo", c.PasswordHashAlgo),
		slog.Bool("login_rate_limit", c.LoginRateLimitEnabled),
		slog.Bool("trust_proxy_headers", c.TrustProxyHeaders),
		slog.Bool("metrics", c.MetricsEnabled),
	)
}

// RedactURL strips the password from a connection URL.
func RedactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func redacted(secret string) string {
	if secret == "" {
		return ""
	}
	return "[redacted]"
}

// Load reads an optional .env file, parses environment variables and
// validates the result. Variables already set in the environment win over
// the file.
func Load() (*Config, error) {
	return LoadFiles(".env")
}

// LoadFiles is Load with explicit dotenv paths. Missing files are ignored.
func LoadFiles(paths ...string) (*Config, error) {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", p, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
