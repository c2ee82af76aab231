package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrymomot/courier/internal/contentscan"
	"github.com/dmitrymomot/courier/pkg/db"
	"github.com/dmitrymomot/courier/pkg/logger"
	"github.com/dmitrymomot/courier/pkg/mailer/dkim"
	"github.com/dmitrymomot/courier/pkg/mailer/postmark"
	"github.com/dmitrymomot/courier/pkg/mailer/resend"
	"github.com/dmitrymomot/courier/pkg/mailer/smtp"
	"github.com/dmitrymomot/courier/pkg/oauth"
	"github.com/dmitrymomot/courier/pkg/redis"
	"github.com/dmitrymomot/courier/pkg/storage"
)

var (
	ErrLoad     = errors.New("config: failed to load configuration")
	ErrInvalid  = errors.New("config: invalid configuration")
	ErrPlatform = errors.New("config: unknown platform transport")
)

// Platform transports for the default sending method.
const (
	PlatformSMTP     = "smtp"
	PlatformResend   = "resend"
	PlatformPostmark = "postmark"
)

// Platform describes how mail is sent from the platform address.
type Platform struct {
	Transport string `env:"PLATFORM_TRANSPORT" envDefault:"smtp"`
	From      string `env:"PLATFORM_FROM_ADDRESS,required"`
}

// Worker controls the job manager.
type Worker struct {
	Concurrency     int           `env:"WORKER_CONCURRENCY" envDefault:"20"`
	ShutdownTimeout time.Duration `env:"WORKER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Cache controls the tenant lookup cache.
type Cache struct {
	LookupTTL  time.Duration `env:"CACHE_LOOKUP_TTL" envDefault:"10m"`
	LocalTTL   time.Duration `env:"CACHE_LOCAL_TTL" envDefault:"1m"`
	MaxEntries int           `env:"CACHE_MAX_ENTRIES" envDefault:"10000"`
	Prefix     string        `env:"CACHE_PREFIX" envDefault:"courier:lookup"`
}

// Config is the worker configuration.
type Config struct {
	// Hosted enables exception reporting for exhausted deliveries.
	Hosted bool `env:"HOSTED" envDefault:"false"`

	HealthAddr         string        `env:"HEALTH_ADDR" envDefault:":8081"`
	HealthTimeout      time.Duration `env:"HEALTH_TIMEOUT" envDefault:"5s"`
	PlaceholderDomains []string      `env:"PREFLIGHT_PLACEHOLDER_DOMAINS" envSeparator:"," envDefault:"@example.com"`
	MaxAttachmentBytes int64         `env:"MAX_ATTACHMENT_BYTES" envDefault:"10485760"`
	TelemetryStream    string        `env:"TELEMETRY_STREAM" envDefault:"mail:events"`
	AlertInterval      time.Duration `env:"CREDENTIAL_ALERT_INTERVAL" envDefault:"24h"`

	Platform Platform
	Worker   Worker
	Cache    Cache

	Log       logger.Config
	Sentry    logger.SentryConfig
	DB        db.Config
	Redis     redis.Config
	Google    oauth.GoogleConfig
	Microsoft oauth.MicrosoftConfig
	SMTP      smtp.Config
	DKIM      dkim.Config
	Resend    resend.Config
	Postmark  postmark.Config
	Storage   storage.Config
	Scanner   contentscan.Rules
}

// Load reads an optional .env file from the working directory, then parses
// the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Join(ErrLoad, err)
	}
	return Parse(env.Options{})
}

// Parse reads configuration with the given env options. Tests pass
// Environment to avoid touching the process environment.
func Parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, errors.Join(ErrLoad, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that cannot be expressed with tags.
func (c *Config) Validate() error {
	switch c.Platform.Transport {
	case PlatformSMTP:
		if c.SMTP.Host == "" {
			return errors.Join(ErrInvalid, errors.New("SMTP_HOST is required for the smtp platform transport"))
		}
	case PlatformResend:
		if c.Resend.APIKey == "" {
			return errors.Join(ErrInvalid, errors.New("RESEND_API_KEY is required for the resend platform transport"))
		}
	case PlatformPostmark:
		if c.Postmark.ServerToken == "" {
			return errors.Join(ErrInvalid, errors.New("POSTMARK_SERVER_TOKEN is required for the postmark platform transport"))
		}
	default:
		return fmt.Errorf("%w: %q", ErrPlatform, c.Platform.Transport)
	}
	if c.Worker.Concurrency <= 0 {
		return errors.Join(ErrInvalid, errors.New("WORKER_CONCURRENCY must be positive"))
	}
	return nil
}
