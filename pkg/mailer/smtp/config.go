package smtp

import "time"

// TLS modes.
const (
	ModeStartTLS = "starttls"
	ModeTLS      = "tls"
	ModePlain    = "plain"
)

// Config holds the platform SMTP relay settings.
type Config struct {
	Host     string        `env:"SMTP_HOST"`
	Port     int           `env:"SMTP_PORT" envDefault:"587"`
	Username string        `env:"SMTP_USERNAME"`
	Password string        `env:"SMTP_PASSWORD"`
	TLSMode  string        `env:"SMTP_TLS_MODE" envDefault:"starttls"`
	Timeout  time.Duration `env:"SMTP_TIMEOUT" envDefault:"30s"`
	// LocalName is sent in EHLO. Empty means the library default.
	LocalName string `env:"SMTP_LOCAL_NAME"`
	// InsecureSkipVerify disables certificate checks. Local relays only.
	InsecureSkipVerify bool `env:"SMTP_INSECURE_SKIP_VERIFY" envDefault:"false"`
}
