// Package smtp implements mailer.Sender for a plain SMTP relay with optional
// DKIM signing.
package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	gosmtp "github.com/emersion/go-smtp"

	"github.com/dmitrymomot/courier/pkg/mailer"
	"github.com/dmitrymomot/courier/pkg/mailer/dkim"
)

// ErrInvalidConfig indicates the relay configuration is unusable.
var ErrInvalidConfig = errors.New("smtp: invalid configuration")

// codeMessageTooLarge is the SMTP reply for "message size exceeds fixed maximum".
const codeMessageTooLarge = 552

// Option configures a Sender.
type Option func(*Sender)

// WithSigner signs every message with the given DKIM signer.
func WithSigner(s *dkim.Signer) Option {
	return func(snd *Sender) {
		snd.signer = s
	}
}

// Sender delivers messages to an SMTP relay. Each Send opens its own
// connection, so a Sender is safe for concurrent use.
type Sender struct {
	cfg    Config
	signer *dkim.Signer
}

// New validates cfg and creates a Sender.
func New(cfg Config, opts ...Option) (*Sender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: host is required", ErrInvalidConfig)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("%w: port must be between 1 and 65535", ErrInvalidConfig)
	}
	switch cfg.TLSMode {
	case ModeStartTLS, ModeTLS, ModePlain:
	default:
		return nil, fmt.Errorf("%w: tls mode must be starttls, tls or plain", ErrInvalidConfig)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	s := &Sender{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Send implements mailer.Sender.
func (s *Sender) Send(ctx context.Context, email *mailer.Email) error {
	if err := ctx.Err(); err != nil {
		return errors.Join(mailer.ErrSendFailed, err)
	}

	msg, err := mailer.Build(email)
	if err != nil {
		return err
	}
	msg, err = s.signer.Sign(msg, email.From)
	if err != nil {
		return errors.Join(mailer.ErrMessageFormat, err)
	}

	c, err := s.dial(ctx)
	if err != nil {
		return errors.Join(mailer.ErrSendFailed, &mailer.ProviderError{Provider: "smtp", Message: err.Error()})
	}
	defer func() { _ = c.Close() }()

	if s.cfg.Username != "" {
		if err := c.Auth(sasl.NewPlainClient("", s.cfg.Username, s.cfg.Password)); err != nil {
			return wrapSMTPError(err)
		}
	}
	if err := c.SendMail(email.From, []string{email.To}, bytes.NewReader(msg)); err != nil {
		return wrapSMTPError(err)
	}

	_ = c.Quit()
	return nil
}

func (s *Sender) dial(ctx context.Context) (*gosmtp.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	tlsConfig := &tls.Config{
		ServerName:         s.cfg.Host,
		InsecureSkipVerify: s.cfg.InsecureSkipVerify, //nolint:gosec // opt-in for local relays
	}

	var (
		conn net.Conn
		err  error
	)
	if s.cfg.TLSMode == ModeTLS {
		d := &tls.Dialer{Config: tlsConfig}
		conn, err = d.DialContext(ctx, "tcp", addr)
	} else {
		var d net.Dialer
		conn, err = d.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}
	_ = conn.SetDeadline(time.Now().Add(s.cfg.Timeout))

	var c *gosmtp.Client
	if s.cfg.TLSMode == ModeStartTLS {
		c, err = gosmtp.NewClientStartTLS(conn, tlsConfig)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("starttls: %w", err)
		}
	} else {
		c = gosmtp.NewClient(conn)
	}
	if s.cfg.LocalName != "" {
		if err := c.Hello(s.cfg.LocalName); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("hello: %w", err)
		}
	}
	return c, nil
}

// wrapSMTPError converts relay replies into ProviderError. A 552 reply is
// additionally marked as ErrAttachmentTooLarge.
func wrapSMTPError(err error) error {
	var se *gosmtp.SMTPError
	if !errors.As(err, &se) {
		return errors.Join(mailer.ErrSendFailed, &mailer.ProviderError{Provider: "smtp", Message: err.Error()})
	}

	pe := &mailer.ProviderError{Provider: "smtp", Message: se.Message, Code: se.Code}
	if se.Code == codeMessageTooLarge {
		return errors.Join(mailer.ErrSendFailed, mailer.ErrAttachmentTooLarge, pe)
	}
	return errors.Join(mailer.ErrSendFailed, pe)
}
