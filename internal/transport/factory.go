package transport

import (
	"fmt"

	"github.com/dmitrymomot/courier/pkg/mailer"
	"github.com/dmitrymomot/courier/pkg/mailer/gmail"
	"github.com/dmitrymomot/courier/pkg/mailer/graph"
	"github.com/dmitrymomot/courier/pkg/mailer/mailgun"
	"github.com/dmitrymomot/courier/pkg/mailer/postmark"
)

// Factory builds the sender for a resolved Config. The platform sender is
// shared; tenant transports are built per attempt so their credentials go
// away with the attempt.
type Factory struct {
	platform     mailer.Sender
	postmarkOpts []postmark.Option
	gmailOpts    []gmail.Option
	graphOpts    []graph.Option
	mailgunBase  string
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithPostmarkOptions passes options to every tenant Postmark sender.
func WithPostmarkOptions(opts ...postmark.Option) FactoryOption {
	return func(f *Factory) {
		f.postmarkOpts = append(f.postmarkOpts, opts...)
	}
}

// WithGmailOptions passes options to every Gmail sender.
func WithGmailOptions(opts ...gmail.Option) FactoryOption {
	return func(f *Factory) {
		f.gmailOpts = append(f.gmailOpts, opts...)
	}
}

// WithGraphOptions passes options to every Microsoft Graph sender.
func WithGraphOptions(opts ...graph.Option) FactoryOption {
	return func(f *Factory) {
		f.graphOpts = append(f.graphOpts, opts...)
	}
}

// WithMailgunAPIBase overrides the Mailgun endpoint.
func WithMailgunAPIBase(url string) FactoryOption {
	return func(f *Factory) {
		f.mailgunBase = url
	}
}

// NewFactory creates a Factory around the platform default sender.
func NewFactory(platform mailer.Sender, opts ...FactoryOption) *Factory {
	f := &Factory{platform: platform}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Sender returns the mailer.Sender for cfg. The default method always uses
// the platform sender, whatever backend it names.
func (f *Factory) Sender(cfg *Config) (mailer.Sender, error) {
	if cfg.Method == MethodDefault {
		return f.platform, nil
	}
	switch cfg.Transport {
	case TransportPostmark:
		return postmark.New(postmark.Config{ServerToken: cfg.APIKey}, f.postmarkOpts...), nil
	case TransportMailgun:
		return mailgun.New(mailgun.Config{
			APIKey:  cfg.APIKey,
			Domain:  cfg.Domain,
			EU:      cfg.EU,
			APIBase: f.mailgunBase,
		}), nil
	case TransportGmail:
		return gmail.New(cfg.Token, f.gmailOpts...), nil
	case TransportOffice365:
		return graph.New(cfg.Token, f.graphOpts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, cfg.Transport)
	}
}
