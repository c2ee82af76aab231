// Package mailgun implements mailer.Sender on top of the Mailgun messages API.
package mailgun

import (
	"context"
	"errors"

	"github.com/mailgun/mailgun-go/v4"

	"github.com/dmitrymomot/courier/pkg/mailer"
)

// MaxMessageSize is Mailgun's limit for a message including attachments.
const MaxMessageSize = 25 << 20

// Config carries tenant-supplied Mailgun credentials.
type Config struct {
	APIKey string
	Domain string
	// EU routes requests through the EU region endpoint.
	EU bool
	// APIBase overrides the endpoint entirely. Used in tests.
	APIBase string
}

// Sender implements mailer.Sender using Mailgun.
type Sender struct {
	mg *mailgun.MailgunImpl
}

// New creates a Mailgun sender for the given domain.
func New(cfg Config) *Sender {
	mg := mailgun.NewMailgun(cfg.Domain, cfg.APIKey)
	switch {
	case cfg.APIBase != "":
		mg.SetAPIBase(cfg.APIBase)
	case cfg.EU:
		mg.SetAPIBase(mailgun.APIBaseEU)
	}
	return &Sender{mg: mg}
}

// Send implements mailer.Sender.
func (s *Sender) Send(ctx context.Context, email *mailer.Email) error {
	if err := email.Validate(); err != nil {
		return errors.Join(mailer.ErrMessageFormat, err)
	}
	if email.Size() > MaxMessageSize {
		return mailer.ErrAttachmentTooLarge
	}

	m := s.mg.NewMessage(
		mailer.Recipient(email.FromName, email.From),
		email.Subject,
		email.Text,
		mailer.Recipient(email.ToName, email.To),
	)
	if email.HTML != "" {
		m.SetHtml(email.HTML)
	}
	if email.ReplyTo != "" {
		m.SetReplyTo(mailer.Recipient(email.ReplyToName, email.ReplyTo))
	}
	for name, value := range email.Headers {
		m.AddHeader(name, value)
	}
	if email.Tag != "" {
		if err := m.AddTag(email.Tag); err != nil {
			return errors.Join(mailer.ErrMessageFormat, err)
		}
	}
	for name, value := range email.Metadata {
		if err := m.AddVariable(name, value); err != nil {
			return errors.Join(mailer.ErrMessageFormat, err)
		}
	}
	for _, a := range email.Attachments {
		m.AddBufferAttachment(a.Filename, a.Content)
	}

	if _, _, err := s.mg.Send(ctx, m); err != nil {
		return errors.Join(mailer.ErrSendFailed, &mailer.ProviderError{
			Provider: "mailgun",
			Message:  err.Error(),
			Status:   mailgun.GetStatusFromErr(err),
		})
	}

	return nil
}
