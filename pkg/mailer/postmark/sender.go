// Package postmark implements mailer.Sender on top of the Postmark API.
package postmark

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/mrz1836/postmark"

	"github.com/dmitrymomot/courier/pkg/mailer"
)

// MaxMessageSize is Postmark's limit for a message including attachments.
const MaxMessageSize = 10 << 20

// Config holds Postmark configuration for the platform account.
// Tenant-supplied tokens are passed to New directly.
type Config struct {
	ServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	AccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	Stream       string `env:"POSTMARK_MESSAGE_STREAM" envDefault:"outbound"`
}

// Option configures a Sender.
type Option func(*Sender)

// WithBaseURL points the client at a different API host.
func WithBaseURL(url string) Option {
	return func(s *Sender) {
		if url != "" {
			s.client.BaseURL = url
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Sender) {
		if c != nil {
			s.client.HTTPClient = c
		}
	}
}

// Sender implements mailer.Sender using Postmark's transactional API.
type Sender struct {
	client *postmark.Client
	stream string
}

// New creates a Postmark sender for the given server token.
func New(cfg Config, opts ...Option) *Sender {
	s := &Sender{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		stream: cfg.Stream,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send implements mailer.Sender.
func (s *Sender) Send(ctx context.Context, email *mailer.Email) error {
	if err := email.Validate(); err != nil {
		return errors.Join(mailer.ErrMessageFormat, err)
	}
	if email.Size() > MaxMessageSize {
		return mailer.ErrAttachmentTooLarge
	}

	msg := postmark.Email{
		From:          mailer.Recipient(email.FromName, email.From),
		To:            mailer.Recipient(email.ToName, email.To),
		Subject:       email.Subject,
		Tag:           email.Tag,
		HTMLBody:      email.HTML,
		TextBody:      email.Text,
		Metadata:      email.Metadata,
		MessageStream: s.stream,
		TrackOpens:    true,
	}
	if email.ReplyTo != "" {
		msg.ReplyTo = mailer.Recipient(email.ReplyToName, email.ReplyTo)
	}
	for name, value := range email.Headers {
		msg.Headers = append(msg.Headers, postmark.Header{Name: name, Value: value})
	}
	for _, a := range email.Attachments {
		msg.Attachments = append(msg.Attachments, postmark.Attachment{
			Name:        a.Filename,
			Content:     base64.StdEncoding.EncodeToString(a.Content),
			ContentType: a.ContentType,
			ContentID:   a.ContentID,
		})
	}

	resp, err := s.client.SendEmail(ctx, msg)
	if resp.ErrorCode > 0 {
		// Postmark answers API-level rejections with 422 and a numeric ErrorCode.
		return errors.Join(mailer.ErrSendFailed, &mailer.ProviderError{
			Provider: "postmark",
			Message:  resp.Message,
			Code:     int(resp.ErrorCode),
			Status:   http.StatusUnprocessableEntity,
		})
	}
	if err != nil {
		return errors.Join(mailer.ErrSendFailed, &mailer.ProviderError{
			Provider: "postmark",
			Message:  err.Error(),
			Code:     errorCode(err.Error()),
		})
	}

	return nil
}

// errorCode extracts the Postmark error code from messages shaped like
// "406 You tried to send to a recipient that has been marked as inactive.".
func errorCode(msg string) int {
	for _, field := range strings.Fields(msg) {
		code, err := strconv.Atoi(strings.TrimRight(field, ":"))
		if err == nil && code > 0 {
			return code
		}
	}
	return 0
}
