// Package gmail sends messages through the Gmail API on behalf of a user who
// granted the gmail.send scope.
package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/dmitrymomot/courier/pkg/mailer"
)

// MaxMessageSize is the raw message limit of messages.send.
const MaxMessageSize = 35 << 20

// Option configures a Sender.
type Option func(*Sender)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) Option {
	return func(s *Sender) {
		if url != "" {
			s.endpoint = strings.TrimRight(url, "/") + "/"
		}
	}
}

// WithHTTPClient sets the base client that the OAuth transport wraps.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Sender) {
		if c != nil {
			s.base = c
		}
	}
}

// Sender implements mailer.Sender for a single user access token.
type Sender struct {
	token    string
	endpoint string
	base     *http.Client
}

// New creates a Sender authorised by the given access token.
func New(accessToken string, opts ...Option) *Sender {
	s := &Sender{token: accessToken, base: http.DefaultClient}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send implements mailer.Sender.
func (s *Sender) Send(ctx context.Context, email *mailer.Email) error {
	raw, err := mailer.Build(email)
	if err != nil {
		return err
	}
	if len(raw) > MaxMessageSize {
		return mailer.ErrAttachmentTooLarge
	}

	svc, err := s.service(ctx)
	if err != nil {
		return errors.Join(mailer.ErrSendFailed, err)
	}

	_, err = svc.Users.Messages.
		Send("me", &gmailapi.Message{Raw: base64.RawURLEncoding.EncodeToString(raw)}).
		Context(ctx).
		Do()
	if err != nil {
		return providerError(err)
	}
	return nil
}

func (s *Sender) service(ctx context.Context) (*gmailapi.Service, error) {
	client := oauth2.NewClient(
		context.WithValue(ctx, oauth2.HTTPClient, s.base),
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: s.token, TokenType: "Bearer"}),
	)
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if s.endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.endpoint))
	}
	return gmailapi.NewService(ctx, opts...)
}

func providerError(err error) error {
	pe := &mailer.ProviderError{Provider: "gmail", Message: err.Error()}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		pe.Status = gerr.Code
		if gerr.Message != "" {
			pe.Message = gerr.Message
		}
		if gerr.Code == http.StatusRequestEntityTooLarge {
			return errors.Join(mailer.ErrSendFailed, mailer.ErrAttachmentTooLarge, pe)
		}
	}
	return errors.Join(mailer.ErrSendFailed, pe)
}
