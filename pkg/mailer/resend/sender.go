package resend

import (
	"context"
	"errors"

	"github.com/resend/resend-go/v3"

	"github.com/dmitrymomot/courier/pkg/mailer"
)

// Sender implements mailer.Sender using the Resend API.
type Sender struct {
	client *resend.Client
}

// New creates a new Resend sender.
func New(cfg Config) *Sender {
	return &Sender{client: resend.NewClient(cfg.APIKey)}
}

// Send implements mailer.Sender.
func (s *Sender) Send(ctx context.Context, email *mailer.Email) error {
	if err := email.Validate(); err != nil {
		return errors.Join(mailer.ErrMessageFormat, err)
	}

	req := &resend.SendEmailRequest{
		From:    mailer.Recipient(email.FromName, email.From),
		To:      []string{mailer.Recipient(email.ToName, email.To)},
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
		Headers: email.Headers,
	}
	if email.ReplyTo != "" {
		req.ReplyTo = mailer.Recipient(email.ReplyToName, email.ReplyTo)
	}
	if len(email.Attachments) > 0 {
		req.Attachments = convertAttachments(email.Attachments)
	}
	req.Tags = convertTags(email)

	if _, err := s.client.Emails.SendWithContext(ctx, req); err != nil {
		return errors.Join(mailer.ErrSendFailed, &mailer.ProviderError{
			Provider: "resend",
			Message:  err.Error(),
		})
	}

	return nil
}

func convertAttachments(attachments []mailer.Attachment) []*resend.Attachment {
	result := make([]*resend.Attachment, len(attachments))
	for i, a := range attachments {
		result[i] = &resend.Attachment{
			Filename:    a.Filename,
			Content:     a.Content,
			ContentType: a.ContentType,
			ContentId:   a.ContentID,
		}
	}
	return result
}

// convertTags maps the correlation tag and metadata onto Resend's
// name/value tags. Resend only accepts ASCII letters, digits, '_' and '-'.
func convertTags(email *mailer.Email) []resend.Tag {
	tags := make([]resend.Tag, 0, len(email.Metadata)+1)
	if email.Tag != "" {
		tags = append(tags, resend.Tag{Name: "company", Value: sanitizeTag(email.Tag)})
	}
	for name, value := range email.Metadata {
		tags = append(tags, resend.Tag{Name: sanitizeTag(name), Value: sanitizeTag(value)})
	}
	return tags
}

func sanitizeTag(v string) string {
	b := []byte(v)
	for i, c := range b {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
		default:
			b[i] = '_'
		}
	}
	return string(b)
}
