package delivery

import (
	"github.com/dmitrymomot/courier/internal/notify"
	"github.com/dmitrymomot/courier/internal/transport"
)

// Attachment references an object in attachment storage.
type Attachment struct {
	Key         string `json:"key"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
}

// Request is the send_email job payload. It carries no credentials; those
// are read from the tenant on every attempt.
type Request struct {
	MessageID string `json:"message_id"`
	TenantKey string `json:"tenant_key"`

	To      string `json:"to"`
	ToName  string `json:"to_name,omitempty"`
	Subject string `json:"subject"`
	HTML    string `json:"html,omitempty"`
	Text    string `json:"text,omitempty"`

	ReplyTo     string `json:"reply_to,omitempty"`
	ReplyToName string `json:"reply_to_name,omitempty"`

	Tag           string            `json:"tag,omitempty"`
	InvitationKey string            `json:"invitation_key,omitempty"`
	RecipientID   string            `json:"recipient_id,omitempty"`
	Entity        *notify.EntityRef `json:"entity,omitempty"`
	Attachments   []Attachment      `json:"attachments,omitempty"`

	Settings transport.Settings `json:"settings"`
	Override bool               `json:"override,omitempty"`
	Attempt  int                `json:"attempt"`
}

// Validate checks the fields needed to even try a delivery.
func (r Request) Validate() error {
	switch {
	case r.TenantKey == "":
		return ErrNoTenant
	case r.To == "":
		return ErrNoRecipient
	case r.Subject == "":
		return ErrNoSubject
	}
	return nil
}
