package mailer

import "fmt"

// Common header names set by the dispatcher.
const (
	HeaderInvitation = "X-Invitation"
	HeaderMessageID  = "X-Courier-Message-Id"
)

// Recipient formats a name and email into RFC 5322 address format.
// Returns "Name <email>" if name is provided, otherwise just email.
func Recipient(name, email string) string {
	if name == "" {
		return email
	}
	return fmt.Sprintf("%s <%s>", name, email)
}

// Email represents a fully-prepared email message ready for sending.
// A single recipient per message: every outbound message is addressed to one contact.
type Email struct {
	Headers     map[string]string // Custom headers
	Metadata    map[string]string // Provider metadata (Postmark metadata, Mailgun variables)
	Tag         string            // Correlation tag (company key)
	Subject     string            // Email subject
	HTML        string            // HTML body content
	Text        string            // Plain text alternative
	From        string            // Sender address
	FromName    string            // Sender display name
	ReplyTo     string            // Reply-to address
	ReplyToName string            // Reply-to display name
	To          string            // Recipient address
	ToName      string            // Recipient display name
	Attachments []Attachment      // File attachments
}

// Size returns the total attachment payload in bytes.
func (e *Email) Size() int64 {
	var n int64
	for _, a := range e.Attachments {
		n += int64(len(a.Content))
	}
	return n
}

// SetHeader sets a custom header, allocating the map on first use.
func (e *Email) SetHeader(name, value string) {
	if e.Headers == nil {
		e.Headers = make(map[string]string)
	}
	e.Headers[name] = value
}

// Validate checks the fields every transport depends on.
func (e *Email) Validate() error {
	if e.To == "" {
		return ErrNoRecipient
	}
	if e.From == "" {
		return ErrNoSender
	}
	if e.Subject == "" {
		return ErrNoSubject
	}
	if e.HTML == "" && e.Text == "" {
		return ErrNoContent
	}
	return nil
}

// Attachment represents an email attachment.
type Attachment struct {
	Filename    string // Display name for the attachment
	ContentType string // MIME type (e.g., "application/pdf")
	ContentID   string // Optional Content-ID for inline attachments
	Content     []byte // Raw file content
}
