package mailer

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoRecipient indicates no recipient was specified.
	ErrNoRecipient = errors.New("email must have a recipient")

	// ErrNoSender indicates no from address was resolved.
	ErrNoSender = errors.New("email must have a sender")

	// ErrNoSubject indicates no subject was provided.
	ErrNoSubject = errors.New("email must have a subject")

	// ErrNoContent indicates neither HTML nor text content was provided.
	ErrNoContent = errors.New("email must have content")

	// ErrMessageFormat indicates the message could not be encoded
	// (malformed address, header or MIME structure). Retrying never helps.
	ErrMessageFormat = errors.New("mailer: malformed message")

	// ErrAttachmentTooLarge indicates the attachment payload exceeds what
	// the transport accepts.
	ErrAttachmentTooLarge = errors.New("mailer: attachment too large")

	// ErrSendFailed indicates email sending failed.
	ErrSendFailed = errors.New("failed to send email")
)

// ProviderError is returned by transports when the remote service rejected
// the message. Status carries the HTTP status when the transport speaks HTTP,
// Code carries the provider or SMTP reply code.
type ProviderError struct {
	Provider string
	Message  string
	Status   int
	Code     int
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Code > 0 {
		fmt.Fprintf(&b, " (code %d)", e.Code)
	}
	if e.Status > 0 {
		fmt.Fprintf(&b, " [status %d]", e.Status)
	}
	return b.String()
}

// ClientSide reports whether the provider rejected the request itself (4xx),
// as opposed to a server-side or network failure.
func (e *ProviderError) ClientSide() bool {
	return e.Status >= 400 && e.Status < 500
}

// AsProviderError unwraps err into a ProviderError.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
