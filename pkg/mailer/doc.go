// Package mailer defines the transport-neutral message model used by the dispatcher.
//
// The package separates the message (Email) from the delivery backend (Sender).
// Concrete transports live in sub-packages:
//
//   - smtp: platform SMTP relay with optional DKIM signing
//   - resend: Resend HTTP API
//   - postmark: Postmark HTTP API (platform or tenant-supplied token)
//   - mailgun: Mailgun HTTP API (tenant-supplied key and domain)
//   - gmail: Gmail REST API with an OAuth bearer token
//   - graph: Microsoft Graph sendMail with an OAuth bearer token
//
// # Usage
//
//	sender := resend.New(resend.Config{APIKey: os.Getenv("RESEND_API_KEY")})
//
//	err := sender.Send(ctx, &mailer.Email{
//		From:    "billing@example.com",
//		To:      "client@example.com",
//		Subject: "Invoice #42",
//		HTML:    "<p>Your invoice is attached.</p>",
//		Tag:     companyKey,
//	})
//
// # Raw messages
//
// Build encodes an Email as an RFC 5322 message. Encoding failures are always
// reported as ErrMessageFormat so callers can treat them as permanent.
//
// # Errors
//
// Transports report remote rejections as *ProviderError, which carries the
// provider error code and HTTP status:
//
//	if pe, ok := mailer.AsProviderError(err); ok && pe.ClientSide() {
//		// rejected by the provider, not a transient outage
//	}
//
// Sentinel errors:
//
//   - ErrNoRecipient, ErrNoSender, ErrNoSubject, ErrNoContent: incomplete message
//   - ErrMessageFormat: message cannot be encoded
//   - ErrAttachmentTooLarge: payload exceeds the transport limit
//   - ErrSendFailed: delivery failed
package mailer
