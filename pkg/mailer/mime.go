package mailer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/emersion/go-message/mail"
)

// Build encodes the email as an RFC 5322 message with a multipart/alternative
// body and optional attachments. Transports that accept raw messages (SMTP,
// Gmail API) use it. Every failure is reported as ErrMessageFormat.
func Build(email *Email) ([]byte, error) {
	if err := email.Validate(); err != nil {
		return nil, errors.Join(ErrMessageFormat, err)
	}

	from, err := parseAddress(email.FromName, email.From)
	if err != nil {
		return nil, errors.Join(ErrMessageFormat, fmt.Errorf("from: %w", err))
	}
	to, err := parseAddress(email.ToName, email.To)
	if err != nil {
		return nil, errors.Join(ErrMessageFormat, fmt.Errorf("to: %w", err))
	}

	var h mail.Header
	h.SetDate(time.Now())
	h.SetSubject(email.Subject)
	h.SetAddressList("From", []*mail.Address{from})
	h.SetAddressList("To", []*mail.Address{to})
	if email.ReplyTo != "" {
		replyTo, err := parseAddress(email.ReplyToName, email.ReplyTo)
		if err != nil {
			return nil, errors.Join(ErrMessageFormat, fmt.Errorf("reply-to: %w", err))
		}
		h.SetAddressList("Reply-To", []*mail.Address{replyTo})
	}
	if err := h.GenerateMessageID(); err != nil {
		return nil, errors.Join(ErrMessageFormat, err)
	}

	// Deterministic header order keeps signatures and tests stable.
	names := make([]string, 0, len(email.Headers))
	for name := range email.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		h.Set(name, email.Headers[name])
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, errors.Join(ErrMessageFormat, err)
	}

	iw, err := mw.CreateInline()
	if err != nil {
		return nil, errors.Join(ErrMessageFormat, err)
	}
	if email.Text != "" {
		if err := writeInline(iw, "text/plain", email.Text); err != nil {
			return nil, err
		}
	}
	if email.HTML != "" {
		if err := writeInline(iw, "text/html", email.HTML); err != nil {
			return nil, err
		}
	}
	if err := iw.Close(); err != nil {
		return nil, errors.Join(ErrMessageFormat, err)
	}

	for _, a := range email.Attachments {
		var ah mail.AttachmentHeader
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		ah.Set("Content-Type", contentType)
		ah.SetFilename(a.Filename)
		if a.ContentID != "" {
			ah.Set("Content-ID", "<"+a.ContentID+">")
		}
		w, err := mw.CreateAttachment(ah)
		if err != nil {
			return nil, errors.Join(ErrMessageFormat, err)
		}
		if _, err := w.Write(a.Content); err != nil {
			_ = w.Close()
			return nil, errors.Join(ErrMessageFormat, err)
		}
		if err := w.Close(); err != nil {
			return nil, errors.Join(ErrMessageFormat, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, errors.Join(ErrMessageFormat, err)
	}

	return buf.Bytes(), nil
}

func writeInline(iw *mail.InlineWriter, contentType, body string) error {
	var ih mail.InlineHeader
	ih.Set("Content-Type", contentType+"; charset=utf-8")
	w, err := iw.CreatePart(ih)
	if err != nil {
		return errors.Join(ErrMessageFormat, err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		_ = w.Close()
		return errors.Join(ErrMessageFormat, err)
	}
	if err := w.Close(); err != nil {
		return errors.Join(ErrMessageFormat, err)
	}
	return nil
}

func parseAddress(name, address string) (*mail.Address, error) {
	parsed, err := mail.ParseAddress(address)
	if err != nil {
		return nil, err
	}
	if name != "" {
		parsed.Name = name
	}
	return parsed, nil
}
