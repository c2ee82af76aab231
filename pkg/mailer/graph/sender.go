// Package graph sends messages through Microsoft Graph sendMail on behalf of
// an Office 365 user.
package graph

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/oauth2"

	"github.com/dmitrymomot/courier/pkg/mailer"
)

// DefaultBaseURL is the Microsoft Graph endpoint.
const DefaultBaseURL = "https://graph.microsoft.com"

// MaxMessageSize is the attachment payload Graph accepts inline in a single
// sendMail request. Larger files need an upload session.
const MaxMessageSize = 3 << 20

// Option configures a Sender.
type Option func(*Sender)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) Option {
	return func(s *Sender) {
		if url != "" {
			s.baseURL = strings.TrimRight(url, "/")
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
	token   string
	baseURL string
	base    *http.Client
}

// New creates a Sender authorised by the given access token.
func New(accessToken string, opts ...Option) *Sender {
	s := &Sender{
		token:   accessToken,
		baseURL: DefaultBaseURL,
		base:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type emailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type itemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type fileAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType,omitempty"`
	ContentID    string `json:"contentId,omitempty"`
	IsInline     bool   `json:"isInline,omitempty"`
	ContentBytes string `json:"contentBytes"`
}

type message struct {
	Subject                string           `json:"subject"`
	Body                   itemBody         `json:"body"`
	ToRecipients           []recipient      `json:"toRecipients"`
	ReplyTo                []recipient      `json:"replyTo,omitempty"`
	InternetMessageHeaders []header         `json:"internetMessageHeaders,omitempty"`
	Attachments            []fileAttachment `json:"attachments,omitempty"`
}

type sendMailRequest struct {
	Message         message `json:"message"`
	SaveToSentItems bool    `json:"saveToSentItems"`
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Send implements mailer.Sender.
func (s *Sender) Send(ctx context.Context, email *mailer.Email) error {
	if err := email.Validate(); err != nil {
		return errors.Join(mailer.ErrMessageFormat, err)
	}
	if email.Size() > MaxMessageSize {
		return mailer.ErrAttachmentTooLarge
	}

	body, err := json.Marshal(sendMailRequest{Message: buildMessage(email), SaveToSentItems: true})
	if err != nil {
		return errors.Join(mailer.ErrMessageFormat, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1.0/me/sendMail", bytes.NewReader(body))
	if err != nil {
		return errors.Join(mailer.ErrSendFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.base)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: s.token, TokenType: "Bearer"}))

	resp, err := client.Do(req)
	if err != nil {
		return errors.Join(mailer.ErrSendFailed, &mailer.ProviderError{Provider: "graph", Message: err.Error()})
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	pe := &mailer.ProviderError{Provider: "graph", Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var ae apiError
	if err := json.Unmarshal(data, &ae); err == nil && ae.Error.Message != "" {
		pe.Message = ae.Error.Code + ": " + ae.Error.Message
	} else {
		pe.Message = fmt.Sprintf("unexpected response: %s", http.StatusText(resp.StatusCode))
	}
	if resp.StatusCode == http.StatusRequestEntityTooLarge {
		return errors.Join(mailer.ErrSendFailed, mailer.ErrAttachmentTooLarge, pe)
	}
	return errors.Join(mailer.ErrSendFailed, pe)
}

func buildMessage(email *mailer.Email) message {
	m := message{
		Subject: email.Subject,
		ToRecipients: []recipient{
			{EmailAddress: emailAddress{Address: email.To, Name: email.ToName}},
		},
	}
	if email.HTML != "" {
		m.Body = itemBody{ContentType: "HTML", Content: email.HTML}
	} else {
		m.Body = itemBody{ContentType: "Text", Content: email.Text}
	}
	if email.ReplyTo != "" {
		m.ReplyTo = []recipient{{EmailAddress: emailAddress{Address: email.ReplyTo, Name: email.ReplyToName}}}
	}

	// Graph only accepts custom headers prefixed with "X-".
	names := make([]string, 0, len(email.Headers))
	for name := range email.Headers {
		if strings.HasPrefix(strings.ToLower(name), "x-") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		m.InternetMessageHeaders = append(m.InternetMessageHeaders, header{Name: name, Value: email.Headers[name]})
	}

	for _, a := range email.Attachments {
		m.Attachments = append(m.Attachments, fileAttachment{
			ODataType:    "#microsoft.graph.fileAttachment",
			Name:         a.Filename,
			ContentType:  a.ContentType,
			ContentID:    a.ContentID,
			IsInline:     a.ContentID != "",
			ContentBytes: base64.StdEncoding.EncodeToString(a.Content),
		})
	}
	return m
}
