// Package dkim signs outbound messages for transports that hand raw
// RFC 5322 bytes to the network (the platform SMTP relay).
package dkim

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	msgauthdkim "github.com/emersion/go-msgauth/dkim"
)

var (
	ErrNoSelector      = errors.New("dkim: selector is required")
	ErrNoPrivateKey    = errors.New("dkim: private key is required")
	ErrInvalidKey      = errors.New("dkim: invalid private key")
	ErrNoSigningDomain = errors.New("dkim: unable to determine signing domain")
	ErrSignFailed      = errors.New("dkim: signing failed")
)

// Config holds DKIM settings. Signing is disabled when every field is empty.
type Config struct {
	Selector   string `env:"SMTP_DKIM_SELECTOR"`
	Domain     string `env:"SMTP_DKIM_DOMAIN"`
	KeyPath    string `env:"SMTP_DKIM_KEY_PATH"`
	PrivateKey string `env:"SMTP_DKIM_PRIVATE_KEY"`
}

// Enabled reports whether any DKIM field is configured.
func (c Config) Enabled() bool {
	return c.Selector != "" || c.Domain != "" || c.KeyPath != "" || c.PrivateKey != ""
}

var defaultHeaderKeys = []string{
	"from",
	"to",
	"reply-to",
	"subject",
	"date",
	"mime-version",
	"content-type",
	"message-id",
}

// Signer applies DKIM signatures to messages. A nil *Signer passes
// messages through unchanged.
type Signer struct {
	domain     string
	selector   string
	key        crypto.Signer
	headerKeys []string
}

// New builds a Signer from cfg. It returns nil, nil when DKIM is disabled.
func New(cfg Config) (*Signer, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	if strings.TrimSpace(cfg.Selector) == "" {
		return nil, ErrNoSelector
	}

	var pemData []byte
	switch {
	case cfg.PrivateKey != "":
		pemData = []byte(cfg.PrivateKey)
	case cfg.KeyPath != "":
		data, err := os.ReadFile(cfg.KeyPath)
		if err != nil {
			return nil, errors.Join(ErrNoPrivateKey, err)
		}
		pemData = data
	default:
		return nil, ErrNoPrivateKey
	}

	key, err := parsePrivateKey(pemData)
	if err != nil {
		return nil, errors.Join(ErrInvalidKey, err)
	}

	return &Signer{
		domain:     strings.ToLower(strings.TrimSpace(cfg.Domain)),
		selector:   strings.TrimSpace(cfg.Selector),
		key:        key,
		headerKeys: defaultHeaderKeys,
	}, nil
}

// Selector returns the configured selector.
func (s *Signer) Selector() string {
	if s == nil {
		return ""
	}
	return s.selector
}

// Sign adds a DKIM-Signature header to message. The signing domain is the
// configured one, or the domain of from. Messages that already carry a
// signature are returned untouched.
func (s *Signer) Sign(message []byte, from string) ([]byte, error) {
	if s == nil || s.key == nil {
		return message, nil
	}
	if hasSignature(message) {
		return message, nil
	}

	domain := s.domain
	if domain == "" {
		domain = domainOf(from)
	}
	if domain == "" {
		return nil, ErrNoSigningDomain
	}

	opts := &msgauthdkim.SignOptions{
		Domain:                 domain,
		Selector:               s.selector,
		Signer:                 s.key,
		HeaderCanonicalization: msgauthdkim.CanonicalizationRelaxed,
		BodyCanonicalization:   msgauthdkim.CanonicalizationRelaxed,
		HeaderKeys:             s.headerKeys,
	}

	var signed bytes.Buffer
	if err := msgauthdkim.Sign(&signed, bytes.NewReader(crlf(message)), opts); err != nil {
		return nil, errors.Join(ErrSignFailed, err)
	}
	return signed.Bytes(), nil
}

func parsePrivateKey(pemData []byte) (crypto.Signer, error) {
	for {
		block, rest := pem.Decode(pemData)
		if block == nil {
			break
		}
		switch block.Type {
		case "RSA PRIVATE KEY":
			return x509.ParsePKCS1PrivateKey(block.Bytes)
		case "PRIVATE KEY":
			key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				return nil, err
			}
			if signer, ok := key.(crypto.Signer); ok {
				return signer, nil
			}
			return nil, fmt.Errorf("unsupported key type %T", key)
		}
		pemData = rest
	}
	return nil, errors.New("no private key block in PEM data")
}

func domainOf(address string) string {
	address = strings.Trim(strings.TrimSpace(address), "<>")
	if i := strings.LastIndex(address, "@"); i >= 0 && i+1 < len(address) {
		return strings.ToLower(address[i+1:])
	}
	return ""
}

func hasSignature(message []byte) bool {
	upper := bytes.ToUpper(message)
	return bytes.HasPrefix(upper, []byte("DKIM-SIGNATURE:")) || bytes.Contains(upper, []byte("\nDKIM-SIGNATURE:"))
}

// crlf converts bare LF line endings to CRLF.
func crlf(data []byte) []byte {
	if bytes.Contains(data, []byte("\r\n")) || !bytes.Contains(data, []byte("\n")) {
		return data
	}
	return bytes.ReplaceAll(data, []byte("\n"), []byte("\r\n"))
}
