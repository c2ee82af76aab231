package failure

import (
	"embed"
	"io/fs"

	"github.com/dmitrymomot/courier/pkg/i18n"
)

//go:embed locales
var locales embed.FS

const namespace = "failure"

// Messages renders recipient-facing failure messages in the tenant locale.
type Messages struct {
	catalog *i18n.Catalog
}

// NewMessages loads the built-in catalogs.
func NewMessages() (*Messages, error) {
	sub, err := fs.Sub(locales, "locales")
	if err != nil {
		return nil, err
	}
	cat, err := i18n.Load(sub)
	if err != nil {
		return nil, err
	}
	return &Messages{catalog: cat}, nil
}

// Message returns the text shown on the entity and written to the audit log.
// Transient and malformed failures report the provider error as is.
func (m *Messages) Message(v Verdict, locale, recipient string) string {
	switch v.Reason {
	case ReasonTooLarge:
		return m.catalog.T(locale, namespace, "too_large", nil)
	case ReasonSuppressed:
		return m.catalog.T(locale, namespace, "suppressed", i18n.M{"email": recipient})
	default:
		return v.Detail
	}
}

// Catalog exposes the loaded catalog to other message producers.
func (m *Messages) Catalog() *i18n.Catalog {
	return m.catalog
}
