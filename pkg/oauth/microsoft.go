package oauth

import (
	"golang.org/x/oauth2/microsoft"
)

// MicrosoftProviderName is the identifier for Microsoft identity platform.
const MicrosoftProviderName = "microsoft"

// MicrosoftDefaultScopes returns the scopes a Graph sendMail grant needs.
func MicrosoftDefaultScopes() []string {
	return []string{
		"offline_access",
		"https://graph.microsoft.com/Mail.Send",
	}
}

// MicrosoftProvider refreshes Office 365 grants.
type MicrosoftProvider struct {
	*provider
}

// NewMicrosoftProvider creates a provider for the configured Azure AD tenant.
func NewMicrosoftProvider(cfg MicrosoftConfig, opts ...Option) (*MicrosoftProvider, error) {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = MicrosoftDefaultScopes()
	}
	tenant := cfg.Tenant
	if tenant == "" {
		tenant = "common"
	}
	p, err := newProvider(MicrosoftProviderName, cfg.ClientID, cfg.ClientSecret, scopes, microsoft.AzureADEndpoint(tenant), opts)
	if err != nil {
		return nil, err
	}
	return &MicrosoftProvider{provider: p}, nil
}
