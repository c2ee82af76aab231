package oauth

import (
	googleOAuth "golang.org/x/oauth2/google"
)

// GoogleProviderName is the identifier for Google OAuth provider.
const GoogleProviderName = "google"

// GoogleDefaultScopes returns the scopes a Gmail sending grant needs.
func GoogleDefaultScopes() []string {
	return []string{
		"https://www.googleapis.com/auth/gmail.send",
		"https://www.googleapis.com/auth/userinfo.email",
	}
}

// GoogleProvider refreshes Google grants.
type GoogleProvider struct {
	*provider
}

// NewGoogleProvider creates a new Google OAuth provider.
// Returns an error if ClientID or ClientSecret is empty.
func NewGoogleProvider(cfg GoogleConfig, opts ...Option) (*GoogleProvider, error) {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = GoogleDefaultScopes()
	}
	p, err := newProvider(GoogleProviderName, cfg.ClientID, cfg.ClientSecret, scopes, googleOAuth.Endpoint, opts)
	if err != nil {
		return nil, err
	}
	return &GoogleProvider{provider: p}, nil
}
