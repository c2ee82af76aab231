package oauth

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/oauth2"
)

// Provider refreshes access tokens for one OAuth issuer.
type Provider interface {
	// Name returns the provider identifier ("google", "microsoft").
	Name() string

	// Refresh exchanges a refresh token for a new token. The returned token
	// keeps the old refresh token when the issuer did not rotate it.
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// provider is the shared oauth2.Config based implementation.
type provider struct {
	name       string
	config     *oauth2.Config
	httpClient *http.Client
}

func newProvider(name, clientID, clientSecret string, scopes []string, endpoint oauth2.Endpoint, opts []Option) (*provider, error) {
	if clientID == "" {
		return nil, ErrMissingClientID
	}
	if clientSecret == "" {
		return nil, ErrMissingClientSecret
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.endpoint != nil {
		endpoint = *o.endpoint
	}

	return &provider{
		name: name,
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		httpClient: o.httpClient,
	}, nil
}

func (p *provider) Name() string {
	return p.name
}

func (p *provider) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}
	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}

	tok, err := p.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, errors.Join(ErrRefreshFailed, err)
	}
	return tok, nil
}
