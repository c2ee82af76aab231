package oauth

// GoogleConfig holds the OAuth client used to refresh Gmail grants.
type GoogleConfig struct {
	ClientID     string   `env:"GOOGLE_OAUTH_CLIENT_ID"`
	ClientSecret string   `env:"GOOGLE_OAUTH_CLIENT_SECRET"`
	Scopes       []string `env:"GOOGLE_OAUTH_SCOPES" envSeparator:","`
}

// MicrosoftConfig holds the OAuth client used to refresh Office 365 grants.
type MicrosoftConfig struct {
	ClientID     string   `env:"MICROSOFT_OAUTH_CLIENT_ID"`
	ClientSecret string   `env:"MICROSOFT_OAUTH_CLIENT_SECRET"`
	Tenant       string   `env:"MICROSOFT_OAUTH_TENANT" envDefault:"common"`
	Scopes       []string `env:"MICROSOFT_OAUTH_SCOPES" envSeparator:","`
}
