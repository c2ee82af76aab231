package oauth

import "errors"

var (
	// ErrMissingClientID is returned when the OAuth client ID is not provided.
	ErrMissingClientID = errors.New("oauth: missing client ID")

	// ErrMissingClientSecret is returned when the OAuth client secret is not provided.
	ErrMissingClientSecret = errors.New("oauth: missing client secret")

	// ErrUnknownProvider is returned when no provider is registered under a name.
	ErrUnknownProvider = errors.New("oauth: unknown provider")

	// ErrNoRefreshToken is returned when an access token expired and the
	// grant carries no refresh token. The user has to reconnect the account.
	ErrNoRefreshToken = errors.New("oauth: no refresh token")

	// ErrRefreshFailed is returned when the provider rejected a refresh.
	ErrRefreshFailed = errors.New("oauth: token refresh failed")

	// ErrSaveFailed is returned when a rotated token could not be persisted.
	ErrSaveFailed = errors.New("oauth: failed to persist token")
)
