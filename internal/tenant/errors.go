package tenant

import "errors"

var (
	ErrCompanyNotFound = errors.New("tenant: company not found")
	ErrUserNotFound    = errors.New("tenant: user not found")
	ErrLookupFailed    = errors.New("tenant: company lookup failed")
	ErrLoadFailed      = errors.New("tenant: failed to load tenant context")
	ErrSaveTokenFailed = errors.New("tenant: failed to save oauth token")
)
