package transport

import "errors"

var (
	ErrUnknownMethod      = errors.New("transport: unknown sending method")
	ErrUnknownTransport   = errors.New("transport: unknown transport")
	ErrCredentialsMissing = errors.New("transport: provider credentials missing")
	ErrCrossTenantSender  = errors.New("transport: sending user belongs to another account")
	ErrSendingUser        = errors.New("transport: sending user not available")
	ErrTokenUnavailable   = errors.New("transport: oauth token unavailable")
)
