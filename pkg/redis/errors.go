package redis

import "errors"

// Connection errors. Parse and dial failures are joined with the cause.
var (
	ErrEmptyConnectionURL = errors.New("redis: connection url is empty")
	ErrFailedToParseURL   = errors.New("redis: invalid connection url")
	ErrConnectionFailed   = errors.New("redis: could not connect")
	ErrHealthcheckFailed  = errors.New("redis: ping failed")
)
