package cache

import "errors"

var (
	// ErrNotFound means the key is absent or expired in every layer.
	ErrNotFound = errors.New("cache: miss")
	ErrClosed   = errors.New("cache: used after close")

	// Codec errors of the Redis layer.
	ErrMarshal   = errors.New("cache: encode value")
	ErrUnmarshal = errors.New("cache: decode value")
)
