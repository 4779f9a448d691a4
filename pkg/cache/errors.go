package cache

import "errors"

var (
	ErrTypeMismatch    = errors.New("cache: loaded value has unexpected type")
	ErrBlobNotFound    = errors.New("cache: blob not found")
	ErrBlobStoreFailed = errors.New("cache: blob store operation failed")
	ErrInvalidRedisURL = errors.New("cache: invalid redis connection url")
	ErrRedisNotReady   = errors.New("cache: redis did not respond to ping")
)
