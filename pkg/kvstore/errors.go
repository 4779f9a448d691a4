package kvstore

import "errors"

var (
	// ErrNoSuchKey indicates that there's no value for the given key.
	ErrNoSuchKey   = errors.New("no such key")
	ErrInvalidKey  = errors.New("invalid key")
	ErrStoreFailed = errors.New("kvstore operation failed")
)
