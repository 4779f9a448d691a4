package handshake

import "errors"

var (
	ErrInvalidConfig   = errors.New("invalid handshake configuration")
	ErrNotCallback     = errors.New("url is not a handshake callback")
	ErrStateNotFound   = errors.New("handshake state not found or expired")
	ErrMissingCode     = errors.New("handshake callback carries no code")
	ErrAccessDenied    = errors.New("authorization denied by companion app")
	ErrStateGeneration = errors.New("failed to generate handshake state")
)
