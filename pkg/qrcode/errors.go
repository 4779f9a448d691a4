package qrcode

import "errors"

var (
	ErrEmptyContent     = errors.New("content cannot be empty")
	ErrGenerationFailed = errors.New("failed to generate QR code")
)
