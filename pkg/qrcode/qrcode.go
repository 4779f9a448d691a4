package qrcode

import (
	"encoding/base64"
	"errors"
	"strings"

	skipqrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the PNG edge length used when size is not positive.
const DefaultSize = 256

// Level is the error recovery level. Higher levels survive more damage at
// the cost of denser codes.
type Level = skipqrcode.RecoveryLevel

const (
	Low     = skipqrcode.Low
	Medium  = skipqrcode.Medium
	High    = skipqrcode.High
	Highest = skipqrcode.Highest
)

type options struct {
	level Level
}

// Option configures code generation.
type Option func(*options)

// WithLevel sets the recovery level. Default is Medium.
func WithLevel(l Level) Option {
	return func(o *options) {
		o.level = l
	}
}

func build(content string, opts []Option) (*skipqrcode.QRCode, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	o := options{level: Medium}
	for _, opt := range opts {
		opt(&o)
	}
	q, err := skipqrcode.New(content, o.level)
	if err != nil {
		return nil, errors.Join(ErrGenerationFailed, err)
	}
	return q, nil
}

// PNG renders content as a size x size PNG.
func PNG(content string, size int, opts ...Option) ([]byte, error) {
	q, err := build(content, opts)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = DefaultSize
	}
	data, err := q.PNG(size)
	if err != nil {
		return nil, errors.Join(ErrGenerationFailed, err)
	}
	return data, nil
}

// DataURI renders content as a base64 PNG data URI for <img src>.
func DataURI(content string, size int, opts ...Option) (string, error) {
	data, err := PNG(content, size, opts...)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}

// Terminal renders content with half-block characters for a text terminal.
// inverse swaps dark and light modules for light-on-dark themes.
func Terminal(content string, inverse bool, opts ...Option) (string, error) {
	q, err := build(content, opts)
	if err != nil {
		return "", err
	}
	return q.ToSmallString(inverse), nil
}
