package render

import "errors"

var (
	ErrDecode     = errors.New("cannot decode image")
	ErrEmptyImage = errors.New("image has no pixels")
	ErrEncode     = errors.New("cannot encode image")
)
