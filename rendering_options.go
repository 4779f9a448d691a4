package imoji

import (
	"fmt"
	"image"

	"github.com/dmitrymomot/imoji/pkg/render"
)

type (
	BorderStyle = render.BorderStyle
	ShadowStyle = render.ShadowStyle
)

const (
	BorderNone    = render.BorderNone
	BorderSticker = render.BorderSticker

	ShadowNone = render.ShadowNone
	ShadowDrop = render.ShadowDrop
)

// RenderingOptions controls Session.Render. The zero value equals
// DefaultRenderingOptions: full resolution, undecorated, source size.
type RenderingOptions struct {
	Size       RenderSize
	Border     BorderStyle
	Shadow     ShadowStyle
	TargetSize image.Point // zero keeps the source size
}

func DefaultRenderingOptions() RenderingOptions {
	return RenderingOptions{Size: RenderSizeFullResolution}
}

// Key is a stable string identifying the options in cache keys.
func (o RenderingOptions) Key() string {
	return fmt.Sprintf("%s-b%d-s%d-%dx%d", o.Size, o.Border, o.Shadow, o.TargetSize.X, o.TargetSize.Y)
}

func (o RenderingOptions) validate() error {
	if _, ok := renderSizeKeys[o.Size]; !ok {
		return fmt.Errorf("unknown render size %d", int(o.Size))
	}
	if o.Border != BorderNone && o.Border != BorderSticker {
		return fmt.Errorf("unknown border style %d", int(o.Border))
	}
	if o.Shadow != ShadowNone && o.Shadow != ShadowDrop {
		return fmt.Errorf("unknown shadow style %d", int(o.Shadow))
	}
	if o.TargetSize.X < 0 || o.TargetSize.Y < 0 {
		return fmt.Errorf("negative target size %v", o.TargetSize)
	}
	return nil
}

func (o RenderingOptions) renderOptions() render.Options {
	return render.Options{TargetSize: o.TargetSize, Border: o.Border, Shadow: o.Shadow}
}
