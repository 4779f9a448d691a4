package render

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// BorderStyle selects the outline drawn around the sticker's opaque area.
type BorderStyle int

const (
	BorderNone BorderStyle = iota
	BorderSticker
)

// ShadowStyle selects the shadow drawn under the sticker.
type ShadowStyle int

const (
	ShadowNone ShadowStyle = iota
	ShadowDrop
)

// Options controls Render. A zero TargetSize keeps the source size.
type Options struct {
	TargetSize image.Point
	Border     BorderStyle
	Shadow     ShadowStyle
}

var (
	BorderColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	ShadowColor = color.NRGBA{A: 110}
)

// Decode parses PNG, JPEG, GIF or WebP data.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyImage
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", errors.Join(ErrDecode, err)
	}
	if img.Bounds().Empty() {
		return nil, "", ErrEmptyImage
	}
	return img, format, nil
}

// Probe reads only the header of data and returns its dimensions and format.
func Probe(data []byte) (image.Config, string, error) {
	if len(data) == 0 {
		return image.Config{}, "", ErrEmptyImage
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, "", errors.Join(ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return image.Config{}, "", ErrEmptyImage
	}
	return cfg, format, nil
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.Join(ErrEncode, err)
	}
	return buf.Bytes(), nil
}

// Render scales src to fit opts.TargetSize and applies border and shadow.
// Border and shadow grow the canvas, so decorated output is slightly larger
// than the scaled sticker; the whole result still fits TargetSize.
func Render(src image.Image, opts Options) (*image.NRGBA, error) {
	if src == nil || src.Bounds().Empty() {
		return nil, ErrEmptyImage
	}

	pad := 0
	var border, shadow int
	base := src.Bounds().Size()
	if opts.TargetSize.X > 0 && opts.TargetSize.Y > 0 {
		base = opts.TargetSize
	}
	unit := min(base.X, base.Y)
	if opts.Border == BorderSticker {
		border = max(1, unit/24)
		pad += border
	}
	if opts.Shadow == ShadowDrop {
		shadow = max(1, unit/40)
		pad += 2 * shadow
	}

	target := opts.TargetSize
	if target.X > 0 && target.Y > 0 {
		target = image.Pt(max(1, target.X-2*pad), max(1, target.Y-2*pad))
	}

	img := Scale(src, target)
	if border > 0 {
		img = AddBorder(img, border, BorderColor)
	}
	if shadow > 0 {
		img = AddShadow(img, shadow, ShadowColor)
	}
	return img, nil
}

// Scale resizes src to the largest size that fits inside target while
// keeping the aspect ratio. A non-positive target returns an NRGBA copy.
func Scale(src image.Image, target image.Point) *image.NRGBA {
	b := src.Bounds()
	size := b.Size()
	if target.X <= 0 || target.Y <= 0 || size == target {
		dst := image.NewNRGBA(image.Rectangle{Max: size})
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		return dst
	}

	w, h := target.X, size.Y*target.X/size.X
	if h > target.Y {
		w, h = size.X*target.Y/size.Y, target.Y
	}
	dst := image.NewNRGBA(image.Rect(0, 0, max(1, w), max(1, h)))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

// AddBorder outlines the opaque area of img with a band of the given width.
// The canvas grows by width on every side.
func AddBorder(img *image.NRGBA, width int, c color.NRGBA) *image.NRGBA {
	if width <= 0 {
		return img
	}
	padded := pad(img, width)
	mask := dilate(alpha(padded), padded.Bounds().Dx(), padded.Bounds().Dy(), width)

	out := image.NewNRGBA(padded.Bounds())
	fill(out, mask, c)
	draw.Draw(out, out.Bounds(), padded, image.Point{}, draw.Over)
	return out
}

// AddShadow draws a soft copy of img's silhouette offset down and right.
// The canvas grows by 2*radius on every side.
func AddShadow(img *image.NRGBA, radius int, c color.NRGBA) *image.NRGBA {
	if radius <= 0 {
		return img
	}
	padded := pad(img, 2*radius)
	b := padded.Bounds()
	w, h := b.Dx(), b.Dy()

	mask := shift(alpha(padded), w, h, radius, radius)
	mask = blur(mask, w, h, radius)

	out := image.NewNRGBA(b)
	fill(out, mask, c)
	draw.Draw(out, b, padded, image.Point{}, draw.Over)
	return out
}

func pad(img *image.NRGBA, n int) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx()+2*n, b.Dy()+2*n))
	draw.Draw(out, image.Rect(n, n, n+b.Dx(), n+b.Dy()), img, b.Min, draw.Src)
	return out
}

func alpha(img *image.NRGBA) []uint8 {
	b := img.Bounds()
	out := make([]uint8, b.Dx()*b.Dy())
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < b.Dx(); x++ {
			out[y*b.Dx()+x] = row[x*4+3]
		}
	}
	return out
}

// fill paints c into dst with per-pixel coverage from mask.
func fill(dst *image.NRGBA, mask []uint8, c color.NRGBA) {
	w := dst.Bounds().Dx()
	for i, m := range mask {
		if m == 0 {
			continue
		}
		x, y := i%w, i/w
		off := y*dst.Stride + x*4
		dst.Pix[off+0] = c.R
		dst.Pix[off+1] = c.G
		dst.Pix[off+2] = c.B
		dst.Pix[off+3] = uint8(uint16(m) * uint16(c.A) / 255)
	}
}

// dilate is a separable max filter of radius r.
func dilate(src []uint8, w, h, r int) []uint8 {
	tmp := make([]uint8, len(src))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var m uint8
			for k := max(0, x-r); k <= min(w-1, x+r) && m < 255; k++ {
				m = max(m, src[y*w+k])
			}
			tmp[y*w+x] = m
		}
	}
	out := make([]uint8, len(src))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			var m uint8
			for k := max(0, y-r); k <= min(h-1, y+r) && m < 255; k++ {
				m = max(m, tmp[k*w+x])
			}
			out[y*w+x] = m
		}
	}
	return out
}

// blur is a separable box blur of radius r using running sums.
func blur(src []uint8, w, h, r int) []uint8 {
	n := 2*r + 1
	tmp := make([]uint8, len(src))
	for y := 0; y < h; y++ {
		sum := 0
		for k := -r; k <= r; k++ {
			sum += int(at(src, w, h, k, y, true))
		}
		for x := 0; x < w; x++ {
			tmp[y*w+x] = uint8(sum / n)
			sum += int(at(src, w, h, x+r+1, y, true)) - int(at(src, w, h, x-r, y, true))
		}
	}
	out := make([]uint8, len(src))
	for x := 0; x < w; x++ {
		sum := 0
		for k := -r; k <= r; k++ {
			sum += int(at(tmp, w, h, x, k, false))
		}
		for y := 0; y < h; y++ {
			out[y*w+x] = uint8(sum / n)
			sum += int(at(tmp, w, h, x, y+r+1, false)) - int(at(tmp, w, h, x, y-r, false))
		}
	}
	return out
}

// at reads (x, y) with zero outside the image. horizontal only guards x.
func at(src []uint8, w, h, x, y int, horizontal bool) uint8 {
	if horizontal && (x < 0 || x >= w) {
		return 0
	}
	if !horizontal && (y < 0 || y >= h) {
		return 0
	}
	return src[y*w+x]
}

func shift(src []uint8, w, h, dx, dy int) []uint8 {
	out := make([]uint8, len(src))
	for y := 0; y < h; y++ {
		sy := y - dy
		if sy < 0 || sy >= h {
			continue
		}
		for x := 0; x < w; x++ {
			sx := x - dx
			if sx < 0 || sx >= w {
				continue
			}
			out[y*w+x] = src[sy*w+sx]
		}
	}
	return out
}
