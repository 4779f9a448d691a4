package imoji

import (
	"fmt"
	"maps"
	"slices"

	"github.com/dmitrymomot/imoji/pkg/api"
)

// RenderSize selects which source asset of a sticker is used.
type RenderSize int

const (
	RenderSizeFullResolution RenderSize = iota
	RenderSizeThumbnail
)

var renderSizeKeys = map[RenderSize]string{
	RenderSizeFullResolution: "full",
	RenderSizeThumbnail:      "thumbnail",
}

// String returns the wire key of the size.
func (r RenderSize) String() string {
	if key, ok := renderSizeKeys[r]; ok {
		return key
	}
	return fmt.Sprintf("RenderSize(%d)", int(r))
}

// ParseRenderSize parses a wire key ("thumbnail" or "full").
func ParseRenderSize(s string) (RenderSize, error) {
	for size, key := range renderSizeKeys {
		if key == s {
			return size, nil
		}
	}
	return 0, invalidArgument("parse render size", "unknown render size %q", s)
}

// Imoji is an immutable sticker. Values are produced by a Session only.
type Imoji struct {
	id   string
	tags []string
	urls map[RenderSize]string
}

// newImoji converts the wire form. Stickers without an id are rejected;
// unknown URL keys are dropped.
func newImoji(w api.Imoji) (*Imoji, bool) {
	if w.ID == "" {
		return nil, false
	}
	im := &Imoji{
		id:   w.ID,
		tags: make([]string, 0, len(w.Tags)),
		urls: make(map[RenderSize]string, len(w.URLs)),
	}
	im.tags = append(im.tags, w.Tags...)
	for key, u := range w.URLs {
		size, err := ParseRenderSize(key)
		if err != nil || u == "" {
			continue
		}
		im.urls[size] = u
	}
	return im, true
}

func newImojis(ws []api.Imoji) []*Imoji {
	out := make([]*Imoji, 0, len(ws))
	for _, w := range ws {
		if im, ok := newImoji(w); ok {
			out = append(out, im)
		}
	}
	return out
}

// ID returns the opaque sticker identifier.
func (im *Imoji) ID() string { return im.id }

// Tags returns a copy of the ordered tag list. Never nil.
func (im *Imoji) Tags() []string { return slices.Clone(im.tags) }

// URL returns the source URL for size.
func (im *Imoji) URL(size RenderSize) (string, bool) {
	u, ok := im.urls[size]
	return u, ok
}

// URLs returns a copy of the size to URL mapping. Never nil.
func (im *Imoji) URLs() map[RenderSize]string {
	return maps.Clone(im.urls)
}

func (im *Imoji) String() string {
	return "imoji:" + im.id
}
