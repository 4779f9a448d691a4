package imoji

import (
	"fmt"

	"github.com/dmitrymomot/imoji/pkg/api"
)

// Classification groups categories.
type Classification int

const (
	ClassificationTrending Classification = iota
	ClassificationGeneric
)

func (c Classification) String() string {
	switch c {
	case ClassificationTrending:
		return "trending"
	case ClassificationGeneric:
		return "generic"
	default:
		return fmt.Sprintf("Classification(%d)", int(c))
	}
}

func (c Classification) valid() bool {
	return c == ClassificationTrending || c == ClassificationGeneric
}

// Category is a named group of stickers with a preview sticker.
type Category struct {
	ID      string
	Title   string
	Preview *Imoji
}

func newCategories(ws []api.Category) []Category {
	out := make([]Category, 0, len(ws))
	for _, w := range ws {
		if w.ID == "" {
			continue
		}
		c := Category{ID: w.ID, Title: w.Title}
		if w.Imoji != nil {
			c.Preview, _ = newImoji(*w.Imoji)
		}
		out = append(out, c)
	}
	return out
}
