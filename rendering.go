package imoji

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/dmitrymomot/imoji/pkg/async"
	"github.com/dmitrymomot/imoji/pkg/cache"
	"github.com/dmitrymomot/imoji/pkg/logger"
	"github.com/dmitrymomot/imoji/pkg/render"
)

// Render produces im decorated per opts. Lookup order is the content cache,
// the shared blob tier, the cached source asset and finally the network.
// Concurrent renders of the same sticker and options share one render.
func (s *Session) Render(im *Imoji, opts RenderingOptions, cb RenderCallback) *Operation {
	const op = "render"
	return s.start(op, func(ctx context.Context, t *async.Task) {
		img, err := s.render(ctx, im, opts)
		if err != nil {
			s.logFailure(ctx, op, err)
		}
		s.deliver(ctx, t, func() {
			if cb != nil {
				cb(img, err)
			}
		})
	})
}

func (s *Session) render(ctx context.Context, im *Imoji, opts RenderingOptions) (image.Image, error) {
	const op = "render"

	if im == nil {
		return nil, invalidArgument(op, "nil imoji")
	}
	if err := opts.validate(); err != nil {
		return nil, newError(CodeInvalidArgument, op, err)
	}
	if _, ok := im.URL(opts.Size); !ok {
		return nil, newError(CodeRenderingUnavailable, op, fmt.Errorf("%s has no %s asset", im.ID(), opts.Size))
	}

	key := contentKey(im, opts)
	img, shared, err := s.renders.Get(ctx, key, func(ctx context.Context) (image.Image, error) {
		return s.produce(ctx, im, opts, key)
	})
	if shared {
		s.metrics.cacheHits.Inc()
	} else {
		s.metrics.cacheMisses.Inc()
	}
	if err != nil {
		return nil, err
	}
	return img, nil
}

// produce renders on a content cache miss.
func (s *Session) produce(ctx context.Context, im *Imoji, opts RenderingOptions, key string) (image.Image, error) {
	const op = "render"

	if img, ok := s.loadBlob(ctx, key); ok {
		return img, nil
	}

	src, err := s.asset(ctx, im, opts.Size)
	if err != nil {
		return nil, err
	}
	decoded, _, err := render.Decode(src)
	if err != nil {
		return nil, newError(CodeInvalidImage, op, err)
	}
	out, err := render.Render(decoded, opts.renderOptions())
	if err != nil {
		return nil, newError(CodeInvalidImage, op, err)
	}

	s.storeBlob(ctx, key, out)
	return out, nil
}

func (s *Session) loadBlob(ctx context.Context, key string) (image.Image, bool) {
	if s.blobs == nil {
		return nil, false
	}
	data, err := s.blobs.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrBlobNotFound) {
			s.logger.WarnContext(ctx, "render cache read failed", logger.Error(err))
		}
		return nil, false
	}
	img, _, err := render.Decode(data)
	if err != nil {
		s.logger.WarnContext(ctx, "render cache entry is corrupt", logger.Error(err))
		return nil, false
	}
	return img, true
}

func (s *Session) storeBlob(ctx context.Context, key string, img image.Image) {
	if s.blobs == nil {
		return
	}
	data, err := render.EncodePNG(img)
	if err == nil {
		err = s.blobs.Set(ctx, key, data, s.cfg.RenderCacheTTL)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "render cache write failed", logger.Error(err))
	}
}

func contentKey(im *Imoji, opts RenderingOptions) string {
	return im.ID() + "|" + opts.Key()
}
