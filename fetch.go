package imoji

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/dmitrymomot/imoji/pkg/api"
	"github.com/dmitrymomot/imoji/pkg/async"
	"github.com/dmitrymomot/imoji/pkg/logger"
	"github.com/dmitrymomot/imoji/pkg/render"
	"github.com/dmitrymomot/imoji/pkg/storage"
)

// SearchOptions pages a search. Nil fields are left to the server.
type SearchOptions struct {
	Offset *int
	Limit  *int
}

func (o SearchOptions) validate() error {
	if o.Offset != nil && *o.Offset < 0 {
		return fmt.Errorf("negative offset %d", *o.Offset)
	}
	return validateLimit(o.Limit)
}

func validateLimit(limit *int) error {
	if limit != nil && *limit < 0 {
		return fmt.Errorf("negative limit %d", *limit)
	}
	return nil
}

// Categories lists the categories of a classification.
func (s *Session) Categories(c Classification, cb CategoriesCallback) *Operation {
	const op = "categories"
	return s.start(op, func(ctx context.Context, t *async.Task) {
		cats, err := s.categories(ctx, c)
		if err != nil {
			s.logFailure(ctx, op, err)
		}
		s.deliver(ctx, t, func() {
			if cb != nil {
				cb(cats, err)
			}
		})
	})
}

func (s *Session) categories(ctx context.Context, c Classification) ([]Category, error) {
	const op = "categories"
	if !c.valid() {
		return nil, invalidArgument(op, "unknown classification %d", int(c))
	}
	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	res, err := s.client.Categories(ctx, c.String())
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	return newCategories(res), nil
}

// Search looks stickers up by term. The term is trimmed and NFC-normalized;
// an empty term yields the featured set.
//
// rs is called once with the result count, then item once per result after
// its thumbnail is cached. On failure rs receives 0 and the error and item is
// never called.
func (s *Session) Search(term string, opts SearchOptions, rs ResultSetCallback, item ImojiCallback) *Operation {
	const op = "search"
	term = normalizeTerm(term)
	return s.stream(op, rs, item, func(ctx context.Context) ([]*Imoji, error) {
		if err := opts.validate(); err != nil {
			return nil, newError(CodeInvalidArgument, op, err)
		}
		if err := s.connect(ctx); err != nil {
			return nil, err
		}
		res, err := s.client.Search(ctx, api.SearchParams{
			Query:  term,
			Offset: opts.Offset,
			Limit:  opts.Limit,
		})
		if err != nil {
			return nil, s.fail(ctx, op, err)
		}
		return newImojis(res), nil
	})
}

// Featured lists featured stickers with the same streaming contract as Search.
func (s *Session) Featured(limit *int, rs ResultSetCallback, item ImojiCallback) *Operation {
	const op = "featured"
	return s.stream(op, rs, item, func(ctx context.Context) ([]*Imoji, error) {
		if err := validateLimit(limit); err != nil {
			return nil, newError(CodeInvalidArgument, op, err)
		}
		if err := s.connect(ctx); err != nil {
			return nil, err
		}
		res, err := s.client.Featured(ctx, limit)
		if err != nil {
			return nil, s.fail(ctx, op, err)
		}
		return newImojis(res), nil
	})
}

// FetchByIdentifiers resolves sticker ids. There is no result-set callback:
// failures, including an empty or invalid id list, are delivered once as
// item(nil, 0, err).
func (s *Session) FetchByIdentifiers(ids []string, item ImojiCallback) *Operation {
	const op = "fetch"
	ids = append([]string(nil), ids...)
	return s.start(op, func(ctx context.Context, t *async.Task) {
		results, err := s.fetch(ctx, ids)
		if err != nil {
			s.logFailure(ctx, op, err)
			s.deliver(ctx, t, func() {
				if item != nil {
					item(nil, 0, err)
				}
			})
			return
		}
		s.streamItems(ctx, t, results, item)
	})
}

func (s *Session) fetch(ctx context.Context, ids []string) ([]*Imoji, error) {
	const op = "fetch"
	if len(ids) == 0 {
		return nil, invalidArgument(op, "no identifiers")
	}
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return nil, invalidArgument(op, "empty identifier")
		}
	}
	if err := s.connect(ctx); err != nil {
		return nil, err
	}
	res, err := s.client.FetchMultiple(ctx, ids)
	if err != nil {
		return nil, s.fail(ctx, op, err)
	}
	return newImojis(res), nil
}

// stream runs a result-set operation: count first, then items.
func (s *Session) stream(op string, rs ResultSetCallback, item ImojiCallback, fetch func(ctx context.Context) ([]*Imoji, error)) *Operation {
	return s.start(op, func(ctx context.Context, t *async.Task) {
		results, err := fetch(ctx)
		if err != nil {
			s.logFailure(ctx, op, err)
			s.deliver(ctx, t, func() {
				if rs != nil {
					rs(0, err)
				}
			})
			return
		}
		s.logger.DebugContext(ctx, op+" results", logger.Count(len(results)))
		s.deliver(ctx, t, func() {
			if rs != nil {
				rs(len(results), nil)
			}
		})
		s.streamItems(ctx, t, results, item)
	})
}

// streamItems caches every thumbnail on a bounded pool and reports each
// result as soon as its download settles. index is the server rank.
func (s *Session) streamItems(ctx context.Context, t *async.Task, results []*Imoji, item ImojiCallback) {
	if item == nil {
		return
	}
	var g errgroup.Group
	g.SetLimit(s.cfg.DownloadConcurrency)
	for i, im := range results {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			_, err := s.asset(ctx, im, RenderSizeThumbnail)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.WarnContext(ctx, "thumbnail unavailable", logger.ImojiID(im.ID()), logger.Error(err))
				err = newError(CodeInvalidImage, "download thumbnail", err)
			}
			s.deliver(ctx, t, func() {
				item(im, i, err)
			})
			return nil
		})
	}
	_ = g.Wait()
}

// asset returns the source asset of im for size, from the cache storage when
// present and valid, otherwise from the network, storing it on the way.
func (s *Session) asset(ctx context.Context, im *Imoji, size RenderSize) ([]byte, error) {
	const op = "asset"

	src, ok := im.URL(size)
	if !ok {
		return nil, newError(CodeRenderingUnavailable, op, fmt.Errorf("%s has no %s asset", im.ID(), size))
	}
	key := assetKey(im.ID(), size)

	data, err := s.storage.Get(ctx, key)
	switch {
	case err == nil:
		if _, _, perr := render.Probe(data); perr == nil {
			return data, nil
		}
		s.logger.WarnContext(ctx, "cached asset is corrupt", logger.ImojiID(im.ID()))
	case isCanceled(ctx, err):
		return nil, ctx.Err()
	case !errors.Is(err, storage.ErrNotFound):
		s.logger.WarnContext(ctx, "cache read failed", logger.ImojiID(im.ID()), logger.Error(err))
	}

	data, err = s.client.Download(ctx, src)
	if err != nil {
		return nil, classify(ctx, op, err)
	}
	if _, _, err := render.Probe(data); err != nil {
		return nil, newError(CodeInvalidImage, op, err)
	}
	if err := s.storage.Put(ctx, key, data); err != nil && !isCanceled(ctx, err) {
		s.logger.WarnContext(ctx, "cache write failed", logger.ImojiID(im.ID()), logger.Error(err))
	}
	return data, nil
}

func assetKey(id string, size RenderSize) string {
	seg := url.PathEscape(id)
	if seg == "." || seg == ".." {
		seg = strings.ReplaceAll(seg, ".", "%2E")
	}
	return path.Join("assets", seg, size.String())
}

func normalizeTerm(term string) string {
	return norm.NFC.String(strings.TrimSpace(term))
}

func (s *Session) logFailure(ctx context.Context, op string, err error) {
	if isCanceled(ctx, err) {
		return
	}
	s.logger.WarnContext(ctx, op+" failed", logger.Error(err))
}
