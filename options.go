package imoji

import (
	"image"
	"log/slog"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/imoji/pkg/async"
	"github.com/dmitrymomot/imoji/pkg/cache"
	"github.com/dmitrymomot/imoji/pkg/storage"
)

// Option configures a Session.
type Option func(*Session)

// WithConfig replaces DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(s *Session) {
		s.cfg = cfg
	}
}

// WithHTTPClient sets the HTTP client used for API calls and downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Session) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithLogger sets the session logger. Sessions log nothing by default.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithDelegate(d Delegate) Option {
	return func(s *Session) {
		s.delegate = d
	}
}

// WithContentCache replaces the in-memory LRU holding rendered stickers.
func WithContentCache(c cache.Cache[string, image.Image]) Option {
	return func(s *Session) {
		s.contentCache = c
	}
}

// WithBlobStore adds a shared tier for encoded renders, checked after the
// content cache. Config.Redis.ConnectionURL configures a Redis tier instead.
func WithBlobStore(b cache.BlobStore) Option {
	return func(s *Session) {
		s.blobs = b
	}
}

// WithDispatcher sets where callbacks and delegate notifications run.
// The default runs them on the operation's own goroutine.
func WithDispatcher(d async.Dispatcher) Option {
	return func(s *Session) {
		if d != nil {
			s.dispatcher = d
		}
	}
}

// WithLauncher sets how RequestUserSynchronization opens the companion app.
func WithLauncher(l Launcher) Option {
	return func(s *Session) {
		s.launcher = l
	}
}

// WithMetrics registers the session collectors on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *Session) {
		s.registerer = reg
	}
}

// WithClock sets the clock used for handshake and cache expiry.
func WithClock(c clockwork.Clock) Option {
	return func(s *Session) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithS3Client sets the client for an s3:// cache path.
func WithS3Client(client storage.S3Client) Option {
	return func(s *Session) {
		if client != nil {
			s.s3Options = append(s.s3Options, storage.WithS3Client(client))
		}
	}
}
